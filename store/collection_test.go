package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"devdeck/models"
)

func note(id, project string) models.DevNote {
	return models.DevNote{Base: models.Base{ID: id}, ProjectID: project, Tags: []string{id}}
}

func TestCollectionKeepsOrderAcrossRemovals(t *testing.T) {
	c := newCollection[models.DevNote]()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		c.Append(note(id, "p"))
	}

	assert.True(t, c.Remove("b"))
	assert.False(t, c.Remove("b"))
	removed := c.RemoveWhere(func(n *models.DevNote) bool { return n.ID == "a" || n.ID == "e" })
	assert.Equal(t, []string{"a", "e"}, removed)

	var ids []string
	for _, n := range c.All() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"c", "d"}, ids)

	got, ok := c.Get("d")
	assert.True(t, ok)
	assert.Equal(t, "d", got.ID)
	assert.True(t, c.Update("c", func(n *models.DevNote) { n.Title = "third" }))
	got, _ = c.Get("c")
	assert.Equal(t, "third", got.Title)
}

func TestCollectionResetDropsDuplicateIDs(t *testing.T) {
	c := newCollection[models.DevNote]()
	src := []models.DevNote{note("x", "p"), note("y", "p"), note("x", "q")}
	c.Reset(src)

	assert.Equal(t, 2, c.Len())
	got, _ := c.Get("x")
	assert.Equal(t, "p", got.ProjectID)

	src[1].Tags[0] = "changed"
	got, _ = c.Get("y")
	assert.Equal(t, []string{"y"}, got.Tags)
}

func TestChildrenHelpers(t *testing.T) {
	c := newCollection[models.DevNote]()
	c.Append(note("a", "p1"))
	c.Append(note("b", "p2"))
	c.Append(note("c", "p1"))

	assert.Len(t, childrenOf(c, "p1"), 2)
	assert.Equal(t, []string{"a", "c"}, removeChildren(c, "p1"))
	assert.Empty(t, childrenOf(c, "p1"))
	assert.NotNil(t, childrenOf(c, "p1"))
	assert.Nil(t, removeChildren(c, "p1"))
}
