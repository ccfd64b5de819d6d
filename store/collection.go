package store

import "devdeck/models"

// entity is satisfied by pointers to the model types.
type entity[T any] interface {
	*T
	Meta() *models.Base
	Clone() T
}

// child is an entity that belongs to a project.
type child[T any] interface {
	entity[T]
	ProjectRef() string
}

// Collection is an ordered set of entities indexed by id. Items keep their
// insertion order; reads hand out clones.
type Collection[T any, P entity[T]] struct {
	items []T
	index map[string]int
}

func newCollection[T any, P entity[T]]() *Collection[T, P] {
	return &Collection[T, P]{items: []T{}, index: map[string]int{}}
}

func (c *Collection[T, P]) Len() int { return len(c.items) }

func (c *Collection[T, P]) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Append adds item at the end. The caller assigns a unique id.
func (c *Collection[T, P]) Append(item T) {
	c.index[P(&item).Meta().ID] = len(c.items)
	c.items = append(c.items, item)
}

func (c *Collection[T, P]) Get(id string) (T, bool) {
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return P(&c.items[i]).Clone(), true
}

// Update runs fn on the stored item in place. It reports false for an
// unknown id.
func (c *Collection[T, P]) Update(id string, fn func(P)) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	fn(P(&c.items[i]))
	return true
}

func (c *Collection[T, P]) Remove(id string) bool {
	if !c.Has(id) {
		return false
	}
	c.RemoveWhere(func(p P) bool { return p.Meta().ID == id })
	return true
}

// RemoveWhere drops every item matching pred and returns their ids in
// order.
func (c *Collection[T, P]) RemoveWhere(pred func(P) bool) []string {
	var removed []string
	kept := c.items[:0]
	for i := range c.items {
		if pred(P(&c.items[i])) {
			removed = append(removed, P(&c.items[i]).Meta().ID)
			continue
		}
		kept = append(kept, c.items[i])
	}
	if len(removed) == 0 {
		return nil
	}
	// clear the tail so dropped items can be collected
	var zero T
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = zero
	}
	c.items = kept
	c.reindex()
	return removed
}

func (c *Collection[T, P]) All() []T {
	return c.Filter(func(P) bool { return true })
}

// Filter returns clones of the matching items in insertion order, never nil.
func (c *Collection[T, P]) Filter(pred func(P) bool) []T {
	out := []T{}
	for i := range c.items {
		if p := P(&c.items[i]); pred(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Reset replaces the contents with clones of items. Later duplicates of an
// id are dropped.
func (c *Collection[T, P]) Reset(items []T) {
	c.items = make([]T, 0, len(items))
	c.index = make(map[string]int, len(items))
	for i := range items {
		item := P(&items[i]).Clone()
		if c.Has(P(&item).Meta().ID) {
			continue
		}
		c.Append(item)
	}
}

func (c *Collection[T, P]) reindex() {
	c.index = make(map[string]int, len(c.items))
	for i := range c.items {
		c.index[P(&c.items[i]).Meta().ID] = i
	}
}

func removeChildren[T any, P child[T]](c *Collection[T, P], projectID string) []string {
	return c.RemoveWhere(func(p P) bool { return p.ProjectRef() == projectID })
}

func childrenOf[T any, P child[T]](c *Collection[T, P], projectID string) []T {
	return c.Filter(func(p P) bool { return p.ProjectRef() == projectID })
}
