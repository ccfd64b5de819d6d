package main

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdeck/db"
	"devdeck/models"
	"devdeck/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(db.NewMemoryAdapter(nil), store.WithIDGenerator(sequentialIDs()))
	s.Hydrate(context.Background())
	return s
}

func sequentialIDs() func() string {
	ids := []string{"aaaa1111", "aaaa2222", "bbbb3333", "cccc4444", "dddd5555", "eeee6666"}
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestLookupProject(t *testing.T) {
	s := newTestStore(t)
	web, err := s.AddProject(models.Project{Name: "Website"})
	require.NoError(t, err)
	api, err := s.AddProject(models.Project{Name: "API"})
	require.NoError(t, err)
	_, err = s.AddProject(models.Project{Name: "Blog"})
	require.NoError(t, err)

	p, err := lookupProject(s, web.ID)
	require.NoError(t, err)
	assert.Equal(t, web.ID, p.ID)

	p, err = lookupProject(s, "api")
	require.NoError(t, err)
	assert.Equal(t, api.ID, p.ID)

	p, err = lookupProject(s, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, "Blog", p.Name)

	_, err = lookupProject(s, "aaaa")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = lookupProject(s, "nope")
	assert.ErrorContains(t, err, "not found")

	_, err = lookupProject(s, "")
	assert.Error(t, err)
}

func TestResolveID(t *testing.T) {
	ids := []string{"abc123", "abd456"}

	id, err := resolveID("task", "abc", ids)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = resolveID("task", "ab", ids)
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveID("task", "zz", ids)
	assert.ErrorContains(t, err, "not found")

	_, err = resolveID("task", "", ids)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDate("2026-10-14")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "2026-10-14", d.Local().Format("2006-01-02"))

	_, err = parseDate("14/10/2026")
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, []string{"go", "sqlite"}, splitList(" go, ,sqlite "))
	assert.Equal(t, []string{}, splitList(""))
	assert.Equal(t, "********", mask("short"))
	assert.Equal(t, "****cdef", mask("0123456789abcdef"))
	assert.Equal(t, "abcd...", truncateString("abcdefghij", 7))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestTruncateStringKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abcdefghij", 7, "abcd..."},
		{"short", 10, "short"},
		{"Überprüfung der Größe", 8, "Überp..."},
		{"日本語のタイトルです", 6, "日本語..."},
		{"abcdef", 3, "abc"},
		{"abcdef", 1, "a"},
		{"abcdef", 0, ""},
		{"abcdef", -2, ""},
	}
	for _, tt := range tests {
		got := truncateString(tt.in, tt.n)
		assert.Equal(t, tt.want, got, "truncateString(%q, %d)", tt.in, tt.n)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestSeedSampleData(t *testing.T) {
	s := store.New(db.NewMemoryAdapter(nil))
	s.Hydrate(context.Background())

	n, err := seedSampleData(s)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	counts := s.Counts()
	assert.Equal(t, 4, counts[store.KindProject])
	assert.Equal(t, 8, counts[store.KindTask])
	assert.Equal(t, 4, counts[store.KindNote])
}

func TestCommandTree(t *testing.T) {
	app := newApp()
	names := map[string]bool{}
	for _, c := range app.Commands {
		names[c.Name] = true
	}
	for _, want := range []string{"project", "task", "issue", "note", "secret", "member", "goal", "resource", "backup", "scan", "budget", "vault", "doctor", "seed"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
