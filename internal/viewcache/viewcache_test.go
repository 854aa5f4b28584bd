package viewcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookauthor/internal/catalog"
	"bookauthor/internal/models"
)

// countingAPI answers the read calls the cache wraps and counts them.
type countingAPI struct {
	catalog.API
	books    []models.Book
	lists    int
	gets     int
	deletes  int
	getErr   error
	writeErr error
}

func (f *countingAPI) ListBooks(context.Context) ([]models.Book, error) {
	f.lists++
	return f.books, nil
}

func (f *countingAPI) GetBook(_ context.Context, isbn string) (*models.Book, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, b := range f.books {
		if b.ISBN == isbn {
			return &b, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (f *countingAPI) DeleteBook(context.Context, string) error {
	f.deletes++
	return f.writeErr
}

func newFixture(ttl time.Duration) (*countingAPI, *Catalog) {
	api := &countingAPI{books: []models.Book{
		{ISBN: "111", Title: "Na Drini ćuprija", Pages: 300, Published: 1945,
			Authors: []models.AuthorSummary{{ID: "a1", FirstName: "Ivo", LastName: "Andrić"}}},
	}}
	return api, New(api, NewMemoryStore(), ttl, nil)
}

func TestCatalog_ReadsAreCached(t *testing.T) {
	api, c := newFixture(time.Minute)
	ctx := context.Background()

	first, err := c.ListBooks(ctx)
	require.NoError(t, err)
	second, err := c.ListBooks(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, api.lists)
	assert.Equal(t, first, second)
	assert.Equal(t, "Andrić", second[0].Authors[0].LastName)
}

func TestCatalog_WriteInvalidates(t *testing.T) {
	api, c := newFixture(time.Minute)
	ctx := context.Background()

	_, err := c.ListBooks(ctx)
	require.NoError(t, err)
	require.NoError(t, c.DeleteBook(ctx, "111"))
	_, err = c.ListBooks(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, api.lists)
}

func TestCatalog_FailedWriteStillInvalidates(t *testing.T) {
	api, c := newFixture(time.Minute)
	api.writeErr = errors.New("boom")
	ctx := context.Background()

	_, _ = c.ListBooks(ctx)
	assert.Error(t, c.DeleteBook(ctx, "111"))
	_, _ = c.ListBooks(ctx)

	assert.Equal(t, 2, api.lists)
}

func TestCatalog_FreshBypassesCache(t *testing.T) {
	api, c := newFixture(time.Minute)
	ctx := context.Background()

	_, _ = c.GetBook(ctx, "111")
	_, _ = c.GetBook(Fresh(ctx), "111")
	_, _ = c.GetBook(ctx, "111")

	assert.Equal(t, 2, api.gets)
}

func TestCatalog_ErrorsAreNotCached(t *testing.T) {
	api, c := newFixture(time.Minute)
	ctx := context.Background()

	_, err := c.GetBook(ctx, "999")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = c.GetBook(ctx, "999")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.Equal(t, 2, api.gets)
}

func TestCatalog_ZeroTTLDisables(t *testing.T) {
	api, c := newFixture(0)
	ctx := context.Background()

	_, _ = c.ListBooks(ctx)
	_, _ = c.ListBooks(ctx)

	assert.Equal(t, 2, api.lists)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Second))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(time.Second)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Incr(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	n, err := m.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = m.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, m.Set(ctx, "word", []byte("abc"), 0))
	_, err = m.Incr(ctx, "word")
	assert.Error(t, err)
}
