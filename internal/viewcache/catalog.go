// Package viewcache caches catalog reads for the web front-end.
//
// Every cached key embeds a generation number. Any write made through the
// wrapper bumps the generation, so older entries are never read again and
// simply expire. Reads made under Fresh always go to the remote service.
package viewcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"bookauthor/internal/catalog"
	"bookauthor/internal/models"
)

const generationKey = "generation"

type freshKey struct{}

// Fresh marks ctx so that catalog reads bypass the cache.
func Fresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshKey{}, true)
}

func isFresh(ctx context.Context) bool {
	v, _ := ctx.Value(freshKey{}).(bool)
	return v
}

// Catalog wraps a catalog.API with a read-through cache.
type Catalog struct {
	next   catalog.API
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

var _ catalog.API = (*Catalog)(nil)

// New returns a caching Catalog. A zero ttl disables caching entirely.
func New(next catalog.API, store Store, ttl time.Duration, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{next: next, store: store, ttl: ttl, logger: logger}
}

func (c *Catalog) enabled(ctx context.Context) bool {
	return c.store != nil && c.ttl > 0 && !isFresh(ctx)
}

func (c *Catalog) generation(ctx context.Context) (int64, error) {
	raw, ok, err := c.store.Get(ctx, generationKey)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// Invalidate drops every cached view.
func (c *Catalog) Invalidate(ctx context.Context) {
	if c.store == nil {
		return
	}
	if _, err := c.store.Incr(ctx, generationKey); err != nil {
		c.logger.Warn("view cache invalidation failed", "error", err)
	}
}

// cached serves key from the store or fills it from load. Store failures
// degrade to an uncached read.
func cached[T any](ctx context.Context, c *Catalog, key string, load func(context.Context) (T, error)) (T, error) {
	if !c.enabled(ctx) {
		return load(ctx)
	}

	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("view cache unavailable", "error", err)
		return load(ctx)
	}
	full := fmt.Sprintf("g%d:%s", gen, key)

	if raw, ok, err := c.store.Get(ctx, full); err == nil && ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.logger.Debug("view cache hit", "key", full)
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := c.store.Set(ctx, full, raw, c.ttl); err != nil {
			c.logger.Warn("view cache write failed", "key", full, "error", err)
		}
	}
	return v, nil
}

func (c *Catalog) ListBooks(ctx context.Context) ([]models.Book, error) {
	return cached(ctx, c, "books", c.next.ListBooks)
}

func (c *Catalog) GetBook(ctx context.Context, isbn string) (*models.Book, error) {
	return cached(ctx, c, "book:"+isbn, func(ctx context.Context) (*models.Book, error) {
		return c.next.GetBook(ctx, isbn)
	})
}

func (c *Catalog) ListAuthors(ctx context.Context) ([]models.Author, error) {
	return cached(ctx, c, "authors", c.next.ListAuthors)
}

func (c *Catalog) GetAuthor(ctx context.Context, id string) (*models.Author, error) {
	return cached(ctx, c, "author:"+id, func(ctx context.Context) (*models.Author, error) {
		return c.next.GetAuthor(ctx, id)
	})
}

func (c *Catalog) ListBookAuthors(ctx context.Context, isbn string) ([]models.AuthorSummary, error) {
	return cached(ctx, c, "book-authors:"+isbn, func(ctx context.Context) ([]models.AuthorSummary, error) {
		return c.next.ListBookAuthors(ctx, isbn)
	})
}

// Writes pass straight through. The generation is bumped whether or not
// the write succeeded, since a failed request may still have been applied.

func (c *Catalog) CreateBook(ctx context.Context, in models.BookInput, image *catalog.Upload) (*models.Book, error) {
	defer c.Invalidate(context.WithoutCancel(ctx))
	return c.next.CreateBook(ctx, in, image)
}

func (c *Catalog) UpdateBook(ctx context.Context, isbn string, in models.BookInput, image *catalog.Upload) (*models.Book, error) {
	defer c.Invalidate(context.WithoutCancel(ctx))
	return c.next.UpdateBook(ctx, isbn, in, image)
}

func (c *Catalog) DeleteBook(ctx context.Context, isbn string) error {
	defer c.Invalidate(context.WithoutCancel(ctx))
	return c.next.DeleteBook(ctx, isbn)
}

func (c *Catalog) CreateAuthor(ctx context.Context, in models.AuthorInput, image *catalog.Upload) (*models.Author, error) {
	defer c.Invalidate(context.WithoutCancel(ctx))
	return c.next.CreateAuthor(ctx, in, image)
}

func (c *Catalog) UpdateAuthor(ctx context.Context, id string, in models.AuthorInput, image *catalog.Upload) (*models.Author, error) {
	defer c.Invalidate(context.WithoutCancel(ctx))
	return c.next.UpdateAuthor(ctx, id, in, image)
}

func (c *Catalog) DeleteAuthor(ctx context.Context, id string) error {
	defer c.Invalidate(context.WithoutCancel(ctx))
	return c.next.DeleteAuthor(ctx, id)
}

func (c *Catalog) AddBookAuthor(ctx context.Context, isbn, authorID string) error {
	defer c.Invalidate(context.WithoutCancel(ctx))
	return c.next.AddBookAuthor(ctx, isbn, authorID)
}

func (c *Catalog) RemoveBookAuthor(ctx context.Context, isbn, authorID string) error {
	defer c.Invalidate(context.WithoutCancel(ctx))
	return c.next.RemoveBookAuthor(ctx, isbn, authorID)
}
