package command

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookauthor/internal/catalogserver"
	"bookauthor/internal/models"
)

func newCatalog(t *testing.T) (*catalogserver.MemoryStore, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := catalogserver.NewMemoryStore()
	r := gin.New()
	catalogserver.NewHandler(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return store, srv.URL
}

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--api", url, "--timeout", "5s"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func seedAuthor(t *testing.T, store *catalogserver.MemoryStore, first, last string) *models.Author {
	t.Helper()
	a, err := store.CreateAuthor(context.Background(), models.AuthorInput{
		FirstName: first,
		LastName:  last,
		DOB:       models.NewDate(1950, time.March, 1),
	})
	require.NoError(t, err)
	return a
}

func TestBooksCreateLinksAuthors(t *testing.T) {
	store, url := newCatalog(t)
	ann := seedAuthor(t, store, "Ann", "Lee")
	bob := seedAuthor(t, store, "Bob", "Ray")

	out, err := run(t, url, "books", "create",
		"--isbn", "111", "--title", "Dune", "--pages", "412", "--published", "1965",
		"--author", ann.ID, "--author", bob.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Book 111 created.")

	book, err := store.GetBook(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.ElementsMatch(t, []string{ann.ID, bob.ID}, book.AuthorIDs())
}

func TestBooksCreateRequiresTitle(t *testing.T) {
	store, url := newCatalog(t)

	_, err := run(t, url, "books", "create", "--isbn", "111", "--pages", "10", "--published", "2000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Title is required")

	books, err := store.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestBooksUpdateKeepsUnsetFields(t *testing.T) {
	store, url := newCatalog(t)
	ann := seedAuthor(t, store, "Ann", "Lee")
	_, err := store.CreateBook(context.Background(), models.BookInput{ISBN: "111", Title: "Dune", Pages: 412, Published: 1965})
	require.NoError(t, err)
	require.NoError(t, store.AddBookAuthor(context.Background(), "111", ann.ID))

	_, err = run(t, url, "books", "update", "111", "--title", "Dune Messiah")
	require.NoError(t, err)

	book, err := store.GetBook(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", book.Title)
	assert.Equal(t, 412, book.Pages)
	assert.Equal(t, models.Year(1965), book.Published)
	assert.Equal(t, []string{ann.ID}, book.AuthorIDs())
}

func TestBooksSetAuthors(t *testing.T) {
	store, url := newCatalog(t)
	ctx := context.Background()
	a := seedAuthor(t, store, "A", "One")
	b := seedAuthor(t, store, "B", "Two")
	c := seedAuthor(t, store, "C", "Three")
	_, err := store.CreateBook(ctx, models.BookInput{ISBN: "111", Title: "Dune", Pages: 1, Published: 1965})
	require.NoError(t, err)
	require.NoError(t, store.AddBookAuthor(ctx, "111", a.ID))
	require.NoError(t, store.AddBookAuthor(ctx, "111", b.ID))

	out, err := run(t, url, "books", "set-authors", "111", b.ID, c.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "1 removed, 2 added")

	book, err := store.GetBook(ctx, "111")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, book.AuthorIDs())
}

func TestBooksGetNotFound(t *testing.T) {
	_, url := newCatalog(t)

	_, err := run(t, url, "books", "get", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get book")
}

func TestBooksListJSON(t *testing.T) {
	store, url := newCatalog(t)
	_, err := store.CreateBook(context.Background(), models.BookInput{ISBN: "111", Title: "Dune", Pages: 1, Published: 1965})
	require.NoError(t, err)

	out, err := run(t, url, "--json", "books", "list")
	require.NoError(t, err)

	var books []models.Book
	require.NoError(t, json.Unmarshal([]byte(out), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}

func TestAuthorsCreateAndDelete(t *testing.T) {
	store, url := newCatalog(t)
	ctx := context.Background()
	_, err := store.CreateBook(ctx, models.BookInput{ISBN: "111", Title: "Dune", Pages: 1, Published: 1965})
	require.NoError(t, err)

	_, err = run(t, url, "authors", "create",
		"--first-name", "Frank", "--last-name", "Herbert", "--dob", "1920-10-08", "--book", "111")
	require.NoError(t, err)

	authors, err := store.ListAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Frank Herbert", authors[0].FullName())
	assert.Equal(t, []string{"111"}, authors[0].BookISBNs())

	out, err := run(t, url, "authors", "delete", authors[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	authors, err = store.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Empty(t, authors)
}

func TestAuthorsSetBooks(t *testing.T) {
	store, url := newCatalog(t)
	ctx := context.Background()
	a := seedAuthor(t, store, "Ann", "Lee")
	for _, isbn := range []string{"1", "2", "3"} {
		_, err := store.CreateBook(ctx, models.BookInput{ISBN: isbn, Title: "Book " + isbn, Pages: 1, Published: 2000})
		require.NoError(t, err)
	}
	require.NoError(t, store.AddBookAuthor(ctx, "1", a.ID))

	_, err := run(t, url, "authors", "set-books", a.ID, "2", "3")
	require.NoError(t, err)

	got, err := store.GetAuthor(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, got.BookISBNs())
}

func TestSearchAuthorsExcludesSelected(t *testing.T) {
	store, url := newCatalog(t)
	ann := seedAuthor(t, store, "Ann", "Lee")
	seedAuthor(t, store, "Anna", "Karenina")
	seedAuthor(t, store, "Bob", "Ray")

	out, err := run(t, url, "search", "authors", "ann", "--exclude", ann.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Anna Karenina")
	assert.NotContains(t, out, "Ann Lee")
	assert.NotContains(t, out, "Bob Ray")
}

func TestSearchBooksNoMatch(t *testing.T) {
	store, url := newCatalog(t)
	_, err := store.CreateBook(context.Background(), models.BookInput{ISBN: "111", Title: "Dune", Pages: 1, Published: 1965})
	require.NoError(t, err)

	out, err := run(t, url, "search", "books", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching books.")
}
