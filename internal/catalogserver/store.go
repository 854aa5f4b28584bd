// Package catalogserver is a reference implementation of the remote book
// and author REST service. It backs local development, the CLI demo setup
// and the front-end's end-to-end tests.
package catalogserver

import (
	"context"
	"errors"

	"bookauthor/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Store persists books, authors and the association between them.
// Detail reads embed summaries of the other side, ordered by name/title.
type Store interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, isbn string) (*models.Book, error)
	CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error)
	UpdateBook(ctx context.Context, isbn string, in models.BookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, isbn string) error

	ListAuthors(ctx context.Context) ([]models.Author, error)
	GetAuthor(ctx context.Context, id string) (*models.Author, error)
	CreateAuthor(ctx context.Context, in models.AuthorInput) (*models.Author, error)
	UpdateAuthor(ctx context.Context, id string, in models.AuthorInput) (*models.Author, error)
	DeleteAuthor(ctx context.Context, id string) error

	ListBookAuthors(ctx context.Context, isbn string) ([]models.AuthorSummary, error)
	AddBookAuthor(ctx context.Context, isbn, authorID string) error
	RemoveBookAuthor(ctx context.Context, isbn, authorID string) error
}
