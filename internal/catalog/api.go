package catalog

import (
	"context"
	"io"

	"bookauthor/internal/models"
)

// API is the remote catalog service as seen by views, forms and the CLI.
type API interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, isbn string) (*models.Book, error)
	CreateBook(ctx context.Context, in models.BookInput, image *Upload) (*models.Book, error)
	UpdateBook(ctx context.Context, isbn string, in models.BookInput, image *Upload) (*models.Book, error)
	DeleteBook(ctx context.Context, isbn string) error

	ListAuthors(ctx context.Context) ([]models.Author, error)
	GetAuthor(ctx context.Context, id string) (*models.Author, error)
	CreateAuthor(ctx context.Context, in models.AuthorInput, image *Upload) (*models.Author, error)
	UpdateAuthor(ctx context.Context, id string, in models.AuthorInput, image *Upload) (*models.Author, error)
	DeleteAuthor(ctx context.Context, id string) error

	ListBookAuthors(ctx context.Context, isbn string) ([]models.AuthorSummary, error)
	AddBookAuthor(ctx context.Context, isbn, authorID string) error
	RemoveBookAuthor(ctx context.Context, isbn, authorID string) error
}

// Upload is an image file attached to a create or update request. When
// present the request is sent as multipart/form-data.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
