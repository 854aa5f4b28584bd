package catalogserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"bookauthor/internal/models"
)

const uniqueViolation = "23505"

// GormStore keeps the catalog in postgres. The association lives in the
// book_authors join table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func orderAuthors(db *gorm.DB) *gorm.DB {
	return db.Order("last_name, first_name")
}

func orderBooks(db *gorm.DB) *gorm.DB {
	return db.Order("title")
}

// translate maps driver errors onto the store's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (s *GormStore) ListBooks(ctx context.Context) ([]models.Book, error) {
	var list []bookRecord
	if err := s.db.WithContext(ctx).
		Preload("Authors", orderAuthors).
		Order("title").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	out := make([]models.Book, 0, len(list))
	for _, r := range list {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *GormStore) findBook(ctx context.Context, isbn string) (*bookRecord, error) {
	var r bookRecord
	if err := s.db.WithContext(ctx).Preload("Authors", orderAuthors).First(&r, "isbn = ?", isbn).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) GetBook(ctx context.Context, isbn string) (*models.Book, error) {
	r, err := s.findBook(ctx, isbn)
	if err != nil {
		return nil, err
	}
	b := r.toModel()
	return &b, nil
}

func (s *GormStore) CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error) {
	r := bookRecord{
		ISBN:      in.ISBN,
		Title:     in.Title,
		Pages:     in.Pages,
		Published: in.Published,
		Image:     in.Image,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, fmt.Errorf("create book: %w", translate(err))
	}
	b := r.toModel()
	return &b, nil
}

// UpdateBook replaces the scalar fields. An empty image keeps the stored one.
func (s *GormStore) UpdateBook(ctx context.Context, isbn string, in models.BookInput) (*models.Book, error) {
	fields := map[string]any{
		"title":     in.Title,
		"pages":     in.Pages,
		"published": in.Published,
	}
	if in.Image != "" {
		fields["image"] = in.Image
	}

	res := s.db.WithContext(ctx).Model(&bookRecord{}).Where("isbn = ?", isbn).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update book: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetBook(ctx, isbn)
}

func (s *GormStore) DeleteBook(ctx context.Context, isbn string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := bookRecord{ISBN: isbn}
		if err := tx.Model(&r).Association("Authors").Clear(); err != nil {
			return fmt.Errorf("unlink book authors: %w", err)
		}
		res := tx.Delete(&bookRecord{}, "isbn = ?", isbn)
		if res.Error != nil {
			return fmt.Errorf("delete book: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) ListAuthors(ctx context.Context) ([]models.Author, error) {
	var list []authorRecord
	if err := s.db.WithContext(ctx).
		Preload("Books", orderBooks).
		Order("last_name, first_name").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}

	out := make([]models.Author, 0, len(list))
	for _, r := range list {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *GormStore) findAuthor(ctx context.Context, id string) (*authorRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var r authorRecord
	if err := s.db.WithContext(ctx).Preload("Books", orderBooks).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) GetAuthor(ctx context.Context, id string) (*models.Author, error) {
	r, err := s.findAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	a := r.toModel()
	return &a, nil
}

func (s *GormStore) CreateAuthor(ctx context.Context, in models.AuthorInput) (*models.Author, error) {
	r := authorRecord{
		ID:        uuid.NewString(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		DOB:       dobPtr(in.DOB),
		Image:     in.Image,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, fmt.Errorf("create author: %w", translate(err))
	}
	a := r.toModel()
	return &a, nil
}

// UpdateAuthor replaces the scalar fields. An empty image keeps the stored one.
func (s *GormStore) UpdateAuthor(ctx context.Context, id string, in models.AuthorInput) (*models.Author, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	fields := map[string]any{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"dob":        dobPtr(in.DOB),
	}
	if in.Image != "" {
		fields["image"] = in.Image
	}

	res := s.db.WithContext(ctx).Model(&authorRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update author: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetAuthor(ctx, id)
}

func (s *GormStore) DeleteAuthor(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := authorRecord{ID: id}
		if err := tx.Model(&r).Association("Books").Clear(); err != nil {
			return fmt.Errorf("unlink author books: %w", err)
		}
		res := tx.Delete(&authorRecord{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete author: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) ListBookAuthors(ctx context.Context, isbn string) ([]models.AuthorSummary, error) {
	r, err := s.findBook(ctx, isbn)
	if err != nil {
		return nil, err
	}
	out := make([]models.AuthorSummary, 0, len(r.Authors))
	for _, a := range r.Authors {
		out = append(out, a.summary())
	}
	return out, nil
}

// AddBookAuthor links an author to a book. Linking twice is a no-op.
func (s *GormStore) AddBookAuthor(ctx context.Context, isbn, authorID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, author, err := linkPair(tx, isbn, authorID)
		if err != nil {
			return err
		}
		if err := tx.Model(book).Association("Authors").Append(author); err != nil {
			return fmt.Errorf("append author: %w", err)
		}
		return nil
	})
}

// RemoveBookAuthor unlinks an author from a book. Removing a link that does
// not exist is a no-op.
func (s *GormStore) RemoveBookAuthor(ctx context.Context, isbn, authorID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, author, err := linkPair(tx, isbn, authorID)
		if err != nil {
			return err
		}
		if err := tx.Model(book).Association("Authors").Delete(author); err != nil {
			return fmt.Errorf("remove author: %w", err)
		}
		return nil
	})
}

func linkPair(tx *gorm.DB, isbn, authorID string) (*bookRecord, *authorRecord, error) {
	var book bookRecord
	if err := tx.First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, nil, fmt.Errorf("book %s: %w", isbn, translate(err))
	}
	if _, err := uuid.Parse(authorID); err != nil {
		return nil, nil, fmt.Errorf("author %s: %w", authorID, ErrNotFound)
	}
	var author authorRecord
	if err := tx.First(&author, "id = ?", authorID).Error; err != nil {
		return nil, nil, fmt.Errorf("author %s: %w", authorID, translate(err))
	}
	return &book, &author, nil
}
