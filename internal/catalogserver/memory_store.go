package catalogserver

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"bookauthor/internal/models"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	books   map[string]models.BookInput
	authors map[string]models.AuthorInput
	links   map[string]map[string]struct{} // isbn -> author ids
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:   make(map[string]models.BookInput),
		authors: make(map[string]models.AuthorInput),
		links:   make(map[string]map[string]struct{}),
	}
}

func compareAuthors(a, b models.AuthorSummary) int {
	return cmp.Or(cmp.Compare(a.LastName, b.LastName), cmp.Compare(a.FirstName, b.FirstName), cmp.Compare(a.ID, b.ID))
}

func compareBooks(a, b models.BookSummary) int {
	return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.ISBN, b.ISBN))
}

func (m *MemoryStore) bookLocked(isbn string) models.Book {
	in := m.books[isbn]
	b := models.Book{
		ISBN:      in.ISBN,
		Title:     in.Title,
		Pages:     in.Pages,
		Published: models.Year(in.Published),
		Image:     in.Image,
		Authors:   m.bookAuthorsLocked(isbn),
	}
	return b
}

func (m *MemoryStore) bookAuthorsLocked(isbn string) []models.AuthorSummary {
	out := make([]models.AuthorSummary, 0, len(m.links[isbn]))
	for id := range m.links[isbn] {
		a := m.authors[id]
		out = append(out, models.AuthorSummary{ID: id, FirstName: a.FirstName, LastName: a.LastName})
	}
	slices.SortFunc(out, compareAuthors)
	return out
}

func (m *MemoryStore) authorLocked(id string) models.Author {
	in := m.authors[id]
	a := models.Author{
		ID:        id,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		DOB:       in.DOB,
		Image:     in.Image,
		Books:     []models.BookSummary{},
	}
	for isbn, ids := range m.links {
		if _, ok := ids[id]; ok {
			a.Books = append(a.Books, models.BookSummary{ISBN: isbn, Title: m.books[isbn].Title})
		}
	}
	slices.SortFunc(a.Books, compareBooks)
	return a
}

func (m *MemoryStore) ListBooks(_ context.Context) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Book, 0, len(m.books))
	for isbn := range m.books {
		out = append(out, m.bookLocked(isbn))
	}
	slices.SortFunc(out, func(a, b models.Book) int {
		return compareBooks(a.Summary(), b.Summary())
	})
	return out, nil
}

func (m *MemoryStore) GetBook(_ context.Context, isbn string) (*models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.books[isbn]; !ok {
		return nil, ErrNotFound
	}
	b := m.bookLocked(isbn)
	return &b, nil
}

func (m *MemoryStore) CreateBook(_ context.Context, in models.BookInput) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[in.ISBN]; ok {
		return nil, fmt.Errorf("create book: %w", ErrConflict)
	}
	m.books[in.ISBN] = in
	b := m.bookLocked(in.ISBN)
	return &b, nil
}

func (m *MemoryStore) UpdateBook(_ context.Context, isbn string, in models.BookInput) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.books[isbn]
	if !ok {
		return nil, ErrNotFound
	}
	in.ISBN = isbn
	if in.Image == "" {
		in.Image = cur.Image
	}
	m.books[isbn] = in
	b := m.bookLocked(isbn)
	return &b, nil
}

func (m *MemoryStore) DeleteBook(_ context.Context, isbn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[isbn]; !ok {
		return ErrNotFound
	}
	delete(m.books, isbn)
	delete(m.links, isbn)
	return nil
}

func (m *MemoryStore) ListAuthors(_ context.Context) ([]models.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Author, 0, len(m.authors))
	for id := range m.authors {
		out = append(out, m.authorLocked(id))
	}
	slices.SortFunc(out, func(a, b models.Author) int {
		return compareAuthors(a.Summary(), b.Summary())
	})
	return out, nil
}

func (m *MemoryStore) GetAuthor(_ context.Context, id string) (*models.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.authors[id]; !ok {
		return nil, ErrNotFound
	}
	a := m.authorLocked(id)
	return &a, nil
}

func (m *MemoryStore) CreateAuthor(_ context.Context, in models.AuthorInput) (*models.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.authors[id] = in
	a := m.authorLocked(id)
	return &a, nil
}

func (m *MemoryStore) UpdateAuthor(_ context.Context, id string, in models.AuthorInput) (*models.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.authors[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.Image == "" {
		in.Image = cur.Image
	}
	m.authors[id] = in
	a := m.authorLocked(id)
	return &a, nil
}

func (m *MemoryStore) DeleteAuthor(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.authors[id]; !ok {
		return ErrNotFound
	}
	delete(m.authors, id)
	for _, ids := range m.links {
		delete(ids, id)
	}
	return nil
}

func (m *MemoryStore) ListBookAuthors(_ context.Context, isbn string) ([]models.AuthorSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.books[isbn]; !ok {
		return nil, ErrNotFound
	}
	return m.bookAuthorsLocked(isbn), nil
}

func (m *MemoryStore) checkPairLocked(isbn, authorID string) error {
	if _, ok := m.books[isbn]; !ok {
		return fmt.Errorf("book %s: %w", isbn, ErrNotFound)
	}
	if _, ok := m.authors[authorID]; !ok {
		return fmt.Errorf("author %s: %w", authorID, ErrNotFound)
	}
	return nil
}

func (m *MemoryStore) AddBookAuthor(_ context.Context, isbn, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkPairLocked(isbn, authorID); err != nil {
		return err
	}
	if m.links[isbn] == nil {
		m.links[isbn] = make(map[string]struct{})
	}
	m.links[isbn][authorID] = struct{}{}
	return nil
}

func (m *MemoryStore) RemoveBookAuthor(_ context.Context, isbn, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkPairLocked(isbn, authorID); err != nil {
		return err
	}
	delete(m.links[isbn], authorID)
	return nil
}
