package forms

import (
	"slices"
	"strconv"

	"bookauthor/internal/models"
)

// BookForm is the editable state of the book create/edit form.
type BookForm struct {
	ISBN      string   `form:"isbn" validate:"required,max=32"`
	Title     string   `form:"title" validate:"required,max=255"`
	Pages     string   `form:"pages" validate:"required,number"`
	Published string   `form:"published" validate:"required,number"`
	Image     string   `form:"image" validate:"omitempty,uri"`
	Authors   []string `form:"authors"`
}

var bookLabels = map[string]string{
	"isbn":      "ISBN",
	"title":     "Title",
	"pages":     "Pages",
	"published": "Published year",
	"image":     "Image URL",
}

// BookFormFrom pre-fills the edit form from a fetched book.
func BookFormFrom(b models.Book) BookForm {
	return BookForm{
		ISBN:      b.ISBN,
		Title:     b.Title,
		Pages:     strconv.Itoa(b.Pages),
		Published: b.Published.String(),
		Image:     b.Image,
		Authors:   b.AuthorIDs(),
	}
}

// Normalize trims the fields in place. Content is never rewritten.
func (f *BookForm) Normalize() {
	f.ISBN = clean(f.ISBN)
	f.Title = clean(f.Title)
	f.Pages = clean(f.Pages)
	f.Published = clean(f.Published)
	f.Image = clean(f.Image)
	f.Authors = compact(f.Authors)
}

// Input normalizes, validates and converts the form. It returns
// ValidationErrors when the form cannot be submitted.
func (f *BookForm) Input() (models.BookInput, error) {
	f.Normalize()
	if err := validateStruct(f, bookLabels); err != nil {
		return models.BookInput{}, err
	}
	pages, err := strconv.Atoi(f.Pages)
	if err != nil {
		return models.BookInput{}, ValidationErrors{{Field: "pages", Message: "Pages must be a whole number"}}
	}
	published, err := strconv.Atoi(f.Published)
	if err != nil {
		return models.BookInput{}, ValidationErrors{{Field: "published", Message: "Published year must be a whole number"}}
	}
	return models.BookInput{
		ISBN:      f.ISBN,
		Title:     f.Title,
		Pages:     pages,
		Published: published,
		Image:     f.Image,
	}, nil
}

// NewInput is Input for a book being created. Its text is newly typed, so
// HTML markup is rejected as well.
func (f *BookForm) NewInput() (models.BookInput, error) {
	in, err := f.Input()
	if err != nil {
		return in, err
	}
	if err := markupErrors(bookLabels, [2]string{"isbn", f.ISBN}, [2]string{"title", f.Title}); err != nil {
		return models.BookInput{}, err
	}
	return in, nil
}

func (f *BookForm) AddAuthor(id string) {
	f.Authors = addKey(f.Authors, id)
}

func (f *BookForm) RemoveAuthor(id string) {
	f.Authors = removeKey(f.Authors, id)
}

func (f *BookForm) HasAuthor(id string) bool {
	return slices.Contains(f.Authors, id)
}
