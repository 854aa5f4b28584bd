package forms

import (
	"slices"

	"bookauthor/internal/models"
)

// AuthorForm is the editable state of the author create/edit form.
type AuthorForm struct {
	FirstName string   `form:"firstName" validate:"required,max=100"`
	LastName  string   `form:"lastName" validate:"required,max=100"`
	DOB       string   `form:"dob" validate:"required,datetime=2006-01-02"`
	Image     string   `form:"image" validate:"omitempty,uri"`
	Books     []string `form:"books"`
}

var authorLabels = map[string]string{
	"firstName": "First name",
	"lastName":  "Last name",
	"dob":       "Date of birth",
	"image":     "Image URL",
}

func AuthorFormFrom(a models.Author) AuthorForm {
	return AuthorForm{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		DOB:       a.DOB.String(),
		Image:     a.Image,
		Books:     a.BookISBNs(),
	}
}

func (f *AuthorForm) Normalize() {
	f.FirstName = clean(f.FirstName)
	f.LastName = clean(f.LastName)
	f.DOB = clean(f.DOB)
	f.Image = clean(f.Image)
	f.Books = compact(f.Books)
}

func (f *AuthorForm) Input() (models.AuthorInput, error) {
	f.Normalize()
	if err := validateStruct(f, authorLabels); err != nil {
		return models.AuthorInput{}, err
	}
	dob, err := models.ParseDate(f.DOB)
	if err != nil {
		return models.AuthorInput{}, ValidationErrors{{Field: "dob", Message: "Date of birth must be a date (YYYY-MM-DD)"}}
	}
	return models.AuthorInput{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		DOB:       dob,
		Image:     f.Image,
	}, nil
}

// NewInput is Input for an author being created; names must be free of
// HTML markup.
func (f *AuthorForm) NewInput() (models.AuthorInput, error) {
	in, err := f.Input()
	if err != nil {
		return in, err
	}
	if err := markupErrors(authorLabels, [2]string{"firstName", f.FirstName}, [2]string{"lastName", f.LastName}); err != nil {
		return models.AuthorInput{}, err
	}
	return in, nil
}

func (f *AuthorForm) AddBook(isbn string) {
	f.Books = addKey(f.Books, isbn)
}

func (f *AuthorForm) RemoveBook(isbn string) {
	f.Books = removeKey(f.Books, isbn)
}

func (f *AuthorForm) HasBook(isbn string) bool {
	return slices.Contains(f.Books, isbn)
}
