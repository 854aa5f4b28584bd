package models

import "strings"

type Author struct {
	ID        string        `json:"id,omitempty"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	DOB       Date          `json:"dob"`
	Image     string        `json:"image,omitempty"`
	Books     []BookSummary `json:"books"`
}

// AuthorSummary is the author shape embedded in a book payload and returned
// by the book's authors sub-resource.
type AuthorSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AuthorInput carries the scalar fields sent on create and full update.
type AuthorInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       Date   `json:"dob"`
	Image     string `json:"image,omitempty"`
}

func (a Author) FullName() string {
	return fullName(a.FirstName, a.LastName)
}

func (a Author) Summary() AuthorSummary {
	return AuthorSummary{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName}
}

func (a Author) Input() AuthorInput {
	return AuthorInput{FirstName: a.FirstName, LastName: a.LastName, DOB: a.DOB, Image: a.Image}
}

// BookISBNs returns the isbns of the linked books in payload order.
func (a Author) BookISBNs() []string {
	isbns := make([]string, 0, len(a.Books))
	for _, b := range a.Books {
		isbns = append(isbns, b.ISBN)
	}
	return isbns
}

func (s AuthorSummary) FullName() string {
	return fullName(s.FirstName, s.LastName)
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
