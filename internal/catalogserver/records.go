package catalogserver

import (
	"time"

	"bookauthor/internal/models"
)

type bookRecord struct {
	ISBN      string         `gorm:"primaryKey;size:32"`
	Title     string         `gorm:"not null;index"`
	Pages     int            `gorm:"not null;default:0"`
	Published int            `gorm:"not null;default:0"`
	Image     string         `gorm:"size:1024"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	Authors   []authorRecord `gorm:"many2many:book_authors;joinForeignKey:BookISBN;joinReferences:AuthorID;constraint:OnDelete:CASCADE;"`
}

func (bookRecord) TableName() string {
	return "books"
}

type authorRecord struct {
	ID        string       `gorm:"primaryKey;type:uuid"`
	FirstName string       `gorm:"not null"`
	LastName  string       `gorm:"not null;index"`
	DOB       *time.Time   `gorm:"type:date"`
	Image     string       `gorm:"size:1024"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
	Books     []bookRecord `gorm:"many2many:book_authors;joinForeignKey:AuthorID;joinReferences:BookISBN;constraint:OnDelete:CASCADE;"`
}

func (authorRecord) TableName() string {
	return "authors"
}

// Records lists the tables AutoMigrate must create.
func Records() []any {
	return []any{&bookRecord{}, &authorRecord{}}
}

func (r bookRecord) toModel() models.Book {
	b := models.Book{
		ISBN:      r.ISBN,
		Title:     r.Title,
		Pages:     r.Pages,
		Published: models.Year(r.Published),
		Image:     r.Image,
		Authors:   make([]models.AuthorSummary, 0, len(r.Authors)),
	}
	for _, a := range r.Authors {
		b.Authors = append(b.Authors, a.summary())
	}
	return b
}

func (r authorRecord) summary() models.AuthorSummary {
	return models.AuthorSummary{ID: r.ID, FirstName: r.FirstName, LastName: r.LastName}
}

func (r authorRecord) toModel() models.Author {
	a := models.Author{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Image:     r.Image,
		Books:     make([]models.BookSummary, 0, len(r.Books)),
	}
	if r.DOB != nil {
		a.DOB = models.NewDate(r.DOB.Year(), r.DOB.Month(), r.DOB.Day())
	}
	for _, b := range r.Books {
		a.Books = append(a.Books, models.BookSummary{ISBN: b.ISBN, Title: b.Title})
	}
	return a
}

func dobPtr(d models.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
