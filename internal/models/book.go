package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Book struct {
	ISBN      string          `json:"isbn"`
	Title     string          `json:"title"`
	Pages     int             `json:"pages"`
	Published Year            `json:"published"`
	Image     string          `json:"image,omitempty"`
	Authors   []AuthorSummary `json:"authors"`
}

// BookSummary is the book shape embedded in an author payload.
type BookSummary struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
}

// BookInput carries the scalar fields sent on create and full update.
type BookInput struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Pages     int    `json:"pages"`
	Published int    `json:"published"`
	Image     string `json:"image,omitempty"`
}

func (b Book) Summary() BookSummary {
	return BookSummary{ISBN: b.ISBN, Title: b.Title}
}

func (b Book) Input() BookInput {
	return BookInput{
		ISBN:      b.ISBN,
		Title:     b.Title,
		Pages:     b.Pages,
		Published: int(b.Published),
		Image:     b.Image,
	}
}

// AuthorIDs returns the ids of the linked authors in payload order.
func (b Book) AuthorIDs() []string {
	ids := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		ids = append(ids, a.ID)
	}
	return ids
}

// Year is a publication year. The remote service has been seen to send it
// both as a JSON number and as a numeric string.
type Year int

func (y *Year) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*y = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid year %s: %w", string(data), err)
	}
	*y = Year(n)
	return nil
}

func (y Year) String() string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(int(y))
}
