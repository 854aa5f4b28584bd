// Package search implements the autocomplete filter used by the relation
// pickers on the book and author forms.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"bookauthor/internal/models"
)

// Filter returns the items whose name contains query, ignoring case, minus
// the items whose key is in selected. An empty query returns nil so no
// dropdown is shown. Input order is preserved.
func Filter[T any](items []T, query string, selected []string, name, key func(T) string) []T {
	if query == "" {
		return nil
	}
	fold := cases.Fold()
	q := fold.String(query)

	skip := make(map[string]struct{}, len(selected))
	for _, k := range selected {
		skip[k] = struct{}{}
	}

	out := make([]T, 0)
	for _, it := range items {
		if _, ok := skip[key(it)]; ok {
			continue
		}
		if strings.Contains(fold.String(name(it)), q) {
			out = append(out, it)
		}
	}
	return out
}

// Authors matches against the author's display name.
func Authors(all []models.Author, query string, selected []string) []models.Author {
	return Filter(all, query, selected,
		func(a models.Author) string { return a.FullName() },
		func(a models.Author) string { return a.ID })
}

// Books matches against the book title.
func Books(all []models.Book, query string, selected []string) []models.Book {
	return Filter(all, query, selected,
		func(b models.Book) string { return b.Title },
		func(b models.Book) string { return b.ISBN })
}
