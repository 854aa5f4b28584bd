// Package reconcile makes a server-side book/author association set match a
// locally edited selection.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bookauthor/internal/models"
)

// AssociationAPI is the subset of the catalog service reconciliation needs.
type AssociationAPI interface {
	ListBookAuthors(ctx context.Context, isbn string) ([]models.AuthorSummary, error)
	GetAuthor(ctx context.Context, id string) (*models.Author, error)
	AddBookAuthor(ctx context.Context, isbn, authorID string) error
	RemoveBookAuthor(ctx context.Context, isbn, authorID string) error
}

// Result reports the calls that completed.
type Result struct {
	Plan    Plan
	Removed int
	Added   int
}

// PartialError is returned when a call fails after the sequence started.
// Completed calls are not rolled back.
type PartialError struct {
	Result
	Op  string
	Key string
	Err error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("reconcile: %s %s failed after %d removed, %d added: %v", e.Op, e.Key, e.Removed, e.Added, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

type Reconciler struct {
	api    AssociationAPI
	logger *slog.Logger
}

func New(api AssociationAPI, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{api: api, logger: logger}
}

// BookAuthors sets the authors of a book to desired. The current set is
// always fetched from the service, never taken from the caller.
func (r *Reconciler) BookAuthors(ctx context.Context, isbn string, desired []string) (Result, error) {
	current, err := r.api.ListBookAuthors(ctx, isbn)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile book %s: %w", isbn, err)
	}
	ids := make([]string, 0, len(current))
	for _, a := range current {
		ids = append(ids, a.ID)
	}

	plan := NewPlan(ids, desired)
	return r.run(ctx, "book", isbn, plan, func(authorID string) (string, string) {
		return isbn, authorID
	})
}

// AuthorBooks sets the books of an author to desired. The current set is the
// books list of a fresh author read.
func (r *Reconciler) AuthorBooks(ctx context.Context, authorID string, desired []string) (Result, error) {
	author, err := r.api.GetAuthor(ctx, authorID)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile author %s: %w", authorID, err)
	}

	plan := NewPlan(author.BookISBNs(), desired)
	return r.run(ctx, "author", authorID, plan, func(isbn string) (string, string) {
		return isbn, authorID
	})
}

// LinkBookAuthors links a freshly created book. Nothing can be linked yet,
// so only adds are issued.
func (r *Reconciler) LinkBookAuthors(ctx context.Context, isbn string, authorIDs []string) (Result, error) {
	return r.run(ctx, "book", isbn, NewPlan(nil, authorIDs), func(authorID string) (string, string) {
		return isbn, authorID
	})
}

// LinkAuthorBooks links a freshly created author.
func (r *Reconciler) LinkAuthorBooks(ctx context.Context, authorID string, isbns []string) (Result, error) {
	return r.run(ctx, "author", authorID, NewPlan(nil, isbns), func(isbn string) (string, string) {
		return isbn, authorID
	})
}

// run executes removes then adds, one awaited call at a time, stopping at
// the first failure.
func (r *Reconciler) run(ctx context.Context, kind, owner string, plan Plan, pair func(string) (string, string)) (Result, error) {
	res := Result{Plan: plan}

	for _, k := range plan.Remove {
		isbn, authorID := pair(k)
		if err := r.api.RemoveBookAuthor(ctx, isbn, authorID); err != nil {
			return res, r.fail(kind, owner, "remove", k, res, err)
		}
		res.Removed++
	}
	for _, k := range plan.Add {
		isbn, authorID := pair(k)
		if err := r.api.AddBookAuthor(ctx, isbn, authorID); err != nil {
			return res, r.fail(kind, owner, "add", k, res, err)
		}
		res.Added++
	}

	r.logger.Debug("associations reconciled", kind, owner, "removed", res.Removed, "added", res.Added)
	return res, nil
}

func (r *Reconciler) fail(kind, owner, op, key string, res Result, err error) error {
	if !errors.Is(err, context.Canceled) {
		r.logger.Warn("association reconciliation stopped", kind, owner, "op", op, "key", key,
			"removed", res.Removed, "added", res.Added, "error", err)
	}
	return &PartialError{Result: res, Op: op, Key: key, Err: err}
}
