package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"bookauthor/internal/catalog"
	"bookauthor/internal/forms"
	"bookauthor/internal/models"
	"bookauthor/internal/search"
	"bookauthor/internal/viewcache"
)

const (
	msgCreateBook = "An error occurred while creating the book"
	msgUpdateBook = "An error occurred while updating the book"
	msgDeleteBook = "An error occurred while deleting the book"
)

func bookURL(isbn string) string {
	return "/books/" + url.PathEscape(isbn)
}

func (s *Server) ShowBook(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	book, err := s.api.GetBook(ctx, c.Param("isbn"))
	if err != nil {
		s.readFailed(c, "book", err)
		return
	}
	c.HTML(http.StatusOK, "book.html", gin.H{
		"Title": book.Title,
		"Book":  book,
	})
}

func (s *Server) DeleteBook(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	isbn := c.Param("isbn")
	if err := s.api.DeleteBook(ctx, isbn); err != nil {
		s.writeFailed(c, msgDeleteBook, bookURL(isbn), err)
		return
	}
	s.logger.Info("book deleted", "isbn", isbn)
	c.Redirect(http.StatusSeeOther, "/")
}

func newBookPage(form forms.BookForm) formPage[forms.BookForm] {
	return formPage[forms.BookForm]{
		Title:  "Add book",
		Action: "/books/create",
		Cancel: "/",
		Form:   form,
	}
}

func editBookPage(isbn string, form forms.BookForm) formPage[forms.BookForm] {
	return formPage[forms.BookForm]{
		Title:   "Edit book",
		Action:  "/books/edit/" + url.PathEscape(isbn),
		Cancel:  bookURL(isbn),
		Editing: true,
		Form:    form,
	}
}

func authorPicker(selected []string, names map[string]string, matches []models.Author, query string) picker {
	p := picker{
		Label:       "Authors",
		Field:       "authors",
		Placeholder: "authors",
		Query:       query,
		Selected:    selectedOptions(selected, names),
	}
	for _, a := range matches {
		p.Matches = append(p.Matches, option{Key: a.ID, Label: a.FullName()})
	}
	return p
}

// renderBookForm fills the author picker and renders. all may be nil, in
// which case the author list is read first.
func (s *Server) renderBookForm(ctx context.Context, c *gin.Context, status int, page formPage[forms.BookForm], all []models.Author, query string) {
	if all == nil {
		var err error
		if all, err = s.api.ListAuthors(ctx); err != nil {
			s.readFailed(c, "author list", err)
			return
		}
	}

	names := make(map[string]string, len(all))
	for _, a := range all {
		names[a.ID] = a.FullName()
	}
	page.Picker = authorPicker(page.Form.Authors, names, search.Authors(all, query, page.Form.Authors), query)
	c.HTML(status, "book_form.html", page)
}

// rejectBookForm re-renders a form that cannot be submitted. The picker is
// rebuilt from the labels the form carried, so nothing is read.
func (s *Server) rejectBookForm(c *gin.Context, page formPage[forms.BookForm]) {
	page.Picker = authorPicker(page.Form.Authors, postedLabels(c, "authors"), nil, "")
	c.HTML(http.StatusUnprocessableEntity, "book_form.html", page)
}

func (s *Server) NewBook(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	s.renderBookForm(ctx, c, http.StatusOK, newBookPage(forms.BookForm{}), nil, "")
}

func (s *Server) EditBook(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	isbn := c.Param("isbn")
	var (
		book    *models.Book
		authors []models.Author
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		book, err = s.api.GetBook(gctx, isbn)
		return err
	})
	g.Go(func() error {
		var err error
		authors, err = s.api.ListAuthors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.readFailed(c, "book", err)
		return
	}

	page := editBookPage(isbn, forms.BookFormFrom(*book))
	s.renderBookForm(ctx, c, http.StatusOK, page, authors, "")
}

func (s *Server) CreateBook(c *gin.Context) {
	s.submitBook(c, "")
}

func (s *Server) UpdateBook(c *gin.Context) {
	s.submitBook(c, c.Param("isbn"))
}

// submitBook handles every POST of the book form. isbn is empty when
// creating.
func (s *Server) submitBook(c *gin.Context, isbn string) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	var form forms.BookForm
	bindErr := c.ShouldBind(&form)
	if isbn != "" {
		form.ISBN = isbn
	}
	page := newBookPage(form)
	if isbn != "" {
		page = editBookPage(isbn, form)
	}
	if bindErr != nil {
		s.logger.Warn("book form rejected", "error", bindErr)
		page.Errors = errImageUnreadable
		page.Message = errImageUnreadable.Error()
		s.rejectBookForm(c, page)
		return
	}

	action, pick := formAction(c)
	switch action {
	case "add":
		page.Form.AddAuthor(pick)
	case "remove":
		page.Form.RemoveAuthor(pick)
	case "search":
		s.renderBookForm(ctx, c, http.StatusOK, page, nil, c.PostForm("q"))
		return
	default:
		s.saveBook(ctx, c, isbn, page)
		return
	}
	s.renderBookForm(ctx, c, http.StatusOK, page, nil, "")
}

func (s *Server) saveBook(ctx context.Context, c *gin.Context, isbn string, page formPage[forms.BookForm]) {
	creating := isbn == ""
	failMsg := msgUpdateBook
	if creating {
		failMsg = msgCreateBook
	}

	var (
		in  models.BookInput
		err error
	)
	if creating {
		in, err = page.Form.NewInput()
	} else {
		in, err = page.Form.Input()
	}
	if err != nil {
		var verrs forms.ValidationErrors
		if errors.As(err, &verrs) {
			page.Errors = verrs
		}
		page.Message = err.Error()
		s.rejectBookForm(c, page)
		return
	}

	imageURL, up, err := s.upload(ctx, c)
	if err != nil {
		s.logger.Warn("book image upload failed", "error", err)
		page.Errors = errImageUnreadable
		page.Message = errImageUnreadable.Error()
		s.rejectBookForm(c, page)
		return
	}
	defer closeUpload(up)
	if imageURL != "" {
		in.Image = imageURL
	}

	var book *models.Book
	if creating {
		book, err = s.api.CreateBook(ctx, in, up)
	} else {
		book, err = s.api.UpdateBook(ctx, isbn, in, up)
	}
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.readFailed(c, "book", err)
			return
		}
		s.logger.Error("book save failed", "isbn", in.ISBN, "error", err)
		page.Message = failMsg
		s.renderBookForm(ctx, c, http.StatusBadGateway, page, nil, "")
		return
	}

	if creating {
		_, err = s.reconciler.LinkBookAuthors(ctx, book.ISBN, page.Form.Authors)
	} else {
		_, err = s.reconciler.BookAuthors(viewcache.Fresh(ctx), book.ISBN, page.Form.Authors)
	}
	if err != nil {
		s.logger.Error("book authors not saved", "isbn", book.ISBN, "error", err)
		// the book exists now, so further attempts go through the edit form
		page = editBookPage(book.ISBN, page.Form)
		page.Message = failMsg
		s.renderBookForm(ctx, c, http.StatusBadGateway, page, nil, "")
		return
	}

	if creating {
		s.logger.Info("book created", "isbn", book.ISBN, "authors", len(page.Form.Authors))
	}
	c.Redirect(http.StatusSeeOther, bookURL(book.ISBN))
}
