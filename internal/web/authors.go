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
	msgCreateAuthor = "An error occurred while creating the author"
	msgUpdateAuthor = "An error occurred while updating the author"
	msgDeleteAuthor = "An error occurred while deleting the author"
)

func authorURL(id string) string {
	return "/authors/" + url.PathEscape(id)
}

func (s *Server) ShowAuthor(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	author, err := s.api.GetAuthor(ctx, c.Param("id"))
	if err != nil {
		s.readFailed(c, "author", err)
		return
	}
	c.HTML(http.StatusOK, "author.html", gin.H{
		"Title":  author.FullName(),
		"Author": author,
	})
}

func (s *Server) DeleteAuthor(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	id := c.Param("id")
	if err := s.api.DeleteAuthor(ctx, id); err != nil {
		s.writeFailed(c, msgDeleteAuthor, authorURL(id), err)
		return
	}
	s.logger.Info("author deleted", "id", id)
	c.Redirect(http.StatusSeeOther, "/")
}

func newAuthorPage(form forms.AuthorForm) formPage[forms.AuthorForm] {
	return formPage[forms.AuthorForm]{
		Title:  "Add author",
		Action: "/authors/create",
		Cancel: "/",
		Form:   form,
	}
}

func editAuthorPage(id string, form forms.AuthorForm) formPage[forms.AuthorForm] {
	return formPage[forms.AuthorForm]{
		Title:   "Edit author",
		Action:  "/authors/edit/" + url.PathEscape(id),
		Cancel:  authorURL(id),
		Editing: true,
		Form:    form,
	}
}

func bookPicker(selected []string, titles map[string]string, matches []models.Book, query string) picker {
	p := picker{
		Label:       "Books",
		Field:       "books",
		Placeholder: "books",
		Query:       query,
		Selected:    selectedOptions(selected, titles),
	}
	for _, b := range matches {
		p.Matches = append(p.Matches, option{Key: b.ISBN, Label: b.Title})
	}
	return p
}

// renderAuthorForm fills the book picker and renders. all may be nil, in
// which case the book list is read first.
func (s *Server) renderAuthorForm(ctx context.Context, c *gin.Context, status int, page formPage[forms.AuthorForm], all []models.Book, query string) {
	if all == nil {
		var err error
		if all, err = s.api.ListBooks(ctx); err != nil {
			s.readFailed(c, "book list", err)
			return
		}
	}

	titles := make(map[string]string, len(all))
	for _, b := range all {
		titles[b.ISBN] = b.Title
	}
	page.Picker = bookPicker(page.Form.Books, titles, search.Books(all, query, page.Form.Books), query)
	c.HTML(status, "author_form.html", page)
}

func (s *Server) rejectAuthorForm(c *gin.Context, page formPage[forms.AuthorForm]) {
	page.Picker = bookPicker(page.Form.Books, postedLabels(c, "books"), nil, "")
	c.HTML(http.StatusUnprocessableEntity, "author_form.html", page)
}

func (s *Server) NewAuthor(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	s.renderAuthorForm(ctx, c, http.StatusOK, newAuthorPage(forms.AuthorForm{}), nil, "")
}

func (s *Server) EditAuthor(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	id := c.Param("id")
	var (
		author *models.Author
		books  []models.Book
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		author, err = s.api.GetAuthor(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		books, err = s.api.ListBooks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.readFailed(c, "author", err)
		return
	}

	page := editAuthorPage(id, forms.AuthorFormFrom(*author))
	s.renderAuthorForm(ctx, c, http.StatusOK, page, books, "")
}

func (s *Server) CreateAuthor(c *gin.Context) {
	s.submitAuthor(c, "")
}

func (s *Server) UpdateAuthor(c *gin.Context) {
	s.submitAuthor(c, c.Param("id"))
}

// submitAuthor handles every POST of the author form. id is empty when
// creating.
func (s *Server) submitAuthor(c *gin.Context, id string) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	var form forms.AuthorForm
	bindErr := c.ShouldBind(&form)
	page := newAuthorPage(form)
	if id != "" {
		page = editAuthorPage(id, form)
	}
	if bindErr != nil {
		s.logger.Warn("author form rejected", "error", bindErr)
		page.Errors = errImageUnreadable
		page.Message = errImageUnreadable.Error()
		s.rejectAuthorForm(c, page)
		return
	}

	action, pick := formAction(c)
	switch action {
	case "add":
		page.Form.AddBook(pick)
	case "remove":
		page.Form.RemoveBook(pick)
	case "search":
		s.renderAuthorForm(ctx, c, http.StatusOK, page, nil, c.PostForm("q"))
		return
	default:
		s.saveAuthor(ctx, c, id, page)
		return
	}
	s.renderAuthorForm(ctx, c, http.StatusOK, page, nil, "")
}

func (s *Server) saveAuthor(ctx context.Context, c *gin.Context, id string, page formPage[forms.AuthorForm]) {
	creating := id == ""
	failMsg := msgUpdateAuthor
	if creating {
		failMsg = msgCreateAuthor
	}

	var (
		in  models.AuthorInput
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
		s.rejectAuthorForm(c, page)
		return
	}

	imageURL, up, err := s.upload(ctx, c)
	if err != nil {
		s.logger.Warn("author image upload failed", "error", err)
		page.Errors = errImageUnreadable
		page.Message = errImageUnreadable.Error()
		s.rejectAuthorForm(c, page)
		return
	}
	defer closeUpload(up)
	if imageURL != "" {
		in.Image = imageURL
	}

	var author *models.Author
	if creating {
		author, err = s.api.CreateAuthor(ctx, in, up)
	} else {
		author, err = s.api.UpdateAuthor(ctx, id, in, up)
	}
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.readFailed(c, "author", err)
			return
		}
		s.logger.Error("author save failed", "id", id, "error", err)
		page.Message = failMsg
		s.renderAuthorForm(ctx, c, http.StatusBadGateway, page, nil, "")
		return
	}

	if creating {
		_, err = s.reconciler.LinkAuthorBooks(ctx, author.ID, page.Form.Books)
	} else {
		_, err = s.reconciler.AuthorBooks(viewcache.Fresh(ctx), author.ID, page.Form.Books)
	}
	if err != nil {
		s.logger.Error("author books not saved", "id", author.ID, "error", err)
		page = editAuthorPage(author.ID, page.Form)
		page.Message = failMsg
		s.renderAuthorForm(ctx, c, http.StatusBadGateway, page, nil, "")
		return
	}

	if creating {
		s.logger.Info("author created", "id", author.ID, "books", len(page.Form.Books))
	}
	c.Redirect(http.StatusSeeOther, authorURL(author.ID))
}
