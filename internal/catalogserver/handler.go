package catalogserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bookauthor/internal/imagestore"
	"bookauthor/internal/models"
)

const requestTimeout = 5 * time.Second

type Handler struct {
	store  Store
	images imagestore.Store
	logger *slog.Logger
}

// NewHandler serves the catalog over store. images may be nil, in which
// case multipart uploads carrying a file are rejected.
func NewHandler(store Store, images imagestore.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, images: images, logger: logger}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	books := r.Group("/books")
	{
		books.GET("", h.ListBooks)
		books.POST("", h.CreateBook)
		books.GET("/:isbn", h.GetBook)
		books.PUT("/:isbn", h.UpdateBook)
		books.DELETE("/:isbn", h.DeleteBook)

		books.GET("/:isbn/authors", h.ListBookAuthors)
		books.POST("/:isbn/authors", h.AddBookAuthor)
		books.DELETE("/:isbn/authors/:authorId", h.RemoveBookAuthor)
	}

	authors := r.Group("/authors")
	{
		authors.GET("", h.ListAuthors)
		authors.POST("", h.CreateAuthor)
		authors.GET("/:id", h.GetAuthor)
		authors.PUT("/:id", h.UpdateAuthor)
		authors.DELETE("/:id", h.DeleteAuthor)
	}
}

// Image is not form-bound: in multipart bodies "image" may be a file part,
// which attachImage resolves.
type bookRequest struct {
	ISBN      string      `json:"isbn" form:"isbn"`
	Title     string      `json:"title" form:"title" binding:"required"`
	Pages     int         `json:"pages" form:"pages" binding:"gte=0"`
	Published models.Year `json:"published" form:"published"`
	Image     string      `json:"image" form:"-"`
}

func (r bookRequest) input() models.BookInput {
	return models.BookInput{
		ISBN:      strings.TrimSpace(r.ISBN),
		Title:     strings.TrimSpace(r.Title),
		Pages:     r.Pages,
		Published: int(r.Published),
		Image:     r.Image,
	}
}

type authorRequest struct {
	FirstName string `json:"firstName" form:"firstName" binding:"required"`
	LastName  string `json:"lastName" form:"lastName" binding:"required"`
	DOB       string `json:"dob" form:"dob"`
	Image     string `json:"image" form:"-"`
}

func (r authorRequest) input() (models.AuthorInput, error) {
	in := models.AuthorInput{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Image:     r.Image,
	}
	if s := strings.TrimSpace(r.DOB); s != "" {
		dob, err := models.ParseDate(s)
		if err != nil {
			return in, err
		}
		in.DOB = dob
	}
	return in, nil
}

type addAuthorRequest struct {
	AuthorID string `json:"authorId" binding:"required"`
}

func (h *Handler) ListBooks(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	list, err := h.store.ListBooks(ctx)
	if err != nil {
		h.fail(c, "list books", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetBook(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	b, err := h.store.GetBook(ctx, c.Param("isbn"))
	if err != nil {
		h.fail(c, "book", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) CreateBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := req.input()
	if in.ISBN == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isbn is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.attachImage(ctx, c, &in.Image); err != nil {
		h.fail(c, "book image", err)
		return
	}
	b, err := h.store.CreateBook(ctx, in)
	if err != nil {
		h.fail(c, "book", err)
		return
	}
	h.logger.Info("book created", "isbn", b.ISBN)
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) UpdateBook(c *gin.Context) {
	isbn := c.Param("isbn")

	var req bookRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := req.input()
	if in.ISBN != "" && in.ISBN != isbn {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isbn cannot be changed"})
		return
	}
	in.ISBN = isbn

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.attachImage(ctx, c, &in.Image); err != nil {
		h.fail(c, "book image", err)
		return
	}
	b, err := h.store.UpdateBook(ctx, isbn, in)
	if err != nil {
		h.fail(c, "book", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBook(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.DeleteBook(ctx, c.Param("isbn")); err != nil {
		h.fail(c, "book", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListAuthors(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	list, err := h.store.ListAuthors(ctx)
	if err != nil {
		h.fail(c, "list authors", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetAuthor(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	a, err := h.store.GetAuthor(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "author", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) CreateAuthor(c *gin.Context) {
	var req authorRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.input()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.attachImage(ctx, c, &in.Image); err != nil {
		h.fail(c, "author image", err)
		return
	}
	a, err := h.store.CreateAuthor(ctx, in)
	if err != nil {
		h.fail(c, "author", err)
		return
	}
	h.logger.Info("author created", "id", a.ID)
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAuthor(c *gin.Context) {
	var req authorRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.input()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.attachImage(ctx, c, &in.Image); err != nil {
		h.fail(c, "author image", err)
		return
	}
	a, err := h.store.UpdateAuthor(ctx, c.Param("id"), in)
	if err != nil {
		h.fail(c, "author", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAuthor(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.DeleteAuthor(ctx, c.Param("id")); err != nil {
		h.fail(c, "author", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListBookAuthors(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	list, err := h.store.ListBookAuthors(ctx, c.Param("isbn"))
	if err != nil {
		h.fail(c, "book", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) AddBookAuthor(c *gin.Context) {
	var req addAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.AddBookAuthor(ctx, c.Param("isbn"), req.AuthorID); err != nil {
		h.fail(c, "link", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveBookAuthor(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.RemoveBookAuthor(ctx, c.Param("isbn"), c.Param("authorId")); err != nil {
		h.fail(c, "link", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// attachImage resolves the multipart "image" field. A file part is stored
// and *image points at it; a plain text value is taken as the image URL.
func (h *Handler) attachImage(ctx context.Context, c *gin.Context, image *string) error {
	switch c.ContentType() {
	case gin.MIMEPOSTForm:
		*image = strings.TrimSpace(c.PostForm("image"))
		return nil
	case gin.MIMEMultipartPOSTForm:
	default:
		return nil
	}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		*image = strings.TrimSpace(c.PostForm("image"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if h.images == nil {
		return errUploadsDisabled
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	url, err := h.images.Put(ctx, fh.Filename, fh.Header.Get("Content-Type"), f, fh.Size)
	if err != nil {
		return err
	}
	*image = url
	return nil
}

var errUploadsDisabled = errors.New("image uploads are not enabled")

func (h *Handler) fail(c *gin.Context, what string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": what + " already exists"})
	case errors.Is(err, imagestore.ErrNotImage), errors.Is(err, errUploadsDisabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("catalog request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
