// Package web is the server-rendered front-end over the remote catalog.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookauthor/internal/catalog"
	"bookauthor/internal/imagestore"
	"bookauthor/internal/middleware"
	"bookauthor/internal/reconcile"
)

//go:embed templates/*.html
var templateFS embed.FS

type Options struct {
	API      catalog.API
	Images   imagestore.Store // optional
	ImageDir string           // served under imagestore.DefaultDirURL when set
	Logger   *slog.Logger
	// Timeout bounds the remote calls made for one page, reconciliation
	// included.
	Timeout   time.Duration
	MaxUpload int64
}

type Server struct {
	api        catalog.API
	reconciler *reconcile.Reconciler
	images     imagestore.Store
	logger     *slog.Logger
	timeout    time.Duration
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		api:        opts.API,
		reconciler: reconcile.New(opts.API, logger),
		images:     opts.Images,
		logger:     logger,
		timeout:    timeout,
	}
}

// NewRouter builds the gin engine with templates, middleware and routes.
func NewRouter(opts Options) *gin.Engine {
	s := NewServer(opts)

	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.html")))

	maxBody := opts.MaxUpload
	if maxBody > 0 {
		maxBody += 1 << 20 // form fields
	}
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(s.logger),
		middleware.Recovery(s.logger),
		middleware.BodyLimit(maxBody),
	)

	if opts.ImageDir != "" {
		r.Static(imagestore.DefaultDirURL, opts.ImageDir)
	}
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/", s.Index)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	books := r.Group("/books")
	{
		books.GET("/create", s.NewBook)
		books.POST("/create", s.CreateBook)
		books.GET("/edit/:isbn", s.EditBook)
		books.POST("/edit/:isbn", s.UpdateBook)
		books.GET("/:isbn", s.ShowBook)
		books.POST("/:isbn/delete", s.DeleteBook)
	}

	authors := r.Group("/authors")
	{
		authors.GET("/create", s.NewAuthor)
		authors.POST("/create", s.CreateAuthor)
		authors.GET("/edit/:id", s.EditAuthor)
		authors.POST("/edit/:id", s.UpdateAuthor)
		authors.GET("/:id", s.ShowAuthor)
		authors.POST("/:id/delete", s.DeleteAuthor)
	}

	search := r.Group("/search")
	{
		search.GET("/authors", s.SearchAuthors)
		search.GET("/books", s.SearchBooks)
	}
}
