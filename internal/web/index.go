package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"bookauthor/internal/models"
)

// Index lists every book and every author.
func (s *Server) Index(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	var (
		books   []models.Book
		authors []models.Author
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		books, err = s.api.ListBooks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		authors, err = s.api.ListAuthors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.readFailed(c, "catalog", err)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":   "Books & Authors",
		"Books":   books,
		"Authors": authors,
	})
}
