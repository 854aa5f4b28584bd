package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookauthor/internal/models"
	"bookauthor/internal/search"
)

// SearchAuthors is the JSON form of the author picker:
// GET /search/authors?q=...&selected=<id>&selected=<id>
func (s *Server) SearchAuthors(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	all, err := s.api.ListAuthors(ctx)
	if err != nil {
		s.logger.Error("author search failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "author list unavailable"})
		return
	}

	matches := search.Authors(all, c.Query("q"), c.QueryArray("selected"))
	out := make([]models.AuthorSummary, 0, len(matches))
	for _, a := range matches {
		out = append(out, a.Summary())
	}
	c.JSON(http.StatusOK, out)
}

// SearchBooks is the JSON form of the book picker.
func (s *Server) SearchBooks(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	all, err := s.api.ListBooks(ctx)
	if err != nil {
		s.logger.Error("book search failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "book list unavailable"})
		return
	}

	matches := search.Books(all, c.Query("q"), c.QueryArray("selected"))
	out := make([]models.BookSummary, 0, len(matches))
	for _, b := range matches {
		out = append(out, b.Summary())
	}
	c.JSON(http.StatusOK, out)
}
