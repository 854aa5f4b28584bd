package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookauthor/internal/catalog"
	"bookauthor/internal/forms"
)

// option is one row of a relation picker.
type option struct {
	Key   string
	Label string
}

type picker struct {
	Label       string
	Field       string // hidden input name carrying the selection
	Placeholder string
	Selected    []option
	Query       string
	Matches     []option
}

func selectedOptions(keys []string, labels map[string]string) []option {
	out := make([]option, 0, len(keys))
	for _, k := range keys {
		label := labels[k]
		if label == "" {
			label = k
		}
		out = append(out, option{Key: k, Label: label})
	}
	return out
}

// postedLabels maps each selected key to the label submitted beside it in
// the "<field>Label" inputs.
func postedLabels(c *gin.Context, field string) map[string]string {
	keys := c.PostFormArray(field)
	labels := c.PostFormArray(field + "Label")
	out := make(map[string]string, len(keys))
	for i, k := range keys {
		if i < len(labels) {
			out[k] = labels[i]
		}
	}
	return out
}

type formPage[F any] struct {
	Title   string
	Action  string
	Cancel  string
	Editing bool
	Message string
	Form    F
	Errors  forms.ValidationErrors
	Picker  picker
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.timeout)
}

// readFailed renders the outcome of a failed read: the not-found view for a
// missing entity, otherwise the loading placeholder.
func (s *Server) readFailed(c *gin.Context, what string, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		c.HTML(http.StatusNotFound, "not_found.html", gin.H{
			"Title":   "Not found",
			"Message": "The " + what + " you are looking for does not exist.",
		})
		return
	}
	if errors.Is(err, context.Canceled) {
		// client went away, nothing to render
		c.Abort()
		return
	}
	s.logger.Error("catalog read failed", "what", what, "path", c.Request.URL.Path, "error", err)
	c.HTML(http.StatusServiceUnavailable, "loading.html", gin.H{"Title": "Loading"})
}

// writeFailed renders a generic error page for a write outside a form.
func (s *Server) writeFailed(c *gin.Context, message, back string, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		s.readFailed(c, "entry", err)
		return
	}
	s.logger.Error("catalog write failed", "path", c.Request.URL.Path, "error", err)
	c.HTML(http.StatusBadGateway, "error.html", gin.H{
		"Title":   "Error",
		"Message": message,
		"Back":    back,
	})
}

// formAction splits the submitted action. Picker buttons send "add:<key>"
// and "remove:<key>"; plain "add"/"remove" take the key from "pick".
func formAction(c *gin.Context) (action, pick string) {
	action = c.PostForm("action")
	pick = c.PostForm("pick")
	for _, op := range []string{"add", "remove"} {
		if key, ok := strings.CutPrefix(action, op+":"); ok {
			return op, key
		}
	}
	if action == "" {
		action = "save"
	}
	return action, pick
}

// upload reads the optional image file field. When an image store is
// configured the file is stored and its URL returned; otherwise the file
// is handed back to be sent to the catalog as multipart.
func (s *Server) upload(ctx context.Context, c *gin.Context) (string, *catalog.Upload, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return "", nil, nil
	}
	fh, err := c.FormFile("imageFile")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if fh.Size == 0 {
		return "", nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	contentType := fh.Header.Get("Content-Type")

	if s.images != nil {
		defer f.Close()
		url, err := s.images.Put(ctx, fh.Filename, contentType, f, fh.Size)
		return url, nil, err
	}
	// the caller closes the body once the request has been sent
	return "", &catalog.Upload{Filename: fh.Filename, ContentType: contentType, Size: fh.Size, Body: f}, nil
}

func closeUpload(u *catalog.Upload) {
	if u == nil {
		return
	}
	if cl, ok := u.Body.(interface{ Close() error }); ok {
		cl.Close()
	}
}

var errImageUnreadable = forms.ValidationErrors{{Field: "image", Message: "Image could not be uploaded"}}
