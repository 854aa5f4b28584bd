package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bookauthor/internal/models"
)

const (
	DefaultBaseURL = "https://balkon-backend.onrender.com"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// ClientConfig configures a Client. Zero values fall back to defaults; a
// non-positive RPS disables throttling.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	UserAgent  string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the remote catalog REST service. It never retries; every
// call is bound to the caller's context.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

var _ API = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "bookauthor/1.0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     logger,
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Books

func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := c.doJSON(ctx, http.MethodGet, "/books", nil, &books); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := c.doJSON(ctx, http.MethodGet, bookPath(isbn), nil, &book); err != nil {
		return nil, fmt.Errorf("get book %s: %w", isbn, err)
	}
	return &book, nil
}

func (c *Client) CreateBook(ctx context.Context, in models.BookInput, image *Upload) (*models.Book, error) {
	book := models.Book{ISBN: in.ISBN, Title: in.Title, Pages: in.Pages, Published: models.Year(in.Published), Image: in.Image}
	if err := c.send(ctx, http.MethodPost, "/books", in, bookFields(in), image, &book); err != nil {
		return nil, fmt.Errorf("create book %s: %w", in.ISBN, err)
	}
	return &book, nil
}

func (c *Client) UpdateBook(ctx context.Context, isbn string, in models.BookInput, image *Upload) (*models.Book, error) {
	in.ISBN = isbn
	book := models.Book{ISBN: isbn, Title: in.Title, Pages: in.Pages, Published: models.Year(in.Published), Image: in.Image}
	if err := c.send(ctx, http.MethodPut, bookPath(isbn), in, bookFields(in), image, &book); err != nil {
		return nil, fmt.Errorf("update book %s: %w", isbn, err)
	}
	return &book, nil
}

func (c *Client) DeleteBook(ctx context.Context, isbn string) error {
	if err := c.doJSON(ctx, http.MethodDelete, bookPath(isbn), nil, nil); err != nil {
		return fmt.Errorf("delete book %s: %w", isbn, err)
	}
	return nil
}

// Authors

func (c *Client) ListAuthors(ctx context.Context) ([]models.Author, error) {
	var authors []models.Author
	if err := c.doJSON(ctx, http.MethodGet, "/authors", nil, &authors); err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

func (c *Client) GetAuthor(ctx context.Context, id string) (*models.Author, error) {
	var author models.Author
	if err := c.doJSON(ctx, http.MethodGet, authorPath(id), nil, &author); err != nil {
		return nil, fmt.Errorf("get author %s: %w", id, err)
	}
	return &author, nil
}

func (c *Client) CreateAuthor(ctx context.Context, in models.AuthorInput, image *Upload) (*models.Author, error) {
	author := models.Author{FirstName: in.FirstName, LastName: in.LastName, DOB: in.DOB, Image: in.Image}
	if err := c.send(ctx, http.MethodPost, "/authors", in, authorFields(in), image, &author); err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	if author.ID == "" {
		return nil, fmt.Errorf("create author: response carried no id")
	}
	return &author, nil
}

func (c *Client) UpdateAuthor(ctx context.Context, id string, in models.AuthorInput, image *Upload) (*models.Author, error) {
	author := models.Author{ID: id, FirstName: in.FirstName, LastName: in.LastName, DOB: in.DOB, Image: in.Image}
	if err := c.send(ctx, http.MethodPut, authorPath(id), in, authorFields(in), image, &author); err != nil {
		return nil, fmt.Errorf("update author %s: %w", id, err)
	}
	return &author, nil
}

func (c *Client) DeleteAuthor(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, authorPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete author %s: %w", id, err)
	}
	return nil
}

// Associations

func (c *Client) ListBookAuthors(ctx context.Context, isbn string) ([]models.AuthorSummary, error) {
	var authors []models.AuthorSummary
	if err := c.doJSON(ctx, http.MethodGet, bookPath(isbn)+"/authors", nil, &authors); err != nil {
		return nil, fmt.Errorf("list authors of book %s: %w", isbn, err)
	}
	return authors, nil
}

type addAuthorRequest struct {
	AuthorID string `json:"authorId"`
}

func (c *Client) AddBookAuthor(ctx context.Context, isbn, authorID string) error {
	if err := c.doJSON(ctx, http.MethodPost, bookPath(isbn)+"/authors", addAuthorRequest{AuthorID: authorID}, nil); err != nil {
		return fmt.Errorf("link author %s to book %s: %w", authorID, isbn, err)
	}
	return nil
}

func (c *Client) RemoveBookAuthor(ctx context.Context, isbn, authorID string) error {
	path := bookPath(isbn) + "/authors/" + url.PathEscape(authorID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("unlink author %s from book %s: %w", authorID, isbn, err)
	}
	return nil
}

// send issues a create/update: multipart when an image is attached, JSON
// otherwise.
func (c *Client) send(ctx context.Context, method, path string, payload any, fields [][2]string, image *Upload, result any) error {
	if image == nil {
		return c.doJSON(ctx, method, path, payload, result)
	}
	body, contentType, err := encodeMultipart(fields, image)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, body, contentType, result)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, result any) error {
	if payload == nil {
		return c.do(ctx, method, path, nil, "", result)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, method, path, bytes.NewReader(b), "application/json", result)
}

// do performs one request. A 2xx response with an empty body leaves result
// untouched.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, result any) error {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("catalog request failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("catalog request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if result == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func encodeMultipart(fields [][2]string, image *Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("encode field %s: %w", f[0], err)
		}
	}

	filename := image.Filename
	if filename == "" {
		filename = "image"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(filename)))
	ct := image.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	if _, err := io.Copy(part, image.Body); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func bookFields(in models.BookInput) [][2]string {
	return [][2]string{
		{"isbn", in.ISBN},
		{"title", in.Title},
		{"pages", strconv.Itoa(in.Pages)},
		{"published", strconv.Itoa(in.Published)},
	}
}

func authorFields(in models.AuthorInput) [][2]string {
	return [][2]string{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"dob", in.DOB.String()},
	}
}

func bookPath(isbn string) string {
	return "/books/" + url.PathEscape(isbn)
}

func authorPath(id string) string {
	return "/authors/" + url.PathEscape(id)
}
