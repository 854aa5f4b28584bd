package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookauthor/internal/catalog"
	"bookauthor/internal/catalogserver"
	"bookauthor/internal/forms"
	"bookauthor/internal/imagestore"
	"bookauthor/internal/models"
	"bookauthor/internal/viewcache"
	"bookauthor/internal/web"
)

// callLog records every request that reaches the catalog service and can
// make chosen requests fail.
type callLog struct {
	mu    sync.Mutex
	calls []string
	fail  [][2]string
}

// failOn makes requests with the given method and path prefix answer 500.
func (l *callLog) failOn(method, prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = append(l.fail, [2]string{method, prefix})
}

func (l *callLog) failing(method, path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.fail {
		if f[0] == method && strings.HasPrefix(path, f[1]) {
			return true
		}
	}
	return false
}

func (l *callLog) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// count returns the number of recorded calls with the given method whose
// path starts with prefix.
func (l *callLog) count(method, prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		m, p, _ := strings.Cut(c, " ")
		if m == method && strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

type fixture struct {
	store  *catalogserver.MemoryStore
	calls  *callLog
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	images, err := imagestore.NewDirStore(t.TempDir(), "https://img.example.com")
	require.NoError(t, err)
	store := catalogserver.NewMemoryStore()
	backend := gin.New()
	catalogserver.NewHandler(store, images, logger).RegisterRoutes(backend)

	calls := &callLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.add(r.Method + " " + r.URL.Path)
		if calls.failing(r.Method, r.URL.Path) {
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		backend.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client := catalog.NewClient(catalog.ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: logger})
	api := viewcache.New(client, viewcache.NewMemoryStore(), time.Minute, logger)

	return &fixture{
		store: store,
		calls: calls,
		router: web.NewRouter(web.Options{
			API:       api,
			Logger:    logger,
			Timeout:   5 * time.Second,
			MaxUpload: 1 << 20,
		}),
	}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (f *fixture) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// postFile submits form as multipart with file in the imageFile field.
func (f *fixture) postFile(t *testing.T, path string, form url.Values, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range form {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="imageFile"; filename="cover.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, err = part.Write(file)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) seedAuthor(t *testing.T, first, last string) string {
	t.Helper()
	a, err := f.store.CreateAuthor(context.Background(), models.AuthorInput{
		FirstName: first, LastName: last, DOB: models.NewDate(1900, time.January, 1),
	})
	require.NoError(t, err)
	return a.ID
}

func (f *fixture) seedBook(t *testing.T, isbn, title string, authorIDs ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.CreateBook(ctx, models.BookInput{ISBN: isbn, Title: title, Pages: 100, Published: 1950})
	require.NoError(t, err)
	for _, id := range authorIDs {
		require.NoError(t, f.store.AddBookAuthor(ctx, isbn, id))
	}
}

func (f *fixture) bookAuthorIDs(t *testing.T, isbn string) []string {
	t.Helper()
	b, err := f.store.GetBook(context.Background(), isbn)
	require.NoError(t, err)
	return b.AuthorIDs()
}

func TestCreateBook_AppearsInList(t *testing.T) {
	f := newFixture(t)
	author := f.seedAuthor(t, "Ivo", "Andrić")

	// prime the view cache so the create has to invalidate it
	require.Equal(t, http.StatusOK, f.get("/").Code)

	w := f.post("/books/create", url.Values{
		"action":    {"save"},
		"isbn":      {"9788652112345"},
		"title":     {"Na Drini ćuprija"},
		"pages":     {"314"},
		"published": {"1945"},
		"authors":   {author},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/books/9788652112345", w.Header().Get("Location"))

	w = f.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Na Drini ćuprija")
	assert.Contains(t, w.Body.String(), "314")

	w = f.get("/books/9788652112345")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1945")
	assert.Contains(t, w.Body.String(), "Ivo Andrić")
}

func TestEditBook_ReconcilesAuthors(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuthor(t, "Anna", "A")
	b := f.seedAuthor(t, "Boris", "B")
	c := f.seedAuthor(t, "Cene", "C")
	d := f.seedAuthor(t, "Dara", "D")
	f.seedBook(t, "111", "Zbornik", a, b, c)

	require.Equal(t, http.StatusOK, f.get("/books/edit/111").Code)
	f.calls.reset()

	w := f.post("/books/edit/111", url.Values{
		"action":    {"save"},
		"isbn":      {"111"},
		"title":     {"Zbornik"},
		"pages":     {"100"},
		"published": {"1950"},
		"authors":   {b, c, d},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	assert.Equal(t, 1, f.calls.count(http.MethodDelete, "/books/111/authors/"))
	assert.Equal(t, 3, f.calls.count(http.MethodPost, "/books/111/authors"))
	// the current set is read from the service, not from the cache
	assert.Equal(t, 1, f.calls.count(http.MethodGet, "/books/111/authors"))
	assert.ElementsMatch(t, []string{b, c, d}, f.bookAuthorIDs(t, "111"))
}

func TestEditBook_ScalarChangeLeavesAuthors(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuthor(t, "Meša", "Selimović")
	f.seedBook(t, "222", "Derviš i smrt", a)

	w := f.post("/books/edit/222", url.Values{
		"action":    {"save"},
		"isbn":      {"999"}, // ignored, the key comes from the route
		"title":     {"Derviš i smrt (2nd ed.)"},
		"pages":     {"100"},
		"published": {"1950"},
		"authors":   {a},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/books/222", w.Header().Get("Location"))

	got, err := f.store.GetBook(context.Background(), "222")
	require.NoError(t, err)
	assert.Equal(t, "Derviš i smrt (2nd ed.)", got.Title)
	assert.Equal(t, 100, got.Pages)
	assert.Equal(t, models.Year(1950), got.Published)
	assert.Equal(t, []string{a}, got.AuthorIDs())
}

func TestCreateBook_MissingTitleMakesNoWrite(t *testing.T) {
	f := newFixture(t)

	w := f.post("/books/create", url.Values{
		"action":    {"save"},
		"isbn":      {"333"},
		"pages":     {"10"},
		"published": {"2001"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), forms.MsgRequired)
	assert.Contains(t, w.Body.String(), "Title is required")
	assert.Zero(t, f.calls.count(http.MethodPost, "/books"))
	assert.Zero(t, f.calls.count(http.MethodPut, "/books"))
}

func TestDeleteBook(t *testing.T) {
	f := newFixture(t)
	f.seedBook(t, "444", "Tvrđava")
	require.Contains(t, f.get("/").Body.String(), "Tvrđava")

	w := f.post("/books/444/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	assert.NotContains(t, f.get("/").Body.String(), "Tvrđava")
	assert.Equal(t, http.StatusNotFound, f.get("/books/444").Code)
}

func TestCreateAuthor_LinksBooks(t *testing.T) {
	f := newFixture(t)
	f.seedBook(t, "555", "Bašta, pepeo")

	w := f.post("/authors/create", url.Values{
		"action":    {"save"},
		"firstName": {"Danilo"},
		"lastName":  {"Kiš"},
		"dob":       {"1935-02-22"},
		"books":     {"555"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/authors/"))

	w = f.get(loc)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Danilo Kiš")
	assert.Contains(t, w.Body.String(), "Bašta, pepeo")
	assert.Contains(t, w.Body.String(), "1935-02-22")
}

func TestEditAuthor_RemovesBook(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuthor(t, "Ivo", "Andrić")
	f.seedBook(t, "661", "Prokleta avlija", a)
	f.seedBook(t, "662", "Travnička hronika", a)

	w := f.post("/authors/edit/"+a, url.Values{
		"action":    {"save"},
		"firstName": {"Ivo"},
		"lastName":  {"Andrić"},
		"dob":       {"1892-10-09"},
		"books":     {"662"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	assert.Empty(t, f.bookAuthorIDs(t, "661"))
	assert.Equal(t, []string{a}, f.bookAuthorIDs(t, "662"))
	got, err := f.store.GetAuthor(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "1892-10-09", got.DOB.String())
}

func TestBookForm_PickerActions(t *testing.T) {
	f := newFixture(t)
	ivo := f.seedAuthor(t, "Ivo", "Andrić")
	f.seedAuthor(t, "Meša", "Selimović")

	w := f.post("/books/create", url.Values{"action": {"search"}, "q": {"IVO"}, "title": {"Draft"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "add:"+ivo)
	assert.NotContains(t, w.Body.String(), "Selimović")
	assert.Contains(t, w.Body.String(), `value="Draft"`)

	w = f.post("/books/create", url.Values{"action": {"add:" + ivo}, "title": {"Draft"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="authors" value="`+ivo+`"`)

	w = f.post("/books/create", url.Values{"action": {"remove"}, "pick": {ivo}, "authors": {ivo}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `name="authors" value="`+ivo+`"`)
	assert.Zero(t, f.calls.count(http.MethodPost, "/books"))
}

func TestSearchJSON(t *testing.T) {
	f := newFixture(t)
	ivo := f.seedAuthor(t, "Ivo", "Andrić")
	mesa := f.seedAuthor(t, "Meša", "Selimović")

	w := f.get("/search/authors?q=i&selected=" + mesa)
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.AuthorSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, ivo, got[0].ID)

	w = f.get("/search/books?q=")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUnknownEntityRendersNotFound(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.get("/books/nope").Code)
	assert.Equal(t, http.StatusNotFound, f.get("/authors/nope").Code)
	assert.Equal(t, http.StatusNotFound, f.get("/books/edit/nope").Code)
}

func TestUnavailableCatalogRendersLoading(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := web.NewRouter(web.Options{
		API:    catalog.NewClient(catalog.ClientConfig{BaseURL: srv.URL, Timeout: time.Second, Logger: logger}),
		Logger: logger,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Loading")
}

func TestCreateBook_MissingTitleReadsNothing(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuthor(t, "Ivo", "Andrić")

	w := f.post("/books/create", url.Values{
		"action":       {"save"},
		"isbn":         {"333"},
		"pages":        {"10"},
		"published":    {"2001"},
		"authors":      {a},
		"authorsLabel": {"Ivo Andrić"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Ivo Andrić")
	assert.Zero(t, f.calls.total())
}

func TestCreateBook_MarkupRejected(t *testing.T) {
	f := newFixture(t)

	w := f.post("/books/create", url.Values{
		"action":    {"save"},
		"isbn":      {"333"},
		"title":     {"<b>Bold</b>"},
		"pages":     {"10"},
		"published": {"2001"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Title must not contain HTML markup")
	assert.Zero(t, f.calls.count(http.MethodPost, "/books"))
}

func TestCreateBook_ImageFileReachesCatalog(t *testing.T) {
	f := newFixture(t)

	w := f.postFile(t, "/books/create", url.Values{
		"action":    {"save"},
		"isbn":      {"555"},
		"title":     {"Prokleta avlija"},
		"pages":     {"120"},
		"published": {"1954"},
	}, []byte("png"))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	got, err := f.store.GetBook(context.Background(), "555")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.Image, "https://img.example.com/"), got.Image)
}

func TestEditBook_KeepsUntouchedFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CreateBook(context.Background(), models.BookInput{
		ISBN: "666", Title: "Generics <T> in Go", Pages: 100, Published: 2022, Image: "/images/cover.png",
	})
	require.NoError(t, err)

	w := f.post("/books/edit/666", url.Values{
		"action":    {"save"},
		"title":     {"Generics <T> in Go"},
		"pages":     {"120"},
		"published": {"2022"},
		"image":     {"/images/cover.png"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	got, err := f.store.GetBook(context.Background(), "666")
	require.NoError(t, err)
	assert.Equal(t, "Generics <T> in Go", got.Title)
	assert.Equal(t, "/images/cover.png", got.Image)
	assert.Equal(t, 120, got.Pages)
}

func TestEditBook_UpdateFailure(t *testing.T) {
	f := newFixture(t)
	f.seedBook(t, "111", "Zbornik")
	f.calls.failOn(http.MethodPut, "/books/111")

	w := f.post("/books/edit/111", url.Values{
		"action":    {"save"},
		"title":     {"Zbornik II"},
		"pages":     {"100"},
		"published": {"1950"},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "An error occurred while updating the book")
	got, err := f.store.GetBook(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, "Zbornik", got.Title)
}

func TestEditBook_ReconcileFailureStopsAndReports(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuthor(t, "Anna", "A")
	b := f.seedAuthor(t, "Boris", "B")
	c := f.seedAuthor(t, "Cene", "C")
	f.seedBook(t, "111", "Zbornik", a, b)
	f.calls.failOn(http.MethodPost, "/books/111/authors")

	w := f.post("/books/edit/111", url.Values{
		"action":    {"save"},
		"title":     {"Zbornik"},
		"pages":     {"100"},
		"published": {"1950"},
		"authors":   {b, c},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "An error occurred while updating the book")
	// the delete went through, the first add failed and nothing after it ran
	assert.Equal(t, 1, f.calls.count(http.MethodDelete, "/books/111/authors/"))
	assert.Equal(t, 1, f.calls.count(http.MethodPost, "/books/111/authors"))
	assert.Equal(t, []string{b}, f.bookAuthorIDs(t, "111"))
}

func TestCreateBook_LinkFailureReopensAsEdit(t *testing.T) {
	f := newFixture(t)
	a := f.seedAuthor(t, "Ivo", "Andrić")
	f.calls.failOn(http.MethodPost, "/books/777/authors")

	w := f.post("/books/create", url.Values{
		"action":    {"save"},
		"isbn":      {"777"},
		"title":     {"Travnička hronika"},
		"pages":     {"500"},
		"published": {"1945"},
		"authors":   {a},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "An error occurred while creating the book")
	assert.Contains(t, w.Body.String(), `action="/books/edit/777"`)
	assert.Empty(t, f.bookAuthorIDs(t, "777"))
}

func TestEditAuthor_UpdateFailure(t *testing.T) {
	f := newFixture(t)
	id := f.seedAuthor(t, "Danilo", "Kiš")
	f.calls.failOn(http.MethodPut, "/authors/")

	w := f.post("/authors/edit/"+id, url.Values{
		"action":    {"save"},
		"firstName": {"Danilo"},
		"lastName":  {"Kiš"},
		"dob":       {"1935-02-22"},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "An error occurred while updating the author")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
