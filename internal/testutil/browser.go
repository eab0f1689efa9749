// Package testutil provides helpers for exercising the HTTP layer in tests.
package testutil

import (
	"bytes"
	"encoding/csv"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

// Browser sends requests to a handler and carries cookies between them.
type Browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

// NewBrowser creates a Browser with an empty cookie jar.
func NewBrowser(t *testing.T, handler http.Handler) *Browser {
	return &Browser{t: t, handler: handler, cookies: make(map[string]*http.Cookie)}
}

// Do sends req with the stored cookies and records any cookies set.
func (b *Browser) Do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

// Get issues a GET request.
func (b *Browser) Get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.Do(httptest.NewRequest(http.MethodGet, path, nil))
}

// PostForm issues a url-encoded POST request.
func (b *Browser) PostForm(path string, values url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.Do(req)
}

// Upload issues a multipart POST with one file field.
func (b *Browser) Upload(path, field, filename string, content []byte) *httptest.ResponseRecorder {
	b.t.Helper()
	body, contentType := MultipartFile(b.t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	return b.Do(req)
}

// Cookie returns a stored cookie, or nil.
func (b *Browser) Cookie(name string) *http.Cookie {
	return b.cookies[name]
}

// ClearCookies empties the jar, as a new browser would have.
func (b *Browser) ClearCookies() {
	b.cookies = make(map[string]*http.Cookie)
}

// MultipartFile builds a multipart body holding one file.
func MultipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// CSV renders rows as CSV bytes.
func CSV(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("writing csv: %v", err)
	}
	return buf.Bytes()
}
