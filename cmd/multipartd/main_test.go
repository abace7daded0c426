package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multipartkit/pkg/logger"
	"github.com/dmitrymomot/multipartkit/pkg/related"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	storage, err := newStorage(context.Background(), appConfig{Storage: storageLocal, Parser: related.Config{TempDir: t.TempDir()}})
	require.NoError(t, err)

	parser, err := related.NewParser(related.Config{}, related.WithStorage(storage))
	require.NoError(t, err)

	return newRouter(parser, logger.Discard(), 1<<20)
}

func TestUploadEndpoint(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	payload := "--B\r\nContent-Type: application/json\r\n\r\n{\"a\":1}\r\n" +
		"--B\r\nContent-Type: text/plain\r\nContent-Disposition: form-data; name=\"docs[]\"; filename=\"a.txt\"\r\nContent-MD5: 00\r\n\r\nhello\r\n" +
		"--B\r\nContent-Type: text/plain\r\n\r\nanonymous\r\n" +
		"--B--\r\n"

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(payload))
	req.Header.Set("Content-Type", "multipart/related; boundary=B")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Primary struct {
			MIMEType string `json:"mime_type"`
			Size     int    `json:"size"`
		} `json:"primary"`
		Files struct {
			Docs []struct {
				Filename string `json:"filename"`
			} `json:"docs"`
		} `json:"files"`
		Attachments []map[string]any `json:"attachments"`
		Mismatches  []int            `json:"integrity_mismatches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "application/json", resp.Primary.MIMEType)
	assert.Equal(t, len(`{"a":1}`), resp.Primary.Size)
	require.Len(t, resp.Files.Docs, 1)
	assert.Equal(t, "a.txt", resp.Files.Docs[0].Filename)
	assert.Len(t, resp.Attachments, 2)
	assert.Equal(t, []int{1}, resp.Mismatches)
}

func TestUploadEndpoint_Errors(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("no delimiter\r\n"))
	req.Header.Set("Content-Type", "multipart/related; boundary=B")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bad Request: expected boundary delimiter", strings.TrimSpace(rec.Body.String()))
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", rec.Body.String())
}

func TestNewStorage_Unknown(t *testing.T) {
	t.Parallel()
	_, err := newStorage(context.Background(), appConfig{Storage: "ftp"})
	assert.Error(t, err)
}
