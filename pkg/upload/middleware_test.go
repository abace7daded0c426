package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multipartkit/pkg/file"
	"github.com/dmitrymomot/multipartkit/pkg/logger"
	"github.com/dmitrymomot/multipartkit/pkg/related"
	"github.com/dmitrymomot/multipartkit/pkg/upload"
)

const relatedContentType = "multipart/related; boundary=B"

func part(headers []string, content string) string {
	var b strings.Builder
	b.WriteString("--B\r\n")
	for _, h := range headers {
		b.WriteString(h + "\r\n")
	}
	b.WriteString("\r\n" + content + "\r\n")
	return b.String()
}

func body(parts ...string) string {
	return strings.Join(parts, "") + "--B--\r\n"
}

func newParser(t *testing.T) (*related.Parser, string) {
	t.Helper()
	dir := t.TempDir()
	p, err := related.NewParser(related.Config{TempDir: dir})
	require.NoError(t, err)
	return p, dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type storageMock struct {
	mock.Mock
}

func (m *storageMock) Allocate(ctx context.Context) (file.Handle, error) {
	args := m.Called(ctx)
	return args.Get(0).(file.Handle), args.Error(1)
}

func (m *storageMock) Write(ctx context.Context, h file.Handle, data []byte) error {
	return m.Called(ctx, h, data).Error(0)
}

func (m *storageMock) Open(ctx context.Context, h file.Handle) (io.ReadCloser, error) {
	args := m.Called(ctx, h)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *storageMock) Path(h file.Handle) string {
	return "mock://" + string(h)
}

func (m *storageMock) Release(ctx context.Context, h file.Handle) error {
	return m.Called(ctx, h).Error(0)
}

func TestMiddleware_PassThrough(t *testing.T) {
	t.Parallel()
	p, _ := newParser(t)

	var called bool
	h := upload.Middleware(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(data))

		_, ok := upload.FromContext(r.Context())
		assert.False(t, ok)
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, called)
}

func TestMiddleware_RawPrimary(t *testing.T) {
	t.Parallel()
	p, dir := newParser(t)

	payload := body(
		part([]string{"Content-Type: application/json", "X-Document-Version: 3"}, `{"title":"report"}`),
		part([]string{"Content-Type: application/pdf", `Content-Disposition: form-data; name="docs[]"; filename="a.pdf"`}, "%PDF-a"),
		part([]string{"Content-Type: application/pdf", `Content-Disposition: form-data; name="docs[]"; filename="b.pdf"`}, "%PDF-b"),
		part([]string{"Content-Type: image/png"}, "png-bytes"),
	)

	h := upload.Middleware(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"title":"report"}`, string(data))
		assert.Equal(t, int64(len(data)), r.ContentLength)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "3", r.Header.Get("X-Document-Version"))

		state, ok := upload.FromContext(r.Context())
		require.True(t, ok)
		require.Len(t, state.Attachments, 3)

		second := state.File("docs[1]")
		require.NotNil(t, second)
		content, err := second.ReadAll(r.Context())
		require.NoError(t, err)
		assert.Equal(t, "%PDF-b", string(content))

		legacy, ok := state.Attribute(related.AttributeLegacy)
		require.True(t, ok)
		assert.Equal(t, "image/png", legacy.(*related.Attachment).MIMEType)

		_, ok = state.Attribute("_multipart_related_3")
		assert.True(t, ok)

		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(payload))
	req.Header.Set("Content-Type", relatedContentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assertDirEmpty(t, dir)
}

func TestMiddleware_FormPrimary(t *testing.T) {
	t.Parallel()
	p, _ := newParser(t)

	payload := body(
		part([]string{"Content-Type: application/x-www-form-urlencoded"}, "title=Report&tag=a"),
		part([]string{`Content-Disposition: form-data; name="file"`}, "data"),
	)

	h := upload.Middleware(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Report", r.PostForm.Get("title"))
		assert.Equal(t, []string{"a", "b"}, r.Form["tag"])
		assert.Equal(t, "1", r.FormValue("page"))
		assert.Zero(t, r.ContentLength)
		assert.Empty(t, r.Header.Get("Content-Length"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload?page=1&tag=b", strings.NewReader(payload))
	req.Header.Set("Content-Type", relatedContentType)
	req.Header.Set("Content-Length", strconv.Itoa(len(payload)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_PrimaryWithoutContentType(t *testing.T) {
	t.Parallel()
	p, _ := newParser(t)

	h := upload.Middleware(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body(part([]string{"X-A: 1"}, "raw"))))
	req.Header.Set("Content-Type", relatedContentType)
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestMiddleware_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		message     string
	}{
		{"empty body", relatedContentType, "", http.StatusBadRequest, "Bad Request: an empty body received"},
		{"no delimiter", relatedContentType, "hello\r\n", http.StatusBadRequest, "Bad Request: expected boundary delimiter"},
		{"ambiguous header", "multipart/related", "--B\r\n", http.StatusBadRequest, "Bad Request: boundary may be missing"},
		{"missing keyword", "multipart/related; type=text/xml", "--B\r\n", http.StatusBadRequest, "Bad Request: boundary is not set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, dir := newParser(t)

			h := upload.Middleware(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not run")
			}))

			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, strings.TrimSpace(rec.Body.String()))
			assertDirEmpty(t, dir)
		})
	}
}

func TestMiddleware_MaxBodySize(t *testing.T) {
	t.Parallel()
	p, _ := newParser(t)

	payload := body(
		part([]string{"Content-Type: text/plain"}, "primary"),
		part([]string{`Content-Disposition: form-data; name="f"`}, strings.Repeat("x", 4096)),
	)

	h := upload.Middleware(p, upload.WithMaxBodySize(512))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(payload))
	req.Header.Set("Content-Type", relatedContentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMiddleware_StorageFailure(t *testing.T) {
	t.Parallel()

	storage := &storageMock{}
	storage.On("Allocate", mock.Anything).Return(file.Handle(""), errors.New("disk full")).Once()

	p, err := related.NewParser(related.Config{}, related.WithStorage(storage))
	require.NoError(t, err)

	var handled error
	h := upload.Middleware(p, upload.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
		handled = err
		upload.DefaultErrorHandler(w, r, err)
	}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	payload := body(
		part([]string{"Content-Type: text/plain"}, "primary"),
		part([]string{`Content-Disposition: form-data; name="f"`}, "data"),
	)
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(payload))
	req.Header.Set("Content-Type", relatedContentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.ErrorIs(t, handled, related.ErrStorageFailure)
	storage.AssertExpectations(t)
}

func TestMiddleware_ReleaseAfterHandler(t *testing.T) {
	t.Parallel()

	storage := &storageMock{}
	storage.On("Allocate", mock.Anything).Return(file.Handle("h1"), nil).Once()
	storage.On("Write", mock.Anything, file.Handle("h1"), []byte("data")).Return(nil).Once()
	storage.On("Release", mock.Anything, file.Handle("h1")).Return(errors.New("gone wrong")).Once()

	p, err := related.NewParser(related.Config{}, related.WithStorage(storage))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	h := upload.Middleware(p, upload.WithLogger(logger.New(logger.WithOutput(logs))))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, ok := upload.FromContext(r.Context())
			require.True(t, ok)
			assert.Equal(t, "mock://h1", state.File("f").Path)
		}),
	)

	payload := body(
		part([]string{"Content-Type: text/plain"}, "primary"),
		part([]string{`Content-Disposition: form-data; name="f"`}, "data"),
	)
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(payload))
	req.Header.Set("Content-Type", relatedContentType)
	h.ServeHTTP(httptest.NewRecorder(), req)

	storage.AssertExpectations(t)
	assert.Contains(t, logs.String(), "failed to release attachments")
	assert.Contains(t, logs.String(), `"component":"upload"`)
}

func TestMiddleware_IntegrityMismatch(t *testing.T) {
	t.Parallel()
	p, _ := newParser(t)

	logs := &bytes.Buffer{}
	h := upload.Middleware(p, upload.WithLogger(logger.New(logger.WithOutput(logs))))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, _ := upload.FromContext(r.Context())
			assert.Equal(t, related.IntegrityMismatch, state.File("f").Integrity)
		}),
	)

	payload := body(
		part([]string{"Content-Type: text/plain"}, "primary"),
		part([]string{`Content-Disposition: form-data; name="f"; filename="f.txt"`, "Content-MD5: deadbeef"}, "data"),
	)
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(payload))
	req.Header.Set("Content-Type", relatedContentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "content-md5 mismatch")
	assert.Contains(t, logs.String(), `"filename":"f.txt"`)
}
