package related

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrymomot/multipartkit/pkg/file"
	"github.com/dmitrymomot/multipartkit/pkg/uniqid"
)

const (
	// MediaTypeRelated is the only content type the parser handles.
	MediaTypeRelated = "multipart/related"
	// MediaTypeForm turns the primary part into form fields.
	MediaTypeForm = "application/x-www-form-urlencoded"

	boundaryParam = "boundary="
)

// Config is the explicit parser configuration.
type Config struct {
	// TempDir is the base path attachment storage is allocated in.
	// Defaults to os.TempDir(). Ignored when WithStorage is used.
	TempDir string `env:"MULTIPART_TEMP_DIR" yaml:"temp_dir"`
}

// Option configures a Parser.
type Option func(*Parser)

// WithStorage sets the temp storage attachments are written to.
func WithStorage(s file.Storage) Option {
	return func(p *Parser) {
		if s != nil {
			p.storage = s
		}
	}
}

// WithIDGenerator sets the generator used for missing filenames.
func WithIDGenerator(g uniqid.Generator) Option {
	return func(p *Parser) {
		if g != nil {
			p.ids = g
		}
	}
}

// Parser turns multipart/related bodies into an Outcome.
// It holds no per-request state and is safe for concurrent use.
type Parser struct {
	storage file.Storage
	ids     uniqid.Generator
}

// NewParser creates a parser. Without WithStorage, attachments are stored
// as files in cfg.TempDir.
func NewParser(cfg Config, opts ...Option) (*Parser, error) {
	p := &Parser{ids: uniqid.UUID()}
	for _, opt := range opts {
		opt(p)
	}

	if p.storage == nil {
		dir := cfg.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		storage, err := file.NewLocalStorage(dir)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		p.storage = storage
	}

	return p, nil
}

// Storage returns the storage attachments are written to.
func (p *Parser) Storage() file.Storage {
	return p.storage
}

// IsMultipartRelated reports whether contentType selects this parser.
func IsMultipartRelated(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, MediaTypeRelated)
}

// ParseContentType extracts the media type and boundary from a Content-Type
// value of exactly the form "type; boundary=value". The boundary may be quoted.
func ParseContentType(contentType string) (mediaType, boundary string, err error) {
	segments := strings.Split(contentType, ";")
	if len(segments) != 2 {
		return "", "", ErrAmbiguousBoundaryHeader
	}

	mediaType = strings.TrimSpace(segments[0])
	param := strings.TrimSpace(segments[1])

	if len(param) < len(boundaryParam) || !strings.EqualFold(param[:len(boundaryParam)], boundaryParam) {
		return "", "", ErrMissingBoundaryKeyword
	}

	boundary = param[len(boundaryParam):]
	if len(boundary) >= 2 && boundary[0] == '"' && boundary[len(boundary)-1] == '"' {
		boundary = boundary[1 : len(boundary)-1]
	}
	if boundary == "" {
		return "", "", ErrMissingBoundaryKeyword
	}

	return mediaType, boundary, nil
}

// Parse reads a whole request body. A content type other than
// multipart/related yields an Outcome with Related false and leaves body
// unread. On success the caller owns the Outcome and must call Release.
// On failure nothing is left allocated, even when ctx was cancelled.
func (p *Parser) Parse(ctx context.Context, contentType string, body io.Reader) (*Outcome, error) {
	if !IsMultipartRelated(contentType) {
		return &Outcome{}, nil
	}

	mediaType, boundary, err := ParseContentType(contentType)
	if err != nil {
		return nil, err
	}

	raws, err := Scan(body, boundary)
	if err != nil {
		return nil, err
	}

	parts := make([]*ParsedPart, 0, len(raws))
	for _, raw := range raws {
		part, err := ParsePart(raw)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	out := &Outcome{
		Related:   true,
		MediaType: mediaType,
		Boundary:  boundary,
		Primary:   newPrimary(parts[0]),
		Files:     NewFieldTree(),
	}

	for _, part := range parts[1:] {
		a, err := p.store(ctx, part)
		if err != nil {
			return nil, errors.Join(err, out.Release(context.WithoutCancel(ctx)))
		}
		out.add(a)
	}

	return out, nil
}

func newPrimary(part *ParsedPart) *Primary {
	primary := &Primary{
		Headers:  part.Headers,
		MIMEType: part.Headers.Get(HeaderContentType),
		Content:  part.Content,
	}

	if primary.MIMEType == MediaTypeForm {
		// Malformed pairs are skipped.
		fields, _ := url.ParseQuery(string(part.Content))
		primary.Form = fields
	}

	return primary
}

// store writes the part content to temp storage and builds its Attachment.
func (p *Parser) store(ctx context.Context, part *ParsedPart) (*Attachment, error) {
	h := part.Headers

	integrity := IntegrityUnchecked
	if sum, ok := h.Lookup(HeaderContentMD5); ok {
		integrity = checkIntegrity(part.Content, sum)
	}

	handle, err := p.storage.Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: part %d: %w", ErrStorageFailure, part.Index, err)
	}

	if err := p.storage.Write(ctx, handle, part.Content); err != nil {
		return nil, errors.Join(
			fmt.Errorf("%w: part %d: %w", ErrStorageFailure, part.Index, err),
			p.storage.Release(context.WithoutCancel(ctx), handle),
		)
	}

	filename := h.Get(HeaderFileName)
	if filename == "" {
		filename = p.ids.Next()
	}

	return &Attachment{
		Index:     part.Index,
		FormName:  h.Get(HeaderFormName),
		Filename:  filename,
		MIMEType:  h.Get(HeaderContentType),
		Size:      declaredSize(h, len(part.Content)),
		Integrity: integrity,
		Ephemeral: true,
		Header:    h,
		Handle:    handle,
		Path:      p.storage.Path(handle),
		storage:   p.storage,
	}, nil
}

// declaredSize returns the positive Content-Length or the actual length.
func declaredSize(h *Header, actual int) int64 {
	if v, err := strconv.ParseInt(strings.TrimSpace(h.Get(HeaderContentLength)), 10, 64); err == nil && v > 0 {
		return v
	}
	return int64(actual)
}
