package related

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/dmitrymomot/multipartkit/pkg/file"
)

// Integrity is the outcome of the Content-MD5 check of a part.
type Integrity uint8

const (
	// IntegrityUnchecked means the part carried no Content-MD5 header.
	IntegrityUnchecked Integrity = iota
	IntegrityVerified
	IntegrityMismatch
)

// Failed reports whether the declared digest did not match the content.
func (i Integrity) Failed() bool {
	return i == IntegrityMismatch
}

func (i Integrity) String() string {
	switch i {
	case IntegrityVerified:
		return "verified"
	case IntegrityMismatch:
		return "mismatch"
	default:
		return "unchecked"
	}
}

// MarshalText encodes the integrity state as its name.
func (i Integrity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// checkIntegrity compares content against a Content-MD5 value. Both the hex
// digest (case-insensitive) and the base64 form of RFC 1864 are accepted.
func checkIntegrity(content []byte, declared string) Integrity {
	declared = strings.TrimSpace(declared)
	if strings.EqualFold(file.Checksum(content, md5.New()), declared) {
		return IntegrityVerified
	}
	sum := md5.Sum(content)
	if declared == base64.StdEncoding.EncodeToString(sum[:]) {
		return IntegrityVerified
	}
	return IntegrityMismatch
}

// Attachment is a non-primary part stored in temp storage.
// The stored content belongs to the Outcome that produced it and is deleted
// by Outcome.Release.
type Attachment struct {
	// Index is the ordinal of the part in the body; the primary part is 0.
	Index int
	// FormName is the raw Content-Disposition name, empty for unnamed parts.
	FormName string
	// Filename is the decoded Content-Disposition filename or a generated one.
	Filename string
	// MIMEType is the declared Content-Type, empty when none was sent.
	MIMEType string
	// Size is the declared Content-Length, falling back to the content length.
	Size int64
	// Integrity is the result of the Content-MD5 check.
	Integrity Integrity
	// Ephemeral is always true for parsed attachments: the content is temporary.
	Ephemeral bool
	// Header holds every header of the part, including form-name and file-name.
	Header *Header
	// Handle identifies the stored content.
	Handle file.Handle
	// Path is the storage location of the content (file path or URI).
	Path string

	storage  file.Storage
	released bool
}

// HasMIMEType reports whether the part declared a Content-Type.
func (a *Attachment) HasMIMEType() bool {
	return a.Header.Has(HeaderContentType)
}

// SafeFilename returns Filename stripped of path components.
func (a *Attachment) SafeFilename() string {
	return file.SanitizeFilename(a.Filename)
}

// Open returns a reader over the stored content.
func (a *Attachment) Open(ctx context.Context) (io.ReadCloser, error) {
	if a.storage == nil {
		return nil, file.ErrFileNotFound
	}
	if a.released {
		return nil, file.ErrFileNotFound
	}
	return a.storage.Open(ctx, a.Handle)
}

// ReadAll returns the stored content.
func (a *Attachment) ReadAll(ctx context.Context) ([]byte, error) {
	rc, err := a.Open(ctx)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	return data, errors.Join(err, rc.Close())
}

func (a *Attachment) release(ctx context.Context) error {
	if a.released || a.storage == nil {
		return nil
	}
	if err := a.storage.Release(ctx, a.Handle); err != nil && !errors.Is(err, file.ErrFileNotFound) {
		return err
	}
	a.released = true
	return nil
}

type attachmentJSON struct {
	Index     int       `json:"index"`
	FormName  string    `json:"form_name,omitempty"`
	Filename  string    `json:"filename"`
	MIMEType  *string   `json:"mime_type"`
	Size      int64     `json:"size"`
	Integrity Integrity `json:"integrity"`
	Ephemeral bool      `json:"ephemeral"`
	Path      string    `json:"path"`
}

// MarshalJSON encodes the attachment metadata. A missing MIME type is null.
func (a *Attachment) MarshalJSON() ([]byte, error) {
	out := attachmentJSON{
		Index:     a.Index,
		FormName:  a.FormName,
		Filename:  a.Filename,
		Size:      a.Size,
		Integrity: a.Integrity,
		Ephemeral: a.Ephemeral,
		Path:      a.Path,
	}
	if a.HasMIMEType() {
		mt := a.MIMEType
		out.MIMEType = &mt
	}
	return json.Marshal(out)
}
