package file

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultNamePrefix is prepended to every allocated temp name.
const DefaultNamePrefix = "multipart-related-"

// Handle identifies a piece of allocated temp storage.
// For LocalStorage it is a file name inside the base directory,
// for S3Storage it is the object key.
type Handle string

// Storage allocates scoped temp storage for parsed attachments.
// Every handle returned by Allocate must eventually be passed to Release.
type Storage interface {
	// Allocate reserves a new, collision-free storage slot.
	Allocate(ctx context.Context) (Handle, error)
	// Write replaces the content stored under h.
	Write(ctx context.Context, h Handle, data []byte) error
	// Open returns a reader over the content stored under h.
	Open(ctx context.Context, h Handle) (io.ReadCloser, error)
	// Path returns a human-readable location of h (file path or s3 URI).
	Path(h Handle) string
	// Release deletes the content stored under h.
	Release(ctx context.Context, h Handle) error
}

// Checksum returns the hex digest of data. Defaults to MD5 when h is nil,
// which is what the Content-MD5 part header carries.
func Checksum(data []byte, h hash.Hash) string {
	if h == nil {
		h = md5.New()
	}
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SanitizeFilename removes any path components and dangerous characters from a filename
// to prevent path traversal attacks when a client-supplied name is reused on disk.
// The result is in Unicode NFC form. Returns "unnamed" for empty or special
// directory references.
//
// Example:
//
//	safe := file.SanitizeFilename("../../../etc/passwd") // Returns "passwd"
//	safe = file.SanitizeFilename("C:\\Windows\\file.txt") // Returns "file.txt"
func SanitizeFilename(filename string) string {
	filename = norm.NFC.String(filename)
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")

	if filename == "." || filename == ".." || filename == "" || filename == "/" {
		filename = "unnamed"
	}

	return filename
}

// validHandle rejects handles that could escape the storage root.
func validHandle(h Handle) bool {
	s := string(h)
	return s != "" && !strings.Contains(s, "..") && !strings.ContainsAny(s, "\\\x00")
}
