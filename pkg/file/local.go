package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrymomot/multipartkit/pkg/uniqid"
)

// maxAllocateAttempts bounds retries when a generated name already exists.
const maxAllocateAttempts = 3

// LocalStorage implements Storage on the local filesystem.
// All files live directly inside baseDir.
// Safe for concurrent use.
type LocalStorage struct {
	baseDir string // Absolute path
	prefix  string
	ids     uniqid.Generator
}

// LocalOption defines a function that configures LocalStorage.
type LocalOption func(*LocalStorage)

// WithLocalPrefix sets the file name prefix used by Allocate.
func WithLocalPrefix(prefix string) LocalOption {
	return func(s *LocalStorage) {
		s.prefix = prefix
	}
}

// WithLocalIDGenerator sets the generator used to build file names.
func WithLocalIDGenerator(g uniqid.Generator) LocalOption {
	return func(s *LocalStorage) {
		if g != nil {
			s.ids = g
		}
	}
}

// NewLocalStorage creates local temp storage rooted at baseDir.
// baseDir is resolved to an absolute path and created if it doesn't exist.
func NewLocalStorage(baseDir string, opts ...LocalOption) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve base directory: %v", ErrFailedToGetAbsolutePath, err)
	}

	if err := os.MkdirAll(absBaseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	s := &LocalStorage{
		baseDir: absBaseDir,
		prefix:  DefaultNamePrefix,
		ids:     uniqid.Hashed(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// BaseDir returns the absolute directory files are allocated in.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// Allocate creates an empty file with a fresh name.
// O_EXCL guarantees the name was not taken, even by another process.
func (s *LocalStorage) Allocate(ctx context.Context) (Handle, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	var lastErr error
	for range maxAllocateAttempts {
		h := Handle(s.prefix + s.ids.Next())
		absPath, err := s.resolvePath(h)
		if err != nil {
			return "", err
		}

		f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				lastErr = err
				continue
			}
			return "", fmt.Errorf("%w: %v", ErrFailedToAllocate, err)
		}
		_ = f.Close()
		return h, nil
	}

	return "", fmt.Errorf("%w: %v", ErrFailedToAllocate, lastErr)
}

// Write replaces the content of an allocated file.
// Writing to a handle that was never allocated (or already released) fails.
func (s *LocalStorage) Write(ctx context.Context, h Handle, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	absPath, err := s.resolvePath(h)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, h)
		}
		return fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}

	return nil
}

// Open returns the stored file for reading.
func (s *LocalStorage) Open(ctx context.Context, h Handle) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	absPath, err := s.resolvePath(h)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, h)
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}

	return f, nil
}

// Path returns the absolute filesystem path of h.
func (s *LocalStorage) Path(h Handle) string {
	return filepath.Join(s.baseDir, string(h))
}

// Release deletes the file behind h.
func (s *LocalStorage) Release(ctx context.Context, h Handle) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	absPath, err := s.resolvePath(h)
	if err != nil {
		return err
	}

	if err := os.Remove(absPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, h)
		}
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}

	return nil
}

// resolvePath validates h and resolves it within the base directory.
// Handles are flat names, so anything that would leave baseDir is rejected.
func (s *LocalStorage) resolvePath(h Handle) (string, error) {
	if !validHandle(h) || strings.ContainsRune(string(h), filepath.Separator) || strings.Contains(string(h), "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, h)
	}

	absPath := filepath.Join(s.baseDir, string(h))
	if !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, h)
	}

	return absPath, nil
}
