package file

import "errors"

var (
	ErrInvalidHandle = errors.New("invalid storage handle") // Prevents path traversal attacks
	ErrInvalidConfig = errors.New("invalid configuration")

	// File system errors
	ErrFileNotFound = errors.New("file not found")

	// I/O operation errors - wrapped with context for debugging
	ErrFailedToAllocate        = errors.New("failed to allocate temp file")
	ErrFailedToOpenFile        = errors.New("failed to open file")
	ErrFailedToWriteFile       = errors.New("failed to write file")
	ErrFailedToDeleteFile      = errors.New("failed to delete file")
	ErrFailedToCreateDirectory = errors.New("failed to create directory")
	ErrFailedToGetAbsolutePath = errors.New("failed to get absolute path")

	// S3-specific errors for proper error classification
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrRequestTimeout     = errors.New("request timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")

	// Context and cancellation errors
	ErrOperationTimeout  = errors.New("operation timed out")
	ErrOperationCanceled = errors.New("operation canceled")

	ErrFailedToLoadConfig = errors.New("failed to load AWS config")
)

// Redis-specific errors
var (
	ErrFailedToParseRedisURL = errors.New("failed to parse redis connection string")
	ErrRedisNotReady         = errors.New("redis did not become ready within the given time period")
)
