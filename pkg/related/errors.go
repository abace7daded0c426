package related

import (
	"errors"
	"strings"
)

// Parse errors. Each one is a structural problem with the request and maps to
// a 400 response; they are never retried. A Content-MD5 mismatch is not an
// error, see Attachment.Integrity.
var (
	ErrEmptyBody                = errors.New("an empty body received")
	ErrMalformedBody            = errors.New("no parts found in body")
	ErrMissingBoundaryDelimiter = errors.New("expected boundary delimiter")
	ErrEmptyPartContent         = errors.New("an empty content part found")
	ErrHeaderBlockNotFound      = errors.New("unable to determine headers limit")
	ErrAmbiguousBoundaryHeader  = errors.New("boundary may be missing")
	ErrMissingBoundaryKeyword   = errors.New("boundary is not set")
	ErrReadFailure              = errors.New("an error appears while reading input")

	// ErrStorageFailure is returned when an attachment cannot be stored.
	// Unlike the errors above it is a server-side problem.
	ErrStorageFailure = errors.New("failed to store attachment")

	ErrInvalidConfig = errors.New("invalid parser configuration")
)

var requestErrors = []error{
	ErrEmptyBody,
	ErrMalformedBody,
	ErrMissingBoundaryDelimiter,
	ErrEmptyPartContent,
	ErrHeaderBlockNotFound,
	ErrAmbiguousBoundaryHeader,
	ErrMissingBoundaryKeyword,
	ErrReadFailure,
}

// IsRequestError reports whether err was caused by the request itself
// rather than by the parser's collaborators.
func IsRequestError(err error) bool {
	for _, target := range requestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// BadRequestMessage renders err as the body of a 400 response:
// "Bad Request" optionally followed by ": <detail>".
func BadRequestMessage(err error) string {
	const message = "Bad Request"
	if err == nil {
		return message
	}
	detail := strings.TrimSpace(err.Error())
	if detail == "" {
		return message
	}
	return message + ": " + detail
}
