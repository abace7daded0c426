package upload

import (
	"context"

	"github.com/dmitrymomot/multipartkit/pkg/related"
)

type contextKey struct{}

// State is what the middleware attaches to the request context after a
// multipart/related body was parsed. It is only valid while the handler runs:
// the stored attachments are released when it returns.
type State struct {
	// Files holds the named attachments by form name.
	Files *related.FieldTree
	// Attachments holds every attachment in body order.
	Attachments []*related.Attachment

	attributes map[string]any
}

func newState() *State {
	return &State{Files: related.NewFieldTree(), attributes: make(map[string]any)}
}

// Attribute returns a request attribute set by the parse outcome, such as
// related.AttributeLegacy.
func (s *State) Attribute(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.attributes[name]
	return v, ok
}

// File returns the attachment stored under the bracket-notation name, or nil.
func (s *State) File(name string) *related.Attachment {
	if s == nil {
		return nil
	}
	return s.Files.Get(name)
}

// WithContext returns a copy of ctx carrying s.
func WithContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the parse state, if the request was multipart/related.
func FromContext(ctx context.Context) (*State, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(contextKey{}).(*State)
	return s, ok && s != nil
}
