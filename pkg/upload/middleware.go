package upload

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/multipartkit/pkg/logger"
	"github.com/dmitrymomot/multipartkit/pkg/related"
)

// ErrorHandler writes the response for a body that could not be parsed.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures the middleware.
type Option func(*options)

type options struct {
	log          *slog.Logger
	maxBodySize  int64
	errorHandler ErrorHandler
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMaxBodySize limits how many bytes of a multipart/related body are read.
// Zero or less means no limit.
func WithMaxBodySize(n int64) Option {
	return func(o *options) { o.maxBodySize = n }
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		if h != nil {
			o.errorHandler = h
		}
	}
}

// DefaultErrorHandler answers 413 for a body over the size limit, 400 with
// related.BadRequestMessage for malformed requests and 500 otherwise.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
	case related.IsRequestError(err):
		http.Error(w, related.BadRequestMessage(err), http.StatusBadRequest)
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Middleware parses multipart/related requests with p before next runs.
//
// The first part replaces the request body, or, when url-encoded, becomes
// r.Form and r.PostForm. Its headers are merged into r.Header. Attachments
// are reachable through FromContext and Binder, and their stored content is
// released once next returns. Other content types pass through untouched.
func Middleware(p *related.Parser, opts ...Option) func(http.Handler) http.Handler {
	o := &options{
		log:          logger.Discard(),
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(o)
	}
	log := o.log.With(logger.Component("upload"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType := r.Header.Get("Content-Type")
			if !related.IsMultipartRelated(contentType) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			start := time.Now()

			body := r.Body
			if o.maxBodySize > 0 {
				body = http.MaxBytesReader(w, r.Body, o.maxBodySize)
			}

			out, err := p.Parse(ctx, contentType, body)
			if err != nil {
				level := slog.LevelWarn
				if !related.IsRequestError(err) {
					level = slog.LevelError
				}
				log.Log(ctx, level, "failed to parse multipart/related body", logger.Error(err))
				o.errorHandler(w, r, err)
				return
			}
			defer release(context.WithoutCancel(ctx), log, out)

			for _, a := range out.IntegrityFailures() {
				log.WarnContext(ctx, "content-md5 mismatch",
					logger.Attachment(a.Index, a.Filename, a.Path),
				)
			}

			state := newState()
			r = r.WithContext(WithContext(ctx, state))
			r.Body = http.NoBody
			r.ContentLength = 0
			r.Header.Del("Content-Length")
			out.Apply(&requestMutator{r: r, state: state})

			log.DebugContext(ctx, "multipart/related body parsed",
				logger.Boundary(out.Boundary),
				logger.PartCount(len(out.Attachments)+1),
				logger.Duration(time.Since(start)),
			)

			next.ServeHTTP(w, r)
		})
	}
}

func release(ctx context.Context, log *slog.Logger, out *related.Outcome) {
	if err := out.Release(ctx); err != nil {
		log.ErrorContext(ctx, "failed to release attachments", logger.Error(err))
	}
}
