// Package upload connects the multipart/related parser to net/http.
//
// Middleware parses a multipart/related request body before the wrapped
// handler runs. The first part becomes the request body (or r.Form for
// url-encoded content), its headers are merged into the request, and the
// remaining parts are stored as attachments in temp storage. Handlers reach
// them through FromContext or Binder. Stored content is released after the
// handler returns, so handlers that need to keep a file must copy it.
//
// # Usage
//
//	parser, err := related.NewParser(related.Config{TempDir: "/var/tmp/uploads"})
//	if err != nil {
//		return err
//	}
//
//	r := chi.NewRouter()
//	r.Use(upload.Middleware(parser,
//		upload.WithLogger(log),
//		upload.WithMaxBodySize(32<<20),
//	))
//	r.Post("/documents", func(w http.ResponseWriter, r *http.Request) {
//		state, ok := upload.FromContext(r.Context())
//		if !ok {
//			http.Error(w, "multipart/related body expected", http.StatusUnsupportedMediaType)
//			return
//		}
//		for _, a := range state.Attachments {
//			// a.Open(r.Context()) ...
//		}
//	})
//
// # Error Handling
//
// Malformed bodies are answered with 400 and a "Bad Request: <detail>" body,
// bodies over the size limit with 413, and storage failures with 500.
// WithErrorHandler replaces this behavior. A Content-MD5 mismatch does not
// fail the request; it is logged and reported on the attachment.
package upload
