package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/multipartkit/pkg/file"
	"github.com/dmitrymomot/multipartkit/pkg/logger"
	"github.com/dmitrymomot/multipartkit/pkg/related"
	"github.com/dmitrymomot/multipartkit/pkg/upload"
)

type primaryResponse struct {
	MIMEType string     `json:"mime_type,omitempty"`
	Size     int        `json:"size"`
	Fields   url.Values `json:"fields,omitempty"`
}

type uploadResponse struct {
	Primary     primaryResponse       `json:"primary"`
	Files       *related.FieldTree    `json:"files"`
	Attachments []*related.Attachment `json:"attachments"`
	Mismatches  []int                 `json:"integrity_mismatches,omitempty"`
}

// uploadHandler describes the parsed request as JSON.
func uploadHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := upload.FromContext(r.Context())
		if !ok {
			http.Error(w, "expected a multipart/related body", http.StatusUnsupportedMediaType)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.ErrorContext(r.Context(), "failed to read primary part", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		resp := uploadResponse{
			Primary: primaryResponse{
				MIMEType: r.Header.Get("Content-Type"),
				Size:     len(body),
			},
			Files:       state.Files,
			Attachments: state.Attachments,
		}
		if resp.Attachments == nil {
			resp.Attachments = []*related.Attachment{}
		}
		if r.Header.Get("Content-Type") == related.MediaTypeForm {
			resp.Primary.Fields = r.PostForm
		}
		for _, a := range state.Attachments {
			if a.Integrity.Failed() {
				resp.Mismatches = append(resp.Mismatches, a.Index)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.ErrorContext(r.Context(), "failed to write response", logger.Error(err))
		}
	}
}

// storageCheck verifies temp storage accepts a write and a release.
func storageCheck(s file.Storage) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		h, err := s.Allocate(ctx)
		if err != nil {
			return err
		}
		return errors.Join(s.Write(ctx, h, []byte("ok")), s.Release(ctx, h))
	}
}
