// Package logger builds *slog.Logger instances for the multipart/related
// middleware and the demo server.
//
// New takes functional options for format, level, output and static
// attributes. FromConfig does the same from a Config loaded by pkg/config
// (LOG_LEVEL, LOG_FORMAT, SERVICE_NAME). ContextExtractor callbacks add
// request-scoped attributes, such as a request id, at the time each record
// is handled.
//
// Attribute helpers (Error, RequestID, Boundary, PartCount, Attachment, ...)
// keep key names consistent across packages.
//
// # Usage
//
//	log, err := logger.FromConfig(cfg.Log,
//		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
//			id := middleware.GetReqID(ctx)
//			return logger.RequestID(id), id != ""
//		}),
//	)
//	if err != nil {
//		return err
//	}
//	log.InfoContext(ctx, "multipart/related request parsed",
//		logger.Boundary(out.Boundary),
//		logger.PartCount(len(out.Attachments)+1),
//	)
package logger
