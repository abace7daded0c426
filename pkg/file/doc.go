// Package file provides scoped temp storage for attachments extracted from
// multipart/related request bodies.
//
// The Storage interface is the narrow contract the parser depends on:
//
//	Allocate -> Write -> (Open | Path)* -> Release
//
// Every handle returned by Allocate is owned by the caller until Release is
// called. Three implementations are provided:
//   - LocalStorage: files inside a base directory (the configured temp dir)
//   - S3Storage: objects in an AWS S3 (or S3-compatible) bucket
//   - RedisStorage: one key per attachment, each with a TTL
//
// # Usage
//
//	storage, err := file.NewLocalStorage(os.TempDir())
//	if err != nil {
//		return err
//	}
//
//	h, err := storage.Allocate(ctx)
//	if err != nil {
//		return err
//	}
//	defer storage.Release(ctx, h)
//
//	if err := storage.Write(ctx, h, data); err != nil {
//		return err
//	}
//
// Using S3 storage:
//
//	storage, err := file.NewS3Storage(ctx, file.S3Config{
//		Bucket: "uploads",
//		Region: "us-east-1",
//		Prefix: "tmp/",
//	})
//
// Using Redis storage:
//
//	client, err := file.ConnectRedis(ctx, file.RedisConfig{ConnectionURL: "redis://localhost:6379/0"})
//	if err != nil {
//		return err
//	}
//	storage, err := file.NewRedisStorage(client, file.RedisConfig{Prefix: "multipart:", TTL: time.Hour})
//
// # Security Considerations
//
// Handles are generated by the storage itself and validated on every call,
// so a handle can never address anything outside the base directory or prefix.
// Local temp files are created with 0600 permissions using O_EXCL, which makes
// allocation collision-free even across processes sharing the same directory.
//
// # Error Handling
//
//	if errors.Is(err, file.ErrFileNotFound) {
//		// Already released
//	}
//
// S3-specific errors are mapped to generic file errors for consistency:
//   - NoSuchBucket -> ErrBucketNotFound
//   - NoSuchKey -> ErrFileNotFound
//   - AccessDenied -> ErrAccessDenied
package file
