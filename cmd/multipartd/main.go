// Command multipartd is a demo HTTP server that accepts multipart/related
// uploads and answers with a JSON description of what it parsed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/multipartkit/pkg/config"
	"github.com/dmitrymomot/multipartkit/pkg/file"
	"github.com/dmitrymomot/multipartkit/pkg/httpserver"
	"github.com/dmitrymomot/multipartkit/pkg/logger"
	"github.com/dmitrymomot/multipartkit/pkg/related"
	"github.com/dmitrymomot/multipartkit/pkg/upload"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg appConfig
	var err error
	if configPath != "" {
		err = config.LoadFile(configPath, &cfg)
	} else {
		err = config.Load(&cfg)
	}
	if err != nil {
		return err
	}

	log, err := logger.FromConfig(cfg.Log, logger.WithContextExtractors(requestIDExtractor))
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("temp storage: %w", err)
	}

	parser, err := related.NewParser(cfg.Parser, related.WithStorage(storage))
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "temp storage ready", slog.String("kind", cfg.Storage))

	srv := httpserver.New(cfg.HTTP, newRouter(parser, log, cfg.MaxBodySize), httpserver.WithLogger(log))
	return srv.Run(ctx)
}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	id := middleware.GetReqID(ctx)
	return logger.RequestID(id), id != ""
}

// newStorage returns local storage unless cfg selects s3 or redis.
func newStorage(ctx context.Context, cfg appConfig) (file.Storage, error) {
	switch cfg.Storage {
	case storageS3:
		return file.NewS3Storage(ctx, cfg.S3)
	case storageRedis:
		client, err := file.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return file.NewRedisStorage(client, cfg.Redis)
	case storageLocal, "":
		dir := cfg.Parser.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		return file.NewLocalStorage(dir)
	default:
		return nil, fmt.Errorf("unknown storage %q: must be %q, %q or %q", cfg.Storage, storageLocal, storageS3, storageRedis)
	}
}

func newRouter(parser *related.Parser, log *slog.Logger, maxBodySize int64) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthHandler(log, storageCheck(parser.Storage())))

	r.With(upload.Middleware(parser,
		upload.WithLogger(log),
		upload.WithMaxBodySize(maxBodySize),
	)).Post("/upload", uploadHandler(log))

	return r
}
