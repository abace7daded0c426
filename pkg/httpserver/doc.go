// Package httpserver runs the demo HTTP server with graceful shutdown and
// serves health probes.
//
//	srv := httpserver.New(cfg.HTTP, router, httpserver.WithLogger(log))
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Run(ctx); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// Run returns after the context is canceled and in-flight requests have
// finished or Config.ShutdownTimeout has elapsed.
package httpserver
