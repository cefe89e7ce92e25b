package service

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"postsapi/app/config"
	"postsapi/app/routes"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RunAppServer opens the store, serves the API until SIGINT or SIGTERM and
// then shuts down gracefully.
func RunAppServer(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := OpenRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error("close store", zap.Error(err))
			return
		}
		log.Info("store closed")
	}()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.Addr())
	}
	log.Info("server running",
		zap.String("env", cfg.Env),
		zap.String("addr", ln.Addr().String()),
		zap.String("storage", cfg.Storage),
	)

	return serve(ctx, ln, routes.NewHandler(repo, cfg, log), cfg.ShutdownTimeout.Duration, log)
}

// serve runs an HTTP server on ln until ctx is done, then drains in-flight
// requests for at most timeout.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, timeout time.Duration, log *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	log.Info("shutting down gracefully", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "serve")
	}
	log.Info("http server closed")
	return nil
}
