// Package graceful runs an http.Server for the lifetime of a context.
package graceful

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Server drains in-flight requests for up to drain once its context ends.
type Server struct {
	srv   *http.Server
	drain time.Duration
	log   *slog.Logger
}

func NewServer(log *slog.Logger, srv *http.Server, drain time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{srv: srv, drain: drain, log: log.With(slog.String("addr", srv.Addr))}
}

// ListenAndServe blocks until ctx ends or the listener fails. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http server listening")
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() == nil {
			// The listener failed; there is nothing to drain.
			return nil
		}

		s.log.Info("draining http server", slog.Duration("timeout", s.drain))
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drain)
		defer cancel()
		return s.srv.Shutdown(drainCtx)
	})

	err := g.Wait()
	if err != nil {
		s.log.Error("http server stopped", slog.Any("error", err))
	}
	return err
}
