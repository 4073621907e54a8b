package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPServer is the lifecycle of an http listener
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPOption customises an HTTPService
type HTTPOption func(*HTTPService)

// WithStateHook is told true when the listener starts and false when it
// stops, including on failure
func WithStateHook(fn func(running bool)) HTTPOption {
	return func(s *HTTPService) { s.onState = fn }
}

// WithStopHook runs before the server is shut down. Hijacked connections
// such as websockets are not closed by http.Server.Shutdown, so the owner
// closes them here.
func WithStopHook(fn func()) HTTPOption {
	return func(s *HTTPService) { s.onStop = fn }
}

// HTTPService adapts a blocking listener to suture.Service
type HTTPService struct {
	name            string
	server          HTTPServer
	shutdownTimeout time.Duration
	onState         func(bool)
	onStop          func()
}

// NewHTTPService wraps server. shutdownTimeout bounds graceful shutdown.
func NewHTTPService(name string, server HTTPServer, shutdownTimeout time.Duration, opts ...HTTPOption) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	s := &HTTPService{
		name:            name,
		server:          server,
		shutdownTimeout: shutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve implements suture.Service
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.setState(true)
	defer s.setState(false)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s listener failed: %w", s.name, err)
		}
		return nil

	case <-ctx.Done():
		if s.onStop != nil {
			s.onStop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s listener shutdown failed: %w", s.name, err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *HTTPService) setState(running bool) {
	if s.onState != nil {
		s.onState(running)
	}
}

// String names the service in supervisor events
func (s *HTTPService) String() string {
	return s.name
}

// SessionReaper deletes sessions past their expiry
type SessionReaper interface {
	CleanExpiredSessions(ctx context.Context) (int, error)
}

// ReaperService periodically purges expired sessions. Expiry is still
// enforced on every verification; this only reclaims storage.
type ReaperService struct {
	reaper   SessionReaper
	interval time.Duration
	logger   *slog.Logger
}

// NewReaperService creates a ReaperService running every interval
func NewReaperService(reaper SessionReaper, interval time.Duration, logger *slog.Logger) *ReaperService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ReaperService{
		reaper:   reaper,
		interval: interval,
		logger:   logger.With(slog.String("component", "session-reaper")),
	}
}

// Serve implements suture.Service
func (s *ReaperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.reap(ctx)
		}
	}
}

func (s *ReaperService) reap(ctx context.Context) {
	n, err := s.reaper.CleanExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("session cleanup failed", slog.String("error", err.Error()))
		}
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", slog.Int("count", n))
	}
}

// String names the service in supervisor events
func (s *ReaperService) String() string {
	return "session-reaper"
}
