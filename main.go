// Package main serves a persiston store over HTTP.
//
// Configuration is read from CLI flags, environment variables and an
// optional TOML file given with -config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/stevemurr/persiston/adapter"
	"github.com/stevemurr/persiston/handler"
	"github.com/stevemurr/persiston/store"
)

// corsMiddleware wraps an http.Handler with CORS headers.
func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	// Fast path: wildcard allows everything.
	allowAll := len(allowedOrigins) == 1 && strings.TrimSpace(allowedOrigins[0]) == "*"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowAll {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, o := range allowedOrigins {
				if strings.TrimSpace(o) == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
					break
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+handler.RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", handler.RequestIDHeader)
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newLogger(level slog.Leveler) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "persiston: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	level, err := cfg.level()
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	acfg, err := cfg.adapterConfig()
	if err != nil {
		return err
	}
	if cfg.watchable() {
		if err := os.MkdirAll(filepath.Dir(cfg.Target), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	a, err := adapter.Open(ctx, acfg)
	if err != nil {
		return fmt.Errorf("failed to open adapter (backend=%s): %w", cfg.Backend, err)
	}
	if c, ok := a.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	s, err := store.New(store.WithAdapter(a)).Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	if cfg.Watch {
		if !cfg.watchable() {
			return fmt.Errorf("-watch needs the file backend, not %q", cfg.Backend)
		}
		if err := watchFile(ctx, cfg.Target, s); err != nil {
			return fmt.Errorf("failed to watch %s: %w", cfg.Target, err)
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.addr(),
		Handler:           corsMiddleware(handler.New(s), cfg.Origins),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", cfg.addr(), "backend", cfg.Backend, "target", cfg.Target, "collections", len(s.Names()))
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}
