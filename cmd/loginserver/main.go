// Command loginserver serves a login form backed by formact.
//
// The form works without JavaScript, and answers structured results to
// clients that ask for JSON or msgpack:
//
//	curl -H 'Accept: application/json' -F username=admin -F password=admin localhost:8080/
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pthm/formact"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("loading config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	store, err := NewStore(cfg.Users)
	if err != nil {
		logger.Error("seeding users", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, NewRouter(cfg, store, logger), logger); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

// NewRouter wires the login and home pages.
func NewRouter(cfg Config, store *Store, logger *slog.Logger) http.Handler {
	lh := &loginHandler{store: store, homePath: cfg.HomePath, logger: logger}
	login := formact.NewHandler(lh.submit, lh.render,
		formact.WithLogger(logger),
		formact.WithMaxMemory(cfg.MaxMemory))
	login.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.ErrorContext(r.Context(), "login form", slog.Any("err", err))
		formact.DefaultErrorHandler(w, r, err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger))

	r.Get("/", login.ServeHTTP)
	r.Post("/", login.ServeHTTP)
	r.Get(cfg.HomePath, func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "" {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		if err := formact.Render(w, r, HomePage(user)); err != nil {
			logger.ErrorContext(r.Context(), "rendering home", slog.Any("err", err))
		}
	})
	return r
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "access",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()))
		})
	}
}

func run(ctx context.Context, cfg Config, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("listening", slog.String("addr", cfg.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
