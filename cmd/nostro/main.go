// Command nostro runs the client engine behind a small JSON HTTP front end:
// session management, feed, profiles, publishing, lists, search and
// notifications.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/minagishl/nostro/internal/archive"
	"github.com/minagishl/nostro/internal/cache"
	"github.com/minagishl/nostro/internal/nip05"
	"github.com/minagishl/nostro/internal/notifications"
	"github.com/minagishl/nostro/internal/relay"
	"github.com/minagishl/nostro/internal/store"
	"github.com/minagishl/nostro/internal/upload"
)

type app struct {
	pool             *relay.Pool
	store            *store.Store
	notifier         *notifications.Service
	uploader         *upload.Client
	archive          *archive.Repository
	cacheBackendType string
}

func main() {
	InitLogger()

	cfg := store.DefaultConfig()

	pool := relay.NewPool()
	defer pool.Close()

	backend, backendType := newCacheBackend()
	defer backend.Close()

	cacheCfg := cache.DefaultConfig()
	resolver := nip05.NewResolver(backend, cacheCfg.NIP05TTL)

	sessionPath := os.Getenv("NOSTRO_SESSION")
	if sessionPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		sessionPath = filepath.Join(home, ".nostro", "session")
	}

	// No extension capability is injected in the HTTP deployment; sessions
	// restored with the extension sentinel degrade to logged-out.
	st := store.New(cfg, pool, resolver, store.NewFileSession(sessionPath), nil)

	a := &app{
		pool:             pool,
		store:            st,
		notifier:         notifications.NewService(pool, cfg.Relays),
		uploader:         upload.NewClient(os.Getenv("NOSTRO_UPLOAD_URL")),
		cacheBackendType: backendType,
	}

	if dbPath := os.Getenv("NOSTRO_DB"); dbPath != "" {
		repo, err := archive.NewRepository(dbPath)
		if err != nil {
			slog.Error("failed to open event archive", "path", dbPath, "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		a.archive = repo
		slog.Info("event archive enabled", "path", dbPath)
	}

	if st.RestoreSession(context.Background(), os.Getenv("NOSTRO_PASSPHRASE")) {
		slog.Info("session restored", "pubkey", st.PublicKey(), "mode", string(st.Mode()))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      requestLoggingMiddleware(a.routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port, "relays", len(cfg.Relays))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	a.notifier.Close()
	st.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

// newCacheBackend selects Redis when REDIS_URL is set, in-memory otherwise.
func newCacheBackend() (cache.Backend, string) {
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		backend, err := cache.NewRedis(redisURL, "nostro")
		if err != nil {
			slog.Warn("redis unavailable, falling back to memory cache", "error", err)
		} else {
			slog.Info("using redis cache backend")
			return backend, "redis"
		}
	}
	return cache.NewMemory(10000, time.Minute), "memory"
}
