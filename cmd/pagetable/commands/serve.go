package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maruel/pagetable/internal/server"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the table as a JSON API",
	Long: `Serve the table over HTTP.

Routes:
  GET    /api/v1/health         health and version
  GET    /api/v1/view           current view
  POST   /api/v1/load           initial load ("Get data")
  POST   /api/v1/more           load the next page
  POST   /api/v1/sort           {"field": "name"} cycles the sort of a column
  DELETE /api/v1/rows/{index}   remove a row by storage index
  POST   /api/v1/clear          erase persisted data and the table
  GET    /metrics               prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "shut down when the executable is modified")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if serveWatch {
		if err := watchExecutable(ctx, stopFn); err != nil {
			return fmt.Errorf("failed to watch executable: %w", err)
		}
	}

	// Normalize addr: ":8080" becomes "localhost:8080"
	addr := cfg.Server.HTTP
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	version, _, _, _ := getBuildInfo()
	handler, limiter := server.NewRouter(server.Config{Version: version, RateLimit: cfg.Server.RateLimit}, a.co, a.cache, a.metrics)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "remote", cfg.Remote.BaseURL, "store", cfg.Store.Backend, "version", version)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		server.RunLimiter(gctx, limiter)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
		return nil
	})
	return g.Wait()
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
