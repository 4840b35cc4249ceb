package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/partbridge/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer builds the library browser server listening on bind:port.
func NewServer(lib *ops.Library, version, bind string, port int) (*http.Server, error) {
	templates, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	h := &Handlers{lib: lib, renderer: NewRenderer(templates, version, lib.Logger)}

	handler, err := routes(h)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              net.JoinHostPort(bind, strconv.Itoa(port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// routes wires every page and the static assets behind securityHeaders.
func routes(h *Handlers) (http.Handler, error) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", http.RedirectHandler("/components", http.StatusFound))
	mux.HandleFunc("GET /components", h.HandleList)
	mux.HandleFunc("GET /components/search", h.HandleSearch)
	mux.HandleFunc("GET /components/{id}", h.HandleDetail)
	mux.HandleFunc("DELETE /components/{id}", h.HandleDelete)
	mux.HandleFunc("GET /library", h.HandleLibrary)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return securityHeaders(mux), nil
}

// securityHeaders confines pages to same-origin resources and forbids framing.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts the
// server down with a 5s grace period.
func Run(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info().Str("addr", "http://"+srv.Addr).Msg("library browser running")
	if host, _, err := net.SplitHostPort(srv.Addr); err == nil {
		if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
			logger.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
