// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/linuxfoundation/lfx-v2-log-search-service/cmd/service"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/middleware"
)

const shutdownTimeout = 30 * time.Second

// newRouter builds the chi router serving the log search API.
func newRouter(api *service.LogSearchAPI, dbg bool) http.Handler {
	r := chi.NewRouter()

	// Add RequestID middleware first
	r.Use(middleware.RequestIDMiddleware())
	r.Use(chimiddleware.Recoverer)
	if dbg {
		// Log every request line if debug logs are enabled.
		r.Use(chimiddleware.Logger)
	}

	api.Mount(r)
	return r
}

// handleHTTPServer configures and starts a HTTP server on the given address.
// It shuts the server down once ctx is canceled.
func handleHTTPServer(ctx context.Context, addr string, handler http.Handler, wg *sync.WaitGroup, errc chan error) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: time.Second * 60}

	if routes, ok := handler.(chi.Routes); ok {
		_ = chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			slog.InfoContext(ctx, "HTTP endpoint mounted",
				"verb", method,
				"pattern", route,
			)
			return nil
		})
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			slog.InfoContext(ctx, "HTTP server listening", "addr", addr)
			errc <- srv.ListenAndServe()
		}()

		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down HTTP server", "addr", addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown HTTP server", "error", err)
		}
	}()
}
