// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
)

// AuthFunc validates a bearer token and returns the context to serve the request with
type AuthFunc func(ctx context.Context, token string) (context.Context, error)

type unauthorizedBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AuthMiddleware rejects requests without a valid bearer token with 401
func AuthMiddleware(authenticate AuthFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := bearerToken(r.Header.Get("Authorization"))
			if !found {
				unauthorized(r.Context(), w, "missing bearer token")
				return
			}

			ctx, err := authenticate(r.Context(), token)
			if err != nil {
				slog.WarnContext(r.Context(), "authentication failed", "error", err)
				unauthorized(r.Context(), w, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(ctx context.Context, w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(unauthorizedBody{Code: http.StatusUnauthorized, Message: message}); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}
