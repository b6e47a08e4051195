// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"log/slog"
)

// Authenticator defines the interface for authentication operations
type Authenticator interface {
	// ParsePrincipal parses and validates a bearer token, returning the username
	// that scopes saved sort preferences and search history
	ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error)
}
