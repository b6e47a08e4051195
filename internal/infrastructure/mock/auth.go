// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"os"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

// MockAuthService accepts any token and authenticates as a fixed principal
type MockAuthService struct {
	// Principal overrides JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL when set
	Principal string
}

// ParsePrincipal returns the configured principal and ignores the token
func (m *MockAuthService) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	principal := m.Principal
	if principal == "" {
		principal = os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL")
	}

	if principal == "" {
		return "", errors.NewValidation("mock principal not configured in JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL")
	}

	logger.DebugContext(ctx, "parsed principal",
		"username", principal,
	)

	return principal, nil
}

// NewMockAuthService creates a new mock authentication service
func NewMockAuthService(principal string) port.Authenticator {
	return &MockAuthService{Principal: principal}
}
