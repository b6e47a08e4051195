// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth turns bearer tokens into the username that owns saved sorts and search history.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	errs "github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

const (
	// PS256 is the default for Heimdall's JWT finalizer.
	signatureAlgorithm = validator.PS256
	defaultIssuer      = "heimdall"
	defaultAudience    = "lfx-v2-log-search-service"
	defaultJWKSURL     = "http://heimdall:4457/.well-known/jwks"
	jwksCacheTTL       = 5 * time.Minute
	allowedClockSkew   = 5 * time.Second
)

// JWTAuthConfig holds the configuration parameters for JWT authentication.
type JWTAuthConfig struct {
	// JWKSURL is the URL to the JSON Web Key Set endpoint
	JWKSURL string
	// Audience is the intended audience for the JWT token
	Audience string
}

var (
	// Factory for custom JWT claims target.
	customClaims = func() validator.CustomClaims {
		return &HeimdallClaims{}
	}
)

// HeimdallClaims contains extra custom claims we want to parse from the JWT
// token.
type HeimdallClaims struct {
	Principal string `json:"principal"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Validate provides additional middleware validation of any claims defined in
// HeimdallClaims.
func (c *HeimdallClaims) Validate(ctx context.Context) error {
	if c.Principal == "" && c.Username == "" {
		return errors.New("principal must be provided")
	}
	return nil
}

// username is the owner of per-user records: the explicit username claim when present
func (c *HeimdallClaims) username() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Principal
}

type JWTAuth struct {
	validator *validator.Validator
	config    JWTAuthConfig
}

// ParsePrincipal validates the token, with or without its "Bearer " prefix, and returns the username.
func (j *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	if j.validator == nil {
		return "", errs.NewServiceUnavailable("JWT validator is not set up")
	}

	token = strings.TrimSpace(token)
	if len(token) > len("bearer ") && strings.EqualFold(token[:len("bearer ")], "bearer ") {
		token = strings.TrimSpace(token[len("bearer "):])
	}
	if token == "" {
		return "", errs.NewValidation("missing bearer token")
	}

	parsedJWT, err := j.validator.ValidateToken(ctx, token)
	if err != nil {
		logger.ErrorContext(ctx, "failed to validate JWT token",
			"error", err,
		)
		return "", errs.NewValidation(shortValidationError(err))
	}

	claims, ok := parsedJWT.(*validator.ValidatedClaims)
	if !ok {
		// This should never happen.
		return "", errs.NewValidation("failed to get validated authorization claims")
	}

	custom, ok := claims.CustomClaims.(*HeimdallClaims)
	if !ok {
		// This should never happen.
		return "", errs.NewValidation("failed to get custom authorization claims")
	}

	logger.DebugContext(ctx, "parsed principal",
		"username", custom.username(),
	)
	return custom.username(), nil
}

// shortValidationError keeps the first two levels of a validation error message.
// Colons approximate the nesting; deeper causes are dropped so key and library details do not leak.
func shortValidationError(err error) string {
	errString := strings.Replace(err.Error(), ": go-jose/go-jose/jwt", "", 1)
	firstColon := strings.Index(errString, ":")
	if firstColon == -1 || firstColon+1 >= len(errString) {
		return errString
	}
	if secondColon := strings.Index(errString[firstColon+1:], ":"); secondColon != -1 {
		errString = errString[:firstColon+secondColon+1]
	}
	return errString
}

// NewJWTAuth creates a new JWT authentication service
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultJWKSURL
	}
	if config.Audience == "" {
		config.Audience = defaultAudience
	}

	// Set up Heimdall JWKS key provider.
	jwksURL, err := url.Parse(config.JWKSURL)
	if err != nil {
		slog.With("error", err).Error("invalid JWKS_URL")
		return nil, errs.NewConfiguration("invalid JWKS URL", err)
	}
	issuer, err := url.Parse(defaultIssuer)
	if err != nil {
		// This shouldn't happen; a bare hostname is a valid URL.
		slog.Error("unexpected URL parsing of default issuer")
		return nil, err
	}
	provider := jwks.NewCachingProvider(issuer, jwksCacheTTL, jwks.WithCustomJWKSURI(jwksURL))

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		signatureAlgorithm,
		issuer.String(),
		[]string{config.Audience},
		validator.WithCustomClaims(customClaims),
		validator.WithAllowedClockSkew(allowedClockSkew),
	)
	if err != nil {
		slog.With("error", err).Error("failed to set up the Heimdall JWT validator")
		return nil, err
	}

	return &JWTAuth{
		validator: jwtValidator,
		config:    config,
	}, nil
}

var _ port.Authenticator = (*JWTAuth)(nil)
