// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package global

import (
	"context"
	"crypto/rand"
	"log/slog"
	"os"
	"sync"
)

const pageTokenSecretName = "PAGE_TOKEN_SECRET"

var (
	pageTokenSecret       [32]byte
	configuredSecret      string
	doOncePageTokenSecret sync.Once
)

// SetPageTokenSecret registers the secret read from the configuration file. It
// must be called before the first PageTokenSecret call to take effect.
func SetPageTokenSecret(secret string) {
	configuredSecret = secret
}

// PageTokenSecret retrieves the secret used for encoding and decoding export page tokens.
// The configured secret wins over the environment; when neither is set a random
// secret is generated, so tokens only survive for the lifetime of the process.
func PageTokenSecret(ctx context.Context) *[32]byte {

	doOncePageTokenSecret.Do(func() {

		secret := configuredSecret
		if secret == "" {
			secret = os.Getenv(pageTokenSecretName)
		}
		if secret != "" {
			copy(pageTokenSecret[:], []byte(secret))
			return
		}

		slog.WarnContext(ctx, "page token secret is not set, generating an ephemeral one",
			"env", pageTokenSecretName,
		)
		if _, err := rand.Read(pageTokenSecret[:]); err != nil {
			slog.ErrorContext(ctx, "failed to generate page token secret", "error", err)
			os.Exit(1)
		}
	})

	return &pageTokenSecret
}
