// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package cmdb

import (
	"fmt"
	"time"
)

// Config holds the configuration for the CMDB host inventory client
type Config struct {
	// BaseURL is the base URL of the CMDB API
	BaseURL string

	// Token is sent as a bearer token when set
	Token string

	// Timeout is the HTTP client timeout for API requests
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the delay between retry attempts
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// NewConfig creates a new CMDB configuration with the provided parameters
func NewConfig(baseURL, token, timeout string, maxRetries int, retryDelay string) (Config, error) {
	if baseURL == "" {
		return Config{}, fmt.Errorf("base URL is required for CMDB configuration")
	}

	config := DefaultConfig()
	config.BaseURL = baseURL
	config.Token = token

	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timeout duration: %w", err)
		}
		config.Timeout = d
	}

	if maxRetries > 0 {
		config.MaxRetries = maxRetries
	}

	if retryDelay != "" {
		d, err := time.ParseDuration(retryDelay)
		if err != nil {
			return Config{}, fmt.Errorf("invalid retry delay duration: %w", err)
		}
		config.RetryDelay = d
	}

	return config, nil
}
