// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package config loads the service configuration from a TOML file and applies
// environment-variable overrides on top of it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"

	"github.com/pelletier/go-toml/v2"
)

// Duration wraps time.Duration so it can be written as "30s" in TOML
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Config is the root of the service configuration
type Config struct {
	Port       string           `toml:"port"`
	Search     SearchConfig     `toml:"search"`
	OpenSearch OpenSearchConfig `toml:"opensearch"`
	Hosts      HostsConfig      `toml:"hosts"`
	Repository RepositoryConfig `toml:"repository"`
	Auth       AuthConfig       `toml:"auth"`
}

// SearchConfig carries the pagination engine ceilings and feature toggles
type SearchConfig struct {
	// Source selects the document store adapter: "opensearch" or "mock"
	Source                string   `toml:"source"`
	MaxResultWindow       int      `toml:"max_result_window"`
	MaxSearchSize         int      `toml:"max_search_size"`
	MaxExportRequestRetry int      `toml:"max_export_request_retry"`
	ExportScroll          bool     `toml:"export_scroll"`
	ScrollTTL             Duration `toml:"scroll_ttl"`
	TimeFieldPreCheck     bool     `toml:"time_field_pre_check"`
	FieldCatalogTTL       Duration `toml:"field_catalog_ttl"`
	HistoryWindow         Duration `toml:"history_window"`
	PageTokenSecret       string   `toml:"page_token_secret"`
}

type OpenSearchConfig struct {
	URL string `toml:"url"`
}

// HostsConfig selects the host resolver: "nats", "cmdb" or "mock"
type HostsConfig struct {
	Source      string   `toml:"source"`
	NATSURL     string   `toml:"nats_url"`
	NATSTimeout Duration `toml:"nats_timeout"`
	NATSSubject string   `toml:"nats_subject"`
	CMDBBaseURL string   `toml:"cmdb_base_url"`
	CMDBToken   string   `toml:"cmdb_token"`
}

// RepositoryConfig selects the repository: "sqlite" or "mock"
type RepositoryConfig struct {
	Source     string `toml:"source"`
	SQLitePath string `toml:"sqlite_path"`
}

type AuthConfig struct {
	JWKSURL  string `toml:"jwks_url"`
	Audience string `toml:"audience"`
	// MockLocalPrincipal disables JWT validation and authenticates every request as this user
	MockLocalPrincipal string `toml:"mock_local_principal"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Port: "8080",
		Search: SearchConfig{
			Source:                "opensearch",
			MaxResultWindow:       constants.MaxResultWindow,
			MaxSearchSize:         constants.MaxSearchSize,
			MaxExportRequestRetry: constants.MaxExportRequestRetry,
			ExportScroll:          true,
			ScrollTTL:             Duration{constants.DefaultScrollTTL},
			FieldCatalogTTL:       Duration{constants.FieldCatalogTTL},
			HistoryWindow:         Duration{constants.HistoryRecordWindow},
		},
		OpenSearch: OpenSearchConfig{
			URL: "http://localhost:9200",
		},
		Hosts: HostsConfig{
			Source:      "nats",
			NATSURL:     "nats://localhost:4222",
			NATSTimeout: Duration{10 * time.Second},
			NATSSubject: "lfx.hosts.resolve",
		},
		Repository: RepositoryConfig{
			Source:     "sqlite",
			SQLitePath: "log-search.db",
		},
		Auth: AuthConfig{
			JWKSURL:  "http://lfx-platform-heimdall.lfx.svc.cluster.local:4457/.well-known/jwks",
			Audience: "lfx-v2-log-search-service",
		},
	}
}

// Load reads the TOML file at path over the defaults and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("unmarshaling config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"PORT":                   &c.Port,
		"SEARCH_SOURCE":          &c.Search.Source,
		"PAGE_TOKEN_SECRET":      &c.Search.PageTokenSecret,
		"OPENSEARCH_URL":         &c.OpenSearch.URL,
		"HOST_RESOLVER_SOURCE":   &c.Hosts.Source,
		"NATS_URL":               &c.Hosts.NATSURL,
		"NATS_HOSTS_SUBJECT":     &c.Hosts.NATSSubject,
		"CMDB_BASE_URL":          &c.Hosts.CMDBBaseURL,
		"CMDB_TOKEN":             &c.Hosts.CMDBToken,
		"REPOSITORY_SOURCE":      &c.Repository.Source,
		"SQLITE_PATH":            &c.Repository.SQLitePath,
		"JWKS_URL":               &c.Auth.JWKSURL,
		"AUDIENCE":               &c.Auth.Audience,
	}
	strs["JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL"] = &c.Auth.MockLocalPrincipal
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_RESULT_WINDOW":        &c.Search.MaxResultWindow,
		"MAX_SEARCH_SIZE":          &c.Search.MaxSearchSize,
		"MAX_EXPORT_REQUEST_RETRY": &c.Search.MaxExportRequestRetry,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"FEATURE_EXPORT_SCROLL": &c.Search.ExportScroll,
		"TIME_FIELD_PRE_CHECK":  &c.Search.TimeFieldPreCheck,
	}
	for name, dst := range bools {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = b
	}

	durations := map[string]*Duration{
		"SCROLL_TTL":   &c.Search.ScrollTTL,
		"NATS_TIMEOUT": &c.Hosts.NATSTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

// Validate rejects ceilings the pagination engine cannot work with
func (c *Config) Validate() error {
	if c.Search.MaxResultWindow <= 0 {
		return fmt.Errorf("max_result_window must be positive, got %d", c.Search.MaxResultWindow)
	}
	if c.Search.MaxSearchSize < c.Search.MaxResultWindow {
		return fmt.Errorf("max_search_size (%d) must not be lower than max_result_window (%d)",
			c.Search.MaxSearchSize, c.Search.MaxResultWindow)
	}
	if c.Search.MaxExportRequestRetry < 1 {
		return fmt.Errorf("max_export_request_retry must be at least 1, got %d", c.Search.MaxExportRequestRetry)
	}
	if c.Search.ScrollTTL.Duration <= 0 {
		return fmt.Errorf("scroll_ttl must be positive")
	}
	return nil
}
