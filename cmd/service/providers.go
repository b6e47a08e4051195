// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/cache"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/cmdb"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/nats"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/opensearch"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/sqlite"
	usecase "github.com/linuxfoundation/lfx-v2-log-search-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/config"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/global"
)

const (
	natsMaxReconnect  = 3
	natsReconnectWait = 2 * time.Second
)

// DocStore is what the search engine needs from the document store
type DocStore interface {
	port.DocStoreClient
	port.MappingReader
}

// DocStoreImpl injects the document store implementation
func DocStoreImpl(ctx context.Context, cfg *config.Config) DocStore {

	var (
		store DocStore
		err   error
	)

	switch cfg.Search.Source {
	case "mock":
		slog.InfoContext(ctx, "initializing mock document store")
		store = mock.NewMockDocStore()

	case "opensearch":
		slog.InfoContext(ctx, "initializing opensearch document store",
			"url", cfg.OpenSearch.URL,
		)
		store, err = opensearch.NewSearcher(ctx, opensearch.Config{
			URL: cfg.OpenSearch.URL,
		})
		if err != nil {
			log.Fatalf("failed to initialize OpenSearch searcher: %v", err)
		}

	default:
		log.Fatalf("unsupported search implementation: %s", cfg.Search.Source)
	}

	return store
}

// FieldCatalogImpl injects the cached field catalog over the mapping reader
func FieldCatalogImpl(ctx context.Context, cfg *config.Config, reader port.MappingReader) *cache.FieldCatalog {
	slog.InfoContext(ctx, "initializing field catalog",
		"ttl", cfg.Search.FieldCatalogTTL.Duration,
	)
	return cache.NewFieldCatalog(reader, cfg.Search.FieldCatalogTTL.Duration)
}

// HostResolverImpl injects the host resolver implementation
func HostResolverImpl(ctx context.Context, cfg *config.Config) port.HostResolver {

	var (
		resolver port.HostResolver
		err      error
	)

	switch cfg.Hosts.Source {
	case "mock":
		slog.InfoContext(ctx, "initializing mock host resolver")
		resolver = mock.NewMockHostResolver()

	case "nats":
		slog.InfoContext(ctx, "initializing NATS host resolver")
		resolver, err = nats.NewHostResolver(ctx, nats.Config{
			URL:           cfg.Hosts.NATSURL,
			Subject:       cfg.Hosts.NATSSubject,
			Timeout:       cfg.Hosts.NATSTimeout.Duration,
			MaxReconnect:  natsMaxReconnect,
			ReconnectWait: natsReconnectWait,
		})
		if err != nil {
			log.Fatalf("failed to initialize NATS host resolver: %v", err)
		}

	case "cmdb":
		cmdbConfig := cmdb.DefaultConfig()
		cmdbConfig.BaseURL = cfg.Hosts.CMDBBaseURL
		cmdbConfig.Token = cfg.Hosts.CMDBToken

		slog.InfoContext(ctx, "initializing CMDB host resolver",
			"base_url", cmdbConfig.BaseURL,
			"timeout", cmdbConfig.Timeout,
			"max_retries", cmdbConfig.MaxRetries,
		)
		resolver, err = cmdb.NewHostResolver(ctx, cmdbConfig)
		if err != nil {
			log.Fatalf("failed to initialize CMDB host resolver: %v", err)
		}

	default:
		log.Fatalf("unsupported host resolver implementation: %s", cfg.Hosts.Source)
	}

	return resolver
}

// RepositoryImpl injects the repository implementation
func RepositoryImpl(ctx context.Context, cfg *config.Config) port.Repository {

	var (
		repo port.Repository
		err  error
	)

	switch cfg.Repository.Source {
	case "mock":
		slog.InfoContext(ctx, "initializing mock repository")
		repo = mock.NewMockRepository()

	case "sqlite":
		slog.InfoContext(ctx, "initializing sqlite repository",
			"path", cfg.Repository.SQLitePath,
		)
		repo, err = sqlite.NewRepository(ctx, cfg.Repository.SQLitePath)
		if err != nil {
			log.Fatalf("failed to initialize sqlite repository: %v", err)
		}

	default:
		log.Fatalf("unsupported repository implementation: %s", cfg.Repository.Source)
	}

	return repo
}

// AuthServiceImpl injects the authenticator; a mock principal disables JWT validation
func AuthServiceImpl(ctx context.Context, cfg *config.Config) port.Authenticator {
	if cfg.Auth.MockLocalPrincipal != "" {
		slog.WarnContext(ctx, "JWT validation is disabled",
			"principal", cfg.Auth.MockLocalPrincipal,
		)
		return mock.NewMockAuthService(cfg.Auth.MockLocalPrincipal)
	}

	jwtAuth, err := auth.NewJWTAuth(auth.JWTAuthConfig{
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		log.Fatalf("failed to initialize JWT authentication: %v", err)
	}
	return jwtAuth
}

// Settings maps the configuration onto the search engine settings
func Settings(cfg *config.Config) usecase.Settings {
	settings := usecase.DefaultSettings()
	settings.Pagination = usecase.PaginationSettings{
		MaxResultWindow: cfg.Search.MaxResultWindow,
		MaxSearchSize:   cfg.Search.MaxSearchSize,
		MaxRetry:        cfg.Search.MaxExportRequestRetry,
		ScrollEnabled:   cfg.Search.ExportScroll,
		ScrollTTL:       cfg.Search.ScrollTTL.Duration,
	}
	settings.TimeFieldPreCheck = cfg.Search.TimeFieldPreCheck
	if cfg.Search.HistoryWindow.Duration > 0 {
		settings.HistoryWindow = cfg.Search.HistoryWindow.Duration
	}
	return settings
}

// Dependencies are the adapters the search engine runs on
type Dependencies struct {
	Store   DocStore
	Catalog *cache.FieldCatalog
	Hosts   port.HostResolver
	Repo    port.Repository
	Auth    port.Authenticator
}

// Close releases the adapters holding connections
func (d Dependencies) Close(ctx context.Context) {
	if closer, ok := d.Hosts.(interface{ Close() error }); ok {
		slog.InfoContext(ctx, "closing host resolver")
		if err := closer.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close host resolver", "error", err)
		}
	}
	if d.Repo != nil {
		slog.InfoContext(ctx, "closing repository")
		if err := d.Repo.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close repository", "error", err)
		}
	}
}

// NewDependencies builds every adapter from the configuration
func NewDependencies(ctx context.Context, cfg *config.Config) Dependencies {
	global.SetPageTokenSecret(cfg.Search.PageTokenSecret)

	store := DocStoreImpl(ctx, cfg)
	return Dependencies{
		Store:   store,
		Catalog: FieldCatalogImpl(ctx, cfg, store),
		Hosts:   HostResolverImpl(ctx, cfg),
		Repo:    RepositoryImpl(ctx, cfg),
		Auth:    AuthServiceImpl(ctx, cfg),
	}
}

// NewLogSearch wires the search engine over the dependencies
func NewLogSearch(cfg *config.Config, deps Dependencies) *usecase.LogSearch {
	return usecase.NewLogSearch(deps.Store, deps.Catalog, deps.Hosts, deps.Repo, Settings(cfg))
}
