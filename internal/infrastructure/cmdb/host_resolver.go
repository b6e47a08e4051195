// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package cmdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
)

// HostResolver implements the port.HostResolver interface using the CMDB API
type HostResolver struct {
	client *Client
}

// Resolve implements the HostResolver interface.
// Instance nodes already carry their address and are answered locally.
func (r *HostResolver) Resolve(ctx context.Context, bizID int, nodeType string, nodes []model.TopoNode) ([]model.Host, error) {
	if nodeType == constants.TargetNodeTypeInstance {
		hosts := make([]model.Host, 0, len(nodes))
		for _, node := range nodes {
			hosts = append(hosts, model.Host{IP: node.IP, BkCloudID: node.BkCloudID})
		}
		return hosts, nil
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	slog.DebugContext(ctx, "resolving hosts via CMDB API",
		"bk_biz_id", bizID,
		"nodes", len(nodes),
	)

	hosts, err := r.client.SearchHosts(ctx, bizID, nodes)
	if err != nil {
		slog.ErrorContext(ctx, "error resolving hosts", "error", err)
		return nil, fmt.Errorf("cmdb host resolution failed: %w", err)
	}

	slog.DebugContext(ctx, "resolved hosts via CMDB API",
		"bk_biz_id", bizID,
		"hosts", len(hosts),
	)
	return hosts, nil
}

// IsReady implements the HostResolver interface
func (r *HostResolver) IsReady(ctx context.Context) error {
	return r.client.IsReady(ctx)
}

// NewHostResolver creates a new CMDB host resolver and checks that the API is reachable
func NewHostResolver(ctx context.Context, config Config) (*HostResolver, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for CMDB configuration")
	}

	resolver := &HostResolver{client: NewClient(config)}
	if err := resolver.IsReady(ctx); err != nil {
		return nil, fmt.Errorf("cmdb is not ready: %w", err)
	}
	return resolver, nil
}

var _ port.HostResolver = (*HostResolver)(nil)
