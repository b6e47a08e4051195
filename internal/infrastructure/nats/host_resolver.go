// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
)

// NATSHostResolver implements the HostResolver interface over NATS request/reply
type NATSHostResolver struct {
	client NATSClientInterface
}

// Resolve implements the HostResolver interface
func (n *NATSHostResolver) Resolve(ctx context.Context, bizID int, nodeType string, nodes []model.TopoNode) ([]model.Host, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	slog.DebugContext(ctx, "executing NATS host resolution",
		"bk_biz_id", bizID,
		"node_type", nodeType,
		"nodes", len(nodes),
	)

	response, err := n.client.ResolveHosts(ctx, &HostsNATSRequest{
		BizID:    bizID,
		NodeType: nodeType,
		Nodes:    nodes,
	})
	if err != nil {
		slog.ErrorContext(ctx, "NATS host resolution failed", "error", err)
		return nil, fmt.Errorf("NATS host resolution failed: %w", err)
	}

	slog.DebugContext(ctx, "NATS host resolution completed",
		"bk_biz_id", bizID,
		"hosts", len(response.Hosts),
	)

	return response.Hosts, nil
}

// IsReady implements the HostResolver interface
func (n *NATSHostResolver) IsReady(ctx context.Context) error {
	return n.client.IsReady(ctx)
}

// Close gracefully closes the NATS connection
func (n *NATSHostResolver) Close() error {
	return n.client.Close()
}

// NewHostResolver creates a new NATS host resolver
func NewHostResolver(ctx context.Context, config Config) (*NATSHostResolver, error) {
	slog.InfoContext(ctx, "creating NATS host resolver",
		"url", config.URL,
	)

	client, err := NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS client: %w", err)
	}

	return &NATSHostResolver{
		client: client,
	}, nil
}

var _ port.HostResolver = (*NATSHostResolver)(nil)
