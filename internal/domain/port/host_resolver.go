// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
)

// HostResolver translates topology nodes of a business into host addresses
type HostResolver interface {
	// Resolve returns the hosts under the given nodes; nodeType is TOPO or INSTANCE
	Resolve(ctx context.Context, bizID int, nodeType string, nodes []model.TopoNode) ([]model.Host, error)

	// IsReady checks if the host inventory is reachable
	IsReady(ctx context.Context) error
}
