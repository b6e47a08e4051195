// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
)

// MockHostResolver resolves topology nodes from a static table keyed by "obj_id:inst_id"
type MockHostResolver struct {
	mu sync.Mutex

	// Topology maps a node key to its hosts
	Topology map[string][]model.Host
	// Err is returned by every Resolve call when set
	Err error

	calls        int
	isReadyError error
}

// NewMockHostResolver creates a resolver with one module of two hosts
func NewMockHostResolver() *MockHostResolver {
	return &MockHostResolver{
		Topology: map[string][]model.Host{
			NodeKey("module", 1): {
				{IP: "10.0.0.1", BkCloudID: 0},
				{IP: "10.0.0.2", BkCloudID: 0},
			},
		},
	}
}

// Resolve implements the HostResolver interface
func (m *MockHostResolver) Resolve(ctx context.Context, bizID int, nodeType string, nodes []model.TopoNode) ([]model.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	slog.DebugContext(ctx, "executing mock host resolution",
		"bk_biz_id", bizID,
		"node_type", nodeType,
		"nodes", len(nodes),
	)
	if m.Err != nil {
		return nil, m.Err
	}

	var hosts []model.Host
	for _, node := range nodes {
		if nodeType == constants.TargetNodeTypeInstance {
			hosts = append(hosts, model.Host{IP: node.IP, BkCloudID: node.BkCloudID})
			continue
		}
		hosts = append(hosts, m.Topology[NodeKey(node.BkObjID, node.BkInstID)]...)
	}
	return hosts, nil
}

// IsReady implements the HostResolver interface
func (m *MockHostResolver) IsReady(ctx context.Context) error {
	return m.isReadyError
}

// Calls returns the number of Resolve calls
func (m *MockHostResolver) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SetIsReadyError sets the mock error for IsReady calls
func (m *MockHostResolver) SetIsReadyError(err error) {
	m.isReadyError = err
}

// NodeKey is the Topology key of a node
func NodeKey(objID string, instID int) string {
	return fmt.Sprintf("%s:%d", objID, instID)
}
