// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
)

// IndexSetReader reads index sets and their physical indices
type IndexSetReader interface {
	// IndexSet returns errors.NotFound when the index set does not exist
	IndexSet(ctx context.Context, indexSetID int) (*model.IndexSet, error)
	IndexSets(ctx context.Context) ([]model.IndexSet, error)
	IndexSetData(ctx context.Context, indexSetID int, appliedOnly bool) ([]model.IndexSetData, error)
}

// UserConfigReader reads per-user and per-index-set configuration.
// Missing records are returned as nil without error.
type UserConfigReader interface {
	UserIndexSetConfig(ctx context.Context, indexSetID int, username, scope string) (*model.UserIndexSetConfig, error)
	ClusteringConfig(ctx context.Context, indexSetID int) (*model.ClusteringConfig, error)
}

// HistoryStore persists and lists search history entries
type HistoryStore interface {
	CreateSearchHistory(ctx context.Context, entry model.HistoryEntry) (int64, error)
	ListSearchHistory(ctx context.Context, filter model.HistoryFilter) ([]model.HistoryEntry, error)
}

// Repository is the persistent store of configuration and history records
type Repository interface {
	IndexSetReader
	UserConfigReader
	HistoryStore

	// IsReady checks if the store is ready
	IsReady(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}
