// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

// Index sets of the mock repository
const (
	IndexSetBKData = 1
	IndexSetLog    = 2
	IndexSetES     = 3
	// IndexSetUnapplied has no applied physical index
	IndexSetUnapplied = 4
)

// MockRepository is an in-memory repository with one index set per scenario
type MockRepository struct {
	mu sync.Mutex

	indexSets   []model.IndexSet
	data        []model.IndexSetData
	userConfigs []model.UserIndexSetConfig
	clustering  []model.ClusteringConfig
	history     []model.HistoryEntry
	nextID      int64

	createHistoryError error
	isReadyError       error
}

// NewMockRepository creates a repository with sample index sets
func NewMockRepository() *MockRepository {
	return &MockRepository{
		indexSets: []model.IndexSet{
			{IndexSetID: IndexSetBKData, IndexSetName: "bkdata_app", ScenarioID: "bkdata", StorageClusterID: 10, BizID: 2},
			{IndexSetID: IndexSetLog, IndexSetName: "app_logs", ScenarioID: "log", StorageClusterID: 11, BizID: 2, CollectorConfigID: 7, IPTopoSwitch: true},
			{IndexSetID: IndexSetES, IndexSetName: "raw_es", ScenarioID: "es", StorageClusterID: 12, BizID: 3, TimeField: "@timestamp", TimeFieldType: "date", TimeFieldUnit: "millisecond"},
			{IndexSetID: IndexSetUnapplied, IndexSetName: "pending", ScenarioID: "log", StorageClusterID: 11, BizID: 2},
		},
		data: []model.IndexSetData{
			{IndexSetID: IndexSetBKData, ResultTableID: "2_bkdata_app", Applied: true},
			{IndexSetID: IndexSetLog, ResultTableID: "log_index_1", Applied: true},
			{IndexSetID: IndexSetLog, ResultTableID: "log_index_2", Applied: true},
			{IndexSetID: IndexSetES, ResultTableID: "raw_index", Applied: true},
			{IndexSetID: IndexSetUnapplied, ResultTableID: "pending_index", Applied: false},
		},
	}
}

// IndexSet implements the Repository interface
func (m *MockRepository) IndexSet(ctx context.Context, indexSetID int) (*model.IndexSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, is := range m.indexSets {
		if is.IndexSetID == indexSetID {
			found := is
			return &found, nil
		}
	}
	return nil, errors.NewNotFound(fmt.Sprintf("index set %d does not exist", indexSetID))
}

// IndexSets implements the Repository interface
func (m *MockRepository) IndexSets(ctx context.Context) ([]model.IndexSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.indexSets), nil
}

// IndexSetData implements the Repository interface
func (m *MockRepository) IndexSetData(ctx context.Context, indexSetID int, appliedOnly bool) ([]model.IndexSetData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var data []model.IndexSetData
	for _, d := range m.data {
		if d.IndexSetID != indexSetID || (appliedOnly && !d.Applied) {
			continue
		}
		data = append(data, d)
	}
	return data, nil
}

// UserIndexSetConfig implements the Repository interface
func (m *MockRepository) UserIndexSetConfig(ctx context.Context, indexSetID int, username, scope string) (*model.UserIndexSetConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.userConfigs {
		if c.IndexSetID == indexSetID && c.CreatedBy == username && c.Scope == scope {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

// ClusteringConfig implements the Repository interface
func (m *MockRepository) ClusteringConfig(ctx context.Context, indexSetID int) (*model.ClusteringConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.clustering {
		if c.IndexSetID == indexSetID {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

// CreateSearchHistory implements the Repository interface
func (m *MockRepository) CreateSearchHistory(ctx context.Context, entry model.HistoryEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createHistoryError != nil {
		return 0, m.createHistoryError
	}
	m.nextID++
	entry.ID = m.nextID
	m.history = append(m.history, entry)

	slog.DebugContext(ctx, "mock search history created", "id", entry.ID)
	return entry.ID, nil
}

// ListSearchHistory implements the Repository interface
func (m *MockRepository) ListSearchHistory(ctx context.Context, filter model.HistoryFilter) ([]model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []model.HistoryEntry
	for _, e := range m.history {
		switch {
		case e.IsDeleted,
			filter.IndexSetID != 0 && e.IndexSetID != filter.IndexSetID,
			filter.CreatedBy != "" && e.CreatedBy != filter.CreatedBy,
			filter.SearchType != "" && e.SearchType != filter.SearchType,
			!filter.CreatedAfter.IsZero() && e.CreatedAt.Before(filter.CreatedAfter),
			!filter.CreatedBefore.IsZero() && e.CreatedAt.After(filter.CreatedBefore):
			continue
		}
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, func(a, b model.HistoryEntry) int {
		if filter.OrderByUser {
			if c := cmp.Compare(a.CreatedBy, b.CreatedBy); c != 0 {
				return c
			}
		} else if c := cmp.Compare(b.Rank, a.Rank); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

// IsReady implements the Repository interface
func (m *MockRepository) IsReady(ctx context.Context) error {
	return m.isReadyError
}

// Close implements the Repository interface
func (m *MockRepository) Close() error {
	return nil
}

// Test helper methods for setting up mock data

// AddIndexSet adds an index set with its applied physical indices
func (m *MockRepository) AddIndexSet(indexSet model.IndexSet, resultTables ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.indexSets = append(m.indexSets, indexSet)
	for _, rt := range resultTables {
		m.data = append(m.data, model.IndexSetData{IndexSetID: indexSet.IndexSetID, ResultTableID: rt, Applied: true})
	}
}

// AddUserConfig adds a saved user preference
func (m *MockRepository) AddUserConfig(config model.UserIndexSetConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userConfigs = append(m.userConfigs, config)
}

// AddClusteringConfig adds a clustering setup
func (m *MockRepository) AddClusteringConfig(config model.ClusteringConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clustering = append(m.clustering, config)
}

// AddHistory stores history entries as they are
func (m *MockRepository) AddHistory(entries ...model.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.nextID++
		if e.ID == 0 {
			e.ID = m.nextID
		}
		m.history = append(m.history, e)
	}
}

// History returns every stored history entry
func (m *MockRepository) History() []model.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// SetCreateHistoryError sets the mock error for CreateSearchHistory calls
func (m *MockRepository) SetCreateHistoryError(err error) {
	m.createHistoryError = err
}

// SetIsReadyError sets the mock error for IsReady calls
func (m *MockRepository) SetIsReadyError(err error) {
	m.isReadyError = err
}
