// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(context.Background(), filepath.Join(t.TempDir(), "log-search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryIndexSets(t *testing.T) {
	assertion := assert.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)

	logSet := model.IndexSet{
		IndexSetID: 2, IndexSetName: "app_logs", ScenarioID: "log", StorageClusterID: 11,
		BizID: 2, CollectorConfigID: 7, IPTopoSwitch: true,
	}
	esSet := model.IndexSet{
		IndexSetID: 3, IndexSetName: "raw_es", ScenarioID: "es", StorageClusterID: 12, BizID: 3,
		TimeField: "@timestamp", TimeFieldType: "date", TimeFieldUnit: "millisecond",
	}
	require.NoError(t, repo.SaveIndexSet(ctx, logSet,
		model.IndexSetData{ResultTableID: "log_index_2", Applied: true},
		model.IndexSetData{ResultTableID: "log_index_1", Applied: true},
		model.IndexSetData{ResultTableID: "log_index_old", Applied: false},
	))
	require.NoError(t, repo.SaveIndexSet(ctx, esSet, model.IndexSetData{ResultTableID: "raw_index", Applied: true}))

	found, err := repo.IndexSet(ctx, 2)
	require.NoError(t, err)
	assertion.Equal(logSet, *found)

	_, err = repo.IndexSet(ctx, 99)
	assertion.ErrorAs(err, new(errors.NotFound))

	all, err := repo.IndexSets(ctx)
	require.NoError(t, err)
	assertion.Equal([]model.IndexSet{logSet, esSet}, all)

	applied, err := repo.IndexSetData(ctx, 2, true)
	require.NoError(t, err)
	assertion.Equal([]model.IndexSetData{
		{IndexSetID: 2, ResultTableID: "log_index_1", Applied: true},
		{IndexSetID: 2, ResultTableID: "log_index_2", Applied: true},
	}, applied)

	every, err := repo.IndexSetData(ctx, 2, false)
	require.NoError(t, err)
	assertion.Len(every, 3)

	// saving again replaces the physical indices
	require.NoError(t, repo.SaveIndexSet(ctx, logSet, model.IndexSetData{ResultTableID: "log_index_3", Applied: true}))
	every, err = repo.IndexSetData(ctx, 2, false)
	require.NoError(t, err)
	assertion.Equal([]model.IndexSetData{{IndexSetID: 2, ResultTableID: "log_index_3", Applied: true}}, every)
}

func TestRepositoryUserConfigs(t *testing.T) {
	assertion := assert.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)

	missing, err := repo.UserIndexSetConfig(ctx, 2, "alice", "default")
	require.NoError(t, err)
	assertion.Nil(missing)

	config := model.UserIndexSetConfig{
		IndexSetID:    2,
		CreatedBy:     "alice",
		Scope:         "default",
		SortList:      [][]string{{"gseIndex", "asc"}},
		DisplayFields: []string{"log", "path"},
	}
	require.NoError(t, repo.SaveUserIndexSetConfig(ctx, config))

	found, err := repo.UserIndexSetConfig(ctx, 2, "alice", "default")
	require.NoError(t, err)
	assertion.Equal(&config, found)

	other, err := repo.UserIndexSetConfig(ctx, 2, "alice", "search_context")
	require.NoError(t, err)
	assertion.Nil(other)

	config.IsDeleted = true
	require.NoError(t, repo.SaveUserIndexSetConfig(ctx, config))
	deleted, err := repo.UserIndexSetConfig(ctx, 2, "alice", "default")
	require.NoError(t, err)
	assertion.Nil(deleted)
}

func TestRepositoryClusteringConfig(t *testing.T) {
	assertion := assert.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)

	missing, err := repo.ClusteringConfig(ctx, 2)
	require.NoError(t, err)
	assertion.Nil(missing)

	config := model.ClusteringConfig{IndexSetID: 2, SignatureEnable: true, ClusteringFields: "log"}
	require.NoError(t, repo.SaveClusteringConfig(ctx, config))

	found, err := repo.ClusteringConfig(ctx, 2)
	require.NoError(t, err)
	assertion.Equal(&config, found)
}

func TestRepositorySearchHistory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := []model.HistoryEntry{
		{IndexSetID: 2, SearchType: "default", CreatedBy: "alice", CreatedAt: base, Params: model.HistoryParams{Keyword: "error"}},
		{IndexSetID: 2, SearchType: "default", CreatedBy: "bob", CreatedAt: base.Add(time.Minute), Params: model.HistoryParams{Keyword: "timeout"}},
		{IndexSetID: 2, SearchType: "default", CreatedBy: "alice", CreatedAt: base.Add(2 * time.Minute), Rank: 5, Params: model.HistoryParams{Keyword: "panic"}},
		{IndexSetID: 3, SearchType: "default", CreatedBy: "alice", CreatedAt: base.Add(3 * time.Minute), Params: model.HistoryParams{Keyword: "other"}},
		{IndexSetID: 2, SearchType: "trace", CreatedBy: "alice", CreatedAt: base.Add(4 * time.Minute), Params: model.HistoryParams{Keyword: "span"}},
		{IndexSetID: 2, SearchType: "default", CreatedBy: "alice", CreatedAt: base.Add(5 * time.Minute), IsDeleted: true, Params: model.HistoryParams{Keyword: "gone"}},
	}
	for i, e := range entries {
		id, err := repo.CreateSearchHistory(ctx, e)
		require.NoError(t, err)
		require.Equal(t, int64(i+1), id)
	}

	tests := []struct {
		name             string
		filter           model.HistoryFilter
		expectedKeywords []string
	}{
		{
			name:             "rank then newest",
			filter:           model.HistoryFilter{IndexSetID: 2, SearchType: "default"},
			expectedKeywords: []string{"panic", "timeout", "error"},
		},
		{
			name:             "one user",
			filter:           model.HistoryFilter{IndexSetID: 2, CreatedBy: "alice", SearchType: "default"},
			expectedKeywords: []string{"panic", "error"},
		},
		{
			name:             "grouped by user",
			filter:           model.HistoryFilter{IndexSetID: 2, SearchType: "default", OrderByUser: true},
			expectedKeywords: []string{"panic", "error", "timeout"},
		},
		{
			name: "time window",
			filter: model.HistoryFilter{
				CreatedAfter:  base.Add(time.Minute),
				CreatedBefore: base.Add(3 * time.Minute),
			},
			expectedKeywords: []string{"panic", "other", "timeout"},
		},
		{
			name:             "limit",
			filter:           model.HistoryFilter{IndexSetID: 2, SearchType: "default", Limit: 1},
			expectedKeywords: []string{"panic"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			found, err := repo.ListSearchHistory(ctx, tc.filter)
			require.NoError(t, err)

			keywords := make([]string, 0, len(found))
			for _, e := range found {
				keywords = append(keywords, e.Params.Keyword)
			}
			assertion.Equal(tc.expectedKeywords, keywords)
		})
	}

	t.Run("round trip", func(t *testing.T) {
		assertion := assert.New(t)

		found, err := repo.ListSearchHistory(ctx, model.HistoryFilter{IndexSetID: 3})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assertion.Equal(int64(4), found[0].ID)
		assertion.Equal("alice", found[0].CreatedBy)
		assertion.True(base.Add(3 * time.Minute).Equal(found[0].CreatedAt))
	})
}

func TestRepositoryReopen(t *testing.T) {
	assertion := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log-search.db")

	repo, err := NewRepository(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveIndexSet(ctx, model.IndexSet{IndexSetID: 1, IndexSetName: "bkdata_app", ScenarioID: "bkdata"}))
	assertion.NoError(repo.IsReady(ctx))
	require.NoError(t, repo.Close())

	reopened, err := NewRepository(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	found, err := reopened.IndexSet(ctx, 1)
	require.NoError(t, err)
	assertion.Equal("bkdata_app", found.IndexSetName)
}
