// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/flatten"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const historyLimiterSize = 4096

// HistoryRecord is one search to record
type HistoryRecord struct {
	Username   string
	IndexSetID int
	SearchType string
	Keyword    string
	HostScopes *model.HostScope
	Addition   []model.RawCondition
	StartTime  string
	EndTime    string
	TimeRange  string
}

// HistoryRecorder records searches at most once per suppression window and lists them back
type HistoryRecorder struct {
	store     port.HistoryStore
	indexSets port.IndexSetReader
	limiter   *expirable.LRU[string, struct{}]
	now       func() time.Time
}

// Record stores the search unless an identical one was recorded within the window.
// The "default" search type is not persisted: its entry is returned for the caller to record.
// A suppressed search returns nil without error.
func (h *HistoryRecorder) Record(ctx context.Context, rec HistoryRecord) (*model.HistoryObj, error) {
	params := model.HistoryParams{
		Keyword:  rec.Keyword,
		Addition: rec.Addition,
	}
	if rec.HostScopes != nil {
		params.HostScopes = *rec.HostScopes
	}

	key, err := historyKey(rec.Username, rec.IndexSetID, rec.SearchType, params)
	if err != nil {
		return nil, err
	}
	if _, seen := h.limiter.Peek(key); seen {
		slog.DebugContext(ctx, "search history suppressed",
			"index_set_id", rec.IndexSetID,
			"search_type", rec.SearchType,
		)
		return nil, nil
	}

	params.StartTime = rec.StartTime
	params.EndTime = rec.EndTime
	params.TimeRange = rec.TimeRange

	if rec.SearchType == constants.DefaultSearchType {
		h.limiter.Add(key, struct{}{})
		return &model.HistoryObj{
			Params:     params,
			IndexSetID: rec.IndexSetID,
			SearchType: rec.SearchType,
		}, nil
	}

	if h.store == nil {
		return nil, errors.NewServiceUnavailable("history store is not configured")
	}
	id, err := h.store.CreateSearchHistory(ctx, model.HistoryEntry{
		IndexSetID: rec.IndexSetID,
		Params:     params,
		SearchType: rec.SearchType,
		CreatedBy:  rec.Username,
		CreatedAt:  h.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist search history: %w", err)
	}
	h.limiter.Add(key, struct{}{})

	slog.DebugContext(ctx, "search history persisted",
		"id", id,
		"index_set_id", rec.IndexSetID,
		"search_type", rec.SearchType,
	)
	return nil, nil
}

// Save persists a history object handed back by an interactive search, once the caller
// knows how long the search took
func (h *HistoryRecorder) Save(ctx context.Context, username string, obj model.HistoryObj, duration time.Duration) (int64, error) {
	if h.store == nil {
		return 0, errors.NewServiceUnavailable("history store is not configured")
	}
	id, err := h.store.CreateSearchHistory(ctx, model.HistoryEntry{
		IndexSetID: obj.IndexSetID,
		Params:     obj.Params,
		SearchType: obj.SearchType,
		Duration:   float64(duration.Milliseconds()),
		CreatedBy:  username,
		CreatedAt:  h.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to persist search history: %w", err)
	}
	return id, nil
}

// List returns the user's latest distinct interactive searches on an index set
func (h *HistoryRecorder) List(ctx context.Context, username string, indexSetID int) ([]model.HistoryEntry, error) {
	entries, err := h.store.ListSearchHistory(ctx, model.HistoryFilter{
		IndexSetID: indexSetID,
		CreatedBy:  username,
		SearchType: constants.DefaultSearchType,
		Limit:      constants.HistoryListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}

	entries = DedupHistory(entries)
	for i := range entries {
		BuildQueryString(&entries[i])
	}
	return entries, nil
}

// ListByRange returns the distinct interactive searches of every user within [start, end],
// tagged with the business of their index set. Entries of unknown index sets are skipped.
func (h *HistoryRecorder) ListByRange(ctx context.Context, start, end time.Time) ([]model.HistoryEntry, error) {
	entries, err := h.store.ListSearchHistory(ctx, model.HistoryFilter{
		SearchType:    constants.DefaultSearchType,
		CreatedAfter:  start,
		CreatedBefore: end,
		OrderByUser:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}

	indexSets, err := h.indexSets.IndexSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list index sets: %w", err)
	}
	bizByIndexSet := make(map[int]int, len(indexSets))
	for _, is := range indexSets {
		bizByIndexSet[is.IndexSetID] = is.BizID
	}

	entries = DedupHistory(entries)
	out := make([]model.HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		biz, ok := bizByIndexSet[entry.IndexSetID]
		if !ok {
			continue
		}
		entry.BizID = biz
		BuildQueryString(&entry)
		out = append(out, entry)
	}
	return out, nil
}

// DedupHistory keeps the first of every group of equivalent entries.
// Entries are equivalent when keyword, addition and the ip/module scope match; time is ignored.
func DedupHistory(entries []model.HistoryEntry) []model.HistoryEntry {
	distinct := make([]model.HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		if slices.ContainsFunc(distinct, func(seen model.HistoryEntry) bool {
			return equivalentHistory(seen.Params, entry.Params)
		}) {
			continue
		}
		distinct = append(distinct, entry)
	}
	return distinct
}

func equivalentHistory(a, b model.HistoryParams) bool {
	if a.Keyword != b.Keyword {
		return false
	}
	if !reflect.DeepEqual(normalizedAddition(a.Addition), normalizedAddition(b.Addition)) {
		return false
	}
	if a.HostScopes.Ips != b.HostScopes.Ips {
		return false
	}
	return slices.Equal(a.HostScopes.Modules, b.HostScopes.Modules)
}

// normalizedAddition treats a nil and an empty addition list alike
func normalizedAddition(addition []model.RawCondition) []model.RawCondition {
	if len(addition) == 0 {
		return nil
	}
	return addition
}

// BuildQueryString renders a readable query string for a history entry and expands the
// module and ip shortcuts into target nodes so the entry can be replayed
func BuildQueryString(entry *model.HistoryEntry) {
	var b strings.Builder
	b.WriteString(entry.Params.Keyword)

	scope := &entry.Params.HostScopes
	if len(scope.TargetNodes) > 0 {
		if scope.TargetNodeType == constants.TargetNodeTypeInstance {
			nodes := make([]string, 0, len(scope.TargetNodes))
			for _, node := range scope.TargetNodes {
				nodes = append(nodes, fmt.Sprintf("%d:%s", node.BkCloudID, node.IP))
			}
			fmt.Fprintf(&b, " AND (%s)", strings.Join(nodes, ","))
		} else {
			ids := make([]string, 0, len(scope.TargetNodes))
			for _, node := range scope.TargetNodes {
				ids = append(ids, strconv.Itoa(node.BkInstID))
			}
			fmt.Fprintf(&b, " AND (%s:%s)", scope.TargetNodes[0].BkObjID, strings.Join(ids, ","))
		}
	}

	if len(scope.Modules) > 0 {
		ids := make([]string, 0, len(scope.Modules))
		for _, module := range scope.Modules {
			ids = append(ids, strconv.Itoa(module.BkInstID))
		}
		fmt.Fprintf(&b, " AND (modules:%s)", strings.Join(ids, ","))
		scope.TargetNodeType = constants.TargetNodeTypeTopo
		scope.TargetNodes = slices.Clone(scope.Modules)
	}

	if scope.Ips != "" {
		fmt.Fprintf(&b, " AND (ips:%s)", scope.Ips)
		scope.TargetNodeType = constants.TargetNodeTypeInstance
		scope.TargetNodes = make([]model.TopoNode, 0)
		for _, ip := range strings.Split(scope.Ips, ",") {
			scope.TargetNodes = append(scope.TargetNodes, model.TopoNode{IP: ip, BkCloudID: constants.DefaultBkCloudID})
		}
	}

	if len(entry.Params.Addition) > 0 {
		parts := make([]string, 0, len(entry.Params.Addition))
		for _, addition := range entry.Params.Addition {
			parts = append(parts, fmt.Sprintf("%s %s %s",
				aliased(addition, "field", "key"),
				aliased(addition, "operator", "method"),
				flatten.Render(addition["value"]),
			))
		}
		fmt.Fprintf(&b, " AND (%s)", strings.Join(parts, " AND "))
	}

	entry.QueryString = b.String()
}

func historyKey(username string, indexSetID int, searchType string, params model.HistoryParams) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", errors.NewUnexpected("failed to encode history params", err)
	}
	sum := md5.Sum(fmt.Appendf(nil, "search_history_%s_%d_%s_%s", username, indexSetID, searchType, encoded))
	return hex.EncodeToString(sum[:]), nil
}

// NewHistoryRecorder creates a recorder suppressing duplicates for window
func NewHistoryRecorder(store port.HistoryStore, indexSets port.IndexSetReader, window time.Duration) *HistoryRecorder {
	if window <= 0 {
		window = constants.HistoryRecordWindow
	}
	return &HistoryRecorder{
		store:     store,
		indexSets: indexSets,
		limiter:   expirable.NewLRU[string, struct{}](historyLimiterSize, nil, window),
		now:       time.Now,
	}
}
