// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

// SortQuery identifies whose saved sort to resolve and against which fields
type SortQuery struct {
	IndexSetID  int
	Username    string
	Scope       string
	ScenarioID  string
	Catalog     []model.FieldDescriptor
	RequestSort [][]string
}

// SortResolver determines the effective sort order of a query
type SortResolver struct {
	configs port.UserConfigReader
}

// Resolve returns the user's saved sort restricted to fields of the catalog.
// When nothing survives, live document scenarios fall back to the request sort;
// other scenarios get an empty list and the backend default applies.
func (r *SortResolver) Resolve(ctx context.Context, q SortQuery) ([][]string, error) {
	saved, err := r.savedSortList(ctx, q.IndexSetID, q.Username, q.Scope)
	if err != nil {
		return nil, err
	}

	known := fieldNames(q.Catalog)
	resolved := make([][]string, 0, len(saved))
	for _, item := range saved {
		if len(item) == 0 || !known[item[0]] {
			continue
		}
		resolved = append(resolved, item)
	}

	if len(resolved) == 0 && profileFor(q.ScenarioID).liveDocument {
		resolved = q.RequestSort
	}

	slog.DebugContext(ctx, "resolved sort list",
		"index_set_id", q.IndexSetID,
		"scope", q.Scope,
		"saved", len(saved),
		"resolved", len(resolved),
	)

	if resolved == nil {
		resolved = [][]string{}
	}
	return resolved, nil
}

func (r *SortResolver) savedSortList(ctx context.Context, indexSetID int, username, scope string) ([][]string, error) {
	if r.configs == nil {
		return nil, nil
	}
	if scope == "" {
		scope = constants.DefaultSearchType
	}
	config, err := r.configs.UserIndexSetConfig(ctx, indexSetID, username, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load user index set config: %w", err)
	}
	if config == nil || config.IsDeleted {
		return nil, nil
	}
	return config.SortList, nil
}

// VerifySortList fails on the first field that cannot be sorted on
func VerifySortList(sortList [][]string, catalog []model.FieldDescriptor) error {
	docValues := make(map[string]bool, len(catalog))
	for _, f := range catalog {
		docValues[f.FieldName] = f.EsDocValues
	}

	for _, item := range sortList {
		if len(item) == 0 {
			continue
		}
		if !docValues[item[0]] {
			return errors.NewValidation(fmt.Sprintf("invalid sort field: %s is not sortable", item[0]))
		}
	}
	return nil
}

// DefaultSortList is the sort applied to a search: the request sort when given,
// otherwise newest first with the line sequence as tie breaker when the catalog has one.
func DefaultSortList(requestSort [][]string, catalog []model.FieldDescriptor, timeField string) [][]string {
	if len(requestSort) > 0 {
		return requestSort
	}

	sortList := [][]string{{timeField, constants.AsyncSorted}}
	if pair, ok := sequencePairIn(fieldNames(catalog)); ok {
		sortList = append(sortList,
			[]string{pair[0], constants.AsyncSorted},
			[]string{pair[1], constants.AsyncSorted},
		)
	}
	return sortList
}

func fieldNames(catalog []model.FieldDescriptor) map[string]bool {
	names := make(map[string]bool, len(catalog))
	for _, f := range catalog {
		names[f.FieldName] = true
	}
	return names
}

// NewSortResolver creates a resolver reading saved preferences from configs
func NewSortResolver(configs port.UserConfigReader) *SortResolver {
	return &SortResolver{
		configs: configs,
	}
}
