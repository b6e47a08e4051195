// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/paging"
)

// SearchHandler holds everything resolved for one request: the index set, the time field,
// the normalized filter and sort, and the projector whose width table spans the request.
type SearchHandler struct {
	svc       *LogSearch
	req       model.SearchRequest
	username  string
	indexSet  *model.IndexSet
	indices   string
	timeField model.TimeField
	catalog   []model.FieldDescriptor
	filter    []model.Condition
	sortList  [][]string
	builder   *QueryBuilder
	projector *ResultProjector
}

// NewSearchHandler resolves the request against its index set
func (s *LogSearch) NewSearchHandler(ctx context.Context, req model.SearchRequest) (*SearchHandler, error) {
	username, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	indexSet, err := s.repo.IndexSet(ctx, req.IndexSetID)
	if err != nil {
		return nil, err
	}

	data, err := s.repo.IndexSetData(ctx, req.IndexSetID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load index set data: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.NewConfiguration(fmt.Sprintf("index set %d_%s has no applied index", indexSet.IndexSetID, indexSet.IndexSetName))
	}
	tables := make([]string, 0, len(data))
	for _, d := range data {
		tables = append(tables, d.ResultTableID)
	}
	indices := strings.Join(tables, ",")

	catalog, err := s.catalog.FieldsFor(ctx, indices, indexSet.ScenarioID, indexSet.StorageClusterID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fields of %s: %w", indices, err)
	}

	timeField, err := resolveTimeField(indexSet, data)
	if err != nil {
		return nil, err
	}
	if s.settings.TimeFieldPreCheck {
		timeField.Type, err = timeFieldType(timeField.Name, catalog)
		if err != nil {
			return nil, err
		}
	}

	nested := make(map[string]bool)
	for _, f := range catalog {
		if f.Nested {
			nested[f.FieldName] = true
		}
	}
	filter, err := s.normalizer.Normalize(ctx, AdditionInput{
		ScenarioID:   indexSet.ScenarioID,
		BizID:        req.BizID,
		Addition:     req.Addition,
		HostScopes:   req.HostScopes,
		NestedFields: nested,
	})
	if err != nil {
		return nil, err
	}

	if req.Size <= 0 {
		req.Size = constants.DefaultSearchSize
	}
	sortList := req.SortList
	if len(sortList) == 0 {
		sortList, err = s.sorts.Resolve(ctx, SortQuery{
			IndexSetID: req.IndexSetID,
			Username:   username,
			ScenarioID: indexSet.ScenarioID,
			Catalog:    catalog,
		})
		if err != nil {
			return nil, err
		}
	}
	sortList = DefaultSortList(sortList, catalog, timeField.Name)

	h := &SearchHandler{
		svc:       s,
		req:       req,
		username:  username,
		indexSet:  indexSet,
		indices:   indices,
		timeField: timeField,
		catalog:   catalog,
		filter:    filter,
		sortList:  sortList,
		projector: NewResultProjector(),
	}
	h.builder = NewQueryBuilder(model.QueryPayload{
		Indices:          indices,
		ScenarioID:       indexSet.ScenarioID,
		StorageClusterID: indexSet.StorageClusterID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		TimeRange:        req.TimeRange,
		TimeZone:         req.TimeZone,
		UseTimeRange:     req.TimeRangeEnabled(),
		TimeField:        timeField,
		QueryString:      req.Keyword,
		Filter:           filter,
		SortList:         model.SortItemsFrom(sortList),
		Start:            req.Begin,
		Aggs:             req.Aggs,
		Highlight:        BuildHighlight(indexSet.ScenarioID, req.Keyword, req.HighlightEnabled()),
		Collapse:         req.Collapse,
	})

	slog.DebugContext(ctx, "search handler ready",
		"index_set_id", req.IndexSetID,
		"scenario_id", indexSet.ScenarioID,
		"indices", indices,
		"time_field", timeField.Name,
		"filters", len(filter),
	)

	return h, nil
}

// Search runs the search, projects the hits and records the history entry
func (h *SearchHandler) Search(ctx context.Context, searchType string) (*model.SearchResult, error) {
	raw, err := h.svc.pager.Collect(ctx, h.builder, h.indexSet.ScenarioID, h.req.Size)
	if err != nil {
		return nil, err
	}

	result, err := h.projector.Project(raw)
	if err != nil {
		return nil, err
	}
	result.Fields = h.projector.AnalyzeFieldLength(result.List)

	if searchType != "" {
		obj, err := h.svc.history.Record(ctx, HistoryRecord{
			Username:   h.username,
			IndexSetID: h.req.IndexSetID,
			SearchType: searchType,
			Keyword:    h.req.Keyword,
			HostScopes: h.req.HostScopes,
			Addition:   h.req.Addition,
			StartTime:  h.req.StartTime,
			EndTime:    h.req.EndTime,
			TimeRange:  h.req.TimeRange,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to record search history",
				"index_set_id", h.req.IndexSetID,
				"error", err,
			)
		}
		result.HistoryObj = obj
	}

	return result, nil
}

// Export returns the pages of the search as a pull sequence. Search-after pages carry a
// page token that resumes the export right after them.
func (h *SearchHandler) Export(ctx context.Context, pageToken string) (iter.Seq2[*model.SearchResult, error], error) {
	scenarioID := h.indexSet.ScenarioID
	sortedFields, reason := exportSortFields(h.catalog, scenarioID, h.timeField.Name)
	if reason != "" {
		return nil, errors.NewValidation("export is not available for this index set: " + reason)
	}

	secret := h.svc.pageTokenSecret(ctx)
	req := StreamRequest{
		ScenarioID:   scenarioID,
		SortedFields: sortedFields,
		Size:         h.req.Size,
	}
	if pageToken != "" {
		cursor, err := paging.DecodePageToken(ctx, pageToken, secret)
		if err != nil {
			return nil, err
		}
		if cursor.IndexSetID != h.req.IndexSetID || !slices.Equal(cursor.SortedFields, sortedFields) {
			return nil, errors.NewValidation("page token does not belong to this export")
		}
		req.Resume = cursor.SearchAfter
		req.Exported = cursor.Exported
	}

	pages := h.svc.pager.Stream(ctx, h.builder, req)
	return func(yield func(*model.SearchResult, error) bool) {
		exported := req.Exported
		for page, err := range pages {
			if err != nil {
				yield(nil, err)
				return
			}

			result, err := h.projector.Project(page)
			if err != nil {
				yield(nil, err)
				return
			}
			exported += len(page.Hits.Hits)

			if scenarioID != constants.ScenarioES && len(page.Hits.Hits) > 0 {
				values, err := SearchAfterValues(page.Hits.Hits[len(page.Hits.Hits)-1], sortedFields)
				if err != nil {
					yield(nil, err)
					return
				}
				token, err := paging.EncodePageToken(paging.ExportCursor{
					IndexSetID:   h.req.IndexSetID,
					SortedFields: sortedFields,
					SearchAfter:  values,
					Exported:     exported,
				}, secret)
				if err != nil {
					yield(nil, err)
					return
				}
				result.PageToken = token
			}

			if !yield(result, nil) {
				return
			}
		}
	}, nil
}

// Context returns the lines around the anchor of the request
func (h *SearchHandler) Context(ctx context.Context) (*model.ContextResult, error) {
	return h.svc.contexts.Context(ctx, h.contextQuery(), h.projector)
}

// Tail returns the latest lines of the anchor's source
func (h *SearchHandler) Tail(ctx context.Context) (*model.ContextResult, error) {
	return h.svc.contexts.Tail(ctx, h.contextQuery(), h.projector)
}

// VerifySortList checks every field of sortList against the catalog
func (h *SearchHandler) VerifySortList(sortList [][]string) error {
	return VerifySortList(sortList, h.catalog)
}

func (h *SearchHandler) contextQuery() ContextQuery {
	return ContextQuery{
		Indices:    h.indices,
		ScenarioID: h.indexSet.ScenarioID,
		Anchor:     h.req.ContextAnchor,
		Begin:      h.req.Begin,
		Size:       h.req.Size,
		Zero:       h.req.Zero,
	}
}

// resolveTimeField picks the fixed event time of live document scenarios, the index set
// configuration otherwise, and finally the time field of its first physical index
func resolveTimeField(indexSet *model.IndexSet, data []model.IndexSetData) (model.TimeField, error) {
	if profileFor(indexSet.ScenarioID).liveDocument {
		return model.TimeField{
			Name: constants.EventTimeField,
			Type: constants.TimeFieldTypeDate,
			Unit: constants.TimeFieldUnitSecond,
		}, nil
	}
	if indexSet.TimeField != "" {
		return model.TimeField{
			Name: indexSet.TimeField,
			Type: indexSet.TimeFieldType,
			Unit: indexSet.TimeFieldUnit,
		}, nil
	}
	if len(data) > 0 && data[0].TimeField != "" {
		return model.TimeField{
			Name: data[0].TimeField,
			Type: constants.TimeFieldTypeDate,
			Unit: constants.TimeFieldUnitSecond,
		}, nil
	}
	return model.TimeField{}, errors.NewConfiguration(fmt.Sprintf("index set %d has no time field", indexSet.IndexSetID))
}

// timeFieldType reads the mapped type of the time field
func timeFieldType(timeField string, catalog []model.FieldDescriptor) (string, error) {
	if len(catalog) == 0 {
		return "", errors.NewValidation("not time field type")
	}
	for _, f := range catalog {
		if f.FieldName == timeField {
			return f.FieldType, nil
		}
	}
	return "", errors.NewValidation("unknown time field type")
}
