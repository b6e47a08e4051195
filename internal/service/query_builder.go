// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
)

// BuildHighlight returns the highlight clause of a query, or an empty clause when highlighting is off.
// require_field_match is set for field-qualified queries to avoid highlighting every field.
func BuildHighlight(scenarioID, queryString string, enabled bool) map[string]any {
	if !enabled {
		return map[string]any{}
	}
	field := profileFor(scenarioID).highlightField
	if field != "*" && queryString == "" {
		return map[string]any{}
	}

	return map[string]any{
		"pre_tags":  []string{constants.HighlightPreTag},
		"post_tags": []string{constants.HighlightPostTag},
		"fields": map[string]any{
			field: map[string]any{"number_of_fragments": 0},
		},
		"require_field_match": strings.Contains(queryString, ":"),
	}
}

// PageOption adjusts one page derived from the base payload
type PageOption func(*model.QueryPayload)

// WithSize sets the page size
func WithSize(size int) PageOption {
	return func(p *model.QueryPayload) {
		p.Size = size
	}
}

// WithSort replaces the sort list
func WithSort(sortList []model.SortItem) PageOption {
	return func(p *model.QueryPayload) {
		p.SortList = slices.Clone(sortList)
	}
}

// WithScroll opens a scroll cursor kept alive for ttl
func WithScroll(ttl time.Duration) PageOption {
	return func(p *model.QueryPayload) {
		p.Scroll = ttl
	}
}

// WithSearchAfter continues after the given sort values
func WithSearchAfter(values []any) PageOption {
	return func(p *model.QueryPayload) {
		p.SearchAfter = slices.Clone(values)
	}
}

// QueryBuilder derives per-round-trip payloads from the normalized search
type QueryBuilder struct {
	base model.QueryPayload
}

// Build returns a fresh payload; the base is never mutated
func (b *QueryBuilder) Build(opts ...PageOption) model.QueryPayload {
	p := b.base
	p.Filter = slices.Clone(b.base.Filter)
	p.SortList = slices.Clone(b.base.SortList)
	p.Aggs = maps.Clone(b.base.Aggs)
	p.Highlight = maps.Clone(b.base.Highlight)
	p.Collapse = maps.Clone(b.base.Collapse)
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Base exposes the normalized payload
func (b *QueryBuilder) Base() model.QueryPayload {
	return b.Build()
}

// NewQueryBuilder creates a builder over a normalized base payload
func NewQueryBuilder(base model.QueryPayload) *QueryBuilder {
	return &QueryBuilder{
		base: base,
	}
}
