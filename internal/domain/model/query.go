// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// SortItem is one (field, direction) pair of a sort list
type SortItem struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// SortItemsFrom converts [field, order] pairs, ignoring malformed ones.
// A pair without direction sorts descending.
func SortItemsFrom(pairs [][]string) []SortItem {
	items := make([]SortItem, 0, len(pairs))
	for _, pair := range pairs {
		switch len(pair) {
		case 0:
			continue
		case 1:
			items = append(items, SortItem{Field: pair[0], Order: "desc"})
		default:
			items = append(items, SortItem{Field: pair[0], Order: pair[1]})
		}
	}
	return items
}

// SortPairs is the inverse of SortItemsFrom
func SortPairs(items []SortItem) [][]string {
	pairs := make([][]string, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, []string{item.Field, item.Order})
	}
	return pairs
}

// QueryPayload is one normalized backend round trip
type QueryPayload struct {
	Indices          string         `json:"indices"`
	ScenarioID       string         `json:"scenario_id"`
	StorageClusterID int            `json:"storage_cluster_id"`
	StartTime        string         `json:"start_time"`
	EndTime          string         `json:"end_time"`
	TimeRange        string         `json:"time_range"`
	TimeZone         string         `json:"time_zone"`
	UseTimeRange     bool           `json:"use_time_range"`
	TimeField        TimeField      `json:"time_field"`
	QueryString      string         `json:"query_string"`
	Filter           []Condition    `json:"filter"`
	SortList         []SortItem     `json:"sort_list"`
	Start            int            `json:"start"`
	Size             int            `json:"size"`
	Aggs             map[string]any `json:"aggs,omitempty"`
	Highlight        map[string]any `json:"highlight,omitempty"`
	// Scroll opens a scroll cursor with this keep-alive when positive
	Scroll      time.Duration  `json:"scroll,omitempty"`
	SearchAfter []any          `json:"search_after,omitempty"`
	Collapse    map[string]any `json:"collapse,omitempty"`
}
