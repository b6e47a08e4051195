// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"bytes"
	"encoding/json"
)

// RawResultSet is the document store response as consumed by the engine
type RawResultSet struct {
	Took         int             `json:"took"`
	TimedOut     bool            `json:"timed_out"`
	Shards       json.RawMessage `json:"_shards,omitempty"`
	Hits         Hits            `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations,omitempty"`
	ScrollID     string          `json:"_scroll_id,omitempty"`
}

// Hits holds the matched documents of one page
type Hits struct {
	Total HitsTotal `json:"total"`
	Hits  []RawHit  `json:"hits"`
}

// HitsTotal decodes both the legacy integer total and the {"value", "relation"} object
type HitsTotal int

func (t *HitsTotal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Value int `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*t = HitsTotal(obj.Value)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = HitsTotal(n)
	return nil
}

// RawHit is a single matched document
type RawHit struct {
	Index     string              `json:"_index"`
	ID        string              `json:"_id,omitempty"`
	Source    json.RawMessage     `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
	Sort      []any               `json:"sort,omitempty"`
}

// FieldLength is the widest rendering seen for a flattened key
type FieldLength struct {
	MaxLength int `json:"max_length"`
}

// SearchResult is the caller-facing result of a search
type SearchResult struct {
	Total         int                    `json:"total"`
	Took          int                    `json:"took"`
	List          []map[string]any       `json:"list"`
	OriginLogList []map[string]any       `json:"origin_log_list"`
	Aggs          json.RawMessage        `json:"aggs,omitempty"`
	Aggregations  json.RawMessage        `json:"aggregations,omitempty"`
	Fields        map[string]FieldLength `json:"fields,omitempty"`
	Shards        json.RawMessage        `json:"_shards,omitempty"`
	HistoryObj    *HistoryObj            `json:"history_obj,omitempty"`
	// PageToken resumes an export stream after this page
	PageToken string `json:"page_token,omitempty"`
}

// ContextResult is a search result centered on an anchor line
type ContextResult struct {
	SearchResult
	ZeroIndex  *int   `json:"zero_index,omitempty"`
	CountStart *int   `json:"count_start,omitempty"`
	DSL        string `json:"dsl,omitempty"`
}
