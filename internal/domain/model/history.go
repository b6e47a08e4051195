// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// HistoryParams are the normalized parameters of a recorded search
type HistoryParams struct {
	Keyword    string         `json:"keyword"`
	HostScopes HostScope      `json:"host_scopes"`
	Addition   []RawCondition `json:"addition"`
	StartTime  string         `json:"start_time,omitempty"`
	EndTime    string         `json:"end_time,omitempty"`
	TimeRange  string         `json:"time_range,omitempty"`
}

// HistoryObj is handed back to the caller for "default" searches instead of being persisted
type HistoryObj struct {
	Params     HistoryParams `json:"params"`
	IndexSetID int           `json:"index_set_id"`
	SearchType string        `json:"search_type"`
}

// HistoryEntry is a persisted search history record
type HistoryEntry struct {
	ID          int64         `json:"id"`
	IndexSetID  int           `json:"index_set_id"`
	Params      HistoryParams `json:"params"`
	SearchType  string        `json:"search_type"`
	Rank        int           `json:"rank"`
	Duration    float64       `json:"duration"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	IsDeleted   bool          `json:"-"`
	QueryString string        `json:"query_string,omitempty"`
	BizID       int           `json:"bk_biz_id,omitempty"`
}

// HistoryFilter selects history entries; zero values do not filter
type HistoryFilter struct {
	IndexSetID    int
	CreatedBy     string
	SearchType    string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	// OrderByUser sorts by creator then newest first; otherwise by rank then newest first
	OrderByUser bool
	Limit       int
}
