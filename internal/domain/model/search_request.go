// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SearchRequest is the high-level search issued by a caller against one index set
type SearchRequest struct {
	IndexSetID int `json:"index_set_id"`
	// Keyword is the query string, passed through to the document store
	Keyword   string `json:"keyword"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	TimeRange string `json:"time_range"`
	TimeZone  string `json:"time_zone"`
	// UseTimeRange defaults to true when omitted
	UseTimeRange *bool          `json:"use_time_range,omitempty"`
	Addition     []RawCondition `json:"addition"`
	HostScopes   *HostScope     `json:"host_scopes,omitempty"`
	BizID        int            `json:"bk_biz_id"`
	// Begin is the start offset; for context views its sign selects the direction
	Begin    int            `json:"begin"`
	Size     int            `json:"size"`
	Aggs     map[string]any `json:"aggs,omitempty"`
	Collapse map[string]any `json:"collapse,omitempty"`
	SortList [][]string     `json:"sort_list,omitempty"`
	// CanHighlight defaults to true when omitted
	CanHighlight *bool `json:"can_highlight,omitempty"`
	// Zero asks a context or tail view for both directions around the anchor
	Zero bool `json:"zero"`

	ContextAnchor
}

// HighlightEnabled reports whether highlighting was requested
func (r SearchRequest) HighlightEnabled() bool {
	return r.CanHighlight == nil || *r.CanHighlight
}

// TimeRangeEnabled reports whether the time range applies to the query
func (r SearchRequest) TimeRangeEnabled() bool {
	return r.UseTimeRange == nil || *r.UseTimeRange
}

// ContextAnchor identifies the log line a context or tail view is centered on.
// The bkdata scenario uses gseindex/_iteration_idx/ip, the log scenario gseIndex/iterationIndex/serverIp.
type ContextAnchor struct {
	GseIndexBK       FlexString `json:"gseindex,omitempty"`
	GseIndex         FlexString `json:"gseIndex,omitempty"`
	IterationIdx     FlexString `json:"_iteration_idx,omitempty"`
	IterationIndex   FlexString `json:"iterationIndex,omitempty"`
	IP               string     `json:"ip,omitempty"`
	ServerIP         string     `json:"serverIp,omitempty"`
	Path             string     `json:"path,omitempty"`
	ContainerID      string     `json:"container_id,omitempty"`
	Logfile          string     `json:"logfile,omitempty"`
	DtEventTimeStamp FlexString `json:"dtEventTimeStamp,omitempty"`
}

// FlexString accepts both JSON strings and numbers, keeping the textual form.
// Anchor values are compared against hit values by their string rendering.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// JSONValue renders the value as a JSON number when it is an integer, as a string otherwise
func (f FlexString) JSONValue() any {
	if n, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return n
	}
	return string(f)
}

// RawCondition is a loosely-typed filter as sent by callers;
// keys may be named key/field and method/operator interchangeably.
type RawCondition map[string]any

// Condition is the canonical filter handed to the document store
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	// Condition is the logical join with the previous condition: "and" or "or"
	Condition string `json:"condition"`
	// Type is "field" or "nested", resolved from the field catalog
	Type string `json:"type"`
}

// HostScope is the IP/topology shortcut of a search
type HostScope struct {
	Modules        []TopoNode `json:"modules"`
	Ips            string     `json:"ips"`
	TargetNodeType string     `json:"target_node_type,omitempty"`
	TargetNodes    []TopoNode `json:"target_nodes,omitempty"`
}

// TopoNode is either a topology node (object id + instance id) or a host instance (ip + cloud id)
type TopoNode struct {
	BkObjID   string `json:"bk_obj_id,omitempty"`
	BkInstID  int    `json:"bk_inst_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	BkCloudID int    `json:"bk_cloud_id"`
}

// Host is a resolved host address
type Host struct {
	IP        string `json:"ip"`
	BkCloudID int    `json:"bk_cloud_id"`
}

// TimeField describes how the time range maps onto the index set
type TimeField struct {
	Name string `json:"time_field"`
	Type string `json:"time_field_type"`
	Unit string `json:"time_field_unit"`
}
