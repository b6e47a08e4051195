// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/flatten"
)

var emptyObject = json.RawMessage(`{}`)

// ResultProjector turns raw hits into display records and tracks the widest rendering
// of every flattened key. The width table lives as long as the projector, so one
// projector per search handler accumulates across all of its pages.
type ResultProjector struct {
	flatten flatten.Options
	fields  map[string]model.FieldLength
}

// Project converts a raw result set. Each record gets its physical index under "index"
// and highlighted fragments, joined without separator, over the matching field.
// The untouched sources are returned in OriginLogList.
func (p *ResultProjector) Project(raw *model.RawResultSet) (*model.SearchResult, error) {
	result := &model.SearchResult{
		Aggregations:  orEmptyObject(raw.Aggregations),
		Aggs:          orEmptyObject(raw.Aggregations),
		Shards:        orEmptyObject(raw.Shards),
		List:          []map[string]any{},
		OriginLogList: []map[string]any{},
	}
	if raw.Hits.Total == 0 {
		// an empty search reports its aggregations only under "aggregations"
		result.Aggs = emptyObject
		return result, nil
	}

	for _, hit := range raw.Hits.Hits {
		record, err := decodeSource(hit.Source)
		if err != nil {
			return nil, err
		}
		origin, err := decodeSource(hit.Source)
		if err != nil {
			return nil, err
		}

		record["index"] = hit.Index
		for field, fragments := range hit.Highlight {
			record[field] = strings.Join(fragments, "")
		}

		result.List = append(result.List, record)
		result.OriginLogList = append(result.OriginLogList, origin)
	}

	result.Total = int(raw.Hits.Total)
	result.Took = raw.Took
	return result, nil
}

// AnalyzeFieldLength folds the records into the width table and returns it.
// The width of a key is the longest of its rendered values and of the key itself.
func (p *ResultProjector) AnalyzeFieldLength(records []map[string]any) map[string]model.FieldLength {
	for _, record := range records {
		for _, pair := range flatten.Flatten(record, p.flatten) {
			width := max(utf8.RuneCountInString(flatten.Render(pair.Value)), utf8.RuneCountInString(pair.Key))
			if current, ok := p.fields[pair.Key]; ok && current.MaxLength >= width {
				continue
			}
			p.fields[pair.Key] = model.FieldLength{MaxLength: width}
		}
	}
	return p.fields
}

// EnsureLog gives every record a non-empty "log" field, synthesizing it from the flattened
// "key: value" pairs of records whose log is missing, null or blank.
func (p *ResultProjector) EnsureLog(records []map[string]any) []map[string]any {
	for _, record := range records {
		if hasLog(record) {
			continue
		}
		delete(record, "log")
		pairs := flatten.Flatten(record, p.flatten)
		tokens := make([]string, 0, len(pairs))
		for _, pair := range pairs {
			tokens = append(tokens, pair.Key+": "+flatten.Render(pair.Value))
		}
		record["log"] = strings.Join(tokens, " ")
	}
	return records
}

func hasLog(record map[string]any) bool {
	switch v := record["log"].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

func decodeSource(source json.RawMessage) (map[string]any, error) {
	record := map[string]any{}
	if len(bytes.TrimSpace(source)) == 0 {
		return record, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(source))
	decoder.UseNumber()
	if err := decoder.Decode(&record); err != nil {
		return nil, errors.NewDataShape("failed to decode hit source", err)
	}
	if record == nil {
		record = map[string]any{}
	}
	return record, nil
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return emptyObject
	}
	return raw
}

// NewResultProjector creates a projector with an empty width table
func NewResultProjector() *ResultProjector {
	return &ResultProjector{
		flatten: flatten.DefaultOptions(),
		fields:  make(map[string]model.FieldLength),
	}
}
