// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package opensearch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

// timeLayouts are the accepted formats of start and end times
var timeLayouts = []string{time.DateTime, time.RFC3339, time.DateOnly}

// buildQuery translates the time range, query string and normalized conditions of a
// payload into a bool query
func buildQuery(payload model.QueryPayload, now time.Time) (map[string]any, error) {
	var must, filter []any

	if q := strings.TrimSpace(payload.QueryString); q != "" && q != "*" {
		must = append(must, map[string]any{
			"query_string": map[string]any{
				"query":            q,
				"analyze_wildcard": true,
			},
		})
	}

	timeRange, err := timeRangeClause(payload, now)
	if err != nil {
		return nil, err
	}
	if timeRange != nil {
		filter = append(filter, timeRange)
	}
	if conditions := conditionsClause(payload.Filter); conditions != nil {
		filter = append(filter, conditions)
	}

	if len(must) == 0 && len(filter) == 0 {
		return map[string]any{"match_all": map[string]any{}}, nil
	}
	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]any{"bool": boolQuery}, nil
}

func timeRangeClause(payload model.QueryPayload, now time.Time) (map[string]any, error) {
	if !payload.UseTimeRange || payload.TimeField.Name == "" {
		return nil, nil
	}

	loc := time.UTC
	if payload.TimeZone != "" {
		l, err := time.LoadLocation(payload.TimeZone)
		if err != nil {
			return nil, errors.NewValidation("unknown time zone "+payload.TimeZone, err)
		}
		loc = l
	}

	var start, end time.Time
	switch {
	case payload.StartTime != "" || payload.EndTime != "":
		var err error
		if start, err = parseTime(payload.StartTime, loc); err != nil {
			return nil, err
		}
		if end, err = parseTime(payload.EndTime, loc); err != nil {
			return nil, err
		}
	case payload.TimeRange != "":
		// relative ranges such as "15m" end now
		d, err := time.ParseDuration(payload.TimeRange)
		if err != nil {
			return nil, nil
		}
		start, end = now.Add(-d), now
	}
	if start.IsZero() && end.IsZero() {
		return nil, nil
	}

	bounds := map[string]any{}
	if !start.IsZero() {
		bounds["gte"] = epoch(start, payload.TimeField)
	}
	if !end.IsZero() {
		bounds["lte"] = epoch(end, payload.TimeField)
	}
	if payload.TimeField.Type == constants.TimeFieldTypeDate {
		bounds["format"] = "epoch_millis"
	}
	return map[string]any{"range": map[string]any{payload.TimeField.Name: bounds}}, nil
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewValidation(fmt.Sprintf("invalid time %q", value))
}

// epoch renders t in the unit the time field is stored with; date fields take milliseconds
func epoch(t time.Time, field model.TimeField) int64 {
	if field.Type == constants.TimeFieldTypeDate {
		return t.UnixMilli()
	}
	switch field.Unit {
	case constants.TimeFieldUnitMillisecond:
		return t.UnixMilli()
	case "microsecond":
		return t.UnixMicro()
	}
	return t.Unix()
}

// conditionsClause joins the conditions: "and" binds tighter than "or", so each "or"
// starts a new group and a document matches when any group matches
func conditionsClause(conditions []model.Condition) map[string]any {
	var groups [][]model.Condition
	for i, c := range conditions {
		if i == 0 || c.Condition == constants.ConditionOr {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], c)
	}

	switch len(groups) {
	case 0:
		return nil
	case 1:
		return groupClause(groups[0])
	}

	should := make([]any, 0, len(groups))
	for _, group := range groups {
		should = append(should, groupClause(group))
	}
	return map[string]any{
		"bool": map[string]any{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
}

func groupClause(group []model.Condition) map[string]any {
	var filter, mustNot []any
	for _, c := range group {
		clause, negated := conditionClause(c)
		if c.Type == constants.FieldKindNested {
			clause = nestedClause(c.Field, clause)
		}
		if negated {
			mustNot = append(mustNot, clause)
			continue
		}
		filter = append(filter, clause)
	}

	boolQuery := map[string]any{}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}
	return map[string]any{"bool": boolQuery}
}

// conditionClause returns the positive clause of a condition and whether it must not match
func conditionClause(c model.Condition) (map[string]any, bool) {
	switch strings.ToLower(c.Operator) {
	case constants.OperatorIs, constants.OperatorEq, "=", "==":
		return termClause(c.Field, c.Value), false
	case constants.OperatorIsNot, "!=", "ne":
		return termClause(c.Field, c.Value), true
	case constants.OperatorIsOneOf:
		return map[string]any{"terms": map[string]any{c.Field: listValues(c.Value)}}, false
	case constants.OperatorIsNotOneOf:
		return map[string]any{"terms": map[string]any{c.Field: listValues(c.Value)}}, true
	case constants.OperatorExists:
		return map[string]any{"exists": map[string]any{"field": c.Field}}, false
	case constants.OperatorDoesNotExist, constants.OperatorDoesNotExists:
		return map[string]any{"exists": map[string]any{"field": c.Field}}, true
	case constants.OperatorContains:
		return wildcardClause(c.Field, c.Value), false
	case constants.OperatorNotContains:
		return wildcardClause(c.Field, c.Value), true
	case "gt", ">":
		return rangeClause(c.Field, "gt", c.Value), false
	case "gte", ">=":
		return rangeClause(c.Field, "gte", c.Value), false
	case "lt", "<":
		return rangeClause(c.Field, "lt", c.Value), false
	case "lte", "<=":
		return rangeClause(c.Field, "lte", c.Value), false
	case "not contains match phrase":
		return phraseClause(c.Field, c.Value), true
	}
	return phraseClause(c.Field, c.Value), false
}

func termClause(field string, value any) map[string]any {
	if values := listValues(value); len(values) != 1 {
		return map[string]any{"terms": map[string]any{field: values}}
	}
	return map[string]any{"term": map[string]any{field: scalar(value)}}
}

func wildcardClause(field string, value any) map[string]any {
	values := listValues(value)
	clauses := make([]any, 0, len(values))
	for _, v := range values {
		clauses = append(clauses, map[string]any{
			"wildcard": map[string]any{field: map[string]any{"value": "*" + fmt.Sprint(v) + "*"}},
		})
	}
	if len(clauses) == 1 {
		return clauses[0].(map[string]any)
	}
	return map[string]any{"bool": map[string]any{"should": clauses, "minimum_should_match": 1}}
}

func phraseClause(field string, value any) map[string]any {
	values := listValues(value)
	clauses := make([]any, 0, len(values))
	for _, v := range values {
		clauses = append(clauses, map[string]any{"match_phrase": map[string]any{field: v}})
	}
	if len(clauses) == 1 {
		return clauses[0].(map[string]any)
	}
	return map[string]any{"bool": map[string]any{"should": clauses, "minimum_should_match": 1}}
}

func rangeClause(field, op string, value any) map[string]any {
	return map[string]any{"range": map[string]any{field: map[string]any{op: numeric(scalar(value))}}}
}

// nestedClause scopes a clause to the nested object holding field
func nestedClause(field string, clause map[string]any) map[string]any {
	path := field
	if i := strings.LastIndex(field, "."); i > 0 {
		path = field[:i]
	}
	return map[string]any{"nested": map[string]any{"path": path, "query": clause}}
}

func listValues(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, 0, len(v))
		for _, s := range v {
			out = append(out, s)
		}
		return out
	case nil:
		return []any{}
	}
	return []any{value}
}

func scalar(value any) any {
	if values := listValues(value); len(values) > 0 {
		return values[0]
	}
	return value
}

// numeric turns numeric strings into numbers so range bounds compare numerically
func numeric(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// sortClause renders the sort list in request order
func sortClause(items []model.SortItem) []any {
	sort := make([]any, 0, len(items))
	for _, item := range items {
		sort = append(sort, map[string]any{item.Field: map[string]any{"order": item.Order}})
	}
	return sort
}
