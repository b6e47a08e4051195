// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultProjectorProject(t *testing.T) {
	tests := []struct {
		name            string
		raw             *model.RawResultSet
		expectedTotal   int
		expectedList    []map[string]any
		expectedOrigins []map[string]any
		expectedAggs    string
		// expectedAggregations defaults to expectedAggs
		expectedAggregations string
	}{
		{
			name: "hits are tagged and highlighted",
			raw: &model.RawResultSet{
				Took:         7,
				Aggregations: json.RawMessage(`{"hosts":{"buckets":[]}}`),
				Hits: model.Hits{
					Total: 1,
					Hits: []model.RawHit{{
						Index:     "log_index_1",
						Source:    json.RawMessage(`{"log":"disk error on sda","level":"warn"}`),
						Highlight: map[string][]string{"log": {"disk <mark>error</mark>", " on sda"}},
					}},
				},
			},
			expectedTotal: 1,
			expectedList: []map[string]any{
				{"log": "disk <mark>error</mark> on sda", "level": "warn", "index": "log_index_1"},
			},
			expectedOrigins: []map[string]any{
				{"log": "disk error on sda", "level": "warn"},
			},
			expectedAggs: `{"hosts":{"buckets":[]}}`,
		},
		{
			name: "numbers keep their textual form",
			raw: &model.RawResultSet{
				Hits: model.Hits{
					Total: 1,
					Hits:  []model.RawHit{{Index: "i", Source: json.RawMessage(`{"gseIndex":12345678901234567}`)}},
				},
			},
			expectedTotal:   1,
			expectedList:    []map[string]any{{"gseIndex": json.Number("12345678901234567"), "index": "i"}},
			expectedOrigins: []map[string]any{{"gseIndex": json.Number("12345678901234567")}},
			expectedAggs:    `{}`,
		},
		{
			name: "empty total is an empty result",
			raw: &model.RawResultSet{
				Took: 3,
				Hits: model.Hits{
					Total: 0,
					Hits:  []model.RawHit{{Index: "i", Source: json.RawMessage(`{"log":"x"}`)}},
				},
			},
			expectedList:    []map[string]any{},
			expectedOrigins: []map[string]any{},
			expectedAggs:    `{}`,
		},
		{
			name: "empty total keeps aggregations but clears aggs",
			raw: &model.RawResultSet{
				Aggregations: json.RawMessage(`{"hosts":{"buckets":[]}}`),
				Hits:         model.Hits{Total: 0},
			},
			expectedList:         []map[string]any{},
			expectedOrigins:      []map[string]any{},
			expectedAggs:         `{}`,
			expectedAggregations: `{"hosts":{"buckets":[]}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			result, err := NewResultProjector().Project(tc.raw)
			require.NoError(t, err)

			assertion.Equal(tc.expectedTotal, result.Total)
			assertion.Equal(tc.expectedList, result.List)
			assertion.Equal(tc.expectedOrigins, result.OriginLogList)
			expectedAggregations := tc.expectedAggregations
			if expectedAggregations == "" {
				expectedAggregations = tc.expectedAggs
			}
			assertion.JSONEq(tc.expectedAggs, string(result.Aggs))
			assertion.JSONEq(expectedAggregations, string(result.Aggregations))
			assertion.JSONEq(`{}`, string(result.Shards))
		})
	}
}

func TestResultProjectorProjectInvalidSource(t *testing.T) {
	assertion := assert.New(t)

	_, err := NewResultProjector().Project(&model.RawResultSet{
		Hits: model.Hits{
			Total: 1,
			Hits:  []model.RawHit{{Source: json.RawMessage(`["not","an","object"]`)}},
		},
	})

	var shape errors.DataShape
	assertion.True(stderrors.As(err, &shape))
}

func TestResultProjectorAnalyzeFieldLength(t *testing.T) {
	assertion := assert.New(t)

	projector := NewResultProjector()
	projector.AnalyzeFieldLength([]map[string]any{
		{"log": "abc", "kubernetes": map[string]any{"pod": "p1"}},
	})
	fields := projector.AnalyzeFieldLength([]map[string]any{
		{"log": "abcdefgh", "kubernetes": map[string]any{"pod": "p"}},
		{"message": "日志"},
	})

	assertion.Equal(model.FieldLength{MaxLength: 8}, fields["log"])
	assertion.Equal(model.FieldLength{MaxLength: 14}, fields["kubernetes.pod"])
	assertion.Equal(model.FieldLength{MaxLength: 7}, fields["message"])
}

func TestResultProjectorEnsureLog(t *testing.T) {
	assertion := assert.New(t)

	records := NewResultProjector().EnsureLog([]map[string]any{
		{"log": "kept"},
		{"b": "x", "a": 1, "meta": map[string]any{"host": "h1"}},
		{"log": "", "path": "/var/log/app.log"},
		{"log": nil, "level": "info"},
		{"log": "   ", "serverIp": "10.0.0.1"},
	})

	assertion.Equal("kept", records[0]["log"])
	assertion.Equal("a: 1 b: x meta.host: h1", records[1]["log"])
	assertion.Equal("path: /var/log/app.log", records[2]["log"])
	assertion.Equal("level: info", records[3]["log"])
	assertion.Equal("serverIp: 10.0.0.1", records[4]["log"])
}
