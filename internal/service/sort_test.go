// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSortResolverResolve(t *testing.T) {
	tests := []struct {
		name     string
		configs  []model.UserIndexSetConfig
		query    SortQuery
		expected [][]string
	}{
		{
			name: "saved sort restricted to catalog fields",
			configs: []model.UserIndexSetConfig{{
				IndexSetID: 2, CreatedBy: "alice", Scope: "default",
				SortList: [][]string{{"gseIndex", "asc"}, {"removed_field", "desc"}},
			}},
			query: SortQuery{IndexSetID: 2, Username: "alice", ScenarioID: "log", Catalog: mock.LogFields()},
			expected: [][]string{{"gseIndex", "asc"}},
		},
		{
			name: "live document scenario falls back to the request sort",
			query: SortQuery{
				IndexSetID: 2, Username: "alice", ScenarioID: "log", Catalog: mock.LogFields(),
				RequestSort: [][]string{{"dtEventTimeStamp", "desc"}},
			},
			expected: [][]string{{"dtEventTimeStamp", "desc"}},
		},
		{
			name: "raw scenario gets an empty sort",
			query: SortQuery{
				IndexSetID: 3, Username: "alice", ScenarioID: "es", Catalog: mock.ESFields(),
				RequestSort: [][]string{{"@timestamp", "desc"}},
			},
			expected: [][]string{},
		},
		{
			name: "deleted config is ignored",
			configs: []model.UserIndexSetConfig{{
				IndexSetID: 2, CreatedBy: "alice", Scope: "default", IsDeleted: true,
				SortList: [][]string{{"gseIndex", "asc"}},
			}},
			query:    SortQuery{IndexSetID: 2, Username: "alice", ScenarioID: "es", Catalog: mock.LogFields()},
			expected: [][]string{},
		},
		{
			name: "other scope is not used",
			configs: []model.UserIndexSetConfig{{
				IndexSetID: 2, CreatedBy: "alice", Scope: "search_context",
				SortList: [][]string{{"gseIndex", "asc"}},
			}},
			query:    SortQuery{IndexSetID: 2, Username: "alice", ScenarioID: "es", Catalog: mock.LogFields()},
			expected: [][]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			repo := mock.NewMockRepository()
			for _, c := range tc.configs {
				repo.AddUserConfig(c)
			}

			sortList, err := NewSortResolver(repo).Resolve(context.Background(), tc.query)

			assertion.NoError(err)
			assertion.Equal(tc.expected, sortList)
		})
	}
}

func TestVerifySortList(t *testing.T) {
	tests := []struct {
		name          string
		sortList      [][]string
		expectedError string
	}{
		{
			name:     "sortable fields",
			sortList: [][]string{{"dtEventTimeStamp", "desc"}, {"gseIndex", "asc"}},
		},
		{
			name:          "text field is rejected",
			sortList:      [][]string{{"dtEventTimeStamp", "desc"}, {"log", "asc"}},
			expectedError: "invalid sort field: log is not sortable",
		},
		{
			name:          "unknown field is rejected",
			sortList:      [][]string{{"nope"}},
			expectedError: "invalid sort field: nope is not sortable",
		},
		{
			name:     "empty list",
			sortList: [][]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			err := VerifySortList(tc.sortList, mock.LogFields())
			if tc.expectedError == "" {
				assertion.NoError(err)
				return
			}
			assertion.EqualError(err, tc.expectedError)
			var validation errors.Validation
			assertion.True(stderrors.As(err, &validation))
		})
	}
}

func TestDefaultSortList(t *testing.T) {
	tests := []struct {
		name        string
		requestSort [][]string
		catalog     []model.FieldDescriptor
		timeField   string
		expected    [][]string
	}{
		{
			name:        "request sort wins",
			requestSort: [][]string{{"path", "asc"}},
			catalog:     mock.LogFields(),
			timeField:   "dtEventTimeStamp",
			expected:    [][]string{{"path", "asc"}},
		},
		{
			name:      "sequence pair breaks ties",
			catalog:   mock.BKDataFields(),
			timeField: "dtEventTimeStamp",
			expected:  [][]string{{"dtEventTimeStamp", "desc"}, {"gseindex", "desc"}, {"_iteration_idx", "desc"}},
		},
		{
			name:      "time only without sequence fields",
			catalog:   mock.ESFields(),
			timeField: "@timestamp",
			expected:  [][]string{{"@timestamp", "desc"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)
			assertion.Equal(tc.expected, DefaultSortList(tc.requestSort, tc.catalog, tc.timeField))
		})
	}
}
