// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func testBuilder(scenarioID string) *QueryBuilder {
	return NewQueryBuilder(model.QueryPayload{
		Indices:    "log_index_1",
		ScenarioID: scenarioID,
		SortList:   []model.SortItem{{Field: "dtEventTimeStamp", Order: "desc"}},
	})
}

func TestPaginationEngineEffectiveSize(t *testing.T) {
	tests := []struct {
		name          string
		size          int
		scroll        bool
		expected      int
		expectedError bool
	}{
		{name: "default size", size: 0, scroll: false, expected: 30},
		{name: "plain mode clamps", size: 50000, scroll: false, expected: 10000},
		{name: "scroll mode keeps size", size: 50000, scroll: true, expected: 50000},
		{name: "scroll mode accepts the maximum", size: 100000, scroll: true, expected: 100000},
		{name: "scroll mode rejects oversize", size: 100001, scroll: true, expectedError: true},
	}

	engine := NewPaginationEngine(mock.NewMockDocStore(), DefaultPaginationSettings())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			size, err := engine.EffectiveSize(tc.size, tc.scroll)
			if tc.expectedError {
				var validation errors.Validation
				assertion.True(stderrors.As(err, &validation))
				return
			}
			assertion.NoError(err)
			assertion.Equal(tc.expected, size)
		})
	}
}

func TestPaginationEngineCollect(t *testing.T) {
	tests := []struct {
		name            string
		scenarioID      string
		scrollEnabled   bool
		size            int
		setupMocks      func(*mock.MockDocStore)
		expectedHits    int
		expectedTotal   int
		expectedSearch  int
		expectedScrolls int
		expectedCleared []string
		expectedScroll  time.Duration
		expectedSize    int
	}{
		{
			name:          "scroll continuation stops on a short page",
			scenarioID:    "log",
			scrollEnabled: true,
			size:          50000,
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(60000, 10000, "s1"), nil)
				store.AddScrollResponse(mock.Page(60000, 10000, "s1"), nil)
				store.AddScrollResponse(mock.Page(25000, 5000, "s1"), nil)
			},
			expectedHits:    25000,
			expectedTotal:   25000,
			expectedSearch:  1,
			expectedScrolls: 2,
			expectedCleared: []string{"s1"},
			expectedScroll:  time.Minute,
			expectedSize:    10000,
		},
		{
			name:          "final page is truncated and replaced cursors are released",
			scenarioID:    "es",
			scrollEnabled: true,
			size:          15000,
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(60000, 10000, "s1"), nil)
				store.AddScrollResponse(mock.Page(60000, 10000, "s2"), nil)
			},
			expectedHits:    15000,
			expectedTotal:   60000,
			expectedSearch:  1,
			expectedScrolls: 1,
			expectedCleared: []string{"s1", "s2"},
			expectedScroll:  time.Minute,
			expectedSize:    10000,
		},
		{
			name:          "total within one window needs no continuation",
			scenarioID:    "log",
			scrollEnabled: true,
			size:          50000,
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(500, 500, ""), nil)
			},
			expectedHits:   500,
			expectedTotal:  500,
			expectedSearch: 1,
			expectedScroll: time.Minute,
			expectedSize:   10000,
		},
		{
			name:          "missing scroll id is exhaustion",
			scenarioID:    "log",
			scrollEnabled: true,
			size:          50000,
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(60000, 10000, ""), nil)
			},
			expectedHits:   10000,
			expectedTotal:  60000,
			expectedSearch: 1,
			expectedScroll: time.Minute,
			expectedSize:   10000,
		},
		{
			name:          "bkdata never scrolls",
			scenarioID:    "bkdata",
			scrollEnabled: true,
			size:          50000,
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(60000, 10000, ""), nil)
			},
			expectedHits:   10000,
			expectedTotal:  60000,
			expectedSearch: 1,
			expectedSize:   10000,
		},
		{
			name:          "small search opens no cursor",
			scenarioID:    "log",
			scrollEnabled: true,
			size:          100,
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(60000, 100, ""), nil)
			},
			expectedHits:   100,
			expectedTotal:  60000,
			expectedSearch: 1,
			expectedSize:   100,
		},
		{
			name:          "scroll disabled clamps to the window",
			scenarioID:    "log",
			scrollEnabled: false,
			size:          50000,
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(60000, 10000, ""), nil)
			},
			expectedHits:   10000,
			expectedTotal:  60000,
			expectedSearch: 1,
			expectedSize:   10000,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			store := mock.NewMockDocStore()
			tc.setupMocks(store)
			settings := DefaultPaginationSettings()
			settings.ScrollEnabled = tc.scrollEnabled
			engine := NewPaginationEngine(store, settings)

			result, err := engine.Collect(context.Background(), testBuilder(tc.scenarioID), tc.scenarioID, tc.size)

			assertion.NoError(err)
			assertion.Len(result.Hits.Hits, tc.expectedHits)
			assertion.Equal(tc.expectedTotal, int(result.Hits.Total))
			assertion.Len(store.SearchCalls(), tc.expectedSearch)
			assertion.Len(store.ScrollCalls(), tc.expectedScrolls)
			assertion.Equal(tc.expectedCleared, store.ClearedScrolls())

			first := store.SearchCalls()[0]
			assertion.Equal(tc.expectedScroll, first.Scroll)
			assertion.Equal(tc.expectedSize, first.Size)
		})
	}
}

func TestPaginationEngineCollectFailures(t *testing.T) {
	transient := errors.NewTransientBackend("read timed out")

	tests := []struct {
		name           string
		setupMocks     func(*mock.MockDocStore)
		size           int
		expectedError  bool
		expectedSearch int
		expectedHits   int
	}{
		{
			name: "transient failures are retried",
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(nil, transient)
				store.AddSearchResponse(nil, transient)
				store.AddSearchResponse(mock.Page(10, 10, ""), nil)
			},
			size:           10,
			expectedSearch: 3,
			expectedHits:   10,
		},
		{
			name: "retries are bounded",
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(nil, transient)
				store.AddSearchResponse(nil, transient)
				store.AddSearchResponse(nil, transient)
				store.AddSearchResponse(mock.Page(10, 10, ""), nil)
			},
			size:           10,
			expectedError:  true,
			expectedSearch: 3,
		},
		{
			name: "fatal failures are not retried",
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(nil, errors.NewDataShape("bad response"))
			},
			size:           10,
			expectedError:  true,
			expectedSearch: 1,
		},
		{
			name: "failure while scrolling discards partial results",
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(60000, 10000, "s1"), nil)
				store.AddScrollResponse(nil, errors.NewDataShape("bad response"))
			},
			size:           50000,
			expectedError:  true,
			expectedSearch: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			store := mock.NewMockDocStore()
			tc.setupMocks(store)
			engine := NewPaginationEngine(store, DefaultPaginationSettings())

			result, err := engine.Collect(context.Background(), testBuilder("log"), "log", tc.size)

			assertion.Len(store.SearchCalls(), tc.expectedSearch)
			if tc.expectedError {
				assertion.Error(err)
				assertion.Nil(result)
				return
			}
			assertion.NoError(err)
			assertion.Len(result.Hits.Hits, tc.expectedHits)
		})
	}
}

func smallWindowSettings() PaginationSettings {
	return PaginationSettings{
		MaxResultWindow: 2,
		MaxSearchSize:   100,
		MaxRetry:        1,
		ScrollEnabled:   true,
		ScrollTTL:       time.Minute,
	}
}

func TestPaginationEngineStreamSearchAfter(t *testing.T) {
	assertion := assert.New(t)

	store := mock.NewMockDocStore()
	engine := NewPaginationEngine(store, smallWindowSettings())

	var pages, hits int
	for page, err := range engine.Stream(context.Background(), testBuilder("log"), StreamRequest{
		ScenarioID:   "log",
		SortedFields: []string{"dtEventTimeStamp", "gseIndex", "iterationIndex"},
		Size:         10,
	}) {
		assertion.NoError(err)
		pages++
		hits += len(page.Hits.Hits)
	}

	assertion.Equal(3, pages)
	assertion.Equal(4, hits)

	calls := store.SearchCalls()
	assertion.Len(calls, 3)
	assertion.Nil(calls[0].SearchAfter)
	assertion.Len(calls[1].SearchAfter, 3)
	assertion.Equal([]model.SortItem{
		{Field: "dtEventTimeStamp", Order: "desc"},
		{Field: "gseIndex", Order: "desc"},
		{Field: "iterationIndex", Order: "desc"},
	}, calls[0].SortList)
	assertion.Zero(calls[0].Scroll)
}

func TestPaginationEngineStreamResume(t *testing.T) {
	assertion := assert.New(t)

	store := mock.NewMockDocStore()
	engine := NewPaginationEngine(store, smallWindowSettings())

	var hits int
	for page, err := range engine.Stream(context.Background(), testBuilder("log"), StreamRequest{
		ScenarioID:   "log",
		SortedFields: []string{"dtEventTimeStamp"},
		Size:         10,
		Resume:       []any{1700000002000},
		Exported:     2,
	}) {
		assertion.NoError(err)
		hits += len(page.Hits.Hits)
	}

	assertion.Equal(2, hits)
	assertion.Equal([]any{1700000002000}, store.SearchCalls()[0].SearchAfter)
}

func TestPaginationEngineStreamEarlyStop(t *testing.T) {
	assertion := assert.New(t)

	store := mock.NewMockDocStore()
	engine := NewPaginationEngine(store, smallWindowSettings())

	for _, err := range engine.Stream(context.Background(), testBuilder("es"), StreamRequest{ScenarioID: "es", Size: 10}) {
		assertion.NoError(err)
		break
	}

	assertion.Len(store.SearchCalls(), 1)
	assertion.Empty(store.ScrollCalls())
	assertion.Equal([]string{"scroll-1"}, store.ClearedScrolls())
}

func TestPaginationEngineStreamScroll(t *testing.T) {
	assertion := assert.New(t)

	store := mock.NewMockDocStore()
	engine := NewPaginationEngine(store, smallWindowSettings())

	var hits int
	for page, err := range engine.Stream(context.Background(), testBuilder("es"), StreamRequest{ScenarioID: "es", Size: 3}) {
		assertion.NoError(err)
		hits += len(page.Hits.Hits)
	}

	assertion.Equal(3, hits)
	assertion.Equal(time.Minute, store.SearchCalls()[0].Scroll)
	assertion.Len(store.ScrollCalls(), 1)
	assertion.Equal([]string{"scroll-1"}, store.ClearedScrolls())
}

func TestPaginationEngineStreamFailures(t *testing.T) {
	tests := []struct {
		name          string
		request       StreamRequest
		setupMocks    func(*mock.MockDocStore)
		expectedPages int
	}{
		{
			name:    "error is yielded once after the delivered pages",
			request: StreamRequest{ScenarioID: "log", SortedFields: []string{"dtEventTimeStamp"}, Size: 10},
			setupMocks: func(store *mock.MockDocStore) {
				store.AddSearchResponse(mock.Page(10, 2, ""), nil)
				store.AddSearchResponse(nil, errors.NewDataShape("bad response"))
			},
			expectedPages: 1,
		},
		{
			name:          "scroll exports cannot resume",
			request:       StreamRequest{ScenarioID: "es", Size: 10, Resume: []any{1}},
			setupMocks:    func(*mock.MockDocStore) {},
			expectedPages: 0,
		},
		{
			name:          "oversize export is rejected",
			request:       StreamRequest{ScenarioID: "log", Size: 1000},
			setupMocks:    func(*mock.MockDocStore) {},
			expectedPages: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			store := mock.NewMockDocStore()
			tc.setupMocks(store)
			engine := NewPaginationEngine(store, smallWindowSettings())

			var pages, failures int
			for page, err := range engine.Stream(context.Background(), testBuilder(tc.request.ScenarioID), tc.request) {
				if err != nil {
					failures++
					assertion.Nil(page)
					continue
				}
				pages++
			}

			assertion.Equal(tc.expectedPages, pages)
			assertion.Equal(1, failures)
		})
	}
}
