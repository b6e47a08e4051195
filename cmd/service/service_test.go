// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/infrastructure/mock"
	usecase "github.com/linuxfoundation/lfx-v2-log-search-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	store  *mock.MockDocStore
	repo   *mock.MockRepository
	router chi.Router
}

var apiSecret = [32]byte{9, 8, 7, 6, 5, 4, 3, 2, 1}

func newAPIEnv(principal string) *apiEnv {
	env := &apiEnv{
		store: mock.NewMockDocStore(),
		repo:  mock.NewMockRepository(),
	}
	catalog := mock.NewMockFieldCatalog()
	catalog.SetFields("2_bkdata_app", mock.BKDataFields())
	catalog.SetFields("raw_index", mock.ESFields())

	settings := usecase.DefaultSettings()
	settings.PageTokenSecret = &apiSecret
	svc := usecase.NewLogSearch(env.store, catalog, mock.NewMockHostResolver(), env.repo, settings)

	env.router = chi.NewRouter()
	NewLogSearchAPI(svc, mock.NewMockAuthService(principal)).Mount(env.router)
	return env
}

func (e *apiEnv) do(method, target, body string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authorized {
		req.Header.Set("Authorization", "Bearer test-token")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestLogSearchAPIJWTAuth(t *testing.T) {
	tests := []struct {
		name              string
		principal         string
		expectedError     bool
		expectedPrincipal string
	}{
		{
			name:              "principal stored in context",
			principal:         "alice",
			expectedPrincipal: "alice",
		},
		{
			name:          "authentication failure",
			principal:     "",
			expectedError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)
			t.Setenv("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL", "")

			api := NewLogSearchAPI(nil, mock.NewMockAuthService(tc.principal))
			ctx, err := api.JWTAuth(context.Background(), "token")

			if tc.expectedError {
				assertion.Error(err)
				assertion.Nil(ctx.Value(constants.PrincipalContextID))
				return
			}
			assertion.NoError(err)
			assertion.Equal(tc.expectedPrincipal, ctx.Value(constants.PrincipalContextID))
		})
	}
}

func TestLogSearchAPISearch(t *testing.T) {
	assertion := assert.New(t)

	env := newAPIEnv("alice")
	rec := env.do(http.MethodPost, fmt.Sprintf("/index_sets/%d/search", mock.IndexSetLog), `{"keyword": "error"}`, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assertion.Equal(constants.ContentTypeJSON, rec.Header().Get("Content-Type"))

	var result model.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assertion.Equal(1, result.Total)
	require.Len(t, result.OriginLogList, 1)
	assertion.Equal("error: upstream timed out", result.OriginLogList[0]["log"])

	history := env.repo.History()
	require.Len(t, history, 1)
	assertion.Equal("alice", history[0].CreatedBy)
	assertion.Equal(mock.IndexSetLog, history[0].IndexSetID)
}

func TestLogSearchAPIStatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		authorized     bool
		setupMocks     func(*apiEnv)
		expectedStatus int
	}{
		{
			name:           "missing bearer token",
			method:         http.MethodPost,
			target:         "/index_sets/2/search",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad index set id",
			method:         http.MethodPost,
			target:         "/index_sets/abc/search",
			authorized:     true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown index set",
			method:         http.MethodPost,
			target:         "/index_sets/42/search",
			authorized:     true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "index set without applied index",
			method:         http.MethodPost,
			target:         fmt.Sprintf("/index_sets/%d/search", mock.IndexSetUnapplied),
			authorized:     true,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "malformed body",
			method:         http.MethodPost,
			target:         "/index_sets/2/search",
			body:           `{"keyword":`,
			authorized:     true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unsortable field",
			method:         http.MethodPost,
			target:         "/index_sets/2/sort_list/verify",
			body:           `{"sort_list": [["log", "desc"]]}`,
			authorized:     true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "sortable field",
			method:         http.MethodPost,
			target:         "/index_sets/2/sort_list/verify",
			body:           `{"sort_list": [["gseIndex", "desc"]]}`,
			authorized:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "history range without start",
			method:         http.MethodGet,
			target:         "/history",
			authorized:     true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "history range",
			method:         http.MethodGet,
			target:         "/history?start_time=2024-01-01T00:00:00Z",
			authorized:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "index set history",
			method:         http.MethodGet,
			target:         "/index_sets/2/history",
			authorized:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "liveness is public",
			method:         http.MethodGet,
			target:         "/livez",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "ready",
			method:         http.MethodGet,
			target:         "/readyz",
			expectedStatus: http.StatusOK,
		},
		{
			name:   "not ready",
			method: http.MethodGet,
			target: "/readyz",
			setupMocks: func(env *apiEnv) {
				env.store.SetIsReadyError(stderrors.New("cluster red"))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newAPIEnv("alice")
			if tc.setupMocks != nil {
				tc.setupMocks(env)
			}

			rec := env.do(tc.method, tc.target, tc.body, tc.authorized)
			assert.Equal(t, tc.expectedStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestLogSearchAPIErrorBody(t *testing.T) {
	assertion := assert.New(t)

	env := newAPIEnv("alice")
	rec := env.do(http.MethodPost, "/index_sets/42/search", `{}`, true)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assertion.Equal(http.StatusNotFound, body.Code)
	assertion.Contains(body.Message, "index set 42 does not exist")
}

func TestLogSearchAPIExport(t *testing.T) {
	assertion := assert.New(t)

	env := newAPIEnv("alice")
	rec := env.do(http.MethodPost, fmt.Sprintf("/index_sets/%d/export", mock.IndexSetLog), `{"size": 10}`, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assertion.Equal(constants.ContentTypeNDJSON, rec.Header().Get("Content-Type"))

	var logs []any
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var page model.SearchResult
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &page))
		for _, record := range page.OriginLogList {
			logs = append(logs, record["log"])
		}
	}
	require.NoError(t, scanner.Err())
	assertion.Len(logs, 4)
	assertion.Contains(logs, "service started")
	assertion.Contains(logs, "request completed")
}

func TestLogSearchAPIExportBadToken(t *testing.T) {
	env := newAPIEnv("alice")
	rec := env.do(http.MethodPost, fmt.Sprintf("/index_sets/%d/export?page_token=garbage", mock.IndexSetLog), `{}`, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, constants.ContentTypeJSON, rec.Header().Get("Content-Type"))
}

func TestLogSearchAPIHistoryByRangeUsesClock(t *testing.T) {
	assertion := assert.New(t)

	env := newAPIEnv("alice")
	env.repo.AddHistory(
		model.HistoryEntry{IndexSetID: mock.IndexSetLog, CreatedBy: "alice", SearchType: "default", CreatedAt: time.Now().Add(-time.Hour)},
	)

	rec := env.do(http.MethodGet, "/history?start_time="+time.Now().Add(-2*time.Hour).UTC().Format(time.RFC3339), "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []model.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assertion.Len(entries, 1)
}
