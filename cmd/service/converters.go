// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

const maxRequestBody = 1 << 20

// ExportRequest is the body of an export; PageToken resumes an interrupted stream
type ExportRequest struct {
	model.SearchRequest
	PageToken string `json:"page_token,omitempty"`
}

// SortListRequest is the body of a sort list verification
type SortListRequest struct {
	SortList [][]string `json:"sort_list"`
}

// indexSetID reads the {id} path parameter
func indexSetID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, errors.NewValidation(fmt.Sprintf("invalid index set id %q", raw))
	}
	return id, nil
}

// decodeBody decodes an optional JSON body into v; an empty body leaves v untouched
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return errors.NewValidation("failed to read request body", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewValidation("invalid request body", err)
	}
	return nil
}

// searchRequest builds the search request of an index set route from the body
func searchRequest(r *http.Request) (model.SearchRequest, error) {
	id, err := indexSetID(r)
	if err != nil {
		return model.SearchRequest{}, err
	}
	var req model.SearchRequest
	if err := decodeBody(r, &req); err != nil {
		return model.SearchRequest{}, err
	}
	req.IndexSetID = id
	return req, nil
}

// exportRequest is searchRequest plus the resume token, taken from the body or the page_token parameter
func exportRequest(r *http.Request) (model.SearchRequest, string, error) {
	id, err := indexSetID(r)
	if err != nil {
		return model.SearchRequest{}, "", err
	}
	var req ExportRequest
	if err := decodeBody(r, &req); err != nil {
		return model.SearchRequest{}, "", err
	}
	req.IndexSetID = id
	if token := r.URL.Query().Get("page_token"); token != "" {
		req.PageToken = token
	}
	return req.SearchRequest, req.PageToken, nil
}

// fieldsRequest reads the time window of a fields lookup from the query string
func fieldsRequest(r *http.Request) (model.SearchRequest, string, error) {
	id, err := indexSetID(r)
	if err != nil {
		return model.SearchRequest{}, "", err
	}
	q := r.URL.Query()
	scope := q.Get("scope")
	if scope == "" {
		scope = constants.DefaultSearchType
	}
	return model.SearchRequest{
		IndexSetID: id,
		StartTime:  q.Get("start_time"),
		EndTime:    q.Get("end_time"),
		TimeZone:   q.Get("time_zone"),
	}, scope, nil
}

// searchType reads the history category of a search, "default" when absent
func searchType(q url.Values) string {
	if t := q.Get("search_type"); t != "" {
		return t
	}
	return constants.DefaultSearchType
}

// historyRange reads the RFC 3339 start and end parameters; end defaults to now
func historyRange(q url.Values, now time.Time) (time.Time, time.Time, error) {
	parse := func(name string) (time.Time, error) {
		t, err := time.Parse(time.RFC3339, q.Get(name))
		if err != nil {
			return time.Time{}, errors.NewValidation(fmt.Sprintf("invalid %s, expected RFC 3339", name), err)
		}
		return t, nil
	}

	start, err := parse("start_time")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := now
	if q.Get("end_time") != "" {
		if end, err = parse("end_time"); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.NewValidation("end_time must not be before start_time")
	}
	return start, end, nil
}
