// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
)

// Response is a scripted document store answer
type Response struct {
	Result *model.RawResultSet
	Err    error
}

// MockDocStore is an in-memory document store. Scripted responses are served first, in order;
// once they run out the store answers from its documents.
type MockDocStore struct {
	mu sync.Mutex

	index     string
	documents []map[string]any

	searchResponses []Response
	scrollResponses []Response
	dslResponses    []Response

	scrolls    map[string]scrollState
	nextScroll int

	searchCalls    []model.QueryPayload
	scrollCalls    []string
	clearedScrolls []string
	dslBodies      [][]byte

	isReadyError error
}

type scrollState struct {
	remaining []model.RawHit
	pageSize  int
	total     int
}

// NewMockDocStore creates a store holding a few log lines of the log scenario
func NewMockDocStore() *MockDocStore {
	return &MockDocStore{
		index:   "log_index_1",
		scrolls: make(map[string]scrollState),
		documents: []map[string]any{
			{
				"dtEventTimeStamp": 1700000000000,
				"serverIp":         "10.0.0.1",
				"path":             "/var/log/app.log",
				"gseIndex":         1,
				"iterationIndex":   0,
				"log":              "service started",
			},
			{
				"dtEventTimeStamp": 1700000001000,
				"serverIp":         "10.0.0.1",
				"path":             "/var/log/app.log",
				"gseIndex":         2,
				"iterationIndex":   0,
				"log":              "connection accepted from 10.0.0.9",
			},
			{
				"dtEventTimeStamp": 1700000002000,
				"serverIp":         "10.0.0.2",
				"path":             "/var/log/app.log",
				"gseIndex":         1,
				"iterationIndex":   0,
				"log":              "error: upstream timed out",
			},
			{
				"dtEventTimeStamp": 1700000003000,
				"serverIp":         "10.0.0.1",
				"path":             "/var/log/app.log",
				"gseIndex":         3,
				"iterationIndex":   0,
				"log":              "request completed",
			},
		},
	}
}

// Search implements the DocStoreClient interface
func (m *MockDocStore) Search(ctx context.Context, payload model.QueryPayload) (*model.RawResultSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.DebugContext(ctx, "executing mock search",
		"indices", payload.Indices,
		"size", payload.Size,
		"scroll", payload.Scroll,
	)
	m.searchCalls = append(m.searchCalls, payload)

	if r, ok := pop(&m.searchResponses); ok {
		return r.Result, r.Err
	}

	hits := m.match(payload)
	total := len(hits)
	hits = afterCursor(hits, payload.SortList, payload.SearchAfter)
	hits = hits[min(payload.Start, len(hits)):]

	size := payload.Size
	if size <= 0 {
		size = 10
	}
	page := hits[:min(size, len(hits))]

	result := &model.RawResultSet{
		Took: 1,
		Hits: model.Hits{Total: model.HitsTotal(total), Hits: page},
	}
	if payload.Scroll > 0 {
		m.nextScroll++
		id := fmt.Sprintf("scroll-%d", m.nextScroll)
		m.scrolls[id] = scrollState{remaining: hits[len(page):], pageSize: size, total: total}
		result.ScrollID = id
	}
	return result, nil
}

// Scroll implements the DocStoreClient interface
func (m *MockDocStore) Scroll(ctx context.Context, scrollID string, ttl time.Duration) (*model.RawResultSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.DebugContext(ctx, "executing mock scroll", "scroll_id", scrollID, "ttl", ttl)
	m.scrollCalls = append(m.scrollCalls, scrollID)

	if r, ok := pop(&m.scrollResponses); ok {
		return r.Result, r.Err
	}

	state, ok := m.scrolls[scrollID]
	if !ok {
		return &model.RawResultSet{}, nil
	}
	page := state.remaining[:min(state.pageSize, len(state.remaining))]
	state.remaining = state.remaining[len(page):]
	m.scrolls[scrollID] = state

	return &model.RawResultSet{
		Took:     1,
		Hits:     model.Hits{Total: model.HitsTotal(state.total), Hits: page},
		ScrollID: scrollID,
	}, nil
}

// ClearScroll implements the DocStoreClient interface
func (m *MockDocStore) ClearScroll(ctx context.Context, scrollID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearedScrolls = append(m.clearedScrolls, scrollID)
	delete(m.scrolls, scrollID)
	return nil
}

// DSL implements the DocStoreClient interface; without scripted responses every document matches
func (m *MockDocStore) DSL(ctx context.Context, indices, scenarioID string, body []byte) (*model.RawResultSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.DebugContext(ctx, "executing mock dsl", "indices", indices, "scenario_id", scenarioID)
	m.dslBodies = append(m.dslBodies, body)

	if r, ok := pop(&m.dslResponses); ok {
		return r.Result, r.Err
	}

	hits := m.hits(m.documents)
	return &model.RawResultSet{
		Took: 1,
		Hits: model.Hits{Total: model.HitsTotal(len(hits)), Hits: hits},
	}, nil
}

// Mapping implements the MappingReader interface from the keys of the stored documents
func (m *MockDocStore) Mapping(ctx context.Context, indices, scenarioID string, clusterID int) ([]model.FieldDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make(map[string]string)
	for _, doc := range m.documents {
		for k, v := range doc {
			types[k] = fieldType(k, v)
		}
	}

	fields := make([]model.FieldDescriptor, 0, len(types))
	for name, t := range types {
		fields = append(fields, model.FieldDescriptor{
			FieldName:   name,
			FieldType:   t,
			EsDocValues: t != "text",
		})
	}
	slices.SortFunc(fields, func(a, b model.FieldDescriptor) int {
		return cmp.Compare(a.FieldName, b.FieldName)
	})
	return fields, nil
}

// IsReady implements the DocStoreClient interface
func (m *MockDocStore) IsReady(ctx context.Context) error {
	return m.isReadyError
}

func (m *MockDocStore) match(payload model.QueryPayload) []model.RawHit {
	var matched []map[string]any
	for _, doc := range m.documents {
		if !matchesQuery(doc, payload.QueryString) || !matchesFilter(doc, payload.Filter) {
			continue
		}
		matched = append(matched, doc)
	}

	slices.SortStableFunc(matched, func(a, b map[string]any) int {
		return compareDocs(a, b, payload.SortList)
	})
	return m.hits(matched)
}

func (m *MockDocStore) hits(docs []map[string]any) []model.RawHit {
	hits := make([]model.RawHit, 0, len(docs))
	for i, doc := range docs {
		source, _ := json.Marshal(doc)
		hits = append(hits, model.RawHit{
			Index:  m.index,
			ID:     fmt.Sprintf("doc-%d", i),
			Source: source,
		})
	}
	return hits
}

func matchesQuery(doc map[string]any, query string) bool {
	if query == "" || query == "*" {
		return true
	}
	line, _ := doc["log"].(string)
	return strings.Contains(line, query)
}

func matchesFilter(doc map[string]any, filter []model.Condition) bool {
	for _, c := range filter {
		value := fmt.Sprint(doc[c.Field])
		switch c.Operator {
		case "is", "eq":
			if value != fmt.Sprint(c.Value) {
				return false
			}
		case "is one of":
			values, ok := c.Value.([]string)
			if ok && !slices.Contains(values, value) {
				return false
			}
		}
	}
	return true
}

func compareDocs(a, b map[string]any, sortList []model.SortItem) int {
	for _, item := range sortList {
		c := compareValues(a[item.Field], b[item.Field])
		if item.Order == "desc" {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareValues(a, b any) int {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		return cmp.Compare(af, bf)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// afterCursor drops hits up to and including the one matching the search-after values
func afterCursor(hits []model.RawHit, sortList []model.SortItem, searchAfter []any) []model.RawHit {
	if len(searchAfter) == 0 {
		return hits
	}
	for i, hit := range hits {
		var source map[string]any
		if err := json.Unmarshal(hit.Source, &source); err != nil {
			continue
		}
		cursor := make(map[string]any, len(sortList))
		for j, item := range sortList {
			if j < len(searchAfter) {
				cursor[item.Field] = searchAfter[j]
			}
		}
		if compareDocs(source, cursor, sortList) > 0 {
			return hits[i:]
		}
	}
	return nil
}

func fieldType(name string, v any) string {
	switch v.(type) {
	case int, int64, float64:
		if name == "dtEventTimeStamp" {
			return "date"
		}
		return "long"
	case bool:
		return "boolean"
	}
	if name == "log" {
		return "text"
	}
	return "keyword"
}

func pop(queue *[]Response) (Response, bool) {
	if len(*queue) == 0 {
		return Response{}, false
	}
	r := (*queue)[0]
	*queue = (*queue)[1:]
	return r, true
}

// Test helper methods for setting up mock responses

// SetDocuments replaces the stored documents
func (m *MockDocStore) SetDocuments(docs ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = docs
}

// AddSearchResponse queues the answer of the next Search call
func (m *MockDocStore) AddSearchResponse(result *model.RawResultSet, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchResponses = append(m.searchResponses, Response{Result: result, Err: err})
}

// AddScrollResponse queues the answer of the next Scroll call
func (m *MockDocStore) AddScrollResponse(result *model.RawResultSet, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrollResponses = append(m.scrollResponses, Response{Result: result, Err: err})
}

// AddDSLResponse queues the answer of the next DSL call
func (m *MockDocStore) AddDSLResponse(result *model.RawResultSet, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dslResponses = append(m.dslResponses, Response{Result: result, Err: err})
}

// SetIsReadyError sets the mock error for IsReady calls
func (m *MockDocStore) SetIsReadyError(err error) {
	m.isReadyError = err
}

// SearchCalls returns the payloads received by Search
func (m *MockDocStore) SearchCalls() []model.QueryPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.searchCalls)
}

// ScrollCalls returns the cursors received by Scroll
func (m *MockDocStore) ScrollCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.scrollCalls)
}

// ClearedScrolls returns the cursors released through ClearScroll
func (m *MockDocStore) ClearedScrolls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.clearedScrolls)
}

// DSLBodies returns the bodies received by DSL
func (m *MockDocStore) DSLBodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.dslBodies)
}

// Page builds a result set of count generated hits. Each hit carries a dtEventTimeStamp,
// a gseIndex and a log line so it can feed search-after cursors.
func Page(total, count int, scrollID string) *model.RawResultSet {
	hits := make([]model.RawHit, 0, count)
	for i := range count {
		source, _ := json.Marshal(map[string]any{
			"dtEventTimeStamp": 1700000000000 - i,
			"gseIndex":         count - i,
			"iterationIndex":   0,
			"log":              fmt.Sprintf("line %d", i),
		})
		hits = append(hits, model.RawHit{Index: "log_index_1", ID: fmt.Sprintf("hit-%d", i), Source: source})
	}
	return &model.RawResultSet{
		Took:     1,
		Hits:     model.Hits{Total: model.HitsTotal(total), Hits: hits},
		ScrollID: scrollID,
	}
}

// Hits builds a result set from the given sources
func Hits(sources ...map[string]any) *model.RawResultSet {
	hits := make([]model.RawHit, 0, len(sources))
	for i, s := range sources {
		source, _ := json.Marshal(s)
		hits = append(hits, model.RawHit{Index: "log_index_1", ID: fmt.Sprintf("hit-%d", i), Source: source})
	}
	return &model.RawResultSet{
		Took: 1,
		Hits: model.Hits{Total: model.HitsTotal(len(hits)), Hits: hits},
	}
}
