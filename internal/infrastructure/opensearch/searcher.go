// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package opensearch

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

var searchBodyTemplate = template.Must(
	template.New("searchBody").
		Funcs(template.FuncMap{
			"json": toJSON,
		}).
		Parse(searchBodySource))

const searchBodySource = `{
  "from": {{ .From }},
  "size": {{ .Size }},
  "track_total_hits": true,
  "query": {{ json .Query }}
  {{- if .Sort }},
  "sort": {{ json .Sort }}
  {{- end }}
  {{- if .SearchAfter }},
  "search_after": {{ json .SearchAfter }}
  {{- end }}
  {{- if .Aggs }},
  "aggs": {{ json .Aggs }}
  {{- end }}
  {{- if .Highlight }},
  "highlight": {{ json .Highlight }}
  {{- end }}
  {{- if .Collapse }},
  "collapse": {{ json .Collapse }}
  {{- end }}
}`

// searchBody is the data the search body template renders
type searchBody struct {
	From        int
	Size        int
	Query       map[string]any
	Sort        []any
	SearchAfter []any
	Aggs        map[string]any
	Highlight   map[string]any
	Collapse    map[string]any
}

// OpenSearchSearcher implements the DocStoreClient and MappingReader interfaces for OpenSearch
type OpenSearchSearcher struct {
	client OpenSearchClientRetriever
	now    func() time.Time
}

// OpenSearchClientRetriever defines the interface for OpenSearch operations
// This allows for easy mocking and testing
type OpenSearchClientRetriever interface {
	Search(ctx context.Context, indices []string, body []byte, scroll time.Duration) ([]byte, error)
	ScrollGet(ctx context.Context, scrollID string, ttl time.Duration) ([]byte, error)
	ScrollDelete(ctx context.Context, scrollID string) error
	Mapping(ctx context.Context, indices []string) (map[string]json.RawMessage, error)
	Health(ctx context.Context) (*clusterHealth, error)
}

// Search implements the DocStoreClient interface
func (os *OpenSearchSearcher) Search(ctx context.Context, payload model.QueryPayload) (*model.RawResultSet, error) {
	body, err := os.Render(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to render query: %w", err)
	}

	data, err := os.client.Search(ctx, splitIndices(payload.Indices), body, payload.Scroll)
	if err != nil {
		return nil, fmt.Errorf("opensearch search failed: %w", err)
	}
	result, err := decodeResult(data)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "opensearch search completed",
		"indices", payload.Indices,
		"hits", len(result.Hits.Hits),
		"total", result.Hits.Total,
		"took", result.Took,
	)
	return result, nil
}

// Scroll implements the DocStoreClient interface
func (os *OpenSearchSearcher) Scroll(ctx context.Context, scrollID string, ttl time.Duration) (*model.RawResultSet, error) {
	data, err := os.client.ScrollGet(ctx, scrollID, ttl)
	if err != nil {
		return nil, fmt.Errorf("opensearch scroll failed: %w", err)
	}
	return decodeResult(data)
}

// ClearScroll implements the DocStoreClient interface
func (os *OpenSearchSearcher) ClearScroll(ctx context.Context, scrollID string) error {
	if err := os.client.ScrollDelete(ctx, scrollID); err != nil {
		return fmt.Errorf("opensearch clear scroll failed: %w", err)
	}
	return nil
}

// DSL implements the DocStoreClient interface
func (os *OpenSearchSearcher) DSL(ctx context.Context, indices, scenarioID string, body []byte) (*model.RawResultSet, error) {
	slog.DebugContext(ctx, "executing opensearch dsl",
		"indices", indices,
		"scenario_id", scenarioID,
	)

	data, err := os.client.Search(ctx, splitIndices(indices), body, 0)
	if err != nil {
		return nil, fmt.Errorf("opensearch dsl search failed: %w", err)
	}
	return decodeResult(data)
}

// Mapping implements the MappingReader interface. Fields of every index are merged,
// the first index declaring a field wins.
func (os *OpenSearchSearcher) Mapping(ctx context.Context, indices, scenarioID string, clusterID int) ([]model.FieldDescriptor, error) {
	mappings, err := os.client.Mapping(ctx, splitIndices(indices))
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping of %s: %w", indices, err)
	}

	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	slices.Sort(names)

	seen := make(map[string]bool)
	var fields []model.FieldDescriptor
	for _, name := range names {
		var document mappingDocument
		if err := json.Unmarshal(mappings[name], &document); err != nil {
			return nil, errors.NewDataShape(fmt.Sprintf("failed to decode mapping of %s", name), err)
		}
		for _, f := range flattenMapping(document.Properties, "", false) {
			if seen[f.FieldName] {
				continue
			}
			seen[f.FieldName] = true
			fields = append(fields, f)
		}
	}
	slices.SortFunc(fields, func(a, b model.FieldDescriptor) int {
		return cmp.Compare(a.FieldName, b.FieldName)
	})

	slog.DebugContext(ctx, "opensearch mapping read",
		"indices", indices,
		"scenario_id", scenarioID,
		"storage_cluster_id", clusterID,
		"fields", len(fields),
	)
	return fields, nil
}

// IsReady implements the DocStoreClient interface
func (os *OpenSearchSearcher) IsReady(ctx context.Context) error {
	health, err := os.client.Health(ctx)
	if err != nil {
		return errors.NewServiceUnavailable("opensearch is not reachable", err)
	}
	if health.Status == "red" {
		return errors.NewServiceUnavailable(fmt.Sprintf("opensearch cluster %s is red", health.ClusterName))
	}
	return nil
}

// Render generates the search body of a payload
func (os *OpenSearchSearcher) Render(ctx context.Context, payload model.QueryPayload) ([]byte, error) {
	query, err := buildQuery(payload, os.now())
	if err != nil {
		return nil, err
	}

	data := searchBody{
		From:        payload.Start,
		Size:        payload.Size,
		Query:       query,
		Sort:        sortClause(payload.SortList),
		SearchAfter: payload.SearchAfter,
		Aggs:        payload.Aggs,
		Highlight:   payload.Highlight,
		Collapse:    payload.Collapse,
	}
	// search_after pages are positioned by the cursor only
	if len(data.SearchAfter) > 0 {
		data.From = 0
	}

	var buf bytes.Buffer
	if err := searchBodyTemplate.Execute(&buf, data); err != nil {
		slog.ErrorContext(ctx, "failed to render query template", "error", err)
		return nil, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, buf.Bytes()); err != nil {
		slog.ErrorContext(ctx, "rendered query is not valid json", "error", err)
		return nil, err
	}
	return compact.Bytes(), nil
}

// flattenMapping lists the leaf fields of a mapping with dotted names. Object nodes are
// walked through; nested nodes are listed themselves and mark everything beneath them.
func flattenMapping(properties map[string]mappingProperty, prefix string, nested bool) []model.FieldDescriptor {
	var fields []model.FieldDescriptor
	for name, prop := range properties {
		fullName := name
		if prefix != "" {
			fullName = prefix + "." + name
		}

		switch {
		case prop.Type == "nested":
			fields = append(fields, model.FieldDescriptor{FieldName: fullName, FieldType: prop.Type, Nested: true})
			fields = append(fields, flattenMapping(prop.Properties, fullName, true)...)
		case prop.Type == "" || prop.Type == "object":
			fields = append(fields, flattenMapping(prop.Properties, fullName, nested)...)
		default:
			docValues := prop.Type != "text"
			if prop.DocValues != nil {
				docValues = *prop.DocValues
			}
			fields = append(fields, model.FieldDescriptor{
				FieldName:   fullName,
				FieldType:   prop.Type,
				EsDocValues: docValues,
				Nested:      nested,
			})
		}
	}
	return fields
}

func decodeResult(data []byte) (*model.RawResultSet, error) {
	var result model.RawResultSet
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewDataShape("failed to decode search response", err)
	}
	return &result, nil
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// splitIndices turns a comma separated index list into its trimmed names
func splitIndices(indices string) []string {
	var names []string
	for _, name := range strings.Split(indices, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// NewSearcher returns a new OpenSearchSearcher implementation
func NewSearcher(ctx context.Context, config Config) (*OpenSearchSearcher, error) {
	if config.URL == "" {
		slog.ErrorContext(ctx, "opensearch URL is required")
		return nil, fmt.Errorf("opensearch URL is required")
	}

	client, err := newAPIClient(config)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create OpenSearch client", "error", err)
		return nil, err
	}
	return newSearcher(client), nil
}

func newSearcher(client OpenSearchClientRetriever) *OpenSearchSearcher {
	return &OpenSearchSearcher{
		client: client,
		now:    time.Now,
	}
}

var (
	_ port.DocStoreClient = (*OpenSearchSearcher)(nil)
	_ port.MappingReader  = (*OpenSearchSearcher)(nil)
)
