// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
)

// DocStoreClient defines the round trips the search engine issues against the document store.
// Every method may fail with errors.TransientBackend on timeouts or retryable statuses,
// and with errors.DataShape when the response cannot be decoded.
type DocStoreClient interface {
	// Search runs one page described by the payload; a positive payload.Scroll opens a scroll cursor
	Search(ctx context.Context, payload model.QueryPayload) (*model.RawResultSet, error)

	// Scroll exchanges a scroll cursor for the next page and a refreshed cursor
	Scroll(ctx context.Context, scrollID string, ttl time.Duration) (*model.RawResultSet, error)

	// ClearScroll releases a scroll cursor
	ClearScroll(ctx context.Context, scrollID string) error

	// DSL runs a raw query body, used by context and tail views
	DSL(ctx context.Context, indices, scenarioID string, body []byte) (*model.RawResultSet, error)

	// IsReady checks if the document store is ready
	IsReady(ctx context.Context) error
}

// MappingReader reads the field mapping of physical indices
type MappingReader interface {
	Mapping(ctx context.Context, indices, scenarioID string, clusterID int) ([]model.FieldDescriptor, error)
}

// FieldCatalog resolves the searchable fields of physical indices; implementations may cache
type FieldCatalog interface {
	FieldsFor(ctx context.Context, indices, scenarioID string, clusterID int, startTime, endTime string) ([]model.FieldDescriptor, error)
}
