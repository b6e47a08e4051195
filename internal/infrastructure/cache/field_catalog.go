// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package cache keeps mapping-derived field lists close to the search engine.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
)

const (
	defaultCatalogSize = 1024
	warmWorkers        = 4
)

// FieldCatalog caches the field lists read through a MappingReader.
// Entries expire after the configured TTL; concurrent misses on the same indices share one read.
type FieldCatalog struct {
	reader port.MappingReader
	cache  *expirable.LRU[string, []model.FieldDescriptor]
	group  singleflight.Group
}

// FieldsFor implements the FieldCatalog interface. The time window does not narrow the
// mapping: entries are keyed by indices, scenario and storage cluster. Empty mappings
// are returned but never cached, so a freshly created index is read again next time.
func (c *FieldCatalog) FieldsFor(ctx context.Context, indices, scenarioID string, clusterID int, startTime, endTime string) ([]model.FieldDescriptor, error) {
	key := cacheKey(indices, scenarioID, clusterID)
	if fields, ok := c.cache.Get(key); ok {
		return slices.Clone(fields), nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// shared by every waiter, so detached from the first caller's cancellation
		fields, err := c.reader.Mapping(context.WithoutCancel(ctx), indices, scenarioID, clusterID)
		if err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			c.cache.Add(key, fields)
		}
		return fields, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read fields of %s: %w", indices, err)
	}

	fields := v.([]model.FieldDescriptor)
	slog.DebugContext(ctx, "field catalog refreshed",
		"indices", indices,
		"fields", len(fields),
		"shared", shared,
	)
	return slices.Clone(fields), nil
}

// Warm loads the field lists of every applied index set, a few at a time.
// Failures are logged and skipped.
func (c *FieldCatalog) Warm(ctx context.Context, repo port.IndexSetReader) error {
	indexSets, err := repo.IndexSets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list index sets: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmWorkers)

	for _, indexSet := range indexSets {
		g.Go(func() error {
			data, err := repo.IndexSetData(ctx, indexSet.IndexSetID, true)
			if err != nil || len(data) == 0 {
				return nil
			}
			tables := make([]string, 0, len(data))
			for _, d := range data {
				tables = append(tables, d.ResultTableID)
			}
			indices := strings.Join(tables, ",")
			if _, err := c.FieldsFor(ctx, indices, indexSet.ScenarioID, indexSet.StorageClusterID, "", ""); err != nil {
				slog.WarnContext(ctx, "failed to warm field catalog",
					"index_set_id", indexSet.IndexSetID,
					"error", err,
				)
			}
			return nil
		})
	}
	return g.Wait()
}

// Len returns the number of cached field lists
func (c *FieldCatalog) Len() int {
	return c.cache.Len()
}

func cacheKey(indices, scenarioID string, clusterID int) string {
	return fmt.Sprintf("%s|%s|%d", scenarioID, indices, clusterID)
}

// NewFieldCatalog creates a catalog over reader keeping entries for ttl
func NewFieldCatalog(reader port.MappingReader, ttl time.Duration) *FieldCatalog {
	return &FieldCatalog{
		reader: reader,
		cache:  expirable.NewLRU[string, []model.FieldDescriptor](defaultCatalogSize, nil, ttl),
	}
}

var _ port.FieldCatalog = (*FieldCatalog)(nil)
