// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

// PaginationSettings bounds the continuation loops
type PaginationSettings struct {
	// MaxResultWindow is the most hits one backend call returns
	MaxResultWindow int
	// MaxSearchSize is the most hits a scroll-mode search may ask for
	MaxSearchSize int
	// MaxRetry is the number of attempts of a page fetch failing with a transient error
	MaxRetry int
	// ScrollEnabled turns on scroll continuation of interactive searches
	ScrollEnabled bool
	ScrollTTL     time.Duration
}

// DefaultPaginationSettings returns the production ceilings
func DefaultPaginationSettings() PaginationSettings {
	return PaginationSettings{
		MaxResultWindow: constants.MaxResultWindow,
		MaxSearchSize:   constants.MaxSearchSize,
		MaxRetry:        constants.MaxExportRequestRetry,
		ScrollEnabled:   true,
		ScrollTTL:       constants.DefaultScrollTTL,
	}
}

// PaginationEngine drives plain, scroll and search-after pagination against the document store
type PaginationEngine struct {
	store    port.DocStoreClient
	settings PaginationSettings
}

// EffectiveSize applies the size ceilings: scroll mode rejects sizes above MaxSearchSize,
// plain mode silently clamps to the result window.
func (e *PaginationEngine) EffectiveSize(size int, scroll bool) (int, error) {
	if size <= 0 {
		size = constants.DefaultSearchSize
	}
	if !scroll {
		return min(size, e.settings.MaxResultWindow), nil
	}
	if size > e.settings.MaxSearchSize {
		return 0, errors.NewValidation(fmt.Sprintf("requested size %d exceeds the maximum search size %d", size, e.settings.MaxSearchSize))
	}
	return size, nil
}

// Collect runs a search of the requested size, continuing through a scroll cursor when a single
// window cannot hold it. It never returns more than size hits and discards everything on failure.
func (e *PaginationEngine) Collect(ctx context.Context, builder *QueryBuilder, scenarioID string, size int) (*model.RawResultSet, error) {
	scroll := e.settings.ScrollEnabled
	size, err := e.EffectiveSize(size, scroll)
	if err != nil {
		return nil, err
	}

	window := e.settings.MaxResultWindow
	continuable := scroll && size > window && profileFor(scenarioID).scrollCapable

	opts := []PageOption{WithSize(min(size, window))}
	if continuable {
		opts = append(opts, WithScroll(e.settings.ScrollTTL))
	}

	result, err := e.fetch(ctx, func(ctx context.Context) (*model.RawResultSet, error) {
		return e.store.Search(ctx, builder.Build(opts...))
	})
	if err != nil {
		return nil, err
	}

	scrollID := result.ScrollID
	defer func() {
		e.release(ctx, scrollID)
	}()

	if !continuable || int(result.Hits.Total) <= window {
		slog.DebugContext(ctx, "search completed in a single page",
			"hits", len(result.Hits.Hits),
			"total", result.Hits.Total,
		)
		return result, nil
	}

	pageSize := len(result.Hits.Hits)
	calls := 1
	for pageSize == window && len(result.Hits.Hits) < size {
		if scrollID == "" {
			slog.DebugContext(ctx, "scroll cursor missing, treating as exhausted")
			break
		}

		current := scrollID
		page, err := e.fetch(ctx, func(ctx context.Context) (*model.RawResultSet, error) {
			return e.store.Scroll(ctx, current, e.settings.ScrollTTL)
		})
		if err != nil {
			return nil, err
		}
		calls++

		if page.ScrollID != "" && page.ScrollID != scrollID {
			e.release(ctx, scrollID)
		}
		scrollID = page.ScrollID

		pageSize = len(page.Hits.Hits)
		remaining := size - len(result.Hits.Hits)
		hits := page.Hits.Hits
		if remaining < len(hits) {
			hits = hits[:remaining]
		}
		result.Hits.Hits = append(result.Hits.Hits, hits...)
		result.Hits.Total = page.Hits.Total
	}

	slog.DebugContext(ctx, "scroll search completed",
		"calls", calls,
		"hits", len(result.Hits.Hits),
		"total", result.Hits.Total,
	)

	return result, nil
}

// StreamRequest describes an export pull
type StreamRequest struct {
	ScenarioID string
	// SortedFields is the tie-free field list search-after cursors are composed from
	SortedFields []string
	// Size is the total number of hits to export
	Size int
	// Resume continues after these sort values instead of starting from the first hit
	Resume []any
	// Exported counts hits already delivered before Resume
	Exported int
}

// Stream yields export pages one by one. Every page after the first continues after the
// last hit of the previous one; the scroll-capable raw scenario uses a scroll cursor instead.
// Pages already yielded stay valid when a later fetch fails: the error is yielded once and
// the sequence ends. Stopping early releases the scroll cursor.
func (e *PaginationEngine) Stream(ctx context.Context, builder *QueryBuilder, req StreamRequest) iter.Seq2[*model.RawResultSet, error] {
	return func(yield func(*model.RawResultSet, error) bool) {
		size, err := e.EffectiveSize(req.Size, true)
		if err != nil {
			yield(nil, err)
			return
		}

		if req.ScenarioID == constants.ScenarioES {
			if len(req.Resume) > 0 {
				yield(nil, errors.NewValidation("export resume is not supported for scroll based exports"))
				return
			}
			e.streamScroll(ctx, builder, size, yield)
			return
		}
		e.streamSearchAfter(ctx, builder, req, size, yield)
	}
}

func (e *PaginationEngine) streamSearchAfter(ctx context.Context, builder *QueryBuilder, req StreamRequest, size int, yield func(*model.RawResultSet, error) bool) {
	window := e.settings.MaxResultWindow
	sortList := make([]model.SortItem, 0, len(req.SortedFields))
	for _, f := range req.SortedFields {
		sortList = append(sortList, model.SortItem{Field: f, Order: constants.AsyncSorted})
	}

	exported := req.Exported
	searchAfter := req.Resume
	for exported < size {
		opts := []PageOption{WithSort(sortList), WithSize(min(window, size-exported))}
		if len(searchAfter) > 0 {
			opts = append(opts, WithSearchAfter(searchAfter))
		}

		page, err := e.fetch(ctx, func(ctx context.Context) (*model.RawResultSet, error) {
			return e.store.Search(ctx, builder.Build(opts...))
		})
		if err != nil {
			yield(nil, err)
			return
		}

		pageSize := len(page.Hits.Hits)
		exported += pageSize
		if !yield(page, nil) {
			return
		}
		if pageSize < window || pageSize == 0 {
			return
		}

		searchAfter, err = SearchAfterValues(page.Hits.Hits[pageSize-1], req.SortedFields)
		if err != nil {
			yield(nil, err)
			return
		}
	}
}

func (e *PaginationEngine) streamScroll(ctx context.Context, builder *QueryBuilder, size int, yield func(*model.RawResultSet, error) bool) {
	window := e.settings.MaxResultWindow

	page, err := e.fetch(ctx, func(ctx context.Context) (*model.RawResultSet, error) {
		return e.store.Search(ctx, builder.Build(WithSize(min(window, size)), WithScroll(e.settings.ScrollTTL)))
	})
	if err != nil {
		yield(nil, err)
		return
	}

	scrollID := page.ScrollID
	defer func() {
		e.release(ctx, scrollID)
	}()

	exported := len(page.Hits.Hits)
	if !yield(page, nil) {
		return
	}

	pageSize := exported
	for pageSize == window && exported < size {
		if scrollID == "" {
			return
		}
		current := scrollID
		page, err = e.fetch(ctx, func(ctx context.Context) (*model.RawResultSet, error) {
			return e.store.Scroll(ctx, current, e.settings.ScrollTTL)
		})
		if err != nil {
			yield(nil, err)
			return
		}
		if page.ScrollID != "" && page.ScrollID != scrollID {
			e.release(ctx, scrollID)
		}
		scrollID = page.ScrollID

		pageSize = len(page.Hits.Hits)
		if remaining := size - exported; remaining < pageSize {
			page.Hits.Hits = page.Hits.Hits[:remaining]
		}
		exported += len(page.Hits.Hits)
		if !yield(page, nil) {
			return
		}
	}
}

// fetch runs one page round trip, retrying transient failures up to MaxRetry attempts
func (e *PaginationEngine) fetch(ctx context.Context, call func(context.Context) (*model.RawResultSet, error)) (*model.RawResultSet, error) {
	attempts := max(e.settings.MaxRetry, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := call(ctx)
		if err == nil {
			if result == nil {
				return nil, errors.NewDataShape("document store returned an empty response")
			}
			return result, nil
		}
		if !errors.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		slog.WarnContext(ctx, "transient document store failure",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
	}
	return nil, fmt.Errorf("page fetch failed after %d attempts: %w", attempts, lastErr)
}

// release clears a scroll cursor; failures are only logged
func (e *PaginationEngine) release(ctx context.Context, scrollID string) {
	if scrollID == "" {
		return
	}
	if err := e.store.ClearScroll(context.WithoutCancel(ctx), scrollID); err != nil {
		slog.WarnContext(ctx, "failed to clear scroll cursor",
			"error", err,
		)
	}
}

// SearchAfterValues composes a search-after cursor from the _source values of a hit
func SearchAfterValues(hit model.RawHit, sortedFields []string) ([]any, error) {
	var source map[string]any
	decoder := json.NewDecoder(bytes.NewReader(hit.Source))
	decoder.UseNumber()
	if err := decoder.Decode(&source); err != nil {
		return nil, errors.NewDataShape("failed to decode hit source for search after", err)
	}

	values := make([]any, 0, len(sortedFields))
	for _, f := range sortedFields {
		values = append(values, source[f])
	}
	return values, nil
}

// NewPaginationEngine creates an engine over the given document store
func NewPaginationEngine(store port.DocStoreClient, settings PaginationSettings) *PaginationEngine {
	return &PaginationEngine{
		store:    store,
		settings: settings,
	}
}
