// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/global"
)

// Settings tunes the search engine
type Settings struct {
	Pagination PaginationSettings
	// TimeFieldPreCheck validates the time field against the field catalog before searching
	TimeFieldPreCheck bool
	HistoryWindow     time.Duration
	// PageTokenSecret encrypts export resume tokens; the process-wide secret is used when nil
	PageTokenSecret *[32]byte
}

// DefaultSettings returns the production settings
func DefaultSettings() Settings {
	return Settings{
		Pagination:    DefaultPaginationSettings(),
		HistoryWindow: constants.HistoryRecordWindow,
	}
}

// LogSearch is the long-lived search service. It owns the collaborators and the state
// shared across requests (history suppression) and creates one SearchHandler per request.
type LogSearch struct {
	store    port.DocStoreClient
	catalog  port.FieldCatalog
	hosts    port.HostResolver
	repo     port.Repository
	settings Settings

	normalizer *AdditionNormalizer
	sorts      *SortResolver
	pager      *PaginationEngine
	contexts   *ContextWindowResolver
	history    *HistoryRecorder
}

// Search runs an interactive search and records it in the history under searchType;
// an empty searchType skips recording
func (s *LogSearch) Search(ctx context.Context, req model.SearchRequest, searchType string) (*model.SearchResult, error) {
	h, err := s.NewSearchHandler(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Search(ctx, searchType)
}

// Export streams the search page by page, resuming after pageToken when given
func (s *LogSearch) Export(ctx context.Context, req model.SearchRequest, pageToken string) (iter.Seq2[*model.SearchResult, error], error) {
	h, err := s.NewSearchHandler(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Export(ctx, pageToken)
}

// Context returns the lines around the anchor of the request
func (s *LogSearch) Context(ctx context.Context, req model.SearchRequest) (*model.ContextResult, error) {
	h, err := s.NewSearchHandler(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Context(ctx)
}

// Tail returns the latest lines of the anchor's source
func (s *LogSearch) Tail(ctx context.Context, req model.SearchRequest) (*model.ContextResult, error) {
	h, err := s.NewSearchHandler(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Tail(ctx)
}

// Fields describes the fields and feature switches of the index set of the request
func (s *LogSearch) Fields(ctx context.Context, req model.SearchRequest, scope string) (*model.FieldsResult, error) {
	h, err := s.NewSearchHandler(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Fields(ctx, scope)
}

// VerifySortList checks that every field of sortList can be sorted on in the index set
func (s *LogSearch) VerifySortList(ctx context.Context, indexSetID int, sortList [][]string) error {
	h, err := s.NewSearchHandler(ctx, model.SearchRequest{IndexSetID: indexSetID})
	if err != nil {
		return err
	}
	return h.VerifySortList(sortList)
}

// History lists the caller's latest distinct searches on an index set
func (s *LogSearch) History(ctx context.Context, indexSetID int) ([]model.HistoryEntry, error) {
	username, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	return s.history.List(ctx, username, indexSetID)
}

// SaveHistory persists the history object of an interactive search with its duration
func (s *LogSearch) SaveHistory(ctx context.Context, obj model.HistoryObj, duration time.Duration) error {
	username, err := principal(ctx)
	if err != nil {
		return err
	}
	_, err = s.history.Save(ctx, username, obj, duration)
	return err
}

// HistoryByRange lists the distinct searches of every user within a time window
func (s *LogSearch) HistoryByRange(ctx context.Context, start, end time.Time) ([]model.HistoryEntry, error) {
	return s.history.ListByRange(ctx, start, end)
}

// IsReady checks every collaborator the engine cannot work without
func (s *LogSearch) IsReady(ctx context.Context) error {
	checks := []func(context.Context) error{s.store.IsReady, s.repo.IsReady}
	if s.hosts != nil {
		checks = append(checks, s.hosts.IsReady)
	}
	var errs []error
	for _, check := range checks {
		if err := check(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		slog.WarnContext(ctx, "log search is not ready", "error", errors.Join(errs...))
		return errors.Join(errs...)
	}
	return nil
}

func (s *LogSearch) pageTokenSecret(ctx context.Context) *[32]byte {
	if s.settings.PageTokenSecret != nil {
		return s.settings.PageTokenSecret
	}
	return global.PageTokenSecret(ctx)
}

// principal returns the username the security layer stored in the context
func principal(ctx context.Context) (string, error) {
	username, ok := ctx.Value(constants.PrincipalContextID).(string)
	if !ok || username == "" {
		return "", errors.New("authenticated principal is missing")
	}
	return username, nil
}

// NewLogSearch wires the search engine over its collaborators
func NewLogSearch(store port.DocStoreClient, catalog port.FieldCatalog, hosts port.HostResolver, repo port.Repository, settings Settings) *LogSearch {
	return &LogSearch{
		store:      store,
		catalog:    catalog,
		hosts:      hosts,
		repo:       repo,
		settings:   settings,
		normalizer: NewAdditionNormalizer(hosts),
		sorts:      NewSortResolver(repo),
		pager:      NewPaginationEngine(store, settings.Pagination),
		contexts:   NewContextWindowResolver(store),
		history:    NewHistoryRecorder(repo, repo, settings.HistoryWindow),
	}
}
