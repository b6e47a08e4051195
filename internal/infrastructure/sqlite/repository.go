// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package sqlite stores index sets, user preferences and search history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Repository implements port.Repository over SQLite
type Repository struct {
	db *sql.DB
}

const indexSetColumns = `index_set_id, index_set_name, scenario_id, storage_cluster_id, bk_biz_id,
	collector_config_id, source_app_code, time_field, time_field_type, time_field_unit, ip_topo_switch`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIndexSet(row rowScanner) (model.IndexSet, error) {
	var is model.IndexSet
	err := row.Scan(&is.IndexSetID, &is.IndexSetName, &is.ScenarioID, &is.StorageClusterID, &is.BizID,
		&is.CollectorConfigID, &is.SourceAppCode, &is.TimeField, &is.TimeFieldType, &is.TimeFieldUnit, &is.IPTopoSwitch)
	return is, err
}

// IndexSet implements the Repository interface
func (r *Repository) IndexSet(ctx context.Context, indexSetID int) (*model.IndexSet, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+indexSetColumns+" FROM index_sets WHERE index_set_id = ?", indexSetID)
	is, err := scanIndexSet(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound(fmt.Sprintf("index set %d does not exist", indexSetID))
	}
	if err != nil {
		return nil, errors.NewUnexpected("failed to read index set", err)
	}
	return &is, nil
}

// IndexSets implements the Repository interface
func (r *Repository) IndexSets(ctx context.Context) ([]model.IndexSet, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+indexSetColumns+" FROM index_sets ORDER BY index_set_id")
	if err != nil {
		return nil, errors.NewUnexpected("failed to list index sets", err)
	}
	defer rows.Close()

	var indexSets []model.IndexSet
	for rows.Next() {
		is, err := scanIndexSet(rows)
		if err != nil {
			return nil, errors.NewUnexpected("failed to scan index set", err)
		}
		indexSets = append(indexSets, is)
	}
	return indexSets, rows.Err()
}

// IndexSetData implements the Repository interface
func (r *Repository) IndexSetData(ctx context.Context, indexSetID int, appliedOnly bool) ([]model.IndexSetData, error) {
	query := "SELECT index_set_id, result_table_id, time_field, applied FROM index_set_data WHERE index_set_id = ?"
	if appliedOnly {
		query += " AND applied = 1"
	}
	query += " ORDER BY result_table_id"

	rows, err := r.db.QueryContext(ctx, query, indexSetID)
	if err != nil {
		return nil, errors.NewUnexpected("failed to list index set data", err)
	}
	defer rows.Close()

	var data []model.IndexSetData
	for rows.Next() {
		var d model.IndexSetData
		if err := rows.Scan(&d.IndexSetID, &d.ResultTableID, &d.TimeField, &d.Applied); err != nil {
			return nil, errors.NewUnexpected("failed to scan index set data", err)
		}
		data = append(data, d)
	}
	return data, rows.Err()
}

// UserIndexSetConfig implements the Repository interface
func (r *Repository) UserIndexSetConfig(ctx context.Context, indexSetID int, username, scope string) (*model.UserIndexSetConfig, error) {
	var (
		config                  = model.UserIndexSetConfig{IndexSetID: indexSetID, CreatedBy: username, Scope: scope}
		sortList, displayFields string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT sort_list, display_fields FROM user_index_set_configs
		WHERE index_set_id = ? AND created_by = ? AND scope = ? AND is_deleted = 0`,
		indexSetID, username, scope,
	).Scan(&sortList, &displayFields)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewUnexpected("failed to read user index set config", err)
	}

	if err := json.Unmarshal([]byte(sortList), &config.SortList); err != nil {
		return nil, errors.NewDataShape("invalid stored sort list", err)
	}
	if err := json.Unmarshal([]byte(displayFields), &config.DisplayFields); err != nil {
		return nil, errors.NewDataShape("invalid stored display fields", err)
	}
	return &config, nil
}

// ClusteringConfig implements the Repository interface
func (r *Repository) ClusteringConfig(ctx context.Context, indexSetID int) (*model.ClusteringConfig, error) {
	config := model.ClusteringConfig{IndexSetID: indexSetID}
	err := r.db.QueryRowContext(ctx,
		"SELECT signature_enable, clustering_fields FROM clustering_configs WHERE index_set_id = ?",
		indexSetID,
	).Scan(&config.SignatureEnable, &config.ClusteringFields)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewUnexpected("failed to read clustering config", err)
	}
	return &config, nil
}

// CreateSearchHistory implements the Repository interface
func (r *Repository) CreateSearchHistory(ctx context.Context, entry model.HistoryEntry) (int64, error) {
	params, err := json.Marshal(entry.Params)
	if err != nil {
		return 0, errors.NewUnexpected("failed to encode history params", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO search_history (index_set_id, params, search_type, rank, duration, created_by, created_at, is_deleted, bk_biz_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.IndexSetID, string(params), entry.SearchType, entry.Rank, entry.Duration,
		entry.CreatedBy, createdAt.UnixMilli(), entry.IsDeleted, entry.BizID,
	)
	if err != nil {
		return 0, errors.NewUnexpected("failed to create search history", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.NewUnexpected("failed to read search history id", err)
	}
	slog.DebugContext(ctx, "search history created", "id", id)
	return id, nil
}

// ListSearchHistory implements the Repository interface
func (r *Repository) ListSearchHistory(ctx context.Context, filter model.HistoryFilter) ([]model.HistoryEntry, error) {
	var (
		where = []string{"is_deleted = 0"}
		args  []any
	)
	if filter.IndexSetID != 0 {
		where = append(where, "index_set_id = ?")
		args = append(args, filter.IndexSetID)
	}
	if filter.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if filter.SearchType != "" {
		where = append(where, "search_type = ?")
		args = append(args, filter.SearchType)
	}
	if !filter.CreatedAfter.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.CreatedAfter.UnixMilli())
	}
	if !filter.CreatedBefore.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.CreatedBefore.UnixMilli())
	}

	order := "rank DESC, created_at DESC, id DESC"
	if filter.OrderByUser {
		order = "created_by ASC, created_at DESC, id DESC"
	}

	query := `SELECT id, index_set_id, params, search_type, rank, duration, created_by, created_at, bk_biz_id
		FROM search_history WHERE ` + strings.Join(where, " AND ") + " ORDER BY " + order
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewUnexpected("failed to list search history", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var (
			entry     model.HistoryEntry
			params    string
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.IndexSetID, &params, &entry.SearchType, &entry.Rank,
			&entry.Duration, &entry.CreatedBy, &createdAt, &entry.BizID); err != nil {
			return nil, errors.NewUnexpected("failed to scan search history", err)
		}
		if err := json.Unmarshal([]byte(params), &entry.Params); err != nil {
			slog.WarnContext(ctx, "skipping history entry with invalid params",
				"id", entry.ID,
				"error", err,
			)
			continue
		}
		entry.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// IsReady implements the Repository interface
func (r *Repository) IsReady(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.NewServiceUnavailable("sqlite database is not available", err)
	}
	return nil
}

// Close implements the Repository interface
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveIndexSet inserts or replaces an index set together with its physical indices
func (r *Repository) SaveIndexSet(ctx context.Context, indexSet model.IndexSet, data ...model.IndexSetData) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO index_sets ("+indexSetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		indexSet.IndexSetID, indexSet.IndexSetName, indexSet.ScenarioID, indexSet.StorageClusterID, indexSet.BizID,
		indexSet.CollectorConfigID, indexSet.SourceAppCode, indexSet.TimeField, indexSet.TimeFieldType,
		indexSet.TimeFieldUnit, indexSet.IPTopoSwitch,
	); err != nil {
		return fmt.Errorf("saving index set %d: %w", indexSet.IndexSetID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM index_set_data WHERE index_set_id = ?", indexSet.IndexSetID); err != nil {
		return fmt.Errorf("clearing index set data: %w", err)
	}
	for _, d := range data {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO index_set_data (index_set_id, result_table_id, time_field, applied) VALUES (?, ?, ?, ?)",
			indexSet.IndexSetID, d.ResultTableID, d.TimeField, d.Applied,
		); err != nil {
			return fmt.Errorf("saving result table %s: %w", d.ResultTableID, err)
		}
	}
	return tx.Commit()
}

// SaveUserIndexSetConfig inserts or replaces a user's preferences
func (r *Repository) SaveUserIndexSetConfig(ctx context.Context, config model.UserIndexSetConfig) error {
	sortList, err := json.Marshal(config.SortList)
	if err != nil {
		return fmt.Errorf("encoding sort list: %w", err)
	}
	displayFields, err := json.Marshal(config.DisplayFields)
	if err != nil {
		return fmt.Errorf("encoding display fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_index_set_configs (index_set_id, created_by, scope, sort_list, display_fields, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?)`,
		config.IndexSetID, config.CreatedBy, config.Scope, string(sortList), string(displayFields), config.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("saving user index set config: %w", err)
	}
	return nil
}

// SaveClusteringConfig inserts or replaces the clustering setup of an index set
func (r *Repository) SaveClusteringConfig(ctx context.Context, config model.ClusteringConfig) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO clustering_configs (index_set_id, signature_enable, clustering_fields) VALUES (?, ?, ?)",
		config.IndexSetID, config.SignatureEnable, config.ClusteringFields,
	)
	if err != nil {
		return fmt.Errorf("saving clustering config: %w", err)
	}
	return nil
}

// NewRepository opens the database at path and applies pending migrations
func NewRepository(ctx context.Context, path string) (*Repository, error) {
	slog.InfoContext(ctx, "opening sqlite repository", "path", path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Repository{db: db}, nil
}

var _ port.Repository = (*Repository)(nil)
