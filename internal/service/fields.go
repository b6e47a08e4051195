// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
)

// fieldsEvaluator decides whether one feature is usable for the index set.
// A returned error only deactivates the feature; it never fails the fields call.
type fieldsEvaluator func(ctx context.Context, h *SearchHandler) (bool, map[string]any, error)

// fieldsConfigs is evaluated in order; the order is part of the response
var fieldsConfigs = []struct {
	name     string
	evaluate fieldsEvaluator
}{
	{"context_and_realtime", contextAndRealtimeConfig},
	{"bkmonitor", bkmonitorConfig},
	{"async_export", asyncExportConfig},
	{"ip_topo_switch", ipTopoSwitchConfig},
	{"clustering_config", clusteringConfig},
}

// Fields describes the catalog, display preferences and feature switches of the index set
func (h *SearchHandler) Fields(ctx context.Context, scope string) (*model.FieldsResult, error) {
	if scope == "" {
		scope = constants.DefaultSearchType
	}

	sortList, err := h.svc.sorts.Resolve(ctx, SortQuery{
		IndexSetID:  h.req.IndexSetID,
		Username:    h.username,
		Scope:       scope,
		ScenarioID:  h.indexSet.ScenarioID,
		Catalog:     h.catalog,
		RequestSort: h.sortList,
	})
	if err != nil {
		return nil, err
	}

	displayFields, err := h.displayFields(ctx, scope)
	if err != nil {
		return nil, err
	}

	result := &model.FieldsResult{
		Fields:        h.catalog,
		DisplayFields: displayFields,
		SortList:      sortList,
		TimeField:     h.timeField.Name,
		TimeFieldType: h.timeField.Type,
		TimeFieldUnit: h.timeField.Unit,
		Config:        make([]model.FieldConfig, 0, len(fieldsConfigs)),
	}
	if result.Fields == nil {
		result.Fields = []model.FieldDescriptor{}
	}

	for _, c := range fieldsConfigs {
		active, extra, err := c.evaluate(ctx, h)
		if err != nil {
			slog.WarnContext(ctx, "fields config evaluation failed",
				"name", c.name,
				"index_set_id", h.req.IndexSetID,
				"error", err,
			)
			active, extra = false, map[string]any{"reason": err.Error()}
		}
		result.Config = append(result.Config, model.FieldConfig{
			Name:     c.name,
			IsActive: active,
			Extra:    extra,
		})
	}

	return result, nil
}

// displayFields returns the user's saved columns still present in the catalog, or the time
// field followed by the log line
func (h *SearchHandler) displayFields(ctx context.Context, scope string) ([]string, error) {
	known := fieldNames(h.catalog)

	config, err := h.svc.repo.UserIndexSetConfig(ctx, h.req.IndexSetID, h.username, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load user index set config: %w", err)
	}

	display := []string{}
	if config != nil && !config.IsDeleted {
		for _, f := range config.DisplayFields {
			if known[f] {
				display = append(display, f)
			}
		}
	}
	if len(display) > 0 {
		return display, nil
	}

	display = append(display, h.timeField.Name)
	if known["log"] {
		display = append(display, "log")
	}
	return display, nil
}

func contextAndRealtimeConfig(_ context.Context, h *SearchHandler) (bool, map[string]any, error) {
	if !profileFor(h.indexSet.ScenarioID).liveDocument {
		return false, map[string]any{"reason": "scenario " + h.indexSet.ScenarioID + " has no line sequence"}, nil
	}
	if _, ok := sequencePairIn(fieldNames(h.catalog)); !ok {
		return false, map[string]any{"reason": "missing line sequence fields"}, nil
	}
	return true, map[string]any{"reason": ""}, nil
}

func bkmonitorConfig(_ context.Context, h *SearchHandler) (bool, map[string]any, error) {
	known := fieldNames(h.catalog)
	return known["ip"] || known["serverIp"], nil, nil
}

func asyncExportConfig(_ context.Context, h *SearchHandler) (bool, map[string]any, error) {
	fields, reason := exportSortFields(h.catalog, h.indexSet.ScenarioID, h.timeField.Name)
	if reason != "" {
		return false, map[string]any{"usable_reason": reason}, nil
	}
	return true, map[string]any{"fields": fields}, nil
}

func ipTopoSwitchConfig(_ context.Context, h *SearchHandler) (bool, map[string]any, error) {
	return h.indexSet.IPTopoSwitch, nil, nil
}

func clusteringConfig(ctx context.Context, h *SearchHandler) (bool, map[string]any, error) {
	config, err := h.svc.repo.ClusteringConfig(ctx, h.req.IndexSetID)
	if err != nil {
		return false, nil, err
	}
	if config == nil {
		return false, map[string]any{
			"collector_config_id": nil,
			"signature_switch":    false,
			"clustering_field":    nil,
		}, nil
	}
	return true, map[string]any{
		"collector_config_id": h.indexSet.CollectorConfigID,
		"signature_switch":    config.SignatureEnable,
		"clustering_field":    config.ClusteringFields,
	}, nil
}

// exportSortFields returns the fields an export pages on. Scroll based exports keep the search
// sort and need none. A non-empty reason means the index set cannot be exported.
func exportSortFields(catalog []model.FieldDescriptor, scenarioID, timeField string) ([]string, string) {
	if scenarioID == constants.ScenarioES {
		return []string{}, ""
	}

	known := fieldNames(catalog)
	fields := []string{timeField}
	if pair, ok := sequencePairIn(known); ok {
		fields = append(fields, pair[0], pair[1])
	} else if profileFor(scenarioID).liveDocument {
		profile := profileFor(scenarioID)
		fields = append(fields, profile.seqField, profile.iterField)
	}

	var missing []string
	for _, f := range fields {
		if !known[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, "missing sort fields: " + strings.Join(missing, ", ")
	}
	return fields, ""
}
