// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// IndexSet is a named logical grouping of physical indices sharing a scenario and cluster
type IndexSet struct {
	IndexSetID        int    `json:"index_set_id"`
	IndexSetName      string `json:"index_set_name"`
	ScenarioID        string `json:"scenario_id"`
	StorageClusterID  int    `json:"storage_cluster_id"`
	BizID             int    `json:"bk_biz_id"`
	CollectorConfigID int    `json:"collector_config_id,omitempty"`
	SourceAppCode     string `json:"source_app_code,omitempty"`
	TimeField         string `json:"time_field,omitempty"`
	TimeFieldType     string `json:"time_field_type,omitempty"`
	TimeFieldUnit     string `json:"time_field_unit,omitempty"`
	IPTopoSwitch      bool   `json:"ip_topo_switch"`
}

// IndexSetData is one physical index (result table) of an index set
type IndexSetData struct {
	IndexSetID    int    `json:"index_set_id"`
	ResultTableID string `json:"result_table_id"`
	TimeField     string `json:"time_field,omitempty"`
	Applied       bool   `json:"applied"`
}

// UserIndexSetConfig holds a user's saved sort and display preferences for an index set
type UserIndexSetConfig struct {
	IndexSetID    int        `json:"index_set_id"`
	CreatedBy     string     `json:"created_by"`
	Scope         string     `json:"scope"`
	SortList      [][]string `json:"sort_list"`
	DisplayFields []string   `json:"display_fields"`
	IsDeleted     bool       `json:"-"`
}

// ClusteringConfig is the log clustering setup of an index set
type ClusteringConfig struct {
	IndexSetID       int    `json:"index_set_id"`
	SignatureEnable  bool   `json:"signature_enable"`
	ClusteringFields string `json:"clustering_fields"`
}
