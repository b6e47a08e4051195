// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// FieldDescriptor is one field of the index mapping, flattened with dotted paths
type FieldDescriptor struct {
	FieldName   string `json:"field_name"`
	FieldType   string `json:"field_type"`
	EsDocValues bool   `json:"es_doc_values"`
	// Nested is set for fields living under a nested mapping
	Nested bool `json:"nested,omitempty"`
}

// FieldConfig is the uniform outcome of one fields-config evaluator
type FieldConfig struct {
	Name     string         `json:"name"`
	IsActive bool           `json:"is_active"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// FieldsResult describes the searchable fields of an index set and its feature switches
type FieldsResult struct {
	Fields        []FieldDescriptor `json:"fields"`
	DisplayFields []string          `json:"display_fields"`
	SortList      [][]string        `json:"sort_list"`
	TimeField     string            `json:"time_field"`
	TimeFieldType string            `json:"time_field_type"`
	TimeFieldUnit string            `json:"time_field_unit"`
	Config        []FieldConfig     `json:"config"`
}
