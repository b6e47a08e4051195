// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

// AdditionInput is what the normalizer needs from a search
type AdditionInput struct {
	ScenarioID string
	BizID      int
	Addition   []model.RawCondition
	HostScopes *model.HostScope
	// NestedFields holds the fields mapped under a nested type
	NestedFields map[string]bool
}

// AdditionNormalizer canonicalizes caller filters and merges the IP shortcuts into one condition
type AdditionNormalizer struct {
	hosts port.HostResolver
}

// Normalize returns the canonical condition list. The synthesized "ip is one of" condition
// takes the IPs of the addition itself when there are any, the host scope IPs otherwise.
func (n *AdditionNormalizer) Normalize(ctx context.Context, in AdditionInput) ([]model.Condition, error) {
	ipField := profileFor(in.ScenarioID).ipField

	conditions := make([]model.Condition, 0, len(in.Addition)+1)
	var additionIPs []string

	for _, raw := range in.Addition {
		field := aliased(raw, "key", "field")
		operator := aliased(raw, "method", "operator")
		join := constants.ConditionAnd
		if c, ok := raw["condition"].(string); ok && c != "" {
			join = c
		}
		value, hasValue := raw["value"]
		if !hasValue {
			value = nil
		}

		if field == ipField && !isEmptyValue(value) && isIPSelector(operator) {
			additionIPs = append(additionIPs, ipValues(value)...)
		}

		if isExistsOperator(operator) {
			if field == "" {
				continue
			}
			conditions = append(conditions, model.Condition{
				Field:     field,
				Operator:  operator,
				Value:     constants.ExistsPlaceholderValue,
				Condition: join,
				Type:      fieldKind(field, in.NestedFields),
			})
			continue
		}

		_, isString := value.(string)
		if field == "" || operator == "" || (isEmptyValue(value) && !isString) {
			slog.DebugContext(ctx, "dropping incomplete condition",
				"field", field,
				"operator", operator,
			)
			continue
		}

		conditions = append(conditions, model.Condition{
			Field:     field,
			Operator:  operator,
			Value:     normalizeValue(value, operator),
			Condition: join,
			Type:      fieldKind(field, in.NestedFields),
		})
	}

	ips := additionIPs
	if len(ips) == 0 {
		scopeIPs, err := n.hostScopeIPs(ctx, in.BizID, in.HostScopes)
		if err != nil {
			return nil, err
		}
		ips = scopeIPs
	}

	if set := ipSet(ips); len(set) > 0 {
		conditions = append(conditions, model.Condition{
			Field:     ipField,
			Operator:  constants.OperatorIsOneOf,
			Value:     set,
			Condition: constants.ConditionAnd,
			Type:      fieldKind(ipField, in.NestedFields),
		})
	}

	slog.DebugContext(ctx, "normalized addition",
		"input", len(in.Addition),
		"output", len(conditions),
		"ip_field", ipField,
		"ip_count", len(ips),
	)

	return conditions, nil
}

// hostScopeIPs collects the explicit ips, then the hosts under modules, then the target nodes
func (n *AdditionNormalizer) hostScopeIPs(ctx context.Context, bizID int, scope *model.HostScope) ([]string, error) {
	if scope == nil {
		return nil, nil
	}

	var ips []string
	if scope.Ips != "" {
		ips = append(ips, strings.Split(scope.Ips, ",")...)
	}

	if len(scope.Modules) > 0 {
		hosts, err := n.resolve(ctx, bizID, constants.TargetNodeTypeTopo, scope.Modules)
		if err != nil {
			return nil, err
		}
		for _, h := range hosts {
			ips = append(ips, h.IP)
		}
	}

	if len(scope.TargetNodes) > 0 {
		if scope.TargetNodeType == constants.TargetNodeTypeInstance {
			for _, node := range scope.TargetNodes {
				ips = append(ips, node.IP)
			}
			return ips, nil
		}
		hosts, err := n.resolve(ctx, bizID, scope.TargetNodeType, scope.TargetNodes)
		if err != nil {
			return nil, err
		}
		for _, h := range hosts {
			ips = append(ips, h.IP)
		}
	}

	return ips, nil
}

func (n *AdditionNormalizer) resolve(ctx context.Context, bizID int, nodeType string, nodes []model.TopoNode) ([]model.Host, error) {
	if n.hosts == nil {
		return nil, errors.NewServiceUnavailable("host resolver is not configured")
	}
	hosts, err := n.hosts.Resolve(ctx, bizID, nodeType, nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hosts of business %d: %w", bizID, err)
	}
	return hosts, nil
}

// aliased reads the first non-empty string among the given keys
func aliased(raw model.RawCondition, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func isIPSelector(operator string) bool {
	switch operator {
	case constants.OperatorIs, constants.OperatorIsOneOf, constants.OperatorEq:
		return true
	}
	return false
}

func isExistsOperator(operator string) bool {
	switch operator {
	case constants.OperatorExists, constants.OperatorDoesNotExist, constants.OperatorDoesNotExists:
		return true
	}
	return false
}

// isEmptyValue mirrors the loose "no value" notion of JSON input: null, "", false, 0 and empty collections
func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	}
	return false
}

// normalizeValue splits comma-separated strings for list operators.
// An explicit empty string is kept as is.
func normalizeValue(value any, operator string) any {
	s, ok := value.(string)
	if !ok || s == "" {
		return value
	}
	switch operator {
	case constants.OperatorIsOneOf, constants.OperatorIsNotOneOf:
		return strings.Split(s, ",")
	}
	return value
}

func ipValues(value any) []string {
	switch v := value.(type) {
	case string:
		return strings.Split(v, ",")
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// ipSet dedups, drops blanks and sorts
func ipSet(ips []string) []string {
	set := make([]string, 0, len(ips))
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		set = append(set, ip)
	}
	slices.Sort(set)
	return slices.Compact(set)
}

func fieldKind(field string, nested map[string]bool) string {
	if nested[field] {
		return constants.FieldKindNested
	}
	return constants.FieldKindPlain
}

// NewAdditionNormalizer creates a normalizer resolving topology nodes through hosts
func NewAdditionNormalizer(hosts port.HostResolver) *AdditionNormalizer {
	return &AdditionNormalizer{
		hosts: hosts,
	}
}
