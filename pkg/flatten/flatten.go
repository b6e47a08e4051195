// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package flatten turns a tree of JSON-like maps into ordered key/value pairs
// with dotted key paths.
package flatten

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultSeparator joins the parent and child key names
	DefaultSeparator = "."
	// DefaultDepth keeps only the immediate parent key as prefix
	DefaultDepth = 1
)

// Pair is one flattened leaf.
type Pair struct {
	Key   string
	Value any
}

// Options controls how keys are composed.
type Options struct {
	// Separator between key segments
	Separator string
	// Depth is the number of ancestor keys kept in the prefix of a leaf key.
	// A leaf two levels below the root keeps only its direct parent with Depth 1.
	Depth int
}

// DefaultOptions returns a dotted, one-level prefix configuration.
func DefaultOptions() Options {
	return Options{
		Separator: DefaultSeparator,
		Depth:     DefaultDepth,
	}
}

// Flatten walks tree and returns its leaves in key order. Nested maps are
// descended into; every other value (including slices) is a leaf.
func Flatten(tree map[string]any, opts Options) []Pair {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	if opts.Depth < 0 {
		opts.Depth = 0
	}
	pairs := make([]Pair, 0, len(tree))
	return walk(tree, nil, opts, pairs)
}

func walk(node map[string]any, ancestors []string, opts Options, pairs []Pair) []Pair {
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node[key]
		if child, ok := value.(map[string]any); ok {
			pairs = walk(child, append(ancestors[:len(ancestors):len(ancestors)], key), opts, pairs)
			continue
		}
		prefix := ancestors
		if len(prefix) > opts.Depth {
			prefix = prefix[len(prefix)-opts.Depth:]
		}
		segments := append(append([]string{}, prefix...), key)
		pairs = append(pairs, Pair{
			Key:   strings.Join(segments, opts.Separator),
			Value: value,
		})
	}
	return pairs
}

// Map is Flatten collected into a map.
func Map(tree map[string]any, opts Options) map[string]any {
	pairs := Flatten(tree, opts)
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		out[p.Key] = p.Value
	}
	return out
}

// Render formats a leaf value the way it is displayed in a log line.
func Render(value any) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, strconv.Quote(s))
				continue
			}
			parts = append(parts, Render(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
