// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

// contextBodySource orders lines around an anchor in one direction.
// "lt" walks backwards from the anchor; "gte" walks forward and includes it.
const contextBodySource = `{
  "query": {
    "bool": {
      "filter": [
        {{- range .Identity }}
        {"term": { {{ .Field | json }}: {{ .Value | json }} }},
        {{- end }}
        {"range": { {{ .SeqField | json }}: { {{ .RangeOp | json }}: {{ .Anchor | json }} } }}
      ]
    }
  },
  "sort": [
    {{- range $i, $field := .SortFields }}
    {{- if $i }},{{ end }}
    { {{ $field | json }}: { "order": {{ $.Order | json }} } }
    {{- end }}
  ],
  "size": {{ .Size }},
  "from": {{ .From }}
}`

// tailBodySource follows the newest lines of one source file. Without an anchor it
// returns the latest lines; with one it returns the lines written after it.
const tailBodySource = `{
  "query": {
    "bool": {
      "filter": [
        {{- range $i, $term := .Identity }}
        {{- if $i }},{{ end }}
        {"term": { {{ $term.Field | json }}: {{ $term.Value | json }} }}
        {{- end }}
        {{- if .RangeOp }}
        {{- if .Identity }},{{ end }}
        {"range": { {{ .SeqField | json }}: { {{ .RangeOp | json }}: {{ .Anchor | json }} } }}
        {{- end }}
      ]
    }
  },
  "sort": [
    {{- range $i, $field := .SortFields }}
    {{- if $i }},{{ end }}
    { {{ $field | json }}: { "order": {{ $.Order | json }} } }
    {{- end }}
  ],
  "size": {{ .Size }},
  "from": {{ .From }}
}`
