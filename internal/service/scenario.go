// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
)

// scenarioProfile gathers the field naming and capabilities that vary per scenario
type scenarioProfile struct {
	// ipField carries host addresses in filters
	ipField string
	// seqField and iterField identify a line within its source file (live document scenarios only)
	seqField  string
	iterField string
	// hostField identifies the source host of a line in context queries
	hostField string
	// highlightField is the only field highlighted; "*" means every field
	highlightField string
	// liveDocument scenarios support context and tail views
	liveDocument bool
	// scrollCapable scenarios may continue a search through a scroll cursor
	scrollCapable bool
}

var scenarioProfiles = map[string]scenarioProfile{
	constants.ScenarioBKData: {
		ipField:        "ip",
		seqField:       "gseindex",
		iterField:      "_iteration_idx",
		hostField:      "ip",
		highlightField: "log",
		liveDocument:   true,
	},
	constants.ScenarioLog: {
		ipField:        "serverIp",
		seqField:       "gseIndex",
		iterField:      "iterationIndex",
		hostField:      "serverIp",
		highlightField: "*",
		liveDocument:   true,
		scrollCapable:  true,
	},
	constants.ScenarioES: {
		ipField:        "ip",
		highlightField: "*",
		scrollCapable:  true,
	},
}

func profileFor(scenarioID string) scenarioProfile {
	if p, ok := scenarioProfiles[scenarioID]; ok {
		return p
	}
	return scenarioProfile{
		ipField:        "serverIp",
		highlightField: "*",
		scrollCapable:  true,
	}
}

// sequencePairs lists the (sequence, iteration) field pairs that make a line addressable
var sequencePairs = [][2]string{
	{"gseindex", "_iteration_idx"},
	{"gseIndex", "iterationIndex"},
}

// sequencePairIn returns the first sequence pair fully present in the field set
func sequencePairIn(fields map[string]bool) ([2]string, bool) {
	for _, pair := range sequencePairs {
		if fields[pair[0]] && fields[pair[1]] {
			return pair, true
		}
	}
	return [2]string{}, false
}
