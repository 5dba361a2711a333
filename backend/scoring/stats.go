// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// AtBatsPerGame is the number of result slots kept for each batter.
const AtBatsPerGame = 4

// ErrSlotOutOfRange is returned when an at-bat slot index is not in [0, AtBatsPerGame).
var ErrSlotOutOfRange = errors.New("at-bat slot out of range")

// BattingStats is one batter's ledger for the current game. The counters are
// a cached projection of Results and are only ever changed through Apply.
type BattingStats struct {
	Hits    int      `json:"hits"`
	AtBats  int      `json:"atBats"`
	Walks   int      `json:"walks"`
	Results []string `json:"results"`
}

// NewBattingStats returns zero counters with AtBatsPerGame empty slots.
func NewBattingStats() BattingStats {
	return BattingStats{Results: make([]string, AtBatsPerGame)}
}

// Apply overwrites the result at slot with raw and returns the updated stats.
// The previous value's contribution is undone before the new value's is added,
// so repeated edits of one slot never drift. The receiver is not modified.
func (s BattingStats) Apply(slot int, raw string) (BattingStats, error) {
	if slot < 0 || slot >= AtBatsPerGame {
		return s, fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot)
	}
	out := s.clone()

	if prev := out.Results[slot]; strings.TrimSpace(prev) != "" {
		out.add(Classify(prev).delta(), -1)
	}
	out.Results[slot] = raw
	if strings.TrimSpace(raw) != "" {
		out.add(Classify(raw).delta(), +1)
	}

	out.Hits = max(out.Hits, 0)
	out.AtBats = max(out.AtBats, 0)
	out.Walks = max(out.Walks, 0)
	return out, nil
}

func (s *BattingStats) add(d delta, sign int) {
	s.Hits += sign * d.hits
	s.AtBats += sign * d.atBats
	s.Walks += sign * d.walks
}

// clone deep-copies the stats and pads Results to AtBatsPerGame slots.
func (s BattingStats) clone() BattingStats {
	n := max(len(s.Results), AtBatsPerGame)
	results := make([]string, n)
	copy(results, s.Results)
	s.Results = results
	return s
}

// Tally recomputes counters from scratch for the given results.
func Tally(results []string) BattingStats {
	out := BattingStats{Results: make([]string, 0, AtBatsPerGame)}
	out.Results = append(out.Results, results...)
	for len(out.Results) < AtBatsPerGame {
		out.Results = append(out.Results, "")
	}
	for _, r := range results {
		out.add(Classify(r).delta(), +1)
	}
	return out
}

// Recount returns s with its counters re-derived from Results.
func (s BattingStats) Recount() BattingStats {
	return Tally(s.Results)
}

// IsZero reports whether the ledger holds no counters and no results.
func (s BattingStats) IsZero() bool {
	if s.Hits != 0 || s.AtBats != 0 || s.Walks != 0 {
		return false
	}
	for _, r := range s.Results {
		if r != "" {
			return false
		}
	}
	return true
}

// Line returns the batter's counters with formatted rates.
func (s BattingStats) Line() Totals {
	return newTotals(s.Hits, s.AtBats, s.Walks)
}
