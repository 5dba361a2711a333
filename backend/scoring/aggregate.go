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

import "fmt"

// NoData is displayed in place of a rate whose denominator is zero.
const NoData = "---"

// Totals are summed counters and the rates derived from them.
type Totals struct {
	Hits   int    `json:"hits"`
	AtBats int    `json:"atBats"`
	Walks  int    `json:"walks"`
	Avg    string `json:"avg"`
	OBP    string `json:"obp"`
}

// Aggregate folds every ledger into team totals. It is recomputed from
// scratch on each call.
func Aggregate(stats []BattingStats) Totals {
	var h, ab, bb int
	for _, s := range stats {
		h += s.Hits
		ab += s.AtBats
		bb += s.Walks
	}
	return newTotals(h, ab, bb)
}

func newTotals(hits, atBats, walks int) Totals {
	return Totals{
		Hits:   hits,
		AtBats: atBats,
		Walks:  walks,
		Avg:    Average(hits, atBats),
		OBP:    OnBase(hits, atBats, walks),
	}
}

// Average formats hits/atBats to three decimals.
func Average(hits, atBats int) string {
	return rate(hits, atBats)
}

// OnBase formats (hits+walks)/(atBats+walks) to three decimals.
func OnBase(hits, atBats, walks int) string {
	return rate(hits+walks, atBats+walks)
}

func rate(num, den int) string {
	if den <= 0 {
		return NoData
	}
	return fmt.Sprintf("%.3f", float64(num)/float64(den))
}
