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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want OutcomeKind
	}{
		{"", OutcomeEmpty},
		{"   ", OutcomeEmpty},
		{"　", OutcomeEmpty},
		{"左安", OutcomeHit},
		{"ヒット", OutcomeHit},
		{"h", OutcomeHit},
		{"H", OutcomeHit},
		{"Single", OutcomeHit},
		{"左中間二塁打", OutcomeDouble},
		{"ツーベースヒット", OutcomeDouble},
		{"2B", OutcomeDouble},
		{"２Ｂ", OutcomeDouble},
		{"三塁打", OutcomeTriple},
		{"3b", OutcomeTriple},
		{"ホームラン", OutcomeHomeRun},
		{"HR", OutcomeHomeRun},
		{"Home Run", OutcomeHomeRun},
		{"見逃し三振", OutcomeStrikeout},
		{"K", OutcomeStrikeout},
		{"struck out swinging", OutcomeStrikeout},
		{"四球", OutcomeWalk},
		{"敬遠", OutcomeWalk},
		{"BB", OutcomeWalk},
		{"死球", OutcomeHitByPitch},
		{"hit by pitch", OutcomeHitByPitch},
		{"HBP", OutcomeHitByPitch},
		{"犠飛", OutcomeSacrificeFly},
		{"犠牲フライ", OutcomeSacrificeFly},
		{"SF", OutcomeSacrificeFly},
		{"犠打", OutcomeSacrificeBunt},
		{"sh", OutcomeSacrificeBunt},
		{"遊ゴロ", OutcomeGrounderOut},
		{"ｼｮｰﾄｺﾞﾛ", OutcomeGrounderOut},
		{"ground out", OutcomeGrounderOut},
		{"中飛", OutcomeFlyOut},
		{"右直", OutcomeFlyOut},
		{"popup", OutcomeFlyOut},
		{"投失", OutcomeError},
		{"エラー", OutcomeError},
		{"振り逃げ", OutcomeCustom},
		{"fc", OutcomeCustom},
		{"hh", OutcomeCustom},

		// Plays that name a double or triple are outs.
		{"double play", OutcomeGrounderOut},
		{"Double-Play", OutcomeGrounderOut},
		{"grounded into double play", OutcomeGrounderOut},
		{"lined into double play", OutcomeFlyOut},
		{"triple play", OutcomeGrounderOut},
		{"遊ゴロ併殺", OutcomeGrounderOut},
		{"併殺打", OutcomeGrounderOut},
		{"DP", OutcomeGrounderOut},
		{"double to left", OutcomeDouble},
		{"triple", OutcomeTriple},

		// Separators and spacing.
		{"hit-by-pitch", OutcomeHitByPitch},
		{"hit_by_pitch", OutcomeHitByPitch},
		{"Hit  By   Pitch", OutcomeHitByPitch},
		{"strike out", OutcomeStrikeout},
		{"strike-out looking", OutcomeStrikeout},
		{"lineout", OutcomeFlyOut},
		{"line out to short", OutcomeFlyOut},
		{"line drive", OutcomeFlyOut},
		{"sac-fly", OutcomeSacrificeFly},
		{"home-run", OutcomeHomeRun},

		// "hit" alone is not a hit token so that "hit by pitch" stays a
		// walk; these read as custom.
		{"hit", OutcomeCustom},
		{"infield hit", OutcomeCustom},
		{"line drive single", OutcomeHit},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.raw))
		})
	}
}

func TestOutcomeDeltas(t *testing.T) {
	tests := []struct {
		kind                OutcomeKind
		hit, atBat, walkish bool
	}{
		{OutcomeHit, true, true, false},
		{OutcomeDouble, true, true, false},
		{OutcomeTriple, true, true, false},
		{OutcomeHomeRun, true, true, false},
		{OutcomeStrikeout, false, true, false},
		{OutcomeWalk, false, false, true},
		{OutcomeHitByPitch, false, false, true},
		{OutcomeSacrificeFly, false, false, false},
		{OutcomeSacrificeBunt, false, false, false},
		{OutcomeGrounderOut, false, true, false},
		{OutcomeFlyOut, false, true, false},
		{OutcomeError, false, true, false},
		{OutcomeCustom, false, true, false},
		{OutcomeEmpty, false, false, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.hit, tc.kind.IsHit(), "IsHit")
			assert.Equal(t, tc.atBat, tc.kind.IsAtBat(), "IsAtBat")
			assert.Equal(t, tc.walkish, tc.kind.IsWalk(), "IsWalk")
		})
	}
}

func TestDoublePlayIsAnOut(t *testing.T) {
	for _, raw := range []string{"double play", "grounded into double play", "triple play"} {
		s, err := NewBattingStats().Apply(0, raw)
		if assert.NoError(t, err, raw) {
			assert.Equal(t, 0, s.Hits, raw)
			assert.Equal(t, 1, s.AtBats, raw)
			assert.Equal(t, 0, s.Walks, raw)
		}
	}
	s, err := NewBattingStats().Apply(0, "hit-by-pitch")
	if assert.NoError(t, err) {
		assert.Equal(t, 1, s.Walks)
		assert.Equal(t, 0, s.AtBats)
	}
}

// FuzzClassify checks that Classify is total and deterministic.
func FuzzClassify(f *testing.F) {
	for _, s := range []string{"", "左安", "ツーベースヒット", "hit by pitch", "\xff\xfe", "ｺﾞﾛ", "２Ｂ"} {
		f.Add(s)
	}
	known := map[OutcomeKind]bool{}
	for _, r := range outcomeRules {
		known[r.kind] = true
	}
	known[OutcomeCustom] = true
	known[OutcomeEmpty] = true

	f.Fuzz(func(t *testing.T, raw string) {
		k := Classify(raw)
		if !known[k] {
			t.Fatalf("Classify(%q) = %q, not a known kind", raw, k)
		}
		if k2 := Classify(raw); k2 != k {
			t.Fatalf("Classify(%q) not deterministic: %q then %q", raw, k, k2)
		}
	})
}
