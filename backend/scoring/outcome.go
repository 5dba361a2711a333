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

// Package scoring holds the roster and at-bat bookkeeping for the current game.
// Everything in this package is a pure value transformation; persistence and
// synchronization live in the callers.
package scoring

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// OutcomeKind is the classification of a raw at-bat result.
type OutcomeKind string

// Outcome kinds
const (
	OutcomeHit           OutcomeKind = "hit"
	OutcomeDouble        OutcomeKind = "double"
	OutcomeTriple        OutcomeKind = "triple"
	OutcomeHomeRun       OutcomeKind = "homerun"
	OutcomeStrikeout     OutcomeKind = "strikeout"
	OutcomeWalk          OutcomeKind = "walk"
	OutcomeHitByPitch    OutcomeKind = "hit-by-pitch"
	OutcomeSacrificeFly  OutcomeKind = "sacrifice-fly"
	OutcomeSacrificeBunt OutcomeKind = "sacrifice-bunt"
	OutcomeGrounderOut   OutcomeKind = "grounder-out"
	OutcomeFlyOut        OutcomeKind = "fly-out"
	OutcomeError         OutcomeKind = "error"
	OutcomeCustom        OutcomeKind = "custom"
	OutcomeEmpty         OutcomeKind = "empty"
)

// outcomeRule matches when the folded text contains any token or equals the
// code, unless it also contains one of the except phrases.
type outcomeRule struct {
	kind   OutcomeKind
	tokens []string
	code   string
	except []string
}

// Rules are evaluated in order and the first match wins. The specific hit
// kinds come before the generic one so that "ツーベースヒット" is a double.
// The generic English token is "single" rather than "hit" so that
// "hit by pitch" reaches its own rule; a bare "hit" or "infield hit" is custom.
// "double play" and "triple play" are outs, never extra-base hits: the batted
// ball rules classify them when they name one, and the play rule otherwise.
var outcomeRules = []outcomeRule{
	{OutcomeDouble, []string{"二塁打", "2塁打", "ツーベース", "2ベース", "double"}, "2b", []string{"double play"}},
	{OutcomeTriple, []string{"三塁打", "3塁打", "スリーベース", "3ベース", "triple"}, "3b", []string{"triple play"}},
	{OutcomeHomeRun, []string{"本塁打", "ホームラン", "home run", "homerun", "homer"}, "hr", nil},
	{OutcomeHit, []string{"安", "ヒット", "single"}, "h", nil},
	{OutcomeStrikeout, []string{"三振", "strikeout", "struck out", "strike out"}, "k", nil},
	{OutcomeWalk, []string{"四球", "フォアボール", "敬遠", "walk"}, "bb", nil},
	{OutcomeHitByPitch, []string{"死球", "デッドボール", "hit by pitch"}, "hbp", nil},
	{OutcomeSacrificeFly, []string{"犠飛", "犠牲フライ", "sac fly", "sacrifice fly"}, "sf", nil},
	{OutcomeSacrificeBunt, []string{"犠打", "犠牲バント", "バント", "sac bunt", "sacrifice bunt"}, "sh", nil},
	{OutcomeGrounderOut, []string{"ゴロ", "ground"}, "", nil},
	{OutcomeFlyOut, []string{"フライ", "飛", "fly", "pop", "ライナー", "直", "liner", "lineout", "line out", "lined", "line drive"}, "", nil},
	{OutcomeGrounderOut, []string{"併殺", "ゲッツー", "double play", "triple play"}, "dp", nil},
	{OutcomeError, []string{"失", "エラー", "error"}, "", nil},
}

var folder = cases.Fold()

var separators = strings.NewReplacer("-", " ", "_", " ")

// normalizeResult folds width and case so that "２Ｂ", "2B" and "2b" compare
// equal and half-width katakana ("ｺﾞﾛ") composes to its full-width form.
// Hyphens and underscores read as spaces and whitespace runs collapse, so
// "hit-by-pitch" and "hit  by pitch" match "hit by pitch".
func normalizeResult(raw string) string {
	s := norm.NFKC.String(raw)
	s = folder.String(s)
	s = separators.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Classify maps free-text at-bat shorthand to an OutcomeKind.
// It is total: every input, including invalid UTF-8, yields a kind.
func Classify(raw string) OutcomeKind {
	s := normalizeResult(raw)
	if s == "" {
		return OutcomeEmpty
	}
	for _, rule := range outcomeRules {
		if rule.code != "" && s == rule.code {
			return rule.kind
		}
		if containsAny(s, rule.except) {
			continue
		}
		if containsAny(s, rule.tokens) {
			return rule.kind
		}
	}
	return OutcomeCustom
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsHit reports whether the outcome counts toward hits.
func (k OutcomeKind) IsHit() bool {
	switch k {
	case OutcomeHit, OutcomeDouble, OutcomeTriple, OutcomeHomeRun:
		return true
	}
	return false
}

// IsWalk reports whether the outcome counts toward walks (bases on balls and hit batsmen).
func (k OutcomeKind) IsWalk() bool {
	return k == OutcomeWalk || k == OutcomeHitByPitch
}

// IsAtBat reports whether the outcome is charged as an at-bat.
func (k OutcomeKind) IsAtBat() bool {
	switch k {
	case OutcomeEmpty, OutcomeWalk, OutcomeHitByPitch, OutcomeSacrificeBunt, OutcomeSacrificeFly:
		return false
	}
	return true
}

// delta is the counter contribution of one classified result.
type delta struct {
	hits, atBats, walks int
}

func (k OutcomeKind) delta() delta {
	var d delta
	if k.IsHit() {
		d.hits = 1
	}
	if k.IsAtBat() {
		d.atBats = 1
	}
	if k.IsWalk() {
		d.walks = 1
	}
	return d
}
