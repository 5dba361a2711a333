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
	"strconv"
)

// OrderData is the persisted shape of an Order. Batting stats are keyed by
// the decimal lineup index.
type OrderData struct {
	Players       []PlayerData  `json:"players"`
	BenchPitchers []MemberData  `json:"benchPitchers"`
	BenchCatchers []MemberData  `json:"benchCatchers"`
	Managers      []MemberData  `json:"managers"`
	GameState     GameStateData `json:"gameState"`
}

type PlayerData struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Pos  string `json:"pos"`
	Face string `json:"face"`
}

type MemberData struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Face string `json:"face"`
}

type GameStateData struct {
	Inning             int                     `json:"inning"`
	IsTopHalf          bool                    `json:"isTopHalf"`
	CurrentBatterIndex int                     `json:"currentBatterIndex"`
	BattingStats       map[string]BattingStats `json:"battingStats"`
}

// Data encodes the order in its persisted shape.
func (o Order) Data() OrderData {
	d := OrderData{
		Players:       make([]PlayerData, len(o.Lineup)),
		BenchPitchers: membersData(o.BenchPitchers),
		BenchCatchers: membersData(o.BenchCatchers),
		Managers:      membersData(o.Managers),
		GameState: GameStateData{
			Inning:             o.Game.Inning.clamp().Number,
			IsTopHalf:          o.Game.Inning.Top,
			CurrentBatterIndex: o.Game.CurrentBatter,
			BattingStats:       make(map[string]BattingStats, len(o.Lineup)),
		},
	}
	for i, b := range o.Lineup {
		d.Players[i] = PlayerData{ID: b.ID, Name: b.Name, Pos: string(b.Pos), Face: string(b.Face)}
		d.GameState.BattingStats[strconv.Itoa(i)] = b.Stats.clone()
	}
	return d
}

func membersData(in []Member) []MemberData {
	out := make([]MemberData, len(in))
	for i, m := range in {
		out[i] = MemberData{ID: m.ID, Name: m.Name, Face: string(m.Face)}
	}
	return out
}

// FromData decodes a persisted order. It never fails: missing stats are
// empty, stats keyed outside the lineup are dropped, counters are recomputed
// from the results, missing ids are generated and the game cursor is clamped.
// Unrecognized positions are kept verbatim and unrecognized conditions read
// as normal.
func FromData(d OrderData) Order {
	o := NewOrder()
	o.Lineup = make([]Batter, len(d.Players))
	for i, p := range d.Players {
		pos, err := ParsePosition(p.Pos)
		if err != nil {
			pos = Position(p.Pos)
		}
		o.Lineup[i] = Batter{
			Player: Player{ID: idOrNew(p.ID), Name: p.Name, Pos: pos, Face: faceOrNormal(p.Face)},
			Stats:  NewBattingStats(),
		}
	}
	for key, s := range d.GameState.BattingStats {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(o.Lineup) {
			continue
		}
		results := s.Results
		if len(results) > AtBatsPerGame {
			results = results[:AtBatsPerGame]
		}
		o.Lineup[i].Stats = BattingStats{Results: results}.Recount()
	}
	o.BenchPitchers = membersFromData(d.BenchPitchers)
	o.BenchCatchers = membersFromData(d.BenchCatchers)
	o.Managers = membersFromData(d.Managers)

	if d.GameState.Inning >= 1 {
		o.Game.Inning = Inning{Number: d.GameState.Inning, Top: d.GameState.IsTopHalf}
	}
	o.Game.CurrentBatter = o.wrapBatter(d.GameState.CurrentBatterIndex)
	return o
}

func membersFromData(in []MemberData) []Member {
	out := make([]Member, len(in))
	for i, m := range in {
		out[i] = Member{ID: idOrNew(m.ID), Name: m.Name, Face: faceOrNormal(m.Face)}
	}
	return out
}

func idOrNew(id string) string {
	if id == "" {
		return newID()
	}
	return id
}

func faceOrNormal(s string) Condition {
	c, err := ParseCondition(s)
	if err != nil {
		return ConditionNormal
	}
	return c
}
