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
	"slices"
)

var (
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrUnknownBenchKind = errors.New("unknown bench kind")
)

// Game is the cursor state of the game in progress.
type Game struct {
	Inning        Inning
	CurrentBatter int
}

// Order is the whole roster and game record. Methods never modify the
// receiver; each returns a new Order. On error the receiver is returned as is.
type Order struct {
	Lineup        []Batter
	BenchPitchers []Member
	BenchCatchers []Member
	Managers      []Member
	Game          Game
}

// NewOrder returns an empty roster at the top of the first.
func NewOrder() Order {
	return Order{Game: Game{Inning: FirstInning}}
}

// BenchKind selects one of the three bench lists.
type BenchKind int

const (
	BenchPitchers BenchKind = iota
	BenchCatchers
	Managers
)

func (k BenchKind) String() string {
	switch k {
	case BenchPitchers:
		return "pitchers"
	case BenchCatchers:
		return "catchers"
	case Managers:
		return "managers"
	}
	return fmt.Sprintf("BenchKind(%d)", int(k))
}

// ParseBenchKind accepts the names returned by BenchKind.String.
func ParseBenchKind(s string) (BenchKind, error) {
	switch normalizeResult(s) {
	case "pitchers", "pitcher", "p":
		return BenchPitchers, nil
	case "catchers", "catcher", "c":
		return BenchCatchers, nil
	case "managers", "manager", "m":
		return Managers, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBenchKind, s)
}

func (o Order) clone() Order {
	out := o
	out.Lineup = make([]Batter, len(o.Lineup))
	for i, b := range o.Lineup {
		b.Stats = b.Stats.clone()
		out.Lineup[i] = b
	}
	out.BenchPitchers = slices.Clone(o.BenchPitchers)
	out.BenchCatchers = slices.Clone(o.BenchCatchers)
	out.Managers = slices.Clone(o.Managers)
	return out
}

func (o Order) checkIndex(i int) error {
	if i < 0 || i >= len(o.Lineup) {
		return fmt.Errorf("%w: player %d", ErrIndexOutOfRange, i)
	}
	return nil
}

// AddPlayer appends a player with an empty ledger. An empty face means normal.
func (o Order) AddPlayer(name string, pos Position, face Condition) (Order, error) {
	name, err := cleanName(name)
	if err != nil {
		return o, err
	}
	if !pos.Valid() {
		return o, fmt.Errorf("%w: %q", ErrInvalidPosition, pos)
	}
	if face, err = checkCondition(face); err != nil {
		return o, err
	}
	out := o.clone()
	out.Lineup = append(out.Lineup, Batter{
		Player: Player{ID: newID(), Name: name, Pos: pos, Face: face},
		Stats:  NewBattingStats(),
	})
	return out, nil
}

// RemovePlayer deletes the batter at i. Later batters move up with their
// ledgers and the current batter keeps pointing at the same player.
func (o Order) RemovePlayer(i int) (Order, error) {
	if err := o.checkIndex(i); err != nil {
		return o, err
	}
	out := o.clone()
	out.Lineup = slices.Delete(out.Lineup, i, i+1)
	if i < out.Game.CurrentBatter {
		out.Game.CurrentBatter--
	}
	out.Game.CurrentBatter = out.wrapBatter(out.Game.CurrentBatter)
	return out, nil
}

// MovePlayer swaps the batters at i and j. The current batter index names a
// spot in the order, so it does not follow either player.
func (o Order) MovePlayer(i, j int) (Order, error) {
	if err := o.checkIndex(i); err != nil {
		return o, err
	}
	if err := o.checkIndex(j); err != nil {
		return o, err
	}
	out := o.clone()
	out.Lineup[i], out.Lineup[j] = out.Lineup[j], out.Lineup[i]
	return out, nil
}

func (o Order) updateBatter(i int, fn func(*Batter) error) (Order, error) {
	if err := o.checkIndex(i); err != nil {
		return o, err
	}
	out := o.clone()
	if err := fn(&out.Lineup[i]); err != nil {
		return o, err
	}
	return out, nil
}

func (o Order) SetName(i int, name string) (Order, error) {
	return o.updateBatter(i, func(b *Batter) error {
		n, err := cleanName(name)
		b.Name = n
		return err
	})
}

func (o Order) SetPosition(i int, pos Position) (Order, error) {
	return o.updateBatter(i, func(b *Batter) error {
		if !pos.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidPosition, pos)
		}
		b.Pos = pos
		return nil
	})
}

func (o Order) SetCondition(i int, face Condition) (Order, error) {
	return o.updateBatter(i, func(b *Batter) error {
		f, err := checkCondition(face)
		b.Face = f
		return err
	})
}

// RecordResult writes raw into at-bat slot of batter i.
func (o Order) RecordResult(i, slot int, raw string) (Order, error) {
	return o.updateBatter(i, func(b *Batter) error {
		s, err := b.Stats.Apply(slot, raw)
		b.Stats = s
		return err
	})
}

// ClearResults empties every slot of batter i.
func (o Order) ClearResults(i int) (Order, error) {
	return o.updateBatter(i, func(b *Batter) error {
		b.Stats = NewBattingStats()
		return nil
	})
}

func (o *Order) members(kind BenchKind) (*[]Member, error) {
	switch kind {
	case BenchPitchers:
		return &o.BenchPitchers, nil
	case BenchCatchers:
		return &o.BenchCatchers, nil
	case Managers:
		return &o.Managers, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownBenchKind, int(kind))
}

func (o Order) updateMembers(kind BenchKind, fn func(*[]Member) error) (Order, error) {
	out := o.clone()
	list, err := out.members(kind)
	if err != nil {
		return o, err
	}
	if err := fn(list); err != nil {
		return o, err
	}
	return out, nil
}

func checkMember(list []Member, kind BenchKind, i int) error {
	if i < 0 || i >= len(list) {
		return fmt.Errorf("%w: %s %d", ErrIndexOutOfRange, kind, i)
	}
	return nil
}

// Bench returns a copy of one bench list.
func (o Order) Bench(kind BenchKind) []Member {
	list, err := o.members(kind)
	if err != nil {
		return nil
	}
	return slices.Clone(*list)
}

func (o Order) AddMember(kind BenchKind, name string, face Condition) (Order, error) {
	return o.updateMembers(kind, func(list *[]Member) error {
		n, err := cleanName(name)
		if err != nil {
			return err
		}
		f, err := checkCondition(face)
		if err != nil {
			return err
		}
		*list = append(*list, Member{ID: newID(), Name: n, Face: f})
		return nil
	})
}

func (o Order) RemoveMember(kind BenchKind, i int) (Order, error) {
	return o.updateMembers(kind, func(list *[]Member) error {
		if err := checkMember(*list, kind, i); err != nil {
			return err
		}
		*list = slices.Delete(*list, i, i+1)
		return nil
	})
}

func (o Order) MoveMember(kind BenchKind, i, j int) (Order, error) {
	return o.updateMembers(kind, func(list *[]Member) error {
		if err := checkMember(*list, kind, i); err != nil {
			return err
		}
		if err := checkMember(*list, kind, j); err != nil {
			return err
		}
		(*list)[i], (*list)[j] = (*list)[j], (*list)[i]
		return nil
	})
}

func (o Order) SetMemberCondition(kind BenchKind, i int, face Condition) (Order, error) {
	return o.updateMembers(kind, func(list *[]Member) error {
		if err := checkMember(*list, kind, i); err != nil {
			return err
		}
		f, err := checkCondition(face)
		if err != nil {
			return err
		}
		(*list)[i].Face = f
		return nil
	})
}

func (o Order) wrapBatter(i int) int {
	if i < 0 || i >= len(o.Lineup) {
		return 0
	}
	return i
}

// NextBatter moves the current batter down the order, wrapping to the top.
func (o Order) NextBatter() Order {
	if len(o.Lineup) == 0 {
		return o
	}
	out := o.clone()
	out.Game.CurrentBatter = (out.wrapBatter(o.Game.CurrentBatter) + 1) % len(o.Lineup)
	return out
}

// PreviousBatter moves the current batter up the order, wrapping to the bottom.
func (o Order) PreviousBatter() Order {
	if len(o.Lineup) == 0 {
		return o
	}
	n := len(o.Lineup)
	out := o.clone()
	out.Game.CurrentBatter = (out.wrapBatter(o.Game.CurrentBatter) + n - 1) % n
	return out
}

func (o Order) SetCurrentBatter(i int) (Order, error) {
	if err := o.checkIndex(i); err != nil {
		return o, err
	}
	out := o.clone()
	out.Game.CurrentBatter = i
	return out, nil
}

// CurrentBatter returns the batter at the cursor, if the lineup is not empty.
func (o Order) CurrentBatter() (Batter, bool) {
	if len(o.Lineup) == 0 {
		return Batter{}, false
	}
	return o.Lineup[o.wrapBatter(o.Game.CurrentBatter)], true
}

func (o Order) AdvanceHalf() Order {
	out := o.clone()
	out.Game.Inning = o.Game.Inning.Advance()
	return out
}

func (o Order) RetreatHalf() Order {
	out := o.clone()
	out.Game.Inning = o.Game.Inning.Retreat()
	return out
}

// ResetGame starts a new game with the same roster and bench.
func (o Order) ResetGame() Order {
	out := o.clone()
	for i := range out.Lineup {
		out.Lineup[i].Stats = NewBattingStats()
	}
	out.Game = Game{Inning: FirstInning}
	return out
}

// Stats returns the ledgers in batting order.
func (o Order) Stats() []BattingStats {
	out := make([]BattingStats, len(o.Lineup))
	for i, b := range o.Lineup {
		out[i] = b.Stats
	}
	return out
}

// Totals aggregates the whole lineup.
func (o Order) Totals() Totals {
	return Aggregate(o.Stats())
}
