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

	"github.com/google/uuid"
)

var (
	ErrEmptyName        = errors.New("name is empty")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrInvalidCondition = errors.New("invalid condition")
)

// newID generates stable player and member ids. Tests replace it.
var newID = uuid.NewString

// Position is a fielding position code as stored on the wire.
type Position string

// Position codes
const (
	PosPitcher   Position = "投"
	PosCatcher   Position = "捕"
	PosFirst     Position = "一"
	PosSecond    Position = "二"
	PosThird     Position = "三"
	PosShortstop Position = "遊"
	PosLeft      Position = "左"
	PosCenter    Position = "中"
	PosRight     Position = "右"
	PosDH        Position = "DH"
)

// Positions lists every position code in scorebook order.
var Positions = []Position{
	PosPitcher, PosCatcher, PosFirst, PosSecond, PosThird,
	PosShortstop, PosLeft, PosCenter, PosRight, PosDH,
}

var positionAliases = map[string]Position{
	"投": PosPitcher, "投手": PosPitcher, "p": PosPitcher, "pitcher": PosPitcher,
	"捕": PosCatcher, "捕手": PosCatcher, "c": PosCatcher, "catcher": PosCatcher,
	"一": PosFirst, "一塁": PosFirst, "1b": PosFirst, "first": PosFirst,
	"二": PosSecond, "二塁": PosSecond, "2b": PosSecond, "second": PosSecond,
	"三": PosThird, "三塁": PosThird, "3b": PosThird, "third": PosThird,
	"遊": PosShortstop, "遊撃": PosShortstop, "ss": PosShortstop, "shortstop": PosShortstop,
	"左": PosLeft, "左翼": PosLeft, "lf": PosLeft, "left": PosLeft,
	"中": PosCenter, "中堅": PosCenter, "cf": PosCenter, "center": PosCenter,
	"右": PosRight, "右翼": PosRight, "rf": PosRight, "right": PosRight,
	"dh": PosDH, "指名打者": PosDH, "designated hitter": PosDH,
}

// Valid reports whether p is one of the ten position codes.
func (p Position) Valid() bool {
	for _, v := range Positions {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePosition accepts a position code, a scorebook abbreviation or an
// English name, in any width or case.
func ParsePosition(s string) (Position, error) {
	if p, ok := positionAliases[normalizeResult(s)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPosition, s)
}

// Condition is a player's form on the day. It has no effect on statistics.
type Condition string

// Conditions, best to worst.
const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionNormal    Condition = "normal"
	ConditionPoor      Condition = "poor"
	ConditionBad       Condition = "bad"
)

// Conditions lists the tiers from best to worst.
var Conditions = []Condition{
	ConditionExcellent, ConditionGood, ConditionNormal, ConditionPoor, ConditionBad,
}

// Rank returns 0 for the best tier and 4 for the worst, or -1 if c is not a tier.
func (c Condition) Rank() int {
	for i, v := range Conditions {
		if c == v {
			return i
		}
	}
	return -1
}

// Valid reports whether c is one of the five tiers.
func (c Condition) Valid() bool {
	return c.Rank() >= 0
}

// ParseCondition maps s to a tier. The empty string means normal.
func ParseCondition(s string) (Condition, error) {
	v := Condition(normalizeResult(s))
	if v == "" {
		return ConditionNormal, nil
	}
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCondition, s)
	}
	return v, nil
}

// Player is a member of the batting order.
type Player struct {
	ID   string
	Name string
	Pos  Position
	Face Condition
}

// Batter is a player together with the ledger for the current game.
// Keeping both in one value means reordering can never misalign them.
type Batter struct {
	Player
	Stats BattingStats
}

// Member is a bench pitcher, bench catcher or manager.
type Member struct {
	ID   string
	Name string
	Face Condition
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

func checkCondition(face Condition) (Condition, error) {
	if face == "" {
		return ConditionNormal, nil
	}
	if !face.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCondition, face)
	}
	return face, nil
}
