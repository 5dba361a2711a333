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

package backend

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ttbt-io/dugout/backend/scoring"
)

// uuidRegex is a regex for standard UUIDs (8-4-4-4-12 hex digits)
var uuidRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

// isValidUUID checks if the string is a valid UUID.
func isValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// ValidateOrderJSON decodes and validates a batting order payload.
func ValidateOrderJSON(data []byte) (scoring.OrderData, error) {
	var d scoring.OrderData
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("invalid order JSON: %w", err)
	}
	return d, ValidateOrderData(d)
}

// ValidateOrderData checks the structural limits of a batting order. It
// does not judge baseball sense: any result text is allowed.
func ValidateOrderData(d scoring.OrderData) error {
	if len(d.Players) > maxPlayers {
		return fmt.Errorf("too many players (max %d)", maxPlayers)
	}
	for i, p := range d.Players {
		if err := validateID(p.ID); err != nil {
			return fmt.Errorf("player %d: %w", i, err)
		}
		if err := validateName(p.Name); err != nil {
			return fmt.Errorf("player %d: %w", i, err)
		}
		if _, err := scoring.ParsePosition(p.Pos); err != nil {
			return fmt.Errorf("player %d: %w", i, err)
		}
		if err := validateFace(p.Face); err != nil {
			return fmt.Errorf("player %d: %w", i, err)
		}
	}

	benches := []struct {
		kind    scoring.BenchKind
		members []scoring.MemberData
	}{
		{scoring.BenchPitchers, d.BenchPitchers},
		{scoring.BenchCatchers, d.BenchCatchers},
		{scoring.Managers, d.Managers},
	}
	for _, b := range benches {
		if len(b.members) > maxMembers {
			return fmt.Errorf("too many %s (max %d)", b.kind, maxMembers)
		}
		for i, m := range b.members {
			if err := validateID(m.ID); err != nil {
				return fmt.Errorf("%s %d: %w", b.kind, i, err)
			}
			if err := validateName(m.Name); err != nil {
				return fmt.Errorf("%s %d: %w", b.kind, i, err)
			}
			if err := validateFace(m.Face); err != nil {
				return fmt.Errorf("%s %d: %w", b.kind, i, err)
			}
		}
	}

	return validateGameState(d.GameState, len(d.Players))
}

func validateGameState(gs scoring.GameStateData, players int) error {
	if gs.Inning < 1 || gs.Inning > maxInning {
		return fmt.Errorf("invalid inning: %d", gs.Inning)
	}
	if gs.CurrentBatterIndex < 0 || (players > 0 && gs.CurrentBatterIndex >= players) || (players == 0 && gs.CurrentBatterIndex != 0) {
		return fmt.Errorf("invalid current batter index: %d", gs.CurrentBatterIndex)
	}
	for key, st := range gs.BattingStats {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= players {
			return fmt.Errorf("invalid batting stats key: %q", key)
		}
		if st.Hits < 0 || st.AtBats < 0 || st.Walks < 0 {
			return fmt.Errorf("negative counters for player %d", idx)
		}
		if len(st.Results) > scoring.AtBatsPerGame {
			return fmt.Errorf("too many results for player %d (max %d)", idx, scoring.AtBatsPerGame)
		}
		for _, r := range st.Results {
			if err := validateStringLen(r, maxResultLen, "result"); err != nil {
				return fmt.Errorf("player %d: %w", idx, err)
			}
		}
	}
	return nil
}

func validateID(id string) error {
	if id != "" && !isValidUUID(id) {
		return fmt.Errorf("invalid id: %s", id)
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return scoring.ErrEmptyName
	}
	return validateStringLen(name, maxNameLen, "name")
}

func validateFace(face string) error {
	if _, err := scoring.ParseCondition(face); err != nil {
		return err
	}
	return nil
}

func validateStringLen(s string, max int, name string) error {
	if utf8.RuneCountInString(s) > max {
		return fmt.Errorf("%s too long (max %d chars)", name, max)
	}
	return nil
}
