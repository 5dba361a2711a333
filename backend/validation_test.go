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
	"fmt"
	"strings"
	"testing"

	"github.com/ttbt-io/dugout/backend/scoring"
)

func TestValidateOrderJSON(t *testing.T) {
	validUUID := "aaaaaaaa-aaaa-4aaa-aaaa-aaaaaaaaaaaa"
	gameState := func(inning, cur int, stats string) string {
		return fmt.Sprintf(`"gameState": {"inning": %d, "isTopHalf": true, "currentBatterIndex": %d, "battingStats": {%s}}`, inning, cur, stats)
	}
	players := `"players": [
		{"id": "` + validUUID + `", "name": "山田", "pos": "中", "face": "good"},
		{"name": "鈴木", "pos": "SS", "face": ""}
	]`

	tests := []struct {
		name    string
		order   string
		wantErr bool
	}{
		{
			name:  "Empty order",
			order: `{` + gameState(1, 0, "") + `}`,
		},
		{
			name: "Valid order",
			order: `{` + players + `, "managers": [{"name": "監督", "face": "bad"}], ` +
				gameState(3, 1, `"0": {"hits": 1, "atBats": 1, "walks": 0, "results": ["左安", "", "", ""]}`) + `}`,
		},
		{
			name:    "Malformed JSON",
			order:   `{"players": [`,
			wantErr: true,
		},
		{
			name:    "Empty name",
			order:   `{"players": [{"name": "  ", "pos": "投"}], ` + gameState(1, 0, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Name too long",
			order:   `{"players": [{"name": "` + strings.Repeat("山", maxNameLen+1) + `", "pos": "投"}], ` + gameState(1, 0, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Invalid position",
			order:   `{"players": [{"name": "a", "pos": "外野"}], ` + gameState(1, 0, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Invalid condition",
			order:   `{"players": [{"name": "a", "pos": "投", "face": "great"}], ` + gameState(1, 0, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Invalid player id",
			order:   `{"players": [{"id": "x", "name": "a", "pos": "投"}], ` + gameState(1, 0, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Invalid bench member",
			order:   `{"benchCatchers": [{"name": ""}], ` + gameState(1, 0, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Inning zero",
			order:   `{` + gameState(0, 0, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Inning too large",
			order:   `{` + gameState(maxInning+1, 0, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Current batter out of range",
			order:   `{` + players + `, ` + gameState(1, 2, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Current batter on empty lineup",
			order:   `{` + gameState(1, 1, "") + `}`,
			wantErr: true,
		},
		{
			name:    "Stats key out of range",
			order:   `{` + players + `, ` + gameState(1, 0, `"2": {"results": []}`) + `}`,
			wantErr: true,
		},
		{
			name:    "Stats key not numeric",
			order:   `{` + players + `, ` + gameState(1, 0, `"a": {"results": []}`) + `}`,
			wantErr: true,
		},
		{
			name:    "Negative counters",
			order:   `{` + players + `, ` + gameState(1, 0, `"0": {"hits": -1}`) + `}`,
			wantErr: true,
		},
		{
			name:    "Too many results",
			order:   `{` + players + `, ` + gameState(1, 0, `"0": {"results": ["", "", "", "", ""]}`) + `}`,
			wantErr: true,
		},
		{
			name:    "Result too long",
			order:   `{` + players + `, ` + gameState(1, 0, `"0": {"results": ["`+strings.Repeat("x", maxResultLen+1)+`"]}`) + `}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateOrderJSON([]byte(tt.order))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOrderJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOrderLimits(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"players": [`)
	for i := 0; i <= maxPlayers; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"name": "p", "pos": "DH"}`)
	}
	b.WriteString(`], "gameState": {"inning": 1}}`)
	if _, err := ValidateOrderJSON([]byte(b.String())); err == nil {
		t.Error("expected error for too many players")
	}

	d := testOrderData(t)
	for i := 0; i <= maxMembers; i++ {
		d.BenchPitchers = append(d.BenchPitchers, scoring.MemberData{Name: "p"})
	}
	if err := ValidateOrderData(d); err == nil {
		t.Error("expected error for too many bench pitchers")
	}
}
