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
	"strings"
	"testing"

	"github.com/ttbt-io/dugout/backend/scoring"
)

func reportOrder(t *testing.T) scoring.Order {
	t.Helper()
	o := scoring.NewOrder()
	var err error
	for _, step := range []func(scoring.Order) (scoring.Order, error){
		func(o scoring.Order) (scoring.Order, error) { return o.AddPlayer("Yamada", scoring.PosCenter, scoring.ConditionGood) },
		func(o scoring.Order) (scoring.Order, error) { return o.AddPlayer("Suzuki", scoring.PosShortstop, "") },
		func(o scoring.Order) (scoring.Order, error) { return o.RecordResult(0, 0, "左安") },
		func(o scoring.Order) (scoring.Order, error) { return o.RecordResult(0, 1, "三振") },
		func(o scoring.Order) (scoring.Order, error) { return o.RecordResult(1, 0, "四球") },
		func(o scoring.Order) (scoring.Order, error) { return o.AddMember(scoring.Managers, "Boss", scoring.ConditionBad) },
	} {
		if o, err = step(o); err != nil {
			t.Fatal(err)
		}
	}
	return o.AdvanceHalf().NextBatter()
}

func TestRenderScorecard(t *testing.T) {
	out := RenderScorecard(reportOrder(t))

	for _, want := range []string{
		"1回裏",
		currentMarker + " Suzuki",
		"Yamada", "左安", "三振", "0.500",
		"Team", "0.667",
		"managers: Boss (bad)",
		"pitchers: -",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scorecard missing %q:\n%s", want, out)
		}
	}

	var suzukiRow string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Suzuki") && strings.Contains(line, "四球") {
			suzukiRow = line
		}
	}
	if !strings.Contains(suzukiRow, currentMarker) {
		t.Errorf("current batter row not marked: %q", suzukiRow)
	}
}

func TestRenderScorecardEmpty(t *testing.T) {
	out := RenderScorecard(scoring.NewOrder())
	if !strings.Contains(out, "1回表") || !strings.Contains(out, scoring.NoData) {
		t.Errorf("unexpected empty scorecard:\n%s", out)
	}
	if strings.Contains(out, currentMarker) {
		t.Errorf("empty order has no current batter:\n%s", out)
	}
}

func TestNewStatsView(t *testing.T) {
	v := NewStatsView(reportOrder(t))
	if v.Inning != "1回裏" || v.CurrentBatter != 1 {
		t.Errorf("view = %+v", v)
	}
	if len(v.Players) != 2 {
		t.Fatalf("players = %+v", v.Players)
	}
	if got := v.Players[0].Line; got.Avg != "0.500" || got.OBP != "0.500" {
		t.Errorf("player 0 line = %+v", got)
	}
	if got := v.Players[1].Line; got.Avg != scoring.NoData || got.OBP != "1.000" {
		t.Errorf("player 1 line = %+v", got)
	}
	if v.Team.Hits != 1 || v.Team.AtBats != 2 || v.Team.Walks != 1 {
		t.Errorf("team = %+v", v.Team)
	}
}
