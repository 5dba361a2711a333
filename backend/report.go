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
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ttbt-io/dugout/backend/scoring"
)

const currentMarker = "▶"

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

// PlayerLine is one row of the stats view.
type PlayerLine struct {
	Index   int            `json:"index"`
	Name    string         `json:"name"`
	Pos     string         `json:"pos"`
	Face    string         `json:"face"`
	Line    scoring.Totals `json:"line"`
	Results []string       `json:"results"`
}

// StatsView is the JSON body of GET /api/order/stats.
type StatsView struct {
	Inning        string         `json:"inning"`
	CurrentBatter int            `json:"currentBatterIndex"`
	Players       []PlayerLine   `json:"players"`
	Team          scoring.Totals `json:"team"`
}

// NewStatsView computes per-player lines and team totals.
func NewStatsView(o scoring.Order) StatsView {
	v := StatsView{
		Inning:        o.Game.Inning.String(),
		CurrentBatter: o.Game.CurrentBatter,
		Players:       make([]PlayerLine, 0, len(o.Lineup)),
		Team:          o.Totals(),
	}
	for i, b := range o.Lineup {
		v.Players = append(v.Players, PlayerLine{
			Index:   i,
			Name:    b.Name,
			Pos:     string(b.Pos),
			Face:    string(b.Face),
			Line:    b.Stats.Line(),
			Results: b.Stats.Results,
		})
	}
	return v
}

// RenderScorecard renders the order as a plain-text table.
func RenderScorecard(o scoring.Order) string {
	headers := []string{"", "#", "Name", "Pos", "Cond"}
	for i := 1; i <= scoring.AtBatsPerGame; i++ {
		headers = append(headers, strconv.Itoa(i))
	}
	headers = append(headers, "AB", "H", "BB", "AVG", "OBP")

	rows := make([][]string, 0, len(o.Lineup)+1)
	for i, b := range o.Lineup {
		marker := ""
		if i == o.Game.CurrentBatter {
			marker = currentMarker
		}
		row := []string{marker, strconv.Itoa(i + 1), b.Name, string(b.Pos), string(b.Face)}
		row = append(row, b.Stats.Results...)
		line := b.Stats.Line()
		row = append(row,
			strconv.Itoa(line.AtBats), strconv.Itoa(line.Hits), strconv.Itoa(line.Walks),
			line.Avg, line.OBP)
		rows = append(rows, row)
	}
	tot := o.Totals()
	team := []string{"", "", "Team", "", ""}
	for range scoring.AtBatsPerGame {
		team = append(team, "")
	}
	team = append(team,
		strconv.Itoa(tot.AtBats), strconv.Itoa(tot.Hits), strconv.Itoa(tot.Walks),
		tot.Avg, tot.OBP)
	rows = append(rows, team)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers(headers...).
		Rows(rows...)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(o.Game.Inning.String()))
	if cur, ok := o.CurrentBatter(); ok {
		fmt.Fprintf(&sb, "  %s %s", currentMarker, cur.Name)
	}
	sb.WriteString("\n")
	sb.WriteString(t.String())
	sb.WriteString("\n")
	for _, k := range []scoring.BenchKind{scoring.BenchPitchers, scoring.BenchCatchers, scoring.Managers} {
		fmt.Fprintf(&sb, "%s: %s\n", k, membersLine(o.Bench(k)))
	}
	return sb.String()
}

func membersLine(ms []scoring.Member) string {
	if len(ms) == 0 {
		return "-"
	}
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = fmt.Sprintf("%s (%s)", m.Name, m.Face)
	}
	return strings.Join(parts, ", ")
}
