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
	"github.com/ttbt-io/dugout/backend/scoring"
)

// Record is the stored envelope around the batting order.
type Record struct {
	ID            string            `json:"id"`
	SchemaVersion int               `json:"schemaVersion"`
	Version       uint64            `json:"version"`   // Incremented by the server on every save.
	UpdatedAt     int64             `json:"updatedAt"` // Unix nanos
	Data          scoring.OrderData `json:"data"`

	// LastRaftIndex is the index of the last Raft log entry applied to this
	// record. Used for idempotency during log replay.
	LastRaftIndex uint64 `json:"lastRaftIndex,omitempty"`
}

func (r *Record) normalize() {
	if r.SchemaVersion == 0 {
		r.SchemaVersion = CurrentSchemaVersion
	}
	d := &r.Data
	if d.Players == nil {
		d.Players = make([]scoring.PlayerData, 0)
	}
	if d.BenchPitchers == nil {
		d.BenchPitchers = make([]scoring.MemberData, 0)
	}
	if d.BenchCatchers == nil {
		d.BenchCatchers = make([]scoring.MemberData, 0)
	}
	if d.Managers == nil {
		d.Managers = make([]scoring.MemberData, 0)
	}
	if d.GameState.BattingStats == nil {
		d.GameState.BattingStats = make(map[string]scoring.BattingStats)
	}
	if d.GameState.Inning < 1 {
		d.GameState.Inning = 1
		d.GameState.IsTopHalf = true
	}
}

// Order decodes the record's data.
func (r *Record) Order() scoring.Order {
	return scoring.FromData(r.Data)
}

// nextRecord builds the record that replaces prev (which may be nil) with
// data. The data is canonicalized so that stored counters always match the
// stored results.
func nextRecord(id string, prev *Record, data scoring.OrderData, updatedAt int64) *Record {
	rec := &Record{
		ID:            id,
		SchemaVersion: CurrentSchemaVersion,
		Version:       1,
		UpdatedAt:     updatedAt,
		Data:          scoring.FromData(data).Data(),
	}
	if prev != nil {
		rec.Version = prev.Version + 1
		rec.LastRaftIndex = prev.LastRaftIndex
	}
	rec.normalize()
	return rec
}

// RecordStore persists records by id. Load of a missing record returns
// os.ErrNotExist.
type RecordStore interface {
	LoadRecord(id string) (*Record, error)
	SaveRecord(rec *Record) error
	ListRecordIDs() ([]string, error)
	FlushAll() error
}

// memoryStore is implemented by stores that can defer writes. The FSM uses it
// so that replicated saves only hit the disk on snapshot or shutdown.
type memoryStore interface {
	SaveRecordInMemory(rec *Record, forceSync bool) error
}
