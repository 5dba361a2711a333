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
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/hashicorp/raft"
	"github.com/ttbt-io/dugout/backend/scoring"
)

func benchOrderData(b *testing.B) scoring.OrderData {
	b.Helper()
	o := scoring.NewOrder()
	results := []string{"左安", "三振", "四球", "遊ゴロ", "右本", "犠飛", "中飛", "死球", "二塁打"}
	for i, r := range results {
		var err error
		if o, err = o.AddPlayer("player", scoring.Positions[i], scoring.ConditionNormal); err != nil {
			b.Fatal(err)
		}
		for slot := range scoring.AtBatsPerGame {
			if o, err = o.RecordResult(i, slot, r); err != nil {
				b.Fatal(err)
			}
		}
	}
	return o.Data()
}

func benchSaves(b *testing.B, hub *Hub) {
	data := benchOrderData(b)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := hub.Save(ctx, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHubSave(b *testing.B) {
	b.Run("file", func(b *testing.B) {
		dir := b.TempDir()
		hub := NewHub("order", NewOrderStore(dir, storage.New(dir, nil)), nil, nil)
		defer hub.Close()
		benchSaves(b, hub)
	})

	b.Run("sqlite", func(b *testing.B) {
		s, err := OpenSQLStore(context.Background(), filepath.Join(b.TempDir(), "bench.db"))
		if err != nil {
			b.Fatal(err)
		}
		defer s.Close()
		hub := NewHub("order", s, nil, nil)
		defer hub.Close()
		benchSaves(b, hub)
	})

	b.Run("raft", func(b *testing.B) {
		dir := b.TempDir()
		store := NewOrderStore(dir, storage.New(dir, nil))
		rm := NewRaftManager(filepath.Join(dir, "raft"), "", "", NewFSM(store))
		rm.LogOutput = io.Discard // Discount log I/O overhead
		_, rm.Transport = raft.NewInmemTransport("")
		if err := rm.Start(true); err != nil {
			b.Fatal(err)
		}
		defer rm.Shutdown()
		if err := rm.WaitForLeader(10 * time.Second); err != nil {
			b.Fatal(err)
		}
		hub := NewHub("order", store, rm, nil)
		rm.FSM.SetHub(hub)
		defer hub.Close()
		benchSaves(b, hub)
	})
}

func BenchmarkRenderScorecard(b *testing.B) {
	o := scoring.FromData(benchOrderData(b))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RenderScorecard(o)
	}
}
