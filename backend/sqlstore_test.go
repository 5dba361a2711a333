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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.db")
	s, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLStore: %v", err)
	}

	if _, err := s.LoadRecord("a"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadRecord(a) = %v, want ErrNotExist", err)
	}

	rec := nextRecord("b", nil, testOrderData(t, "左安", "四球"), 100)
	rec.LastRaftIndex = 3
	if err := s.SaveRecord(rec); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	next := nextRecord("b", rec, testOrderData(t, "三振"), 200)
	if err := s.SaveRecord(next); err != nil {
		t.Fatalf("SaveRecord (update): %v", err)
	}
	if err := s.SaveRecord(nextRecord("a", nil, testOrderData(t), 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopening runs the migrations again, which must be a no-op.
	s, err = OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.LoadRecord("b")
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if !reflect.DeepEqual(got, next) {
		t.Errorf("LoadRecord = %+v, want %+v", got, next)
	}
	if got.Version != 2 || got.LastRaftIndex != 3 {
		t.Errorf("version=%d lastRaftIndex=%d", got.Version, got.LastRaftIndex)
	}

	ids, err := s.ListRecordIDs()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("ListRecordIDs = %v", ids)
	}
	if err := s.FlushAll(); err != nil {
		t.Errorf("FlushAll: %v", err)
	}
}

func TestOpenSQLStoreRequiresPath(t *testing.T) {
	if _, err := OpenSQLStore(context.Background(), "  "); err == nil {
		t.Error("expected error for empty path")
	}
}
