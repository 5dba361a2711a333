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
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(map[string]string{})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DataDir != "data" || cfg.Store != StoreFile {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.SaveDelay != time.Second {
		t.Errorf("SaveDelay = %v, want 1s", cfg.SaveDelay)
	}
	if got, want := cfg.SQLitePath(), filepath.Join("data", "dugout.db"); got != want {
		t.Errorf("SQLitePath = %q, want %q", got, want)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
	}{
		{"unknown store", map[string]string{"DUGOUT_STORE": "postgres"}},
		{"raft without advertise", map[string]string{"DUGOUT_RAFT": "true", "DUGOUT_RECORD_ID": "order"}},
		{"raft without record id", map[string]string{"DUGOUT_RAFT": "true", "DUGOUT_RAFT_ADVERTISE": "10.0.0.1:8081"}},
		{"join and bootstrap", map[string]string{
			"DUGOUT_RAFT": "true", "DUGOUT_RAFT_ADVERTISE": "10.0.0.1:8081", "DUGOUT_RECORD_ID": "order",
			"DUGOUT_RAFT_BOOTSTRAP": "true", "DUGOUT_RAFT_JOIN": "http://10.0.0.2:8080", "DUGOUT_RAFT_SECRET": "s",
		}},
		{"join without secret", map[string]string{
			"DUGOUT_RAFT": "true", "DUGOUT_RAFT_ADVERTISE": "10.0.0.1:8081", "DUGOUT_RECORD_ID": "order",
			"DUGOUT_RAFT_JOIN": "http://10.0.0.2:8080",
		}},
		{"bad duration", map[string]string{"DUGOUT_SAVE_DELAY": "soon"}},
		{"negative duration", map[string]string{"DUGOUT_SAVE_DELAY": "-1s"}},
		{"bad bool", map[string]string{"DUGOUT_DEBUG": "maybe"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseConfig(tc.environ); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseConfigRaft(t *testing.T) {
	cfg, err := parseConfig(map[string]string{
		"DUGOUT_RAFT":           "true",
		"DUGOUT_RAFT_ADVERTISE": "10.0.0.1:8081",
		"DUGOUT_RECORD_ID":      "order",
		"DUGOUT_RAFT_JOIN":      "http://10.0.0.2:8080",
		"DUGOUT_RAFT_SECRET":    "s3cret",
	})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	opts := cfg.ServerOptions(nil)
	if !opts.RaftEnabled || opts.RaftJoin != "http://10.0.0.2:8080" || opts.RaftSecret != "s3cret" || opts.RecordID != "order" {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "DUGOUT_STORE=sqlite\nDUGOUT_ADDR=:1111\nDUGOUT_RECORD_ID=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DUGOUT_ADDR", ":2222")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store != StoreSQLite || cfg.RecordID != "from-file" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Addr != ":2222" {
		t.Errorf("Addr = %q, environment should win over the file", cfg.Addr)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("an explicit missing env file should fail")
	}
}

func TestOpenRecordStore(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []string{StoreFile, StoreSQLite} {
		t.Run(kind, func(t *testing.T) {
			cfg := Config{Store: kind, DataDir: t.TempDir()}
			store, closeFn, err := cfg.OpenRecordStore(ctx)
			if err != nil {
				t.Fatalf("OpenRecordStore: %v", err)
			}
			defer closeFn()

			if _, err := store.LoadRecord("order"); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("LoadRecord = %v, want ErrNotExist", err)
			}
			if err := store.SaveRecord(nextRecord("order", nil, testOrderData(t, "二ゴロ"), 5)); err != nil {
				t.Fatal(err)
			}
			rec, err := store.LoadRecord("order")
			if err != nil || rec.Version != 1 {
				t.Errorf("LoadRecord = %+v, %v", rec, err)
			}
		})
	}
}
