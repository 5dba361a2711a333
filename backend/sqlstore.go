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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/ttbt-io/dugout/backend/migrations"
	_ "modernc.org/sqlite"
)

// SQLStore keeps records in a SQLite database. Every save is written
// through, so FlushAll has nothing to do.
type SQLStore struct {
	db *sql.DB
}

var _ RecordStore = (*SQLStore)(nil)

// OpenSQLStore opens the database at path and applies the embedded migrations.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) LoadRecord(id string) (*Record, error) {
	var (
		rec  Record
		data string
	)
	err := s.db.QueryRow(
		`SELECT id, schema_version, version, updated_at, last_raft_index, data FROM orders WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.SchemaVersion, &rec.Version, &rec.UpdatedAt, &rec.LastRaftIndex, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, os.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	if rec.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("record %s has schema version %d, newer than supported %d", id, rec.SchemaVersion, CurrentSchemaVersion)
	}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", id, err)
	}
	rec.normalize()
	return &rec, nil
}

func (s *SQLStore) SaveRecord(rec *Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO orders (id, schema_version, version, updated_at, last_raft_index, data)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   schema_version = excluded.schema_version,
		   version = excluded.version,
		   updated_at = excluded.updated_at,
		   last_raft_index = excluded.last_raft_index,
		   data = excluded.data`,
		rec.ID, rec.SchemaVersion, rec.Version, rec.UpdatedAt, rec.LastRaftIndex, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

func (s *SQLStore) ListRecordIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) FlushAll() error {
	return nil
}
