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
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
	"github.com/charmbracelet/log"
)

// OrderStore manages record persistence to (optionally encrypted) files.
type OrderStore struct {
	DataDir string
	Debug   bool
	storage *storage.Storage
	mu      sync.Map // Stores *sync.RWMutex for each record id
	cache   sync.Map // Stores the latest []byte (JSON) for each record id

	dirtyMu sync.Mutex
	dirty   map[string]bool
}

var _ RecordStore = (*OrderStore)(nil)

// NewOrderStore creates a new OrderStore.
func NewOrderStore(dataDir string, s *storage.Storage) *OrderStore {
	return &OrderStore{
		DataDir: dataDir,
		storage: s,
		dirty:   make(map[string]bool),
	}
}

// RecordFilename is the storage path of a record, relative to the data
// directory.
func RecordFilename(id string) string {
	return filepath.Join("orders", fmt.Sprintf("%s.json", url.PathEscape(id)))
}

func (s *OrderStore) lock(id string) *sync.RWMutex {
	m, _ := s.mu.LoadOrStore(id, &sync.RWMutex{})
	return m.(*sync.RWMutex)
}

// SaveRecord writes the record to disk atomically.
func (s *OrderStore) SaveRecord(rec *Record) error {
	mutex := s.lock(rec.ID)
	mutex.Lock()
	defer mutex.Unlock()

	if err := s.storage.SaveDataFile(RecordFilename(rec.ID), rec); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}

	if jsonBytes, err := json.Marshal(rec); err == nil {
		s.cache.Store(rec.ID, jsonBytes)
	}

	s.dirtyMu.Lock()
	delete(s.dirty, rec.ID)
	s.dirtyMu.Unlock()
	return nil
}

// SaveRecordInMemory updates the in-memory cache and marks the record as
// dirty. If forceSync is true, it writes to disk immediately.
func (s *OrderStore) SaveRecordInMemory(rec *Record, forceSync bool) error {
	jsonBytes, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.cache.Store(rec.ID, jsonBytes)

	if forceSync {
		return s.SaveRecord(rec)
	}

	s.dirtyMu.Lock()
	s.dirty[rec.ID] = true
	s.dirtyMu.Unlock()
	return nil
}

// Flush persists a specific record to disk if it is dirty.
func (s *OrderStore) Flush(id string) error {
	s.dirtyMu.Lock()
	if !s.dirty[id] {
		s.dirtyMu.Unlock()
		return nil
	}
	s.dirtyMu.Unlock()

	val, ok := s.cache.Load(id)
	if !ok {
		s.dirtyMu.Lock()
		delete(s.dirty, id)
		s.dirtyMu.Unlock()
		return fmt.Errorf("record %s marked dirty but not found in cache", id)
	}

	var rec Record
	if err := json.Unmarshal(val.([]byte), &rec); err != nil {
		return fmt.Errorf("failed to unmarshal record from cache for flush: %w", err)
	}
	// SaveRecord clears the dirty flag
	return s.SaveRecord(&rec)
}

// FlushAll persists all dirty records to disk.
func (s *OrderStore) FlushAll() error {
	s.dirtyMu.Lock()
	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	s.dirtyMu.Unlock()

	for _, id := range ids {
		if err := s.Flush(id); err != nil {
			return fmt.Errorf("failed to flush record %s: %w", id, err)
		}
	}
	return nil
}

// IsDirty reports whether the record has changes not yet on disk.
func (s *OrderStore) IsDirty(id string) bool {
	s.dirtyMu.Lock()
	defer s.dirtyMu.Unlock()
	return s.dirty[id]
}

// LoadRecord loads the record by id.
func (s *OrderStore) LoadRecord(id string) (*Record, error) {
	if val, ok := s.cache.Load(id); ok {
		var rec Record
		if err := json.Unmarshal(val.([]byte), &rec); err == nil {
			if s.Debug {
				log.Debug("record cache hit", "id", id)
			}
			rec.normalize()
			return &rec, nil
		}
		s.cache.Delete(id)
	}

	mutex := s.lock(id)
	mutex.RLock()
	defer mutex.RUnlock()

	var rec Record
	if err := s.storage.ReadDataFile(RecordFilename(id), &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	if rec.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("record %s has schema version %d, newer than supported %d", id, rec.SchemaVersion, CurrentSchemaVersion)
	}
	rec.normalize()

	if jsonBytes, err := json.Marshal(&rec); err == nil {
		s.cache.Store(id, jsonBytes)
	}
	return &rec, nil
}

// ListRecordIDs returns the ids of all records on disk and in the dirty cache, sorted.
func (s *OrderStore) ListRecordIDs() ([]string, error) {
	files, err := os.ReadDir(filepath.Join(s.DataDir, "orders"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not read orders directory: %w", err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(file.Name(), ".json"))
		if err != nil {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	s.dirtyMu.Lock()
	for id := range s.dirty {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	s.dirtyMu.Unlock()

	slices.Sort(ids)
	return ids, nil
}
