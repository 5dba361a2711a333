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
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/raft"
	"github.com/vmihailenco/msgpack/v5"
)

// FSM implements the raft.FSM interface on top of a RecordStore.
type FSM struct {
	store RecordStore

	hubMu sync.RWMutex
	hub   *Hub

	lastAppliedIndex atomic.Uint64
}

// NewFSM creates a new FSM.
func NewFSM(store RecordStore) *FSM {
	return &FSM{store: store}
}

// SetHub sets the hub that receives applied records.
func (f *FSM) SetHub(h *Hub) {
	f.hubMu.Lock()
	defer f.hubMu.Unlock()
	f.hub = h
}

func (f *FSM) broadcast(rec *Record) {
	f.hubMu.RLock()
	h := f.hub
	f.hubMu.RUnlock()
	if h != nil {
		h.Broadcast(rec)
	}
}

// LastAppliedIndex returns the index of the last applied log entry.
func (f *FSM) LastAppliedIndex() uint64 {
	return f.lastAppliedIndex.Load()
}

// Apply returns the stored *Record on success, or an error.
func (f *FSM) Apply(l *raft.Log) interface{} {
	if len(l.Data) == 0 {
		return nil
	}
	cmd, err := decodeCommand(l.Data)
	if err != nil {
		log.Error("FSM Apply: failed to decode command", "index", l.Index, "err", err)
		return err
	}

	var res interface{}
	switch cmd.Type {
	case CmdSaveOrder:
		rec, err := f.applySaveOrder(cmd, l.Index)
		if err != nil {
			res = err
		} else {
			res = rec
		}
	default:
		res = fmt.Errorf("unknown command type %q", cmd.Type)
	}
	f.lastAppliedIndex.Store(l.Index)
	return res
}

func (f *FSM) applySaveOrder(cmd RaftCommand, index uint64) (*Record, error) {
	if cmd.Data == nil {
		return nil, errors.New("save without data")
	}
	existing, err := f.store.LoadRecord(cmd.ID)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	// Replayed entry.
	if existing != nil && index > 0 && index <= existing.LastRaftIndex {
		return existing, nil
	}

	rec := nextRecord(cmd.ID, existing, *cmd.Data, cmd.UpdatedAt)
	rec.LastRaftIndex = index

	if ms, ok := f.store.(memoryStore); ok {
		err = ms.SaveRecordInMemory(rec, false)
	} else {
		err = f.store.SaveRecord(rec)
	}
	if err != nil {
		return nil, err
	}
	f.broadcast(rec)
	return rec, nil
}

type snapshotData struct {
	Records []*Record `msgpack:"records"`
}

// FSMSnapshot represents a snapshot of the FSM state.
type FSMSnapshot struct {
	data snapshotData
}

// Persist saves the snapshot to the given sink.
func (s *FSMSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := msgpack.NewEncoder(sink).Encode(&s.data); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

// Release releases the snapshot.
func (s *FSMSnapshot) Release() {}

func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	// Flush all dirty state to disk so the snapshot and the files agree.
	if err := f.store.FlushAll(); err != nil {
		log.Error("FSM Snapshot: flushing records failed", "err", err)
		return nil, err
	}
	ids, err := f.store.ListRecordIDs()
	if err != nil {
		return nil, err
	}
	snap := &FSMSnapshot{}
	for _, id := range ids {
		rec, err := f.store.LoadRecord(id)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", id, err)
		}
		snap.data.Records = append(snap.data.Records, rec)
	}
	return snap, nil
}

func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var data snapshotData
	if err := msgpack.NewDecoder(rc).Decode(&data); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	for _, rec := range data.Records {
		rec.normalize()
		if err := f.store.SaveRecord(rec); err != nil {
			return fmt.Errorf("restore %s: %w", rec.ID, err)
		}
		if rec.LastRaftIndex > f.lastAppliedIndex.Load() {
			f.lastAppliedIndex.Store(rec.LastRaftIndex)
		}
		f.broadcast(rec)
	}
	return nil
}

func (f *FSM) FlushAll() error {
	return f.store.FlushAll()
}
