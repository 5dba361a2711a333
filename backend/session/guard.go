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

// Package session owns a client's copy of the batting order: it applies
// edits, debounces saves to a Store and folds in remote snapshots.
package session

import (
	"sync"
	"time"
)

// DefaultWindow is the echo-suppression window for unversioned snapshots.
const DefaultWindow = 2000 * time.Millisecond

// Guard decides whether an incoming snapshot is new information or the
// echo of something this client already has.
//
// Versioned snapshots are accepted only when their version is newer than
// every version the guard has seen. Unversioned (0) snapshots fall back to
// a time window after the last local save.
type Guard struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	version  uint64
	lastSave time.Time
}

// NewGuard returns a guard with the given window. A zero window selects
// DefaultWindow.
func NewGuard(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{window: window, now: time.Now}
}

// Observe records a version obtained by loading.
func (g *Guard) Observe(version uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if version > g.version {
		g.version = version
	}
}

// Saved records a local save that the server stored as version.
func (g *Guard) Saved(version uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSave = g.now()
	if version > g.version {
		g.version = version
	}
}

// Accept reports whether a snapshot with this version should replace the
// local state, and if so records it as seen.
func (g *Guard) Accept(version uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if version == 0 {
		return g.lastSave.IsZero() || g.now().Sub(g.lastSave) >= g.window
	}
	if version <= g.version {
		return false
	}
	g.version = version
	return true
}

// Version is the newest version seen.
func (g *Guard) Version() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.version
}
