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

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ttbt-io/dugout/backend"
	"github.com/ttbt-io/dugout/backend/scoring"
)

const (
	DefaultDelay       = 1000 * time.Millisecond
	DefaultSaveTimeout = 10 * time.Second
)

// Options tune a Session. Zero values select the defaults.
type Options struct {
	// Delay is the input quiet period before a save.
	Delay time.Duration
	// Window is the echo-suppression window for unversioned snapshots.
	Window      time.Duration
	SaveTimeout time.Duration
	// NoSubscribe skips the change feed, for one-shot edits.
	NoSubscribe bool

	// OnChange is called after a remote snapshot replaced the local state.
	OnChange func(scoring.Order)
	// OnError is called when a background save fails.
	OnError func(error)
}

// Session holds the local copy of the record. Edits are applied
// immediately and saved after Delay of quiet; remote snapshots replace
// the local state wholesale unless they are echoes or would clobber
// unsaved edits.
type Session struct {
	store    Store
	opts     Options
	guard    *Guard
	debounce *Debouncer

	mu      sync.Mutex
	order   scoring.Order
	dirty   bool
	saving  bool
	pending *backend.Record

	saveMu      sync.Mutex
	unsubscribe func()
	closeOnce   sync.Once
}

// Open loads the record from store and subscribes to its changes. A store
// with nothing saved yields an empty order.
func Open(ctx context.Context, store Store, opts Options) (*Session, error) {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	if opts.OnError == nil {
		opts.OnError = func(err error) { log.Error("Save failed", "err", err) }
	}
	s := &Session{
		store: store,
		opts:  opts,
		guard: NewGuard(opts.Window),
		order: scoring.NewOrder(),
	}
	s.debounce = NewDebouncer(opts.Delay, s.saveInBackground)

	rec, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		s.order = scoring.FromData(rec.Data)
		s.guard.Observe(rec.Version)
	}

	if !opts.NoSubscribe {
		// The feed outlives ctx; Close ends it.
		unsub, err := store.Subscribe(context.WithoutCancel(ctx), s.guard.Version(), s.receive)
		if err != nil {
			return nil, err
		}
		s.unsubscribe = unsub
	}
	return s, nil
}

// Order returns the current local state.
func (s *Session) Order() scoring.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order
}

// Version is the newest record version this session has seen.
func (s *Session) Version() uint64 {
	return s.guard.Version()
}

// Dirty reports whether there are edits not yet saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Update applies fn to the current state. If fn fails the state is left
// unchanged and no save is scheduled.
func (s *Session) Update(fn func(scoring.Order) (scoring.Order, error)) error {
	s.mu.Lock()
	next, err := fn(s.order)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.order = next
	s.dirty = true
	s.mu.Unlock()
	s.debounce.Trigger()
	return nil
}

func (s *Session) saveInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()
	if err := s.save(ctx); err != nil {
		s.opts.OnError(err)
	}
}

// Flush saves pending edits now.
func (s *Session) Flush(ctx context.Context) error {
	s.debounce.Stop()
	return s.save(ctx)
}

func (s *Session) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	data := s.order.Data()
	s.dirty = false
	s.saving = true
	s.mu.Unlock()

	rec, err := s.store.Save(ctx, data)

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	s.guard.Saved(rec.Version)
	changed := s.applyPendingLocked()
	order := s.order
	s.mu.Unlock()

	if changed && s.opts.OnChange != nil {
		s.opts.OnChange(order)
	}
	return nil
}

// receive handles a snapshot from the change feed.
func (s *Session) receive(rec *backend.Record) {
	s.mu.Lock()
	if s.dirty || s.saving {
		if s.pending == nil || rec.Version > s.pending.Version {
			s.pending = rec
		}
		s.mu.Unlock()
		return
	}
	if !s.guard.Accept(rec.Version) {
		s.mu.Unlock()
		log.Debug("Discarding echo", "version", rec.Version)
		return
	}
	s.order = scoring.FromData(rec.Data)
	order := s.order
	s.mu.Unlock()

	if s.opts.OnChange != nil {
		s.opts.OnChange(order)
	}
}

// applyPendingLocked re-checks a snapshot deferred during edits once they
// are saved.
func (s *Session) applyPendingLocked() bool {
	rec := s.pending
	if rec == nil || s.dirty {
		return false
	}
	s.pending = nil
	if !s.guard.Accept(rec.Version) {
		return false
	}
	s.order = scoring.FromData(rec.Data)
	return true
}

// Close saves pending edits and leaves the change feed.
func (s *Session) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
	return err
}
