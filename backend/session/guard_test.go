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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuardVersions(t *testing.T) {
	g := NewGuard(0)
	g.Observe(3)
	assert.Equal(t, uint64(3), g.Version())

	assert.False(t, g.Accept(2), "older")
	assert.False(t, g.Accept(3), "same")
	assert.True(t, g.Accept(4))
	assert.False(t, g.Accept(4), "already seen")

	g.Saved(7)
	assert.False(t, g.Accept(7), "echo of own save")
	assert.False(t, g.Accept(5))
	assert.True(t, g.Accept(8))

	g.Observe(1)
	assert.Equal(t, uint64(8), g.Version(), "never moves backwards")
}

func TestGuardUnversionedWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	g := NewGuard(0)
	g.now = func() time.Time { return now }

	assert.True(t, g.Accept(0), "no local save yet")

	g.Saved(0)
	now = now.Add(1999 * time.Millisecond)
	assert.False(t, g.Accept(0), "inside the window")

	now = now.Add(time.Millisecond)
	assert.True(t, g.Accept(0), "window elapsed")
}

func TestGuardCustomWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	g := NewGuard(100 * time.Millisecond)
	g.now = func() time.Time { return now }
	g.Saved(0)
	now = now.Add(150 * time.Millisecond)
	assert.True(t, g.Accept(0))
}

func TestDebouncer(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(40*time.Millisecond, func() { calls.Add(1) })

	for range 5 {
		d.Trigger()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	d.Trigger()
	assert.True(t, d.Stop())
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Stop())
}
