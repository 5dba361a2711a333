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

	"github.com/ttbt-io/dugout/backend"
	"github.com/ttbt-io/dugout/backend/scoring"
)

// ErrNotFound is returned by Store.Load when nothing was saved yet.
var ErrNotFound = errors.New("record not found")

// Store is where a session loads and saves the shared record.
type Store interface {
	Load(ctx context.Context) (*backend.Record, error)
	Save(ctx context.Context, data scoring.OrderData) (*backend.Record, error)
	// Subscribe calls handler with every record newer than since until
	// the returned function is called or ctx ends.
	Subscribe(ctx context.Context, since uint64, handler func(*backend.Record)) (func(), error)
}
