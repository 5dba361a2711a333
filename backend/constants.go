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

import "time"

// Schema Versions
const (
	SchemaVersionV1      = 1
	CurrentSchemaVersion = SchemaVersionV1
)

// Payload limits
const (
	maxPlayers       = 40
	maxMembers       = 20
	maxNameLen       = 50
	maxResultLen     = 40
	maxInning        = 99
	maxOrderBodySize = 1 << 20
)

// Retry-After values (seconds) when the hub queue is full.
const (
	retryAfterLoad = "2"
	retryAfterSave = "10"
)

// Raft tuning
const (
	raftApplyTimeout = 5 * time.Second
	raftSyncTimeout  = 30 * time.Second
	raftJoinTimeout  = 30 * time.Second
	raftJoinRetry    = time.Second
)

// raftSecretHeader carries the shared cluster secret on join requests.
const raftSecretHeader = "X-Raft-Secret"
