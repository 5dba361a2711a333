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
	"github.com/ttbt-io/dugout/backend/scoring"
	"github.com/vmihailenco/msgpack/v5"
)

// CommandType represents the type of operation to perform on the FSM.
type CommandType string

const (
	CmdSaveOrder CommandType = "SAVE_ORDER"
)

// RaftCommand is a unified structure for all Raft log entries.
type RaftCommand struct {
	Type      CommandType        `msgpack:"type"`
	ID        string             `msgpack:"id"`
	Data      *scoring.OrderData `msgpack:"data,omitempty"`
	UpdatedAt int64              `msgpack:"updatedAt"` // Set by the proposer so that replicas agree.
}

func encodeCommand(cmd RaftCommand) ([]byte, error) {
	return msgpack.Marshal(cmd)
}

func decodeCommand(data []byte) (RaftCommand, error) {
	var cmd RaftCommand
	err := msgpack.Unmarshal(data, &cmd)
	return cmd, err
}
