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
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

var ErrNotLeader = errors.New("not leader")

type RaftManager struct {
	Raft                  *raft.Raft
	FSM                   *FSM
	DataDir               string
	Bind                  string // "host:port" for Raft transport
	Advertise             string // "host:port" for advertising to other nodes
	NodeID                string
	Bootstrap             bool
	UseProductionTimeouts bool
	// Secret authorizes join requests. Joins are refused while it is empty.
	Secret string

	// InMemory keeps the log, stable and snapshot stores in memory. Tests only.
	InMemory bool
	// Transport overrides the TCP transport built from Bind.
	Transport raft.Transport

	LogOutput io.Writer // Optional: Redirect Raft logs

	localAddr raft.ServerAddress

	storesMu     sync.Mutex
	logStore     raft.LogStore
	stableStore  raft.StableStore
	shutdownOnce sync.Once
	shutdownErr  error
}

func NewRaftManager(dataDir, bind, advertise string, fsm *FSM) *RaftManager {
	return &RaftManager{
		DataDir:   dataDir,
		Bind:      bind,
		Advertise: advertise,
		FSM:       fsm,
		LogOutput: log.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}).Writer(),
	}
}

// loadOrCreateNodeID returns the node id stored in the data directory,
// creating one on first start.
func (rm *RaftManager) loadOrCreateNodeID() (string, error) {
	path := filepath.Join(rm.DataDir, "node-id")
	if b, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", err
	}
	return id, nil
}

func (rm *RaftManager) Start(bootstrap bool) error {
	rm.Bootstrap = bootstrap
	if !rm.InMemory {
		if err := os.MkdirAll(rm.DataDir, 0755); err != nil {
			return err
		}
	}
	if rm.NodeID == "" {
		if rm.InMemory {
			rm.NodeID = uuid.NewString()
		} else {
			id, err := rm.loadOrCreateNodeID()
			if err != nil {
				return fmt.Errorf("failed to load node id: %w", err)
			}
			rm.NodeID = id
		}
	}
	log.Info("Raft node", "id", rm.NodeID)

	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(rm.NodeID)
	// Optimized for WAN / High Latency / Low Idle Traffic
	if rm.UseProductionTimeouts {
		config.HeartbeatTimeout = 5 * time.Second
		config.ElectionTimeout = 20 * time.Second
		config.LeaderLeaseTimeout = 5 * time.Second
	} else {
		// Faster timeouts for tests
		config.HeartbeatTimeout = 1000 * time.Millisecond
		config.ElectionTimeout = 1000 * time.Millisecond
		config.LeaderLeaseTimeout = 500 * time.Millisecond
	}
	config.CommitTimeout = 500 * time.Millisecond
	config.SnapshotInterval = 120 * time.Second
	config.SnapshotThreshold = 8192
	config.LogLevel = "INFO"
	if rm.LogOutput != nil {
		config.LogOutput = rm.LogOutput
	}

	transport := rm.Transport
	if transport == nil {
		var advertise net.Addr
		if rm.Advertise != "" {
			addr, err := net.ResolveTCPAddr("tcp", rm.Advertise)
			if err != nil {
				return fmt.Errorf("resolve advertise address: %w", err)
			}
			advertise = addr
		}
		t, err := raft.NewTCPTransport(rm.Bind, advertise, 3, 10*time.Second, rm.LogOutput)
		if err != nil {
			return err
		}
		transport = t
	}
	rm.localAddr = transport.LocalAddr()

	var snapshotStore raft.SnapshotStore
	if rm.InMemory {
		store := raft.NewInmemStore()
		rm.setStores(store, store)
		snapshotStore = raft.NewInmemSnapshotStore()
	} else {
		logStore, err := raftboltdb.NewBoltStore(filepath.Join(rm.DataDir, "raft-log.bolt"))
		if err != nil {
			return err
		}
		rm.setStores(logStore, nil) // Assign immediately for cleanup
		stableStore, err := raftboltdb.NewBoltStore(filepath.Join(rm.DataDir, "raft-stable.bolt"))
		if err != nil {
			rm.closeStores()
			return err
		}
		rm.setStores(logStore, stableStore)
		fss, err := raft.NewFileSnapshotStore(rm.DataDir, 1, rm.LogOutput)
		if err != nil {
			rm.closeStores()
			return err
		}
		snapshotStore = fss
	}

	r, err := raft.NewRaft(config, rm.FSM, rm.logStore, rm.stableStore, snapshotStore, transport)
	if err != nil {
		rm.closeStores()
		return err
	}
	rm.Raft = r

	if bootstrap {
		log.Info("Bootstrapping Raft cluster", "id", rm.NodeID)
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      config.LocalID,
					Address: transport.LocalAddr(),
				},
			},
		}
		f := r.BootstrapCluster(configuration)
		if err := f.Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
			log.Warn("Bootstrap error", "err", err)
		}
	}
	return nil
}

func (rm *RaftManager) setStores(logStore raft.LogStore, stableStore raft.StableStore) {
	rm.storesMu.Lock()
	defer rm.storesMu.Unlock()
	rm.logStore = logStore
	rm.stableStore = stableStore
}

// IsLeader reports whether this node currently leads the cluster.
func (rm *RaftManager) IsLeader() bool {
	return rm.Raft != nil && rm.Raft.State() == raft.Leader
}

// WaitForLeader blocks until this node becomes leader or the timeout expires.
func (rm *RaftManager) WaitForLeader(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !rm.IsLeader() {
		if time.Now().After(deadline) {
			return ErrNotLeader
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

// WaitForSync blocks until the Raft FSM has applied all entries currently in the log.
// This prevents serving stale data immediately after a restart while the log is being replayed.
func (rm *RaftManager) WaitForSync(timeout time.Duration) error {
	if rm.Raft == nil {
		return nil
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf("timeout waiting for Raft sync (applied: %d, last: %d)", rm.Raft.AppliedIndex(), rm.Raft.LastIndex())
		case <-ticker.C:
			if rm.Raft.AppliedIndex() >= rm.Raft.LastIndex() {
				return nil
			}
		}
	}
}

// Propose proposes a command to the Raft cluster and returns what the FSM
// returned for it.
func (rm *RaftManager) Propose(cmd RaftCommand) (any, error) {
	if !rm.IsLeader() {
		return nil, ErrNotLeader
	}
	data, err := encodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	f := rm.Raft.Apply(data, raftApplyTimeout)
	if err := f.Error(); err != nil {
		if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) {
			return nil, ErrNotLeader
		}
		return nil, err
	}

	resp := f.Response()
	if err, ok := resp.(error); ok {
		return nil, err
	}
	return resp, nil
}

type joinRequest struct {
	NodeID   string `json:"nodeId"`
	RaftAddr string `json:"raftAddr"`
}

// Join adds a voter to the cluster. It must run on the leader. Joining again
// with the same id and address is a no-op.
func (rm *RaftManager) Join(nodeID, raftAddr string) error {
	if !rm.IsLeader() {
		return ErrNotLeader
	}
	cf := rm.Raft.GetConfiguration()
	if err := cf.Error(); err != nil {
		return err
	}
	for _, srv := range cf.Configuration().Servers {
		if srv.ID == raft.ServerID(nodeID) && srv.Address == raft.ServerAddress(raftAddr) {
			log.Info("Node already a member", "id", nodeID)
			return nil
		}
	}

	f := rm.Raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(raftAddr), 0, 0)
	if err := f.Error(); err != nil {
		if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) {
			return ErrNotLeader
		}
		return err
	}
	log.Info("Node joined", "id", nodeID, "addr", raftAddr)
	return nil
}

// handleJoin serves POST /api/cluster/join on the leader.
func (rm *RaftManager) handleJoin(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get(raftSecretHeader)
	if rm.Secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(rm.Secret)) != 1 {
		http.Error(w, "Forbidden: Invalid Cluster Secret", http.StatusForbidden)
		return
	}

	var data joinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&data); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if data.NodeID == "" || data.RaftAddr == "" {
		http.Error(w, "Missing required fields: nodeId and raftAddr are required", http.StatusBadRequest)
		return
	}

	if err := rm.Join(data.NodeID, data.RaftAddr); err != nil {
		if errors.Is(err, ErrNotLeader) {
			http.Error(w, "Service Unavailable: not the Raft leader", http.StatusServiceUnavailable)
			return
		}
		log.Error("Join failed", "id", data.NodeID, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"status":"ok"}`+"\n")
}

// RequestJoin asks the node serving leaderURL to add this node as a voter.
func (rm *RaftManager) RequestJoin(ctx context.Context, leaderURL string) error {
	body, err := json.Marshal(joinRequest{NodeID: rm.NodeID, RaftAddr: string(rm.localAddr)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(leaderURL, "/")+"/api/cluster/join", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(raftSecretHeader, rm.Secret)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("join rejected (%d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// JoinCluster retries RequestJoin until it succeeds or ctx ends.
func (rm *RaftManager) JoinCluster(ctx context.Context, leaderURL string) error {
	for {
		err := rm.RequestJoin(ctx, leaderURL)
		if err == nil {
			log.Info("Joined Raft cluster", "leader", leaderURL)
			return nil
		}
		log.Warn("Join attempt failed", "leader", leaderURL, "err", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("join %s: %w", leaderURL, err)
		case <-time.After(raftJoinRetry):
		}
	}
}

// Shutdown gracefully shuts down the Raft node.
func (rm *RaftManager) Shutdown() error {
	rm.shutdownOnce.Do(func() {
		if rm.Raft == nil {
			rm.closeStores()
			return
		}

		// Attempt graceful leadership transfer if leader
		if rm.IsLeader() {
			log.Info("Attempting leadership transfer before shutdown...")
			f := rm.Raft.LeadershipTransfer()

			done := make(chan error, 1)
			go func() { done <- f.Error() }()

			select {
			case err := <-done:
				if err != nil {
					log.Info("Leadership transfer failed (continuing)", "err", err)
				} else {
					log.Info("Leadership transfer successful.")
				}
			case <-time.After(5 * time.Second):
				log.Info("Leadership transfer timed out (continuing).")
			}
		}

		rm.shutdownErr = rm.Raft.Shutdown().Error()
		rm.closeStores()
	})
	return rm.shutdownErr
}

func (rm *RaftManager) closeStores() {
	rm.storesMu.Lock()
	defer rm.storesMu.Unlock()

	if rm.logStore != nil {
		if c, ok := rm.logStore.(io.Closer); ok {
			c.Close()
		}
		rm.logStore = nil
	}
	if rm.stableStore != nil {
		if c, ok := rm.stableStore.(io.Closer); ok {
			c.Close()
		}
		rm.stableStore = nil
	}
}
