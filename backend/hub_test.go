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
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type failingStore struct {
	RecordStore
	err error
}

func (s failingStore) SaveRecord(*Record) error { return s.err }

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	}))
	t.Cleanup(server.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var msg Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return msg
}

func TestHub_LoadAndSave(t *testing.T) {
	store, _ := newTestOrderStore(t)
	hub := NewHub("order", store, nil, nil)
	defer hub.Close()
	ctx := context.Background()

	rec, err := hub.Load(ctx)
	if err != nil || rec != nil {
		t.Fatalf("Load on empty store = %v, %v", rec, err)
	}

	rec, err = hub.Save(ctx, testOrderData(t, "左安"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec.Version != 1 || rec.ID != "order" {
		t.Errorf("rec = %+v", rec)
	}
	rec, err = hub.Save(ctx, testOrderData(t, "三振"))
	if err != nil || rec.Version != 2 {
		t.Fatalf("second Save = %+v, %v", rec, err)
	}

	stored, err := store.LoadRecord("order")
	if err != nil || stored.Version != 2 {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	loaded, err := hub.Load(ctx)
	if err != nil || loaded.Version != 2 {
		t.Errorf("Load = %+v, %v", loaded, err)
	}
}

func TestHub_LoadsExistingRecord(t *testing.T) {
	store, _ := newTestOrderStore(t)
	if err := store.SaveRecord(nextRecord("order", &Record{Version: 6}, testOrderData(t), 1)); err != nil {
		t.Fatal(err)
	}
	hub := NewHub("order", store, nil, nil)
	defer hub.Close()

	rec, err := hub.Save(context.Background(), testOrderData(t, "四球"))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Version != 8 {
		t.Errorf("Version = %d, want 8", rec.Version)
	}
}

func TestHub_SaveError(t *testing.T) {
	store, _ := newTestOrderStore(t)
	boom := errors.New("disk full")
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hub := NewHub("order", failingStore{RecordStore: store, err: boom}, nil, m)
	defer hub.Close()

	if _, err := hub.Save(context.Background(), testOrderData(t)); !errors.Is(err, boom) {
		t.Fatalf("Save = %v, want %v", err, boom)
	}
	rec, err := hub.Load(context.Background())
	if err != nil || rec != nil {
		t.Errorf("failed save must not change the record: %+v, %v", rec, err)
	}
	if got := testutil.ToFloat64(m.Saves.WithLabelValues("error")); got != 1 {
		t.Errorf("error saves = %v", got)
	}
}

func TestHub_LoadError(t *testing.T) {
	store, _ := newTestOrderStore(t)
	if err := store.storage.SaveDataFile(RecordFilename("order"), "not a record"); err != nil {
		t.Fatal(err)
	}
	hub := NewHub("order", store, nil, nil)
	defer hub.Close()
	if _, err := hub.Load(context.Background()); err == nil {
		t.Error("Load should fail for a corrupt record")
	}
}

func TestHub_BusyAndClosed(t *testing.T) {
	stalled := &Hub{requests: make(chan HubRequest), done: make(chan struct{})}
	if _, err := stalled.Load(context.Background()); !errors.Is(err, ErrHubBusy) {
		t.Errorf("Load = %v, want ErrHubBusy", err)
	}

	store, _ := newTestOrderStore(t)
	hub := NewHub("order", store, nil, nil)
	hub.Close()
	hub.Close()
	if _, err := hub.Load(context.Background()); !errors.Is(err, ErrHubClosed) {
		t.Errorf("Load = %v, want ErrHubClosed", err)
	}
}

func TestHub_WebSocketFeed(t *testing.T) {
	store, _ := newTestOrderStore(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hub := NewHub("order", store, nil, m)
	defer hub.Close()
	ctx := context.Background()

	conn := dialHub(t, hub)
	conn.WriteJSON(Message{Type: MsgTypeJoin})
	if msg := readMessage(t, conn); msg.Type != MsgTypeAck || msg.Version != 0 {
		t.Fatalf("JOIN on empty record = %+v", msg)
	}
	if got := testutil.ToFloat64(m.Clients); got != 1 {
		t.Errorf("clients = %v, want 1", got)
	}

	if _, err := hub.Save(ctx, testOrderData(t, "中安")); err != nil {
		t.Fatal(err)
	}
	msg := readMessage(t, conn)
	if msg.Type != MsgTypeOrderUpdate || msg.Version != 1 || msg.Record == nil {
		t.Fatalf("expected ORDER_UPDATE v1, got %+v", msg)
	}
	if msg.Record.Data.GameState.BattingStats["0"].Hits != 1 {
		t.Errorf("broadcast record = %+v", msg.Record)
	}

	conn.WriteJSON(Message{Type: MsgTypePing})
	if msg := readMessage(t, conn); msg.Type != MsgTypePong {
		t.Errorf("expected PONG, got %+v", msg)
	}

	conn.WriteJSON(Message{Type: "BOGUS"})
	if msg := readMessage(t, conn); msg.Type != MsgTypeError {
		t.Errorf("expected ERROR, got %+v", msg)
	}

	// A second client that is behind gets the record.
	late := dialHub(t, hub)
	late.WriteJSON(Message{Type: MsgTypeJoin})
	if msg := readMessage(t, late); msg.Type != MsgTypeSyncUpdate || msg.Record == nil || msg.Record.Version != 1 {
		t.Errorf("expected SYNC_UPDATE, got %+v", msg)
	}
	// One that is current gets an ACK.
	current := dialHub(t, hub)
	current.WriteJSON(Message{Type: MsgTypeJoin, Version: 1})
	if msg := readMessage(t, current); msg.Type != MsgTypeAck || msg.Version != 1 {
		t.Errorf("expected ACK v1, got %+v", msg)
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	store, _ := newTestOrderStore(t)
	hub := NewHub("order", store, nil, nil)
	conn := dialHub(t, hub)
	conn.WriteJSON(Message{Type: MsgTypeJoin})
	readMessage(t, conn)

	hub.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err == nil {
		t.Errorf("expected connection to close, got %+v", msg)
	}
}
