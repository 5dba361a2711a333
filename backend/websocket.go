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
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/ttbt-io/dugout/backend/scoring"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

var (
	// ErrHubBusy is returned when the hub's request queue is full.
	ErrHubBusy = errors.New("hub busy")
	// ErrHubClosed is returned for requests made after Close.
	ErrHubClosed = errors.New("hub closed")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message types for WebSocket communication
const (
	MsgTypeJoin        = "JOIN"
	MsgTypeAck         = "ACK"
	MsgTypeSyncUpdate  = "SYNC_UPDATE"
	MsgTypeOrderUpdate = "ORDER_UPDATE"
	MsgTypePing        = "PING"
	MsgTypePong        = "PONG"
	MsgTypeError       = "ERROR"
)

// Message represents a WebSocket message
type Message struct {
	Type    string  `json:"type"`
	Version uint64  `json:"version,omitempty"`
	Record  *Record `json:"record,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// HubRequest types
const (
	ReqTypeWSJoin    = "WS_JOIN"
	ReqTypeHTTPLoad  = "HTTP_LOAD"
	ReqTypeHTTPSave  = "HTTP_SAVE"
	ReqTypeBroadcast = "BROADCAST"
)

// HubRequest represents a request to the Hub
type HubRequest struct {
	Type    string
	Client  *wsClient          // For WS requests
	Message Message            // For WS requests
	Data    *scoring.OrderData // For HTTP Save
	Record  *Record            // For Broadcast
	Reply   chan HubResponse   // For HTTP requests
}

// HubResponse represents a response from the Hub
type HubResponse struct {
	Record *Record
	Error  error
}

// Hub owns the current record. All loads, saves, joins and broadcasts are
// serialized through its run loop.
type Hub struct {
	recordID string

	// Registered clients.
	clients map[*wsClient]bool

	// Inbound requests
	requests chan HubRequest

	// Register requests from the clients.
	register chan *wsClient

	// Unregister requests from clients.
	unregister chan *wsClient

	// In-memory state. record is nil until the first save.
	record *Record
	loaded bool

	store   RecordStore
	rm      *RaftManager
	metrics *Metrics
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates the hub for the record with the given id and starts its run loop.
// rm may be nil when replication is disabled.
func NewHub(recordID string, store RecordStore, rm *RaftManager, m *Metrics) *Hub {
	h := &Hub{
		recordID:   recordID,
		requests:   make(chan HubRequest, 64), // Buffered to prevent dropping FSM updates
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		clients:    make(map[*wsClient]bool),
		store:      store,
		rm:         rm,
		metrics:    m,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// RecordID returns the id of the record this hub serves.
func (h *Hub) RecordID() string {
	return h.recordID
}

// Close stops the run loop and disconnects all clients.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.metrics.setClients(0)
			return
		case client := <-h.register:
			h.clients[client] = true
			h.metrics.setClients(len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.setClients(len(h.clients))
			}
		case req := <-h.requests:
			if req.Type == ReqTypeBroadcast {
				h.handleBroadcast(req.Record)
				continue
			}
			if err := h.ensureLoaded(); err != nil {
				if req.Client != nil {
					req.Client.sendJSON(Message{Type: MsgTypeError, Error: "Server error loading record"})
				}
				if req.Reply != nil {
					req.Reply <- HubResponse{Error: err}
				}
				continue
			}

			switch req.Type {
			case ReqTypeWSJoin:
				if req.Client != nil && h.clients[req.Client] {
					h.handleWSJoin(req.Client, req.Message)
				}
			case ReqTypeHTTPLoad:
				h.metrics.incLoads()
				req.Reply <- HubResponse{Record: h.record}
			case ReqTypeHTTPSave:
				rec, err := h.handleSave(req.Data)
				req.Reply <- HubResponse{Record: rec, Error: err}
			}
		}
	}
}

func (h *Hub) ensureLoaded() error {
	if h.loaded {
		return nil
	}
	rec, err := h.store.LoadRecord(h.recordID)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error("Hub: error loading record", "id", h.recordID, "err", err)
		return err
	}
	h.record = rec
	h.loaded = true
	return nil
}

func (h *Hub) handleWSJoin(c *wsClient, msg Message) {
	if h.record == nil || msg.Version >= h.record.Version {
		var v uint64
		if h.record != nil {
			v = h.record.Version
		}
		c.sendJSON(Message{Type: MsgTypeAck, Version: v})
		return
	}
	c.sendJSON(Message{Type: MsgTypeSyncUpdate, Version: h.record.Version, Record: h.record})
}

func (h *Hub) handleSave(data *scoring.OrderData) (*Record, error) {
	start := time.Now()
	if h.rm != nil {
		// The FSM assigns the version and hands the record back through
		// Broadcast on every node, this one included. Missing ids are
		// generated here, before the log, so every replica applies the same
		// ids.
		canonical := scoring.FromData(*data).Data()
		cmd := RaftCommand{
			Type:      CmdSaveOrder,
			ID:        h.recordID,
			Data:      &canonical,
			UpdatedAt: h.now().UnixNano(),
		}
		resp, err := h.rm.Propose(cmd)
		h.metrics.observeSave(start, err)
		if err != nil {
			return nil, err
		}
		rec, ok := resp.(*Record)
		if !ok {
			return nil, errors.New("unexpected FSM response")
		}
		if h.record == nil || rec.Version > h.record.Version {
			h.record = rec
		}
		return rec, nil
	}

	rec := nextRecord(h.recordID, h.record, *data, h.now().UnixNano())
	err := h.store.SaveRecord(rec)
	h.metrics.observeSave(start, err)
	if err != nil {
		log.Error("Hub: error saving record", "id", h.recordID, "err", err)
		return nil, err
	}
	h.record = rec
	h.broadcast(Message{Type: MsgTypeOrderUpdate, Version: rec.Version, Record: rec})
	return rec, nil
}

func (h *Hub) handleBroadcast(rec *Record) {
	if rec == nil || rec.ID != h.recordID {
		return
	}
	if h.record == nil || rec.Version >= h.record.Version {
		h.record = rec
		h.loaded = true
	}
	h.broadcast(Message{Type: MsgTypeOrderUpdate, Version: rec.Version, Record: rec})
}

func (h *Hub) broadcast(msg Message) {
	h.metrics.incBroadcasts()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.metrics.setClients(len(h.clients))
}

func (h *Hub) submit(ctx context.Context, req HubRequest) (*Record, error) {
	req.Reply = make(chan HubResponse, 1)
	select {
	case h.requests <- req:
	case <-h.done:
		return nil, ErrHubClosed
	default:
		return nil, ErrHubBusy
	}
	select {
	case resp := <-req.Reply:
		return resp.Record, resp.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Load returns the current record, or nil if nothing was saved yet.
func (h *Hub) Load(ctx context.Context) (*Record, error) {
	return h.submit(ctx, HubRequest{Type: ReqTypeHTTPLoad})
}

// Save stores data as the next version of the record and notifies all
// websocket clients.
func (h *Hub) Save(ctx context.Context, data scoring.OrderData) (*Record, error) {
	return h.submit(ctx, HubRequest{Type: ReqTypeHTTPSave, Data: &data})
}

// Broadcast hands a record applied elsewhere (by the FSM) to the hub.
// It never blocks.
func (h *Hub) Broadcast(rec *Record) {
	select {
	case h.requests <- HubRequest{Type: ReqTypeBroadcast, Record: rec}:
	default:
		log.Warn("Hub channel full, dropping broadcast", "id", rec.ID, "version", rec.Version)
	}
}

// wsClient is a middleman between the websocket connection and the hub.
type wsClient struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan Message
}

// readPump pumps messages from the websocket connection to the hub.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read", "err", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypeJoin:
			select {
			case c.hub.requests <- HubRequest{Type: ReqTypeWSJoin, Client: c, Message: msg}:
			case <-c.hub.done:
				return
			}
		case MsgTypePing:
			c.sendJSON(Message{Type: MsgTypePong})
		default:
			log.Warn("Unknown message type", "type", msg.Type)
			c.sendJSON(Message{Type: MsgTypeError, Error: "Unknown message type"})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendJSON queues msg without blocking. Only the hub goroutine and readPump
// call it; the send channel is closed by the hub alone.
func (c *wsClient) sendJSON(msg Message) {
	defer func() {
		// The hub may have closed send already.
		recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

// ServeWS handles websocket requests from the peer.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade", "err", err)
		return
	}

	client := &wsClient{hub: hub, conn: conn, send: make(chan Message, 256)}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
