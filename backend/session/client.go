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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/ttbt-io/dugout/backend"
	"github.com/ttbt-io/dugout/backend/scoring"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Client is a Store backed by a dugout server's HTTP API and websocket feed.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Dialer  *websocket.Dialer
}

var _ Store = (*Client)(nil)

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Dialer:  websocket.DefaultDialer,
	}
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, strings.TrimSpace(e.Body))
}

func (c *Client) do(req *http.Request) (*backend.Record, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	var rec backend.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func (c *Client) Load(ctx context.Context) (*backend.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/order", nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) Save(ctx context.Context, data scoring.OrderData) (*backend.Record, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+"/api/order", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) wsURL() string {
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/ws"
}

// Subscribe joins the websocket feed. The connection is re-established with
// backoff if it drops; each rejoin asks for records newer than the last one
// delivered.
func (c *Client) Subscribe(ctx context.Context, since uint64, handler func(*backend.Record)) (func(), error) {
	conn, err := c.join(ctx, since)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{client: c, handler: handler, since: since}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sub.run(ctx, conn)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

func (c *Client) join(ctx context.Context, since uint64) (*websocket.Conn, error) {
	conn, _, err := c.Dialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	if err := conn.WriteJSON(backend.Message{Type: backend.MsgTypeJoin, Version: since}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join feed: %w", err)
	}
	return conn, nil
}

type subscription struct {
	client  *Client
	handler func(*backend.Record)
	since   uint64
}

func (s *subscription) run(ctx context.Context, conn *websocket.Conn) {
	backoff := minBackoff
	for {
		s.read(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			var err error
			if conn, err = s.client.join(ctx, s.since); err == nil {
				backoff = minBackoff
				break
			}
			log.Debug("Feed reconnect failed", "err", err, "backoff", backoff)
			backoff = min(2*backoff, maxBackoff)
		}
	}
}

// read delivers records until the connection fails or ctx ends.
func (s *subscription) read(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()
	for {
		var msg backend.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				log.Debug("Feed read failed", "err", err)
			}
			return
		}
		switch msg.Type {
		case backend.MsgTypeSyncUpdate, backend.MsgTypeOrderUpdate:
			if msg.Record == nil {
				continue
			}
			if msg.Record.Version > s.since {
				s.since = msg.Record.Version
			}
			s.handler(msg.Record)
		case backend.MsgTypeError:
			log.Warn("Feed error", "err", msg.Error)
		}
	}
}
