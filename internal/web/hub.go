// Package web exposes the spectator surface: health and leaderboard
// endpoints plus a websocket feed that pushes the top scores whenever
// the store commits a change.
package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"snakepit/server/internal/leaderboard"
	"snakepit/server/internal/telemetry"
)

const writeWait = 10 * time.Second

type leaderboardMessage struct {
	Type       string              `json:"type"`
	Entries    []leaderboard.Entry `json:"entries"`
	ServerTime int64               `json:"serverTime"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the live websocket subscribers and broadcasts leaderboard
// snapshots to them.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	logger      telemetry.Logger
}

func NewHub(logger telemetry.Logger) *Hub {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger,
	}
}

// Run broadcasts every update until the stop channel closes.
func (h *Hub) Run(updates <-chan []leaderboard.Entry, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case entries := <-updates:
			h.broadcast(entries)
		}
	}
}

func (h *Hub) subscribe(conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()
	sub.conn.Close()
}

// broadcast sends the snapshot to every subscriber, dropping the ones
// whose connections have gone away.
func (h *Hub) broadcast(entries []leaderboard.Entry) {
	data, err := json.Marshal(leaderboardMessage{
		Type:       "leaderboard",
		Entries:    entries,
		ServerTime: time.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Printf("failed to marshal leaderboard message: %v", err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(data); err != nil {
			h.logger.Printf("failed to send leaderboard update: %v", err)
			h.unsubscribe(sub)
		}
	}
}
