package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"snakepit/server/internal/leaderboard"
)

type fakeBoard struct {
	entries []leaderboard.Entry
	lastN   int
}

func (f *fakeBoard) TopN(n int) []leaderboard.Entry {
	f.lastN = n
	if len(f.entries) > n {
		return f.entries[:n]
	}
	return f.entries
}

func newTestServer(t *testing.T, board Board) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(nil)
	srv := httptest.NewServer(NewHandler(board, hub, nil))
	t.Cleanup(srv.Close)
	return srv, hub
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBoard{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	board := &fakeBoard{entries: []leaderboard.Entry{
		{Nickname: "ann", Score: 9},
		{Nickname: "bo", Score: 5},
	}}
	srv, _ := newTestServer(t, board)

	resp, err := http.Get(srv.URL + "/api/leaderboard?n=2")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var msg leaderboardMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %q", msg.Type)
	}
	if len(msg.Entries) != 2 || msg.Entries[0].Nickname != "ann" {
		t.Fatalf("expected board entries, got %v", msg.Entries)
	}
	if board.lastN != 2 {
		t.Fatalf("expected n=2 to be forwarded, got %d", board.lastN)
	}
}

func TestLeaderboardEndpointRejectsBadN(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBoard{})

	resp, err := http.Get(srv.URL + "/api/leaderboard?n=zero")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebsocketFeedSendsInitialAndUpdates(t *testing.T) {
	board := &fakeBoard{entries: []leaderboard.Entry{{Nickname: "ann", Score: 1}}}
	srv, hub := newTestServer(t, board)

	updates := make(chan []leaderboard.Entry, 1)
	stop := make(chan struct{})
	defer close(stop)
	go hub.Run(updates, stop)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var initial leaderboardMessage
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if len(initial.Entries) != 1 || initial.Entries[0].Nickname != "ann" {
		t.Fatalf("expected initial snapshot, got %v", initial.Entries)
	}

	updates <- []leaderboard.Entry{{Nickname: "bo", Score: 7}}

	var update leaderboardMessage
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(update.Entries) != 1 || update.Entries[0].Nickname != "bo" {
		t.Fatalf("expected broadcast update, got %v", update.Entries)
	}
}
