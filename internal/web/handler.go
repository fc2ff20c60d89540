package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"snakepit/server/internal/leaderboard"
	"snakepit/server/internal/telemetry"
)

const (
	defaultTopN = 10
	maxTopN     = 100
)

// Board is the read-only slice of the leaderboard store the handlers
// need.
type Board interface {
	TopN(n int) []leaderboard.Entry
}

// NewHandler builds the HTTP surface: health, leaderboard JSON, and
// the websocket feed.
func NewHandler(board Board, hub *Hub, logger telemetry.Logger) http.Handler {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		n := defaultTopN
		if raw := r.URL.Query().Get("n"); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value < 1 {
				http.Error(w, "invalid n", http.StatusBadRequest)
				return
			}
			n = value
			if n > maxTopN {
				n = maxTopN
			}
		}

		payload := leaderboardMessage{
			Type:       "leaderboard",
			Entries:    board.TopN(n),
			ServerTime: time.Now().UnixMilli(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}).Methods(http.MethodGet)

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Printf("websocket upgrade failed: %v", err)
			return
		}

		sub := hub.subscribe(conn)

		initial, err := json.Marshal(leaderboardMessage{
			Type:       "leaderboard",
			Entries:    board.TopN(defaultTopN),
			ServerTime: time.Now().UnixMilli(),
		})
		if err != nil {
			logger.Printf("failed to marshal initial leaderboard: %v", err)
			hub.unsubscribe(sub)
			return
		}
		if err := sub.write(initial); err != nil {
			hub.unsubscribe(sub)
			return
		}

		// Spectators never send anything meaningful; the read loop
		// only notices the connection going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					hub.unsubscribe(sub)
					return
				}
			}
		}()
	}).Methods(http.MethodGet)

	return r
}
