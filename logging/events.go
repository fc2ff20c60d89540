package logging

import "context"

const (
	// EventSessionConnected is emitted when a client connection is accepted.
	EventSessionConnected EventType = "lifecycle.session_connected"
	// EventSessionClosed is emitted when a session's connection goes away.
	EventSessionClosed EventType = "lifecycle.session_closed"
	// EventNicknameSet is emitted when a session fixes its nickname.
	EventNicknameSet EventType = "lifecycle.nickname_set"
	// EventGameStarted is emitted when a session enters the running state.
	EventGameStarted EventType = "gameplay.game_started"
	// EventGameOver is emitted when a run ends.
	EventGameOver EventType = "gameplay.game_over"
	// EventScoreSubmitted is emitted when a game-over score resolves
	// against the leaderboard.
	EventScoreSubmitted EventType = "gameplay.score_submitted"
	// EventStoreCommitted is emitted after a leaderboard round persists.
	EventStoreCommitted EventType = "storage.round_committed"
	// EventStoreFailed is emitted when persisting a round fails.
	EventStoreFailed EventType = "storage.round_failed"
)

// GameOverPayload captures the outcome of a single run.
type GameOverPayload struct {
	Nickname string `json:"nickname,omitempty"`
	Score    int    `json:"score"`
	Length   int    `json:"length"`
}

// ScoreSubmittedPayload captures the leaderboard verdict for a run.
type ScoreSubmittedPayload struct {
	Nickname  string `json:"nickname"`
	Score     int    `json:"score"`
	HighScore bool   `json:"highScore"`
}

// StoreRoundPayload captures the shape of one persisted round.
type StoreRoundPayload struct {
	Submissions int  `json:"submissions"`
	Changed     bool `json:"changed"`
}

// SessionConnected publishes a connection-accepted event.
func SessionConnected(ctx context.Context, pub Publisher, sessionID, remote string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, Event{
		Type:     EventSessionConnected,
		Actor:    EntityRef{ID: sessionID, Kind: EntityKindSession},
		Severity: SeverityInfo,
		Category: CategoryLifecycle,
		Extra:    map[string]any{"remote": remote},
	})
}

// SessionClosed publishes a session teardown event.
func SessionClosed(ctx context.Context, pub Publisher, sessionID, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, Event{
		Type:     EventSessionClosed,
		Actor:    EntityRef{ID: sessionID, Kind: EntityKindSession},
		Severity: SeverityInfo,
		Category: CategoryLifecycle,
		Extra:    map[string]any{"reason": reason},
	})
}

// NicknameSet publishes the nickname a session locked in.
func NicknameSet(ctx context.Context, pub Publisher, sessionID, nickname string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, Event{
		Type:     EventNicknameSet,
		Actor:    EntityRef{ID: sessionID, Kind: EntityKindSession},
		Severity: SeverityInfo,
		Category: CategoryLifecycle,
		Extra:    map[string]any{"nickname": nickname},
	})
}

// GameStarted publishes a run-started event.
func GameStarted(ctx context.Context, pub Publisher, sessionID string, tick uint64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, Event{
		Type:     EventGameStarted,
		Tick:     tick,
		Actor:    EntityRef{ID: sessionID, Kind: EntityKindSession},
		Severity: SeverityInfo,
		Category: CategoryGameplay,
	})
}

// GameOver publishes a run-ended event.
func GameOver(ctx context.Context, pub Publisher, sessionID string, tick uint64, payload GameOverPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, Event{
		Type:     EventGameOver,
		Tick:     tick,
		Actor:    EntityRef{ID: sessionID, Kind: EntityKindSession},
		Severity: SeverityInfo,
		Category: CategoryGameplay,
		Payload:  payload,
	})
}

// ScoreSubmitted publishes the leaderboard verdict for a finished run.
func ScoreSubmitted(ctx context.Context, pub Publisher, sessionID string, payload ScoreSubmittedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, Event{
		Type:     EventScoreSubmitted,
		Actor:    EntityRef{ID: sessionID, Kind: EntityKindSession},
		Severity: SeverityInfo,
		Category: CategoryGameplay,
		Payload:  payload,
	})
}

// StoreCommitted publishes the outcome of a persisted round.
func StoreCommitted(ctx context.Context, pub Publisher, payload StoreRoundPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, Event{
		Type:     EventStoreCommitted,
		Actor:    EntityRef{ID: "leaderboard", Kind: EntityKindStore},
		Severity: SeverityInfo,
		Category: CategoryStorage,
		Payload:  payload,
	})
}

// StoreFailed publishes a persistence failure.
func StoreFailed(ctx context.Context, pub Publisher, err error) {
	if pub == nil || err == nil {
		return
	}
	pub.Publish(ctx, Event{
		Type:     EventStoreFailed,
		Actor:    EntityRef{ID: "leaderboard", Kind: EntityKindStore},
		Severity: SeverityError,
		Category: CategoryStorage,
		Extra:    map[string]any{"error": err.Error()},
	})
}
