package session

import (
	"context"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"snakepit/server/internal/game"
	"snakepit/server/internal/leaderboard"
	"snakepit/server/internal/telemetry"
	"snakepit/server/internal/telnet"
	"snakepit/server/logging"
)

// State identifies the active screen of a session.
type State int

const (
	StateNickname State = iota
	StateMenu
	StateRunning
	StateGameOver
	StateLeaderboard
)

// Verdict is the latched outcome of a game-over leaderboard
// submission.
type Verdict int

const (
	VerdictPending Verdict = iota
	VerdictHighScore
	VerdictNotHighScore
)

type submitPhase int

const (
	submitNone submitPhase = iota
	submitPending
	submitDone
)

// Scoreboard is the slice of the leaderboard store a session uses.
type Scoreboard interface {
	Submit(ctx context.Context, nickname string, score int) (bool, error)
	TopN(n int) []leaderboard.Entry
}

// Renderer builds the byte frame for each screen. Implementations run
// under the session mutex and must not call back into the session.
type Renderer interface {
	NicknamePrompt(buffer string) []byte
	Menu(nickname string) []byte
	Frame(snap game.Snapshot) []byte
	GameOver(score int, verdict Verdict) []byte
	Leaderboard(entries []leaderboard.Entry) []byte
}

// Config carries the per-session game parameters.
type Config struct {
	BoardWidth   int
	BoardHeight  int
	TickInterval time.Duration
	MaxNickname  int
	TopEntries   int
}

// DefaultConfig returns the stock board and timing parameters.
func DefaultConfig() Config {
	return Config{
		BoardWidth:   40,
		BoardHeight:  20,
		TickInterval: 150 * time.Millisecond,
		MaxNickname:  15,
		TopEntries:   10,
	}
}

// Session owns one connection's game state machine. Input events and
// simulation ticks are serialized through one mutex; the tick goroutine
// exists only while the game is running and is stopped on game over,
// restart, and teardown.
type Session struct {
	ID string

	mu           sync.Mutex
	cfg          Config
	out          io.Writer
	renderer     Renderer
	scores       Scoreboard
	logger       telemetry.Logger
	events       logging.Publisher
	rng          *rand.Rand
	requestClose func()

	state         State
	overlayReturn State
	nickname      string
	nickBuf       []byte
	game          *game.Game
	tick          uint64
	tickStop      chan struct{}
	run           uint64
	phase         submitPhase
	verdict       Verdict
	closed        bool
}

// New constructs a session in the nickname-entry state. requestClose
// is invoked (once, under the session mutex) when the player quits;
// it should close the owning connection.
func New(cfg Config, out io.Writer, renderer Renderer, scores Scoreboard, logger telemetry.Logger, events logging.Publisher, requestClose func()) *Session {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if events == nil {
		events = logging.NopPublisher()
	}
	if requestClose == nil {
		requestClose = func() {}
	}
	return &Session{
		ID:           uuid.NewString(),
		cfg:          cfg,
		out:          out,
		renderer:     renderer,
		scores:       scores,
		logger:       logger,
		events:       events,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		requestClose: requestClose,
		state:        StateNickname,
	}
}

// Start renders the initial nickname prompt.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderLocked()
}

// State returns the currently active state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Nickname returns the fixed nickname, empty until entry completes.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// HandleEvent routes one decoded input event through the state
// machine. Events arrive in the order the decoder emitted them.
func (s *Session) HandleEvent(ev telnet.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if ev.Kind == telnet.EventNegotiation {
		return
	}

	switch s.state {
	case StateNickname:
		s.handleNicknameLocked(ev)
	case StateMenu:
		s.handleMenuLocked(ev)
	case StateRunning:
		s.handleRunningLocked(ev)
	case StateGameOver:
		s.handleGameOverLocked(ev)
	case StateLeaderboard:
		// Transient overlay: any key returns to the prior state.
		s.state = s.overlayReturn
		s.renderLocked()
	}
}

// Close tears the session down: the tick goroutine is stopped and any
// in-flight submission result is discarded on arrival.
func (s *Session) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTickerLocked()
	logging.SessionClosed(context.Background(), s.events, s.ID, reason)
}

func (s *Session) handleNicknameLocked(ev telnet.Event) {
	switch {
	case ev.Kind == telnet.EventControl && ev.Key == telnet.KeyEnter:
		trimmed := strings.TrimSpace(string(s.nickBuf))
		if trimmed == "" {
			return
		}
		s.nickname = trimmed
		s.state = StateMenu
		logging.NicknameSet(context.Background(), s.events, s.ID, s.nickname)
		s.renderLocked()
	case ev.Kind == telnet.EventControl && ev.Key == telnet.KeyBackspace:
		if len(s.nickBuf) > 0 {
			s.nickBuf = s.nickBuf[:len(s.nickBuf)-1]
			s.renderLocked()
		}
	case ev.Kind == telnet.EventPrintable:
		if !nicknameChar(ev.Char) || len(s.nickBuf) >= s.cfg.MaxNickname {
			return
		}
		s.nickBuf = append(s.nickBuf, ev.Char)
		s.renderLocked()
	}
}

func (s *Session) handleMenuLocked(ev telnet.Event) {
	switch {
	case ev.Kind == telnet.EventPrintable && ev.Char == 'l':
		s.showLeaderboardLocked(StateMenu)
	case ev.Kind == telnet.EventPrintable && ev.Char == ' ':
		s.startRunLocked()
	case ev.Kind == telnet.EventControl && ev.Key == telnet.KeyEnter:
		s.startRunLocked()
	}
}

func (s *Session) handleRunningLocked(ev telnet.Event) {
	if dir, ok := eventDirection(ev); ok {
		s.game.SetDirection(dir)
	}
}

func (s *Session) handleGameOverLocked(ev telnet.Event) {
	if ev.Kind != telnet.EventPrintable {
		return
	}
	switch ev.Char {
	case 'r':
		s.startRunLocked()
	case 'l':
		s.showLeaderboardLocked(StateGameOver)
	case 'q':
		s.closed = true
		s.stopTickerLocked()
		logging.SessionClosed(context.Background(), s.events, s.ID, "quit")
		s.requestClose()
	}
}

func (s *Session) showLeaderboardLocked(returnTo State) {
	s.overlayReturn = returnTo
	s.state = StateLeaderboard
	s.renderLocked()
}

// startRunLocked resets the simulation and starts the tick goroutine.
func (s *Session) startRunLocked() {
	s.stopTickerLocked()
	s.game = game.New(s.cfg.BoardWidth, s.cfg.BoardHeight, s.rng)
	s.run++
	s.phase = submitNone
	s.verdict = VerdictPending
	s.state = StateRunning

	stop := make(chan struct{})
	s.tickStop = stop
	go s.runTicker(stop)

	logging.GameStarted(context.Background(), s.events, s.ID, s.tick)
	s.renderLocked()
}

func (s *Session) stopTickerLocked() {
	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}
}

func (s *Session) runTicker(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.handleTick()
		}
	}
}

func (s *Session) handleTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateRunning {
		return
	}

	s.tick++
	res := s.game.Step()
	if res.Died {
		s.enterGameOverLocked()
		return
	}
	s.renderLocked()
}

// enterGameOverLocked stops the tick goroutine and triggers the single
// leaderboard submission for this run. The tri-state phase gate keeps
// re-renders while the result is outstanding from resubmitting.
func (s *Session) enterGameOverLocked() {
	s.state = StateGameOver
	s.stopTickerLocked()

	score := s.game.Score()
	logging.GameOver(context.Background(), s.events, s.ID, s.tick, logging.GameOverPayload{
		Nickname: s.nickname,
		Score:    score,
		Length:   s.game.Length(),
	})

	if s.nickname != "" && s.phase == submitNone {
		s.phase = submitPending
		s.verdict = VerdictPending
		go s.submitScore(s.run, s.nickname, score)
	} else if s.nickname == "" {
		s.phase = submitDone
		s.verdict = VerdictNotHighScore
	}
	s.renderLocked()
}

// submitScore runs outside the session mutex; the store call may
// suspend. The result is discarded when the session closed or the
// player restarted into a new run while the call was in flight, so a
// stale verdict can never leak into a later game's submission gate.
func (s *Session) submitScore(run uint64, nickname string, score int) {
	high, err := s.scores.Submit(context.Background(), nickname, score)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || run != s.run {
		return
	}
	s.phase = submitDone
	if err != nil {
		s.verdict = VerdictNotHighScore
		s.logger.Printf("score submission failed for %s: %v", nickname, err)
	} else if high {
		s.verdict = VerdictHighScore
	} else {
		s.verdict = VerdictNotHighScore
	}
	logging.ScoreSubmitted(context.Background(), s.events, s.ID, logging.ScoreSubmittedPayload{
		Nickname:  nickname,
		Score:     score,
		HighScore: s.verdict == VerdictHighScore,
	})
	if s.state == StateGameOver {
		s.renderLocked()
	}
}

func (s *Session) renderLocked() {
	if s.renderer == nil || s.out == nil {
		return
	}
	var frame []byte
	switch s.state {
	case StateNickname:
		frame = s.renderer.NicknamePrompt(string(s.nickBuf))
	case StateMenu:
		frame = s.renderer.Menu(s.nickname)
	case StateRunning:
		frame = s.renderer.Frame(s.game.Snapshot())
	case StateGameOver:
		frame = s.renderer.GameOver(s.game.Score(), s.verdict)
	case StateLeaderboard:
		frame = s.renderer.Leaderboard(s.scores.TopN(s.cfg.TopEntries))
	}
	if len(frame) == 0 {
		return
	}
	if _, err := s.out.Write(frame); err != nil {
		// The reader goroutine observes the same broken connection
		// and tears the session down.
		s.logger.Printf("render write failed for session %s: %v", s.ID, err)
	}
}

func nicknameChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-':
		return true
	default:
		return false
	}
}

func eventDirection(ev telnet.Event) (game.Direction, bool) {
	if ev.Kind == telnet.EventControl {
		switch ev.Key {
		case telnet.KeyUp:
			return game.DirUp, true
		case telnet.KeyDown:
			return game.DirDown, true
		case telnet.KeyLeft:
			return game.DirLeft, true
		case telnet.KeyRight:
			return game.DirRight, true
		}
	}
	if ev.Kind == telnet.EventPrintable {
		switch ev.Char {
		case 'w':
			return game.DirUp, true
		case 's':
			return game.DirDown, true
		case 'a':
			return game.DirLeft, true
		case 'd':
			return game.DirRight, true
		}
	}
	return 0, false
}
