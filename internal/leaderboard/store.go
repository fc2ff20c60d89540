package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"snakepit/server/internal/telemetry"
	"snakepit/server/logging"
)

// Entry is one leaderboard row.
type Entry struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// ErrClosed is returned by Submit once the store has shut down.
var ErrClosed = errors.New("leaderboard: store closed")

// StorageError wraps a durable read or write failure. Every caller in
// the failed round receives the same error; none of their submissions
// are considered applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("leaderboard %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

type result struct {
	highScore bool
	err       error
}

type submission struct {
	nickname string
	score    int
	reply    chan result
}

// watchLimit caps the snapshot pushed to watchers after a commit.
const watchLimit = 10

// Store holds the authoritative best-score-per-nickname table. All
// mutation is serialized through a single writer goroutine; the
// durable JSON file is the source of truth and is reloaded fresh at
// the start of every round, so the file may be shared across
// processes.
type Store struct {
	path   string
	logger telemetry.Logger
	events logging.Publisher

	submissions chan submission
	stop        chan struct{}
	done        chan struct{}

	mu       sync.Mutex
	watchers map[chan []Entry]struct{}
}

// NewStore creates a store persisting to path and starts its writer.
func NewStore(path string, logger telemetry.Logger, events logging.Publisher) *Store {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if events == nil {
		events = logging.NopPublisher()
	}
	s := &Store{
		path:        path,
		logger:      logger,
		events:      events,
		submissions: make(chan submission, 64),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		watchers:    make(map[chan []Entry]struct{}),
	}
	go s.run()
	return s
}

// Close stops the writer. In-flight Submit calls fail with ErrClosed.
func (s *Store) Close() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

// Submit queues a score and suspends the caller until the round that
// processed it resolves. It returns true iff, after merging with the
// durable state, score became the stored best for nickname.
func (s *Store) Submit(ctx context.Context, nickname string, score int) (bool, error) {
	if nickname == "" {
		return false, errors.New("leaderboard: empty nickname")
	}
	if score < 0 {
		return false, fmt.Errorf("leaderboard: negative score %d", score)
	}

	sub := submission{nickname: nickname, score: score, reply: make(chan result, 1)}
	select {
	case s.submissions <- sub:
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.stop:
		return false, ErrClosed
	}

	select {
	case res := <-sub.reply:
		return res.highScore, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.stop:
		return false, ErrClosed
	}
}

// TopN returns up to n entries ordered by score descending, ties
// broken by nickname. It reads the durable file fresh; a missing or
// unreadable file reads as an empty table.
func (s *Store) TopN(n int) []Entry {
	table, err := s.load()
	if err != nil {
		s.logger.Printf("leaderboard read failed, treating as empty: %v", err)
		table = map[string]int{}
	}
	return topEntries(table, n)
}

// Watch returns a channel that receives the top entries after every
// round that changed the table. Slow watchers miss snapshots instead
// of blocking the writer.
func (s *Store) Watch() chan []Entry {
	ch := make(chan []Entry, 1)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unwatch removes a watcher registered with Watch.
func (s *Store) Unwatch(ch chan []Entry) {
	s.mu.Lock()
	delete(s.watchers, ch)
	s.mu.Unlock()
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case first := <-s.submissions:
			batch := []submission{first}
		drain:
			for {
				select {
				case sub := <-s.submissions:
					batch = append(batch, sub)
				default:
					break drain
				}
			}
			s.processRound(batch)
		}
	}
}

// processRound merges one batch of submissions against a fresh load of
// the durable table, persists once if anything changed, then resolves
// every waiter.
func (s *Store) processRound(batch []submission) {
	table, err := s.load()
	if err != nil {
		s.logger.Printf("leaderboard read failed, starting round from empty table: %v", err)
		table = map[string]int{}
	}

	previous := make(map[string]int, len(table))
	for nick, score := range table {
		previous[nick] = score
	}

	changed := false
	for _, sub := range batch {
		if current, ok := table[sub.nickname]; !ok || sub.score > current {
			table[sub.nickname] = sub.score
			changed = true
		}
	}

	if changed {
		if err := s.persist(table); err != nil {
			serr := &StorageError{Op: "persist", Err: err}
			s.logger.Printf("%v", serr)
			logging.StoreFailed(context.Background(), s.events, serr)
			for _, sub := range batch {
				sub.reply <- result{err: serr}
			}
			return
		}
	}

	for _, sub := range batch {
		best := table[sub.nickname]
		preBest, had := previous[sub.nickname]
		high := sub.score == best && (!had || best > preBest)
		sub.reply <- result{highScore: high}
	}

	logging.StoreCommitted(context.Background(), s.events, logging.StoreRoundPayload{
		Submissions: len(batch),
		Changed:     changed,
	})

	if changed {
		s.notify(topEntries(table, watchLimit))
	}
}

func (s *Store) notify(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- entries:
		default:
		}
	}
}

// load reads the durable table. A missing file is an empty table.
func (s *Store) load() (map[string]int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, &StorageError{Op: "read", Err: err}
	}
	table := map[string]int{}
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, &StorageError{Op: "decode", Err: err}
	}
	return table, nil
}

// persist writes a complete snapshot to a temporary file in the target
// directory, then renames it over the real file in one atomic step. A
// failed write removes the temporary artifact.
func (s *Store) persist(table map[string]int) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".scores-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace scores file: %w", err)
	}
	return nil
}

func topEntries(table map[string]int, n int) []Entry {
	entries := make([]Entry, 0, len(table))
	for nick, score := range table {
		entries = append(entries, Entry{Nickname: nick, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
