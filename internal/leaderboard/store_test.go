package leaderboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scores.json")
	s := NewStore(path, nil, nil)
	t.Cleanup(s.Close)
	return s, path
}

func TestSubmitPersistsAndReports(t *testing.T) {
	s, _ := newTestStore(t)

	high, err := s.Submit(context.Background(), "ann", 5)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !high {
		t.Fatal("expected first score to be a high score")
	}

	high, err = s.Submit(context.Background(), "ann", 3)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if high {
		t.Fatal("expected lower score not to be a high score")
	}

	entries := s.TopN(10)
	if len(entries) != 1 || entries[0] != (Entry{Nickname: "ann", Score: 5}) {
		t.Fatalf("expected [ann 5], got %v", entries)
	}
}

func TestSubmitEqualScoreIsNotANewRecord(t *testing.T) {
	s, _ := newTestStore(t)

	if _, err := s.Submit(context.Background(), "bo", 7); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	high, err := s.Submit(context.Background(), "bo", 7)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if high {
		t.Fatal("expected a tie not to count as a new record")
	}
}

func TestRoundResolvesOnlyTheFinalBest(t *testing.T) {
	s, _ := newTestStore(t)

	// Two submissions for the same nickname processed in one round:
	// only the one that ends up stored reports true.
	batch := []submission{
		{nickname: "ann", score: 5, reply: make(chan result, 1)},
		{nickname: "ann", score: 8, reply: make(chan result, 1)},
	}
	s.processRound(batch)

	res5 := <-batch[0].reply
	res8 := <-batch[1].reply
	if res5.err != nil || res8.err != nil {
		t.Fatalf("expected round to succeed, got %v / %v", res5.err, res8.err)
	}
	if res5.highScore {
		t.Fatal("expected the 5-submission to resolve false")
	}
	if !res8.highScore {
		t.Fatal("expected the 8-submission to resolve true")
	}

	entries := s.TopN(1)
	if len(entries) != 1 || entries[0].Score != 8 {
		t.Fatalf("expected stored score 8, got %v", entries)
	}
}

func TestRoundTripAcrossStores(t *testing.T) {
	s, path := newTestStore(t)
	if _, err := s.Submit(context.Background(), "ann", 4); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := s.Submit(context.Background(), "bo", 9); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	s.Close()

	reopened := NewStore(path, nil, nil)
	defer reopened.Close()

	entries := reopened.TopN(10)
	want := []Entry{{Nickname: "bo", Score: 9}, {Nickname: "ann", Score: 4}}
	if len(entries) != len(want) {
		t.Fatalf("expected %v, got %v", want, entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, entries)
		}
	}
}

func TestConcurrentSubmissionsKeepTheMaximum(t *testing.T) {
	s, _ := newTestStore(t)

	scores := []int{3, 11, 7, 11, 2, 9, 1, 10}
	var wg sync.WaitGroup
	for _, score := range scores {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			if _, err := s.Submit(context.Background(), "ann", score); err != nil {
				t.Errorf("submit %d failed: %v", score, err)
			}
		}(score)
	}
	wg.Wait()

	entries := s.TopN(1)
	if len(entries) != 1 || entries[0].Score != 11 {
		t.Fatalf("expected final score 11, got %v", entries)
	}
}

func TestTopNOrdersAndBreaksTies(t *testing.T) {
	s, _ := newTestStore(t)
	for nick, score := range map[string]int{"cy": 5, "ann": 9, "bo": 5, "dee": 1} {
		if _, err := s.Submit(context.Background(), nick, score); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	entries := s.TopN(3)
	want := []Entry{{Nickname: "ann", Score: 9}, {Nickname: "bo", Score: 5}, {Nickname: "cy", Score: 5}}
	if len(entries) != len(want) {
		t.Fatalf("expected %v, got %v", want, entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, entries)
		}
	}
}

func TestTopNTreatsMissingFileAsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	if entries := s.TopN(10); len(entries) != 0 {
		t.Fatalf("expected empty table, got %v", entries)
	}
}

func TestTopNTreatsCorruptFileAsEmpty(t *testing.T) {
	s, path := newTestStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	if entries := s.TopN(10); len(entries) != 0 {
		t.Fatalf("expected empty table, got %v", entries)
	}
}

func TestPersistFailureSurfacesStorageError(t *testing.T) {
	// The target directory does not exist, so the temp file cannot be
	// created and the round must fail for every caller.
	path := filepath.Join(t.TempDir(), "missing", "scores.json")
	s := NewStore(path, nil, nil)
	defer s.Close()

	_, err := s.Submit(context.Background(), "ann", 5)
	if err == nil {
		t.Fatal("expected submit to fail")
	}
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected a StorageError, got %v", err)
	}

	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected no scores file, got %v", statErr)
	}
}

func TestPersistLeavesNoTempArtifacts(t *testing.T) {
	s, path := newTestStore(t)
	if _, err := s.Submit(context.Background(), "ann", 5); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	dirEntries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, de := range dirEntries {
		if strings.HasSuffix(de.Name(), ".tmp") {
			t.Fatalf("temp artifact left behind: %s", de.Name())
		}
	}
}

func TestWatchNotifiesOnChange(t *testing.T) {
	s, _ := newTestStore(t)
	watch := s.Watch()
	defer s.Unwatch(watch)

	if _, err := s.Submit(context.Background(), "ann", 5); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	entries := <-watch
	if len(entries) != 1 || entries[0] != (Entry{Nickname: "ann", Score: 5}) {
		t.Fatalf("expected [ann 5], got %v", entries)
	}

	// A round that changes nothing must not notify.
	if _, err := s.Submit(context.Background(), "ann", 2); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	select {
	case extra := <-watch:
		t.Fatalf("unexpected notification %v", extra)
	default:
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	s, _ := newTestStore(t)

	if _, err := s.Submit(context.Background(), "", 1); err == nil {
		t.Fatal("expected empty nickname to be rejected")
	}
	if _, err := s.Submit(context.Background(), "ann", -1); err == nil {
		t.Fatal("expected negative score to be rejected")
	}
}

func TestSubmitFailsAfterClose(t *testing.T) {
	s, _ := newTestStore(t)
	s.Close()

	if _, err := s.Submit(context.Background(), "ann", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
