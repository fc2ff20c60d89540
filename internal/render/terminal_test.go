package render

import (
	"strings"
	"testing"

	"snakepit/server/internal/game"
	"snakepit/server/internal/leaderboard"
	"snakepit/server/internal/session"
)

func TestNicknamePromptEchoesBuffer(t *testing.T) {
	term := NewTerminal()
	frame := string(term.NicknamePrompt("an"))

	if !strings.Contains(frame, "> an") {
		t.Fatalf("expected prompt to echo buffer, got %q", frame)
	}
}

func TestFrameDrawsSnakeFoodAndScore(t *testing.T) {
	term := NewTerminal()
	snap := game.Snapshot{
		Width:  6,
		Height: 4,
		Snake:  []game.Cell{{X: 2, Y: 1}, {X: 1, Y: 1}},
		Food:   game.Cell{X: 4, Y: 2},
		Score:  3,
	}
	frame := string(term.Frame(snap))

	if !strings.Contains(frame, "Score: 3") {
		t.Fatalf("expected score line, got %q", frame)
	}
	if strings.Count(frame, string(rune(headGlyph))) < 1 {
		t.Fatalf("expected a head glyph, got %q", frame)
	}
	if !strings.Contains(frame, string(rune(foodGlyph))) {
		t.Fatalf("expected a food glyph, got %q", frame)
	}

	// Board rows are width+2 with borders on both sides.
	lines := strings.Split(frame, "\r\n")
	var boardRows int
	for _, line := range lines {
		if strings.HasPrefix(line, "#") && strings.HasSuffix(line, "#") && len(line) == snap.Width+2 {
			boardRows++
		}
	}
	if boardRows != snap.Height+2 {
		t.Fatalf("expected %d bordered rows, got %d", snap.Height+2, boardRows)
	}
}

func TestGameOverShowsVerdict(t *testing.T) {
	term := NewTerminal()

	cases := []struct {
		verdict session.Verdict
		marker  string
	}{
		{session.VerdictPending, "Checking"},
		{session.VerdictHighScore, "NEW HIGH SCORE"},
		{session.VerdictNotHighScore, "No new record"},
	}
	for _, tc := range cases {
		frame := string(term.GameOver(7, tc.verdict))
		if !strings.Contains(frame, tc.marker) {
			t.Fatalf("expected %q in frame, got %q", tc.marker, frame)
		}
		if !strings.Contains(frame, "Final score: 7") {
			t.Fatalf("expected final score, got %q", frame)
		}
	}
}

func TestLeaderboardListsEntries(t *testing.T) {
	term := NewTerminal()
	frame := string(term.Leaderboard([]leaderboard.Entry{
		{Nickname: "ann", Score: 12},
		{Nickname: "bo", Score: 4},
	}))

	if !strings.Contains(frame, "ann") || !strings.Contains(frame, "12") {
		t.Fatalf("expected top entry, got %q", frame)
	}
	if strings.Index(frame, "ann") > strings.Index(frame, "bo") {
		t.Fatalf("expected entries in rank order, got %q", frame)
	}
}

func TestLeaderboardEmptyTable(t *testing.T) {
	term := NewTerminal()
	frame := string(term.Leaderboard(nil))

	if !strings.Contains(frame, "No scores yet") {
		t.Fatalf("expected empty-table message, got %q", frame)
	}
}
