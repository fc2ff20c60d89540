// Package render draws the session screens as ANSI terminal frames.
package render

import (
	"fmt"
	"strings"

	"snakepit/server/internal/game"
	"snakepit/server/internal/leaderboard"
	"snakepit/server/internal/session"
)

const (
	clearScreen = "\x1b[2J\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
	crlf        = "\r\n"
)

const (
	headGlyph   = 'O'
	bodyGlyph   = 'o'
	foodGlyph   = '*'
	borderGlyph = '#'
	emptyGlyph  = ' '
)

// Terminal renders each screen as a full repaint: clear, home, draw.
// Every frame is self-contained so a dropped frame never corrupts the
// display.
type Terminal struct{}

func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) NicknamePrompt(buffer string) []byte {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(showCursor)
	b.WriteString("SNAKEPIT" + crlf + crlf)
	b.WriteString("Pick a nickname (letters, digits, _ and -, max 15)." + crlf)
	b.WriteString("Press Enter when done." + crlf + crlf)
	b.WriteString("> " + buffer)
	return []byte(b.String())
}

func (t *Terminal) Menu(nickname string) []byte {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(hideCursor)
	b.WriteString("SNAKEPIT" + crlf + crlf)
	b.WriteString(fmt.Sprintf("Hello, %s!%s%s", nickname, crlf, crlf))
	b.WriteString("  [space] play" + crlf)
	b.WriteString("  [l]     leaderboard" + crlf)
	return []byte(b.String())
}

func (t *Terminal) Frame(snap game.Snapshot) []byte {
	grid := make([][]byte, snap.Height)
	for y := range grid {
		row := make([]byte, snap.Width)
		for x := range row {
			row[x] = emptyGlyph
		}
		grid[y] = row
	}
	grid[snap.Food.Y][snap.Food.X] = foodGlyph
	for i := len(snap.Snake) - 1; i >= 0; i-- {
		c := snap.Snake[i]
		glyph := byte(bodyGlyph)
		if i == 0 {
			glyph = headGlyph
		}
		grid[c.Y][c.X] = glyph
	}

	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(hideCursor)
	b.WriteString(fmt.Sprintf("Score: %d%s", snap.Score, crlf))

	border := strings.Repeat(string(borderGlyph), snap.Width+2)
	b.WriteString(border + crlf)
	for _, row := range grid {
		b.WriteByte(borderGlyph)
		b.Write(row)
		b.WriteByte(borderGlyph)
		b.WriteString(crlf)
	}
	b.WriteString(border + crlf)
	return []byte(b.String())
}

func (t *Terminal) GameOver(score int, verdict session.Verdict) []byte {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(hideCursor)
	b.WriteString("GAME OVER" + crlf + crlf)
	b.WriteString(fmt.Sprintf("Final score: %d%s", score, crlf))
	switch verdict {
	case session.VerdictPending:
		b.WriteString("Checking the leaderboard..." + crlf)
	case session.VerdictHighScore:
		b.WriteString("NEW HIGH SCORE!" + crlf)
	case session.VerdictNotHighScore:
		b.WriteString("No new record this time." + crlf)
	}
	b.WriteString(crlf)
	b.WriteString("  [r] play again" + crlf)
	b.WriteString("  [l] leaderboard" + crlf)
	b.WriteString("  [q] quit" + crlf)
	return []byte(b.String())
}

func (t *Terminal) Leaderboard(entries []leaderboard.Entry) []byte {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(hideCursor)
	b.WriteString("LEADERBOARD" + crlf + crlf)
	if len(entries) == 0 {
		b.WriteString("No scores yet." + crlf)
	}
	for i, entry := range entries {
		b.WriteString(fmt.Sprintf("%2d. %-15s %6d%s", i+1, entry.Nickname, entry.Score, crlf))
	}
	b.WriteString(crlf)
	b.WriteString("Press any key to go back." + crlf)
	return []byte(b.String())
}
