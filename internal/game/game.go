package game

import (
	"math/rand"
	"time"
)

// Direction is a snake heading on the board grid.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// Delta returns the per-tick cell offset for the direction.
func (d Direction) Delta() (int, int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	default:
		return 0, 0
	}
}

// Opposite returns the reversing direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	default:
		return DirLeft
	}
}

// Cell is a board position in [0,width) x [0,height).
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// StepResult reports what one simulation tick did.
type StepResult struct {
	Died bool
	Ate  bool
}

// Snapshot is a copy of the visible game state for rendering.
type Snapshot struct {
	Width  int
	Height int
	Snake  []Cell
	Food   Cell
	Score  int
	Over   bool
}

// Game is one snake run on a fixed-size board. It carries no locking;
// the owning session serializes access.
type Game struct {
	width   int
	height  int
	snake   []Cell // head first
	dir     Direction
	pending Direction
	food    Cell
	score   int
	over    bool
	rng     *rand.Rand
}

// New starts a run with the snake in the middle of the board heading
// right and food placed on a free cell. A nil rng falls back to a
// time-seeded source.
func New(width, height int, rng *rand.Rand) *Game {
	if width < 4 {
		width = 4
	}
	if height < 4 {
		height = 4
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g := &Game{
		width:   width,
		height:  height,
		snake:   []Cell{{X: width / 2, Y: height / 2}},
		dir:     DirRight,
		pending: DirRight,
		rng:     rng,
	}
	g.placeFood()
	return g
}

// SetDirection stores the direction to apply on the next tick. A
// request to reverse directly into the current heading is rejected;
// only turns are accepted.
func (g *Game) SetDirection(d Direction) bool {
	if g.over {
		return false
	}
	if d.Opposite() == g.dir {
		return false
	}
	g.pending = d
	return true
}

// Step advances the simulation by one tick.
//
// Collision policy: the new head is checked against the entire body
// before the tail is removed, so moving into the cell the tail is
// about to vacate ends the game.
func (g *Game) Step() StepResult {
	if g.over {
		return StepResult{}
	}

	g.dir = g.pending
	dx, dy := g.dir.Delta()
	head := Cell{X: g.snake[0].X + dx, Y: g.snake[0].Y + dy}

	if head.X < 0 || head.X >= g.width || head.Y < 0 || head.Y >= g.height {
		g.over = true
		return StepResult{Died: true}
	}
	for _, c := range g.snake {
		if c == head {
			g.over = true
			return StepResult{Died: true}
		}
	}

	g.snake = append([]Cell{head}, g.snake...)
	if head == g.food {
		g.score++
		g.placeFood()
		return StepResult{Ate: true}
	}
	g.snake = g.snake[:len(g.snake)-1]
	return StepResult{}
}

// placeFood relocates the food to a uniformly random cell not occupied
// by the snake. A fully occupied board leaves the food in place.
func (g *Game) placeFood() {
	occupied := make(map[Cell]struct{}, len(g.snake))
	for _, c := range g.snake {
		occupied[c] = struct{}{}
	}

	free := make([]Cell, 0, g.width*g.height-len(g.snake))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			c := Cell{X: x, Y: y}
			if _, ok := occupied[c]; !ok {
				free = append(free, c)
			}
		}
	}
	if len(free) == 0 {
		return
	}
	g.food = free[g.rng.Intn(len(free))]
}

// Score returns the number of food cells eaten this run.
func (g *Game) Score() int {
	return g.score
}

// Over reports whether the run has ended.
func (g *Game) Over() bool {
	return g.over
}

// Length returns the current body length.
func (g *Game) Length() int {
	return len(g.snake)
}

// Head returns the current head cell.
func (g *Game) Head() Cell {
	return g.snake[0]
}

// Snapshot copies the visible state for the presentation layer.
func (g *Game) Snapshot() Snapshot {
	body := make([]Cell, len(g.snake))
	copy(body, g.snake)
	return Snapshot{
		Width:  g.width,
		Height: g.height,
		Snake:  body,
		Food:   g.food,
		Score:  g.score,
		Over:   g.over,
	}
}
