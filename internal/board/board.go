package board

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	Rows     = 4
	Cols     = 3
	MinCell  = 1
	MaxCell  = Rows * Cols
	NumLanes = Cols
)

var (
	ErrInvalidCell  = errors.New("board: invalid cell")
	ErrInvalidTag   = errors.New("board: invalid marker tag")
	ErrLimitReached = errors.New("board: marker limit reached")
	ErrEmptyCell    = errors.New("board: cell is empty")
	ErrInvalidLane  = errors.New("board: invalid lane")
)

// Tag is the marker placed on a cell.
type Tag string

const (
	TagNone Tag = ""
	TagR1   Tag = "R1"
	TagReal Tag = "Real"
	TagFake Tag = "Fake"
)

// Tags lists the placeable markers in palette order.
var Tags = []Tag{TagR1, TagReal, TagFake}

// Limit returns the maximum number of markers of a tag on one board.
func (t Tag) Limit() int {
	switch t {
	case TagFake:
		return 1
	case TagReal:
		return 4
	case TagR1:
		return 3
	default:
		return 0
	}
}

func (t Tag) Valid() bool {
	return t.Limit() > 0
}

// ParseTag accepts the canonical tag names case-insensitively.
func ParseTag(raw string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "r1":
		return TagR1, nil
	case "real":
		return TagReal, nil
	case "fake":
		return TagFake, nil
	case "", "none":
		return TagNone, nil
	default:
		return TagNone, fmt.Errorf("%w: %q", ErrInvalidTag, raw)
	}
}

// Cells is a sparse cell->tag mapping. A missing key is an empty cell.
type Cells map[int]Tag

// Get returns the tag at cell, or TagNone.
func (c Cells) Get(cell int) Tag {
	if c == nil {
		return TagNone
	}
	return c[cell]
}

func ValidCell(cell int) bool {
	return cell >= MinCell && cell <= MaxCell
}

// CellAt returns the cell number for a logical row and column.
func CellAt(row, col int) int {
	return row*Cols + col + 1
}

// RowOf returns the logical row of a cell.
func RowOf(cell int) int {
	return (cell - 1) / Cols
}

// ColOf returns the logical column of a cell.
func ColOf(cell int) int {
	return (cell - 1) % Cols
}

// Board is the in-memory marker placement. It is safe for concurrent use.
type Board struct {
	mu    sync.RWMutex
	cells Cells
}

func New() *Board {
	return &Board{cells: make(Cells)}
}

// Place assigns tag to cell, enforcing per-tag limits. Re-placing the tag a
// cell already holds is a no-op.
func (b *Board) Place(cell int, tag Tag) error {
	if !ValidCell(cell) {
		return fmt.Errorf("%w: %d", ErrInvalidCell, cell)
	}
	if !tag.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cells[cell] == tag {
		return nil
	}
	if b.countLocked(tag) >= tag.Limit() {
		return fmt.Errorf("%w: %s (max %d)", ErrLimitReached, tag, tag.Limit())
	}
	b.cells[cell] = tag
	return nil
}

// Toggle applies a tap on cell with the selected palette tag. Tapping a cell
// that already holds the selected tag clears it. With TagNone selected an
// occupied cell is cleared. It reports the tag left in the cell.
func (b *Board) Toggle(cell int, selected Tag) (Tag, error) {
	if !ValidCell(cell) {
		return TagNone, fmt.Errorf("%w: %d", ErrInvalidCell, cell)
	}
	if selected != TagNone && !selected.Valid() {
		return TagNone, fmt.Errorf("%w: %q", ErrInvalidTag, selected)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	current, occupied := b.cells[cell]
	if selected == TagNone || current == selected {
		if occupied {
			delete(b.cells, cell)
		}
		return TagNone, nil
	}
	if b.countLocked(selected) >= selected.Limit() {
		return current, fmt.Errorf("%w: %s (max %d)", ErrLimitReached, selected, selected.Limit())
	}
	b.cells[cell] = selected
	return selected, nil
}

// Move drags the marker at from onto to, replacing whatever to held. Limits
// are not re-checked since the marker already counts against them.
func (b *Board) Move(from, to int) (Tag, error) {
	if !ValidCell(from) {
		return TagNone, fmt.Errorf("%w: %d", ErrInvalidCell, from)
	}
	if !ValidCell(to) {
		return TagNone, fmt.Errorf("%w: %d", ErrInvalidCell, to)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tag, ok := b.cells[from]
	if !ok {
		return TagNone, fmt.Errorf("%w: %d", ErrEmptyCell, from)
	}
	delete(b.cells, from)
	b.cells[to] = tag
	return tag, nil
}

// Remove clears cell and reports whether it held a marker.
func (b *Board) Remove(cell int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cells[cell]; !ok {
		return false
	}
	delete(b.cells, cell)
	return true
}

func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cells = make(Cells)
}

func (b *Board) Get(cell int) Tag {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cells[cell]
}

func (b *Board) Count(tag Tag) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.countLocked(tag)
}

func (b *Board) CanAdd(tag Tag) bool {
	return tag.Valid() && b.Count(tag) < tag.Limit()
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cells)
}

// Snapshot returns a copy of the current placement.
func (b *Board) Snapshot() Cells {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(Cells, len(b.cells))
	for cell, tag := range b.cells {
		out[cell] = tag
	}
	return out
}

// Occupied returns the occupied cells in ascending order.
func (b *Board) Occupied() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]int, 0, len(b.cells))
	for cell := range b.cells {
		out = append(out, cell)
	}
	sort.Ints(out)
	return out
}

func (b *Board) countLocked(tag Tag) int {
	n := 0
	for _, t := range b.cells {
		if t == tag {
			n++
		}
	}
	return n
}
