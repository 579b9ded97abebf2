package board

import (
	"fmt"
	"strings"
)

// Lane is a logical (unmirrored) column index 0..2.
type Lane int

func (l Lane) Valid() bool {
	return l >= 0 && l < NumLanes
}

// Value is the 1-based lane number carried on the wire.
func (l Lane) Value() int {
	return int(l) + 1
}

// LogicalLane maps a lane picked on a possibly mirrored display back to its
// logical column.
func LogicalLane(visual int, mirrored bool) (Lane, error) {
	if visual < 0 || visual >= NumLanes {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLane, visual)
	}
	if mirrored {
		return Lane(NumLanes - 1 - visual), nil
	}
	return Lane(visual), nil
}

// Layout returns the display order of the grid: back row first, columns
// reversed when mirrored.
func Layout(mirrored bool) [Rows][Cols]int {
	var out [Rows][Cols]int
	for i := 0; i < Rows; i++ {
		row := Rows - 1 - i
		for c := 0; c < Cols; c++ {
			col := c
			if mirrored {
				col = Cols - 1 - c
			}
			out[i][c] = CellAt(row, col)
		}
	}
	return out
}

// LaneCells returns the cells of a logical lane from front row to back row.
func LaneCells(lane Lane) [Rows]int {
	var out [Rows]int
	for r := 0; r < Rows; r++ {
		out[r] = CellAt(r, int(lane))
	}
	return out
}

// Render draws cells as a plain-text grid in display order. visualLane marks
// the selected display column; pass -1 for none.
func Render(cells Cells, mirrored bool, visualLane int) string {
	var sb strings.Builder
	layout := Layout(mirrored)
	for _, row := range layout {
		for c, cell := range row {
			tag := cells.Get(cell)
			label := "."
			if tag != TagNone {
				label = string(tag)
			}
			lb, rb := " ", " "
			if c == visualLane {
				lb, rb = "[", "]"
			}
			fmt.Fprintf(&sb, "%s%2d:%-4s%s", lb, cell, label, rb)
		}
		sb.WriteByte('\n')
	}
	for c := 0; c < Cols; c++ {
		if c == visualLane {
			sb.WriteString("    ^    ")
		} else {
			sb.WriteString("         ")
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}
