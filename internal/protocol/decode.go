package protocol

import (
	"fmt"
	"strings"

	"github.com/danmuck/lanectl/internal/board"
	"github.com/danmuck/lanectl/internal/protocol/frame"
)

// Command is the receiver's view of a frame.
type Command struct {
	LaneValue  int
	Objects    [board.Rows]byte
	Navigation [board.Rows]byte
}

// Decode validates f and splits its payload. Lane values outside 1..3 are
// rejected.
func Decode(f frame.Frame) (Command, error) {
	if err := f.Validate(); err != nil {
		return Command{}, err
	}
	p := f.Payload()
	lv := int(p[0])
	if lv < 1 || lv > board.NumLanes {
		return Command{}, fmt.Errorf("%w: %d", ErrInvalidLaneValue, lv)
	}
	cmd := Command{LaneValue: lv}
	copy(cmd.Objects[:], p[1:1+board.Rows])
	copy(cmd.Navigation[:], p[1+board.Rows:])
	return cmd, nil
}

func (c Command) Lane() board.Lane {
	return board.Lane(c.LaneValue - 1)
}

func (c Command) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "lane=%d", c.LaneValue)
	sb.WriteString(" obj=")
	writeCodes(&sb, c.Objects[:])
	sb.WriteString(" nav=")
	writeCodes(&sb, c.Navigation[:])
	return sb.String()
}

func writeCodes(sb *strings.Builder, codes []byte) {
	sb.WriteByte('[')
	for i, b := range codes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(sb, "%d", b)
	}
	sb.WriteByte(']')
}
