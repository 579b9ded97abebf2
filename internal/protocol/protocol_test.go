package protocol

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/danmuck/lanectl/internal/board"
	"github.com/danmuck/lanectl/internal/protocol/frame"
)

func payloadOf(t *testing.T, lane board.Lane, cells board.Cells) frame.Payload {
	t.Helper()
	f := Encode(lane, cells)
	if err := f.Validate(); err != nil {
		t.Fatalf("encoded frame invalid: %v", err)
	}
	return f.Payload()
}

func TestEncodeRegressionFrame(t *testing.T) {
	cells := board.Cells{1: board.TagReal, 5: board.TagR1}
	got := Encode(1, cells)
	want := frame.Frame{0xAA, 0x0C, 0x02, 0x00, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xBA}
	if got != want {
		t.Fatalf("frame mismatch:\n got=%s\nwant=%s", got, want)
	}
}

func TestEncodeFixedBytesAndChecksumForRandomBoards(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tags := []board.Tag{board.TagNone, board.TagR1, board.TagReal, board.TagFake}
	for i := 0; i < 200; i++ {
		cells := board.Cells{}
		for cell := board.MinCell; cell <= board.MaxCell; cell++ {
			if tag := tags[rng.Intn(len(tags))]; tag != board.TagNone {
				cells[cell] = tag
			}
		}
		for lane := board.Lane(0); lane < board.NumLanes; lane++ {
			f := Encode(lane, cells)
			if len(f.Bytes()) != frame.Size {
				t.Fatalf("unexpected size %d", len(f.Bytes()))
			}
			if f[0] != 0xAA || f[1] != 12 {
				t.Fatalf("bad header: %s", f)
			}
			sum := 0xAA + 12
			for _, b := range f[2:14] {
				sum += int(b)
			}
			if f[14] != byte(sum&0xFF) {
				t.Fatalf("bad checksum: %s", f)
			}
			if f[11] != 0 || f[12] != 0 || f[13] != 0 {
				t.Fatalf("padding not zero: %s", f)
			}
			if int(f[2]) != lane.Value() {
				t.Fatalf("lane value: got=%d want=%d", f[2], lane.Value())
			}
			if again := Encode(lane, cells); again != f {
				t.Fatalf("encode not deterministic: %s vs %s", f, again)
			}
		}
	}
}

func TestEncodeEmptyBoard(t *testing.T) {
	for lane := board.Lane(0); lane < board.NumLanes; lane++ {
		for _, cells := range []board.Cells{nil, {}} {
			p := payloadOf(t, lane, cells)
			for i, b := range p[1:] {
				if b != 0 {
					t.Fatalf("lane %d byte %d not zero: %v", lane, i+1, p)
				}
			}
		}
	}
}

func TestEncodeObjectCodes(t *testing.T) {
	for cell := board.MinCell; cell <= board.MaxCell; cell++ {
		lane := board.Lane(board.ColOf(cell))
		row := board.RowOf(cell)

		p := payloadOf(t, lane, board.Cells{cell: board.TagR1})
		if p[1+row] != ObjectR1 {
			t.Fatalf("R1 at %d: object byte=%d", cell, p[1+row])
		}

		p = payloadOf(t, lane, board.Cells{cell: board.TagReal})
		want := byte(cell)
		if cell == 1 {
			want = ObjectRealCell1
		}
		if p[1+row] != want {
			t.Fatalf("Real at %d: object byte=%d want=%d", cell, p[1+row], want)
		}

		p = payloadOf(t, lane, board.Cells{cell: board.TagFake})
		if p[1+row] != 0 {
			t.Fatalf("Fake at %d: object byte=%d", cell, p[1+row])
		}
	}
}

func TestEncodeRealAtCellOneIsEleven(t *testing.T) {
	p := payloadOf(t, 0, board.Cells{1: board.TagReal})
	if p[1] != 11 {
		t.Fatalf("expected 11, got %d", p[1])
	}
}

func TestEncodeRealAtCellFour(t *testing.T) {
	p := payloadOf(t, 0, board.Cells{4: board.TagReal})
	if p[2] != 4 {
		t.Fatalf("expected object byte 4 in row 1, got %d", p[2])
	}
}

func TestEncodeIgnoresOtherLanes(t *testing.T) {
	p := payloadOf(t, 2, board.Cells{1: board.TagR1, 4: board.TagR1, 8: board.TagReal})
	for r := 0; r < board.Rows; r++ {
		if p[1+r] != 0 {
			t.Fatalf("row %d picked up marker outside lane: %v", r, p)
		}
	}
}

func TestEncodeNavigationOuterLanes(t *testing.T) {
	for _, lane := range []board.Lane{0, 2} {
		p := payloadOf(t, lane, board.Cells{2: board.TagReal})
		if p[5] != 2 {
			t.Fatalf("lane %d: expected nav 2 in row 0, got %d", lane, p[5])
		}
		p = payloadOf(t, lane, board.Cells{2: board.TagR1, 1: board.TagReal, 3: board.TagReal})
		if p[5] != 0 {
			t.Fatalf("lane %d: expected nav 0 without Real at mid, got %d", lane, p[5])
		}
		p = payloadOf(t, lane, board.Cells{11: board.TagReal})
		if p[8] != 11 {
			t.Fatalf("lane %d: expected nav 11 in row 3, got %d", lane, p[8])
		}
	}
}

func TestEncodeNavigationMiddleLane(t *testing.T) {
	cases := []struct {
		name  string
		cells board.Cells
		row   int
		want  byte
	}{
		{name: "both", cells: board.Cells{4: board.TagReal, 6: board.TagReal}, row: 1, want: 46},
		{name: "left", cells: board.Cells{7: board.TagReal}, row: 2, want: 7},
		{name: "right", cells: board.Cells{3: board.TagReal}, row: 0, want: 3},
		{name: "neither", cells: board.Cells{4: board.TagFake, 6: board.TagR1}, row: 1, want: 0},
		{name: "back row both", cells: board.Cells{10: board.TagReal, 12: board.TagReal}, row: 3, want: 112},
		{name: "middle ignored", cells: board.Cells{5: board.TagReal}, row: 1, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := payloadOf(t, 1, tc.cells)
			if got := p[5+tc.row]; got != tc.want {
				t.Fatalf("row %d nav: got=%d want=%d payload=%v", tc.row, got, tc.want, p)
			}
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	cells := board.Cells{2: board.TagR1, 4: board.TagReal, 6: board.TagReal, 11: board.TagReal}
	cmd, err := Decode(Encode(1, cells))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Lane() != 1 || cmd.LaneValue != 2 {
		t.Fatalf("unexpected lane: %+v", cmd)
	}
	if cmd.Objects != [board.Rows]byte{1, 0, 0, 11} {
		t.Fatalf("unexpected objects: %v", cmd.Objects)
	}
	if cmd.Navigation != [board.Rows]byte{0, 46, 0, 0} {
		t.Fatalf("unexpected navigation: %v", cmd.Navigation)
	}
	if cmd.String() != "lane=2 obj=[1 0 0 11] nav=[0 46 0 0]" {
		t.Fatalf("unexpected string: %q", cmd.String())
	}
}

func TestDecodeRejectsBadLane(t *testing.T) {
	f := frame.Build(frame.Payload{4})
	if _, err := Decode(f); !errors.Is(err, ErrInvalidLaneValue) {
		t.Fatalf("expected ErrInvalidLaneValue, got %v", err)
	}
	f[frame.OffsetChecksum]++
	if _, err := Decode(f); !errors.Is(err, frame.ErrBadChecksum) {
		t.Fatalf("expected ErrBadChecksum, got %v", err)
	}
}
