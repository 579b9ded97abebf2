package board

import (
	"errors"
	"strings"
	"testing"
)

func TestPlaceEnforcesLimits(t *testing.T) {
	b := New()
	for _, cell := range []int{1, 2, 3} {
		if err := b.Place(cell, TagR1); err != nil {
			t.Fatalf("place R1 at %d: %v", cell, err)
		}
	}
	if err := b.Place(4, TagR1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached for 4th R1, got %v", err)
	}

	for _, cell := range []int{4, 5, 6, 7} {
		if err := b.Place(cell, TagReal); err != nil {
			t.Fatalf("place Real at %d: %v", cell, err)
		}
	}
	if err := b.Place(8, TagReal); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached for 5th Real, got %v", err)
	}

	if err := b.Place(8, TagFake); err != nil {
		t.Fatalf("place Fake: %v", err)
	}
	if err := b.Place(9, TagFake); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached for 2nd Fake, got %v", err)
	}
	if got := b.Len(); got != 8 {
		t.Fatalf("unexpected board size: %d", got)
	}
}

func TestPlaceSameTagIsNoop(t *testing.T) {
	b := New()
	if err := b.Place(5, TagFake); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := b.Place(5, TagFake); err != nil {
		t.Fatalf("re-place same tag should not hit limit: %v", err)
	}
}

func TestPlaceRejectsInvalidInput(t *testing.T) {
	b := New()
	if err := b.Place(0, TagR1); !errors.Is(err, ErrInvalidCell) {
		t.Fatalf("expected ErrInvalidCell, got %v", err)
	}
	if err := b.Place(13, TagR1); !errors.Is(err, ErrInvalidCell) {
		t.Fatalf("expected ErrInvalidCell, got %v", err)
	}
	if err := b.Place(1, Tag("Ghost")); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
}

func TestToggleSemantics(t *testing.T) {
	b := New()
	got, err := b.Toggle(2, TagReal)
	if err != nil || got != TagReal {
		t.Fatalf("first tap should place Real, got=%q err=%v", got, err)
	}
	got, err = b.Toggle(2, TagReal)
	if err != nil || got != TagNone {
		t.Fatalf("second tap should clear, got=%q err=%v", got, err)
	}

	if _, err := b.Toggle(3, TagFake); err != nil {
		t.Fatalf("tap fake: %v", err)
	}
	got, err = b.Toggle(4, TagFake)
	if !errors.Is(err, ErrLimitReached) || got != TagNone {
		t.Fatalf("expected limit on second Fake, got=%q err=%v", got, err)
	}

	got, err = b.Toggle(3, TagR1)
	if err != nil || got != TagR1 {
		t.Fatalf("tap with different tag should replace, got=%q err=%v", got, err)
	}
	if b.Count(TagFake) != 0 {
		t.Fatalf("replaced Fake should no longer count")
	}

	got, err = b.Toggle(3, TagNone)
	if err != nil || got != TagNone || b.Get(3) != TagNone {
		t.Fatalf("tap without selection should clear, got=%q err=%v", got, err)
	}
	if _, err := b.Toggle(3, TagNone); err != nil {
		t.Fatalf("tap on empty cell without selection: %v", err)
	}
}

func TestMoveKeepsCountAndOverwrites(t *testing.T) {
	b := New()
	_ = b.Place(1, TagReal)
	_ = b.Place(2, TagFake)

	tag, err := b.Move(1, 2)
	if err != nil || tag != TagReal {
		t.Fatalf("move: tag=%q err=%v", tag, err)
	}
	if b.Get(1) != TagNone || b.Get(2) != TagReal {
		t.Fatalf("unexpected board after move: %+v", b.Snapshot())
	}
	if b.Count(TagFake) != 0 || b.Count(TagReal) != 1 {
		t.Fatalf("unexpected counts after move: %+v", b.Snapshot())
	}
	if _, err := b.Move(1, 3); !errors.Is(err, ErrEmptyCell) {
		t.Fatalf("expected ErrEmptyCell, got %v", err)
	}
	if _, err := b.Move(2, 99); !errors.Is(err, ErrInvalidCell) {
		t.Fatalf("expected ErrInvalidCell, got %v", err)
	}
}

func TestSnapshotIsCopyAndResetClears(t *testing.T) {
	b := New()
	_ = b.Place(7, TagR1)
	snap := b.Snapshot()
	snap[8] = TagReal
	if b.Get(8) != TagNone {
		t.Fatalf("snapshot mutation leaked into board")
	}
	if !b.Remove(7) || b.Remove(7) {
		t.Fatalf("remove should report presence exactly once")
	}
	_ = b.Place(1, TagR1)
	_ = b.Place(12, TagReal)
	b.Reset()
	if b.Len() != 0 || len(b.Occupied()) != 0 {
		t.Fatalf("reset left cells: %+v", b.Snapshot())
	}
	if !b.CanAdd(TagFake) {
		t.Fatalf("expected Fake addable after reset")
	}
}

func TestParseTag(t *testing.T) {
	cases := map[string]Tag{"r1": TagR1, "REAL": TagReal, " fake ": TagFake, "none": TagNone}
	for raw, want := range cases {
		got, err := ParseTag(raw)
		if err != nil || got != want {
			t.Fatalf("ParseTag(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseTag("blue"); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
}

func TestLogicalLane(t *testing.T) {
	for visual := 0; visual < NumLanes; visual++ {
		lane, err := LogicalLane(visual, false)
		if err != nil || int(lane) != visual {
			t.Fatalf("unmirrored lane %d -> %d err=%v", visual, lane, err)
		}
		lane, err = LogicalLane(visual, true)
		if err != nil || int(lane) != 2-visual {
			t.Fatalf("mirrored lane %d -> %d err=%v", visual, lane, err)
		}
	}
	if _, err := LogicalLane(3, false); !errors.Is(err, ErrInvalidLane) {
		t.Fatalf("expected ErrInvalidLane, got %v", err)
	}
}

func TestLayoutAndGeometry(t *testing.T) {
	want := [Rows][Cols]int{{10, 11, 12}, {7, 8, 9}, {4, 5, 6}, {1, 2, 3}}
	if got := Layout(false); got != want {
		t.Fatalf("unexpected layout: %v", got)
	}
	wantMirrored := [Rows][Cols]int{{12, 11, 10}, {9, 8, 7}, {6, 5, 4}, {3, 2, 1}}
	if got := Layout(true); got != wantMirrored {
		t.Fatalf("unexpected mirrored layout: %v", got)
	}
	if got := LaneCells(1); got != [Rows]int{2, 5, 8, 11} {
		t.Fatalf("unexpected lane cells: %v", got)
	}
	for cell := MinCell; cell <= MaxCell; cell++ {
		if CellAt(RowOf(cell), ColOf(cell)) != cell {
			t.Fatalf("row/col round trip failed for %d", cell)
		}
	}
}

func TestRenderMarksLane(t *testing.T) {
	out := Render(Cells{1: TagReal, 11: TagR1}, false, 1)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != Rows+1 {
		t.Fatalf("unexpected line count: %d\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "[11:R1  ]") {
		t.Fatalf("expected highlighted R1 in back row: %q", lines[0])
	}
	if !strings.Contains(lines[3], " 1:Real") {
		t.Fatalf("expected Real in front row: %q", lines[3])
	}
	if !strings.Contains(lines[4], "^") {
		t.Fatalf("expected lane marker: %q", lines[4])
	}
}
