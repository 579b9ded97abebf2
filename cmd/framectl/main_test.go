package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/lanectl/internal/board"
	"github.com/danmuck/lanectl/internal/protocol/frame"
)

func TestEncodeMatchesReferenceFrame(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"encode", "-lane", "2", "-cells", "1=Real,5=R1"}, &out); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "AA0C020001000001000000000000BA" {
		t.Fatalf("unexpected frame: %s", got)
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	if err := run([]string{"encode", "-lane", "4"}, &bytes.Buffer{}); !errors.Is(err, board.ErrInvalidLane) {
		t.Fatalf("expected invalid lane, got %v", err)
	}
	if err := run([]string{"encode", "-cells", "1=Fake,2=Fake"}, &bytes.Buffer{}); !errors.Is(err, board.ErrLimitReached) {
		t.Fatalf("expected limit error, got %v", err)
	}
	if err := run([]string{"encode", "-cells", "1:Real"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected pair error")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"decode", "AA0C020001000001000000000000BA"}, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(out.String(), "lane=2") {
		t.Fatalf("unexpected decode output: %q", out.String())
	}
	if err := run([]string{"decode", "AA0C020001000001000000000000BB"}, &bytes.Buffer{}); !errors.Is(err, frame.ErrBadChecksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	if err := run(nil, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := run([]string{"send", "-lane", "1"}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
