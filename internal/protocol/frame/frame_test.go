package frame

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestBuildLayoutAndChecksum(t *testing.T) {
	f := Build(Payload{2, 0, 1, 0, 0, 1, 0, 0, 0})
	want := Frame{0xAA, 12, 2, 0, 1, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0xBA}
	if f != want {
		t.Fatalf("frame mismatch: got=%s want=%s", f, want)
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if f.Payload() != (Payload{2, 0, 1, 0, 0, 1, 0, 0, 0}) {
		t.Fatalf("payload accessor mismatch: %v", f.Payload())
	}
}

func TestChecksumWrapsModulo256(t *testing.T) {
	p := Payload{3, 11, 255, 255, 255, 112, 0, 0, 0}
	f := Build(p)
	sum := 0xAA + 12
	for _, b := range p {
		sum += int(b)
	}
	if f.Checksum() != byte(sum&0xFF) {
		t.Fatalf("checksum: got=0x%02X want=0x%02X", f.Checksum(), sum&0xFF)
	}
}

func TestValidateRejectsCorruption(t *testing.T) {
	good := Build(Payload{1, 1, 0, 0, 0, 2, 0, 0, 0})

	bad := good
	bad[OffsetSync] = 0x55
	if err := bad.Validate(); !errors.Is(err, ErrBadSync) {
		t.Fatalf("expected ErrBadSync, got %v", err)
	}

	bad = good
	bad[OffsetLength] = 4
	if err := bad.Validate(); !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}

	bad = good
	bad[OffsetPadding] = 1
	if err := bad.Validate(); !errors.Is(err, ErrNonZeroPadding) {
		t.Fatalf("expected ErrNonZeroPadding, got %v", err)
	}

	bad = good
	bad[OffsetPayload+4]++
	if err := bad.Validate(); !errors.Is(err, ErrBadChecksum) {
		t.Fatalf("expected ErrBadChecksum, got %v", err)
	}
}

func TestParseHex(t *testing.T) {
	f, err := ParseHex("AA 0C 02 00 01 00 00 01 00 00 00 00 00 00 BA")
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if f.String() != "AA0C020001000001000000000000BA" {
		t.Fatalf("unexpected string: %s", f)
	}
	if _, err := ParseHex("AA0C"); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
	if _, err := ParseHex("zz"); !errors.Is(err, ErrInvalidHexFrame) {
		t.Fatalf("expected ErrInvalidHexFrame, got %v", err)
	}
}

func TestReadFrameResynchronizes(t *testing.T) {
	f := Build(Payload{1, 0, 0, 0, 0, 2, 0, 0, 0})
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0xAA, 0x01, 0x7F})
	for i := 0; i < 3; i++ {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	r := bufio.NewReader(&buf)
	for i := 0; i < 3; i++ {
		got, err := ReadFrame(r)
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if got != f {
			t.Fatalf("frame %d mismatch: got=%s want=%s", i, got, f)
		}
	}
	if _, err := ReadFrame(r); !errors.Is(err, ErrSyncNotFound) {
		t.Fatalf("expected ErrSyncNotFound at end, got %v", err)
	}
}
