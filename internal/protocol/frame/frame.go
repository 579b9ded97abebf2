package frame

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	Sync         byte = 0xAA
	LengthMarker byte = 12
	Size              = 15
	PayloadLen        = 9
	PaddingLen        = 3

	OffsetSync     = 0
	OffsetLength   = 1
	OffsetPayload  = 2
	OffsetPadding  = OffsetPayload + PayloadLen
	OffsetChecksum = Size - 1
)

var (
	ErrShortFrame      = errors.New("frame: short frame")
	ErrBadSync         = errors.New("frame: bad sync byte")
	ErrBadLength       = errors.New("frame: bad length marker")
	ErrBadChecksum     = errors.New("frame: checksum mismatch")
	ErrNonZeroPadding  = errors.New("frame: non-zero padding")
	ErrSyncNotFound    = errors.New("frame: sync byte not found")
	ErrInvalidHexFrame = errors.New("frame: invalid hex")
)

// Payload is the 9-byte body: lane value, 4 object codes, 4 navigation codes.
type Payload [PayloadLen]byte

// Frame is one complete wire message. It is a value type; copies are
// independent.
type Frame [Size]byte

// Build wraps payload with sync, length marker, zero padding and checksum.
func Build(p Payload) Frame {
	var f Frame
	f[OffsetSync] = Sync
	f[OffsetLength] = LengthMarker
	copy(f[OffsetPayload:OffsetPadding], p[:])
	f[OffsetChecksum] = Checksum(f[OffsetPayload:OffsetChecksum])
	return f
}

// Checksum sums sync, length marker and body bytes modulo 256.
func Checksum(body []byte) byte {
	sum := uint(Sync) + uint(LengthMarker)
	for _, b := range body {
		sum += uint(b)
	}
	return byte(sum & 0xFF)
}

func (f Frame) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, f[:])
	return out
}

func (f Frame) Payload() Payload {
	var p Payload
	copy(p[:], f[OffsetPayload:OffsetPadding])
	return p
}

func (f Frame) Checksum() byte {
	return f[OffsetChecksum]
}

func (f Frame) String() string {
	return strings.ToUpper(hex.EncodeToString(f[:]))
}

// Validate checks the fixed bytes and the checksum.
func (f Frame) Validate() error {
	if f[OffsetSync] != Sync {
		return fmt.Errorf("%w: 0x%02X", ErrBadSync, f[OffsetSync])
	}
	if f[OffsetLength] != LengthMarker {
		return fmt.Errorf("%w: %d", ErrBadLength, f[OffsetLength])
	}
	for _, b := range f[OffsetPadding:OffsetChecksum] {
		if b != 0 {
			return ErrNonZeroPadding
		}
	}
	want := Checksum(f[OffsetPayload:OffsetChecksum])
	if f[OffsetChecksum] != want {
		return fmt.Errorf("%w: got=0x%02X want=0x%02X", ErrBadChecksum, f[OffsetChecksum], want)
	}
	return nil
}

// Decode copies b into a Frame and validates it.
func Decode(b []byte) (Frame, error) {
	var f Frame
	if len(b) < Size {
		return f, ErrShortFrame
	}
	copy(f[:], b[:Size])
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// ParseHex decodes a frame from hex, ignoring whitespace, colons and an
// optional 0x prefix.
func ParseHex(s string) (Frame, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(strings.TrimSpace(s))
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidHexFrame, err)
	}
	if len(raw) != Size {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(raw))
	}
	return Decode(raw)
}

// WriteFrame writes f in a single call.
func WriteFrame(w io.Writer, f Frame) error {
	n, err := w.Write(f[:])
	if err != nil {
		return err
	}
	if n != Size {
		return io.ErrShortWrite
	}
	return nil
}

// ReadFrame scans r for the next sync byte and returns the first valid
// frame after it. Bytes that do not start a valid frame are skipped, which
// mirrors how a polling receiver resynchronizes on repeated frames.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Frame{}, ErrSyncNotFound
			}
			return Frame{}, err
		}
		if b != Sync {
			continue
		}
		rest, err := r.Peek(Size - 1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Frame{}, ErrShortFrame
			}
			return Frame{}, err
		}
		var f Frame
		f[0] = b
		copy(f[1:], rest)
		if f.Validate() != nil {
			continue
		}
		if _, err := r.Discard(Size - 1); err != nil {
			return Frame{}, err
		}
		return f, nil
	}
}
