package uart

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	tarm "github.com/tarm/serial"
)

// TarmOpener opens ports with github.com/tarm/serial. That driver has no
// modem line control (the OS asserts DTR/RTS on open) and only a combined
// RX+TX flush, so both purges map to Flush.
type TarmOpener struct{}

type tarmPort struct {
	*tarm.Port
}

func (p tarmPort) ResetInputBuffer() error {
	return p.Port.Flush()
}

func (p tarmPort) ResetOutputBuffer() error {
	return p.Port.Flush()
}

func (TarmOpener) Open(name string, cfg LineConfig) (Port, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tc := &tarm.Config{
		Name:     name,
		Baud:     cfg.BaudRate,
		Size:     byte(cfg.DataBits),
		Parity:   tarmParity(cfg.Parity),
		StopBits: tarm.Stop1,
	}
	if cfg.StopBits == 2 {
		tc.StopBits = tarm.Stop2
	}
	p, err := tarm.OpenPort(tc)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %v", ErrPermissionDenied, name, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectionUnavailable, name, err)
	}
	return tarmPort{Port: p}, nil
}

func tarmParity(raw string) tarm.Parity {
	switch strings.ToLower(raw) {
	case "odd":
		return tarm.ParityOdd
	case "even":
		return tarm.ParityEven
	default:
		return tarm.ParityNone
	}
}
