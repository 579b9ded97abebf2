package uart

import (
	"errors"
	"fmt"
	"strings"

	bugst "go.bug.st/serial"
)

// BugstOpener opens ports with go.bug.st/serial. It supports explicit
// modem line control and separate RX/TX purges.
type BugstOpener struct{}

func (BugstOpener) Open(name string, cfg LineConfig) (Port, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode := &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   bugstParity(cfg.Parity),
		StopBits: bugst.OneStopBit,
		InitialStatusBits: &bugst.ModemOutputBits{
			DTR: cfg.DTR,
			RTS: cfg.RTS,
		},
	}
	if cfg.StopBits == 2 {
		mode.StopBits = bugst.TwoStopBits
	}
	p, err := bugst.Open(name, mode)
	if err != nil {
		return nil, mapBugstError(name, err)
	}
	if err := p.SetDTR(cfg.DTR); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: set dtr on %s: %v", ErrConnectionUnavailable, name, err)
	}
	if err := p.SetRTS(cfg.RTS); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: set rts on %s: %v", ErrConnectionUnavailable, name, err)
	}
	return p, nil
}

func bugstParity(raw string) bugst.Parity {
	switch strings.ToLower(raw) {
	case "odd":
		return bugst.OddParity
	case "even":
		return bugst.EvenParity
	default:
		return bugst.NoParity
	}
}

func mapBugstError(name string, err error) error {
	var perr *bugst.PortError
	if errors.As(err, &perr) {
		switch perr.Code() {
		case bugst.PermissionDenied:
			return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, name, err)
		case bugst.PortNotFound, bugst.PortBusy, bugst.InvalidSerialPort:
			return fmt.Errorf("%w: %s: %v", ErrConnectionUnavailable, name, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrConnectionUnavailable, name, err)
}
