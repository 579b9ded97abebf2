package uart

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrConnectionUnavailable = errors.New("uart: connection unavailable")
	ErrPermissionDenied      = errors.New("uart: permission denied")
	ErrWriteFailure          = errors.New("uart: write failed")
	ErrWriteTimeout          = errors.New("uart: write timeout")
	ErrPurgeFailure          = errors.New("uart: buffer purge failed")
	ErrInvalidLineConfig     = errors.New("uart: invalid line config")
)

// Port is an open serial handle.
type Port interface {
	io.Writer
	ResetInputBuffer() error
	ResetOutputBuffer() error
	Close() error
}

// Opener opens and configures a named port.
type Opener interface {
	Open(name string, cfg LineConfig) (Port, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(name string, cfg LineConfig) (Port, error)

func (f OpenerFunc) Open(name string, cfg LineConfig) (Port, error) {
	return f(name, cfg)
}

// NewOpener returns the opener for a driver name.
func NewOpener(driver string) (Opener, error) {
	switch driver {
	case DriverBugst, "":
		return BugstOpener{}, nil
	case DriverTarm:
		return TarmOpener{}, nil
	default:
		return nil, fmt.Errorf("%w: driver %q", ErrInvalidLineConfig, driver)
	}
}

// IsTransportError reports whether err should tear down the connection.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrWriteFailure) ||
		errors.Is(err, ErrWriteTimeout) ||
		errors.Is(err, ErrPurgeFailure)
}
