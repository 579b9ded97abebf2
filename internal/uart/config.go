package uart

import (
	"fmt"
	"strings"
	"time"
)

const (
	DriverBugst = "bugst"
	DriverTarm  = "tarm"
)

// LineConfig is the serial line setup applied on open.
type LineConfig struct {
	Port     string
	Driver   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	DTR      bool
	RTS      bool
}

// TransportConfig is the send cadence: Repeat identical writes, Gap between
// consecutive writes, each write bounded by WriteTimeout.
type TransportConfig struct {
	Repeat       int
	Gap          time.Duration
	WriteTimeout time.Duration
}

// DefaultLineConfig returns 115200 8-N-1 with DTR and RTS asserted.
func DefaultLineConfig() LineConfig {
	return LineConfig{
		Driver:   DriverBugst,
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		DTR:      true,
		RTS:      true,
	}
}

func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Repeat:       3,
		Gap:          50 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
	}
}

// WithDefaults fills zero values from DefaultTransportConfig.
func (c TransportConfig) WithDefaults() TransportConfig {
	d := DefaultTransportConfig()
	if c.Repeat <= 0 {
		c.Repeat = d.Repeat
	}
	if c.Gap < 0 {
		c.Gap = d.Gap
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}

func (c LineConfig) WithDefaults() LineConfig {
	d := DefaultLineConfig()
	if strings.TrimSpace(c.Driver) == "" {
		c.Driver = d.Driver
	}
	if c.BaudRate <= 0 {
		c.BaudRate = d.BaudRate
	}
	if c.DataBits <= 0 {
		c.DataBits = d.DataBits
	}
	if c.StopBits <= 0 {
		c.StopBits = d.StopBits
	}
	if strings.TrimSpace(c.Parity) == "" {
		c.Parity = d.Parity
	}
	return c
}

func (c LineConfig) Validate() error {
	switch c.Driver {
	case DriverBugst, DriverTarm:
	default:
		return fmt.Errorf("%w: driver %q", ErrInvalidLineConfig, c.Driver)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: data bits %d", ErrInvalidLineConfig, c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("%w: stop bits %d", ErrInvalidLineConfig, c.StopBits)
	}
	switch strings.ToLower(c.Parity) {
	case "none", "odd", "even":
	default:
		return fmt.Errorf("%w: parity %q", ErrInvalidLineConfig, c.Parity)
	}
	return nil
}

func (c LineConfig) String() string {
	parity := "N"
	if p := strings.TrimSpace(c.Parity); p != "" {
		parity = strings.ToUpper(p[:1])
	}
	return fmt.Sprintf("%d %d%s%d", c.BaudRate, c.DataBits, parity, c.StopBits)
}
