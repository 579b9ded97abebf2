// Package discovery finds USB serial adapters and reports attach/detach by
// polling the OS port enumerator.
package discovery

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
)

var ErrNoDevice = errors.New("discovery: no matching serial device")

// Device is one serial port seen by the enumerator.
type Device struct {
	Name    string `json:"name"`
	USB     bool   `json:"usb"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
	Serial  string `json:"serial,omitempty"`
	Product string `json:"product,omitempty"`
}

// Filter selects the adapter to use. A fixed Port wins over VID/PID; with
// nothing set the first USB port is used.
type Filter struct {
	Port string
	VID  string
	PID  string
}

func (f Filter) Match(d Device) bool {
	if p := strings.TrimSpace(f.Port); p != "" {
		return d.Name == p
	}
	if !d.USB {
		return false
	}
	if v := strings.TrimSpace(f.VID); v != "" && !strings.EqualFold(v, d.VID) {
		return false
	}
	if p := strings.TrimSpace(f.PID); p != "" && !strings.EqualFold(p, d.PID) {
		return false
	}
	return true
}

// Lister returns the currently present serial ports.
type Lister interface {
	List() ([]Device, error)
}

type ListerFunc func() ([]Device, error)

func (f ListerFunc) List() ([]Device, error) {
	return f()
}

// EnumeratorLister lists ports through go.bug.st/serial/enumerator.
type EnumeratorLister struct{}

func (EnumeratorLister) List() ([]Device, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(ports))
	for _, p := range ports {
		out = append(out, Device{
			Name:    p.Name,
			USB:     p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Serial:  p.SerialNumber,
			Product: p.Product,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FixedLister always reports one named port. It is used when the config
// pins a port path that the enumerator may not classify as USB.
type FixedLister struct {
	Name string
}

func (l FixedLister) List() ([]Device, error) {
	return []Device{{Name: l.Name, USB: true}}, nil
}

// Select returns the first device matching f.
func Select(devices []Device, f Filter) (Device, error) {
	for _, d := range devices {
		if f.Match(d) {
			return d, nil
		}
	}
	return Device{}, ErrNoDevice
}

type EventKind string

const (
	EventAttach EventKind = "attach"
	EventDetach EventKind = "detach"
)

type Event struct {
	Kind   EventKind
	Device Device
}

// Watcher turns successive port listings into attach/detach events for
// devices matching its filter.
type Watcher struct {
	lister   Lister
	filter   Filter
	interval time.Duration
	known    map[string]Device
}

func NewWatcher(lister Lister, filter Filter, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		lister:   lister,
		filter:   filter,
		interval: interval,
		known:    make(map[string]Device),
	}
}

// Poll lists once and returns the changes since the previous poll. The
// first poll reports every present device as attached.
func (w *Watcher) Poll() ([]Event, error) {
	devices, err := w.lister.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]Device, len(devices))
	var events []Event
	for _, d := range devices {
		if !w.filter.Match(d) {
			continue
		}
		seen[d.Name] = d
		if _, ok := w.known[d.Name]; !ok {
			events = append(events, Event{Kind: EventAttach, Device: d})
		}
	}
	for name, d := range w.known {
		if _, ok := seen[name]; !ok {
			events = append(events, Event{Kind: EventDetach, Device: d})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Kind != events[j].Kind {
			return events[i].Kind == EventDetach
		}
		return events[i].Device.Name < events[j].Device.Name
	})
	w.known = seen
	return events, nil
}

// Run polls until ctx is done, calling fn for every event and tick after
// each poll. Enumeration errors are logged and skipped.
func (w *Watcher) Run(ctx context.Context, fn func(Event), tick func()) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		events, err := w.Poll()
		if err != nil {
			log.Warn().Err(err).Msg("discovery.Watcher poll failed")
		}
		for _, ev := range events {
			fn(ev)
		}
		if tick != nil {
			tick()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
