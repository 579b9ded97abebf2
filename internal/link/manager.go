package link

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/lanectl/internal/discovery"
	"github.com/danmuck/lanectl/internal/observability"
	"github.com/danmuck/lanectl/internal/protocol/frame"
	"github.com/danmuck/lanectl/internal/uart"
	"github.com/rs/zerolog/log"
)

var (
	ErrSendInFlight = errors.New("link: send already in flight")
	ErrNotConnected = errors.New("link: not connected")
	ErrClosed       = errors.New("link: manager closed")
)

// Config defines the serial link and its reconnect policy.
type Config struct {
	Line               uart.LineConfig
	Transport          uart.TransportConfig
	Filter             discovery.Filter
	PollInterval       time.Duration
	ReconnectOnPoll    bool
	Backoff            BackoffConfig
	MaxConnectAttempts int
	HistoryLimit       int
}

func DefaultConfig() Config {
	return Config{
		Line:               uart.DefaultLineConfig(),
		Transport:          uart.DefaultTransportConfig(),
		PollInterval:       time.Second,
		ReconnectOnPoll:    true,
		Backoff:            DefaultBackoffConfig(),
		MaxConnectAttempts: 3,
		HistoryLimit:       defaultHistoryLimit,
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	c.Line = c.Line.WithDefaults()
	c.Transport = c.Transport.WithDefaults()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = d.Backoff
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = d.MaxConnectAttempts
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	return c
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

const (
	NoticeConnected             = "connected"
	NoticeDisconnected          = "disconnected"
	NoticeConnectionUnavailable = "connection_unavailable"
	NoticePermissionDenied      = "permission_denied"
	NoticeSendOK                = "send_ok"
	NoticeSendFailed            = "send_failed"
	NoticeSendDropped           = "send_dropped"
)

// Notice is a user-facing status line produced by the link.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

type Option func(*Manager)

// WithNotify sets the sink for user-facing notices. fn is never called
// with internal locks held.
func WithNotify(fn func(Notice)) Option {
	return func(m *Manager) {
		m.notify = fn
	}
}

// Manager owns the single serial handle. Connect, Disconnect and Send are
// safe to call from any goroutine; at most one Send runs at a time.
type Manager struct {
	cfg     Config
	opener  uart.Opener
	lister  discovery.Lister
	notify  func(Notice)
	history *SendHistory

	mu                sync.Mutex
	port              uart.Port
	device            discovery.Device
	permissionBlocked bool
	unavailableNoted  bool

	connected atomic.Bool
	sending   atomic.Bool
	closed    atomic.Bool
}

func NewManager(cfg Config, opener uart.Opener, lister discovery.Lister, opts ...Option) *Manager {
	cfg = cfg.WithDefaults()
	m := &Manager{
		cfg:     cfg,
		opener:  opener,
		lister:  lister,
		history: NewSendHistory(cfg.HistoryLimit),
	}
	for _, opt := range opts {
		opt(m)
	}
	observability.SetConnected(false)
	return m
}

func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) Connected() bool {
	return m.connected.Load()
}

func (m *Manager) Sending() bool {
	return m.sending.Load()
}

// Device returns the open device, if any.
func (m *Manager) Device() (discovery.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device, m.port != nil
}

// PermissionBlocked reports whether automatic reconnects are paused until
// the next attach event.
func (m *Manager) PermissionBlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permissionBlocked
}

func (m *Manager) History() []SendRecord {
	return m.history.List()
}

// Connect is an operator-initiated connect. It ignores the permission block
// since the operator is explicitly retrying.
func (m *Manager) Connect(ctx context.Context) error {
	return m.connect(ctx, true)
}

// Resume is the automatic reconnect used on poll ticks and foreground
// resume. It is a no-op when connected or blocked on permission.
func (m *Manager) Resume(ctx context.Context) error {
	if m.Connected() || m.closed.Load() {
		return nil
	}
	return m.connect(ctx, false)
}

// ConnectWithRetry retries automatic connects with backoff. Permission
// errors are not retried.
func (m *Manager) ConnectWithRetry(ctx context.Context) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var attempt int
	for {
		attempt++
		err := m.connect(ctx, false)
		if err == nil {
			return nil
		}
		log.Debug().Int("attempt", attempt).Err(err).Msg("link.Manager connect attempt failed")
		if errors.Is(err, uart.ErrPermissionDenied) || errors.Is(err, ErrClosed) {
			return err
		}
		wait, ok := m.cfg.RetryDelay(attempt, rng)
		if !ok {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *Manager) connect(ctx context.Context, manual bool) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	notices, err := m.connectLocked(manual)
	m.mu.Unlock()
	m.emit(notices...)
	return err
}

func (m *Manager) connectLocked(manual bool) ([]Notice, error) {
	if m.port != nil {
		return nil, nil
	}
	if m.permissionBlocked && !manual {
		return nil, fmt.Errorf("%w: waiting for device attach", uart.ErrPermissionDenied)
	}

	devices, err := m.lister.List()
	if err == nil {
		var dev discovery.Device
		dev, err = discovery.Select(devices, m.cfg.Filter)
		if err == nil {
			return m.openLocked(dev)
		}
	}
	observability.RecordConnect("unavailable")
	err = fmt.Errorf("%w: %v", uart.ErrConnectionUnavailable, err)
	if m.unavailableNoted && !manual {
		return nil, err
	}
	m.unavailableNoted = true
	return []Notice{newNotice(NoticeWarn, NoticeConnectionUnavailable, "no serial device; plug in the adapter or enable OTG")}, err
}

func (m *Manager) openLocked(dev discovery.Device) ([]Notice, error) {
	p, err := m.opener.Open(dev.Name, m.cfg.Line)
	if err != nil {
		if errors.Is(err, uart.ErrPermissionDenied) {
			m.permissionBlocked = true
			observability.RecordConnect("permission_denied")
			log.Warn().Str("port", dev.Name).Err(err).Msg("link.Manager open refused")
			return []Notice{newNotice(NoticeError, NoticePermissionDenied,
				fmt.Sprintf("access to %s denied", dev.Name))}, err
		}
		if !errors.Is(err, uart.ErrConnectionUnavailable) {
			err = fmt.Errorf("%w: %s: %v", uart.ErrConnectionUnavailable, dev.Name, err)
		}
		observability.RecordConnect("error")
		log.Warn().Str("port", dev.Name).Err(err).Msg("link.Manager open failed")
		return []Notice{newNotice(NoticeWarn, NoticeConnectionUnavailable,
			fmt.Sprintf("cannot open %s", dev.Name))}, err
	}
	if err := uart.Prepare(p); err != nil {
		_ = p.Close()
		observability.RecordConnect("error")
		err = fmt.Errorf("%w: %s: %v", uart.ErrConnectionUnavailable, dev.Name, err)
		return []Notice{newNotice(NoticeWarn, NoticeConnectionUnavailable,
			fmt.Sprintf("cannot prepare %s", dev.Name))}, err
	}
	m.port = p
	m.device = dev
	m.permissionBlocked = false
	m.unavailableNoted = false
	m.connected.Store(true)
	observability.RecordConnect("ok")
	observability.SetConnected(true)
	log.Info().Str("port", dev.Name).Str("line", m.cfg.Line.String()).Msg("link.Manager connected")
	return []Notice{newNotice(NoticeInfo, NoticeConnected,
		fmt.Sprintf("UART connected on %s (%s)", dev.Name, m.cfg.Line))}, nil
}

// Disconnect closes the handle. An in-flight Send fails on its next write.
func (m *Manager) Disconnect(reason string) {
	m.mu.Lock()
	notices := m.teardownLocked(reason)
	m.mu.Unlock()
	m.emit(notices...)
}

func (m *Manager) teardownLocked(reason string) []Notice {
	if m.port == nil {
		return nil
	}
	if err := m.port.Close(); err != nil {
		log.Debug().Err(err).Str("port", m.device.Name).Msg("link.Manager close")
	}
	name := m.device.Name
	m.port = nil
	m.device = discovery.Device{}
	m.connected.Store(false)
	observability.SetConnected(false)
	log.Info().Str("port", name).Str("reason", reason).Msg("link.Manager disconnected")
	return []Notice{newNotice(NoticeWarn, NoticeDisconnected,
		fmt.Sprintf("disconnected from %s: %s", name, reason))}
}

// HandleEvent reacts to device attach/detach.
func (m *Manager) HandleEvent(ctx context.Context, ev discovery.Event) {
	switch ev.Kind {
	case discovery.EventAttach:
		m.mu.Lock()
		m.permissionBlocked = false
		m.unavailableNoted = false
		m.mu.Unlock()
		if m.Connected() {
			return
		}
		if err := m.ConnectWithRetry(ctx); err != nil {
			log.Warn().Str("port", ev.Device.Name).Err(err).Msg("link.Manager connect on attach failed")
		}
	case discovery.EventDetach:
		m.mu.Lock()
		var notices []Notice
		if m.port != nil && m.device.Name == ev.Device.Name {
			notices = m.teardownLocked("device detached")
		}
		m.mu.Unlock()
		m.emit(notices...)
	}
}

// Send writes one frame burst on the open handle. A second Send while one
// is outstanding is dropped with ErrSendInFlight. Any transport failure
// tears the connection down.
func (m *Manager) Send(ctx context.Context, sendID string, f frame.Frame) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.sending.CompareAndSwap(false, true) {
		m.emit(newNotice(NoticeWarn, NoticeSendDropped, "send already in progress; start ignored"))
		return ErrSendInFlight
	}
	defer m.sending.Store(false)

	m.mu.Lock()
	p := m.port
	dev := m.device
	m.mu.Unlock()

	laneValue := int(f.Payload()[0])
	start := time.Now()
	m.history.Upsert(SendRecord{
		SendID:    sendID,
		LaneValue: laneValue,
		Frame:     f.String(),
		Port:      dev.Name,
		QueuedAt:  start,
		Result:    "pending",
	})

	if p == nil {
		err := fmt.Errorf("%w: %w", ErrNotConnected, uart.ErrConnectionUnavailable)
		m.history.Finish(sendID, time.Now(), 0, "not_connected", err.Error())
		observability.RecordSend(laneValue, "not_connected", time.Since(start))
		m.emit(newNotice(NoticeError, NoticeSendFailed, "UART not connected; plug in the adapter or enable OTG"))
		return err
	}

	writes, err := uart.Send(ctx, p, f, m.cfg.Transport)
	if err != nil {
		m.mu.Lock()
		var notices []Notice
		if m.port == p {
			notices = m.teardownLocked("transport failure")
		}
		m.mu.Unlock()
		m.history.Finish(sendID, time.Now(), writes, "failed", err.Error())
		observability.RecordSend(laneValue, "failed", time.Since(start))
		log.Error().Str("send_id", sendID).Str("port", dev.Name).Int("writes", writes).Err(err).Msg("link.Manager send failed")
		notices = append(notices, newNotice(NoticeError, NoticeSendFailed, fmt.Sprintf("send failed: %v", err)))
		m.emit(notices...)
		return err
	}

	m.history.Finish(sendID, time.Now(), writes, "ok", "")
	observability.RecordSend(laneValue, "ok", time.Since(start))
	log.Info().Str("send_id", sendID).Str("port", dev.Name).Str("frame", f.String()).Int("writes", writes).Msg("link.Manager frame sent")
	m.emit(newNotice(NoticeInfo, NoticeSendOK, fmt.Sprintf("command sent for lane %d", laneValue)))
	return nil
}

// Run watches for attach/detach until ctx is done, then closes the link.
func (m *Manager) Run(ctx context.Context) error {
	w := discovery.NewWatcher(m.lister, m.cfg.Filter, m.cfg.PollInterval)
	err := w.Run(ctx,
		func(ev discovery.Event) {
			log.Debug().Str("kind", string(ev.Kind)).Str("port", ev.Device.Name).Msg("link.Manager device event")
			m.HandleEvent(ctx, ev)
		},
		func() {
			if m.cfg.ReconnectOnPoll {
				_ = m.Resume(ctx)
			}
		},
	)
	m.Close()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Close tears down the handle and rejects further use.
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.Disconnect("shutdown")
}

func (m *Manager) emit(notices ...Notice) {
	if m.notify == nil {
		return
	}
	for _, n := range notices {
		m.notify(n)
	}
}

func newNotice(level NoticeLevel, kind, msg string) Notice {
	return Notice{Level: level, Kind: kind, Message: msg, At: time.Now()}
}
