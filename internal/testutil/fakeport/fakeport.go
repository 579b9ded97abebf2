package fakeport

import (
	"errors"
	"sync"
	"time"

	"github.com/danmuck/lanectl/internal/uart"
)

var (
	ErrClosed    = errors.New("fakeport: port closed")
	ErrInjected  = errors.New("fakeport: injected write failure")
	ErrNotExists = errors.New("fakeport: no such port")
)

type OpKind string

const (
	OpPurgeInput  OpKind = "purge_in"
	OpPurgeOutput OpKind = "purge_out"
	OpWrite       OpKind = "write"
	OpClose       OpKind = "close"
)

type Op struct {
	Kind OpKind
	Data []byte
	At   time.Time
}

// Port records every operation applied to it.
type Port struct {
	Name string

	mu        sync.Mutex
	ops       []Op
	closed    bool
	writes    int
	failAt    int
	block     chan struct{}
	closedSig chan struct{}
}

func New(name string) *Port {
	return &Port{Name: name, closedSig: make(chan struct{})}
}

// FailWriteAt makes the nth write (1-based) fail.
func (p *Port) FailWriteAt(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAt = n
}

// BlockWrites makes writes hang until Release or Close.
func (p *Port) BlockWrites() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.block = make(chan struct{})
}

func (p *Port) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.block != nil {
		close(p.block)
		p.block = nil
	}
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	block := p.block
	closedSig := p.closedSig
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-closedSig:
			return 0, ErrClosed
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	p.writes++
	if p.failAt > 0 && p.writes == p.failAt {
		return 0, ErrInjected
	}
	data := make([]byte, len(b))
	copy(data, b)
	p.ops = append(p.ops, Op{Kind: OpWrite, Data: data, At: time.Now()})
	return len(b), nil
}

func (p *Port) ResetInputBuffer() error {
	return p.record(OpPurgeInput)
}

func (p *Port) ResetOutputBuffer() error {
	return p.record(OpPurgeOutput)
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.closedSig)
	p.ops = append(p.ops, Op{Kind: OpClose, At: time.Now()})
	return nil
}

func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Ops returns a copy of the recorded operations.
func (p *Port) Ops() []Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Op, len(p.ops))
	copy(out, p.ops)
	return out
}

// Kinds returns the recorded operation kinds in order.
func (p *Port) Kinds() []OpKind {
	ops := p.Ops()
	out := make([]OpKind, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Kind)
	}
	return out
}

// Writes returns the payload of every successful write.
func (p *Port) Writes() [][]byte {
	var out [][]byte
	for _, op := range p.Ops() {
		if op.Kind == OpWrite {
			out = append(out, op.Data)
		}
	}
	return out
}

func (p *Port) record(kind OpKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.ops = append(p.ops, Op{Kind: kind, At: time.Now()})
	return nil
}

// Opener hands out fake ports by name and records every open.
type Opener struct {
	mu      sync.Mutex
	ports   map[string]*Port
	errs    map[string]error
	opened  []string
	lastCfg uart.LineConfig
}

func NewOpener() *Opener {
	return &Opener{ports: make(map[string]*Port), errs: make(map[string]error)}
}

// Add registers a fresh port under name and returns it.
func (o *Opener) Add(name string) *Port {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := New(name)
	o.ports[name] = p
	delete(o.errs, name)
	return p
}

// FailWith makes opens of name return err.
func (o *Opener) FailWith(name string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[name] = err
}

func (o *Opener) Open(name string, cfg uart.LineConfig) (uart.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, name)
	o.lastCfg = cfg
	if err, ok := o.errs[name]; ok {
		return nil, err
	}
	p, ok := o.ports[name]
	if !ok {
		return nil, ErrNotExists
	}
	return p, nil
}

func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.opened))
	copy(out, o.opened)
	return out
}

func (o *Opener) LastConfig() uart.LineConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastCfg
}
