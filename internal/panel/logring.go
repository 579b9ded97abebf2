package panel

import (
	"sync"
	"time"
)

// LogLimit is how many status lines the panel keeps.
const LogLimit = 20

type LogLine struct {
	Seq   uint64    `json:"seq"`
	Level string    `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// LogRing is a bounded status log with fan-out to subscribers.
type LogRing struct {
	mu     sync.Mutex
	limit  int
	seq    uint64
	lines  []LogLine
	subs   map[int]chan LogLine
	nextID int
}

func NewLogRing(limit int) *LogRing {
	if limit <= 0 {
		limit = LogLimit
	}
	return &LogRing{limit: limit, subs: make(map[int]chan LogLine)}
}

func (r *LogRing) Append(level, text string) LogLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	line := LogLine{Seq: r.seq, Level: level, Text: "> " + text, At: time.Now()}
	r.lines = append(r.lines, line)
	if len(r.lines) > r.limit {
		r.lines = append([]LogLine(nil), r.lines[len(r.lines)-r.limit:]...)
	}
	for _, ch := range r.subs {
		select {
		case ch <- line:
		default:
		}
	}
	return line
}

func (r *LogRing) Lines() []LogLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogLine, len(r.lines))
	copy(out, r.lines)
	return out
}

// Subscribe returns a channel of new lines and a cancel func. Slow
// subscribers miss lines rather than block the panel.
func (r *LogRing) Subscribe(buffer int) (<-chan LogLine, func()) {
	if buffer <= 0 {
		buffer = LogLimit
	}
	ch := make(chan LogLine, buffer)
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}
