package link

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const defaultHistoryLimit = 32

// SendRecord tracks one frame burst from dispatch to completion.
type SendRecord struct {
	SendID     string    `json:"send_id"`
	LaneValue  int       `json:"lane"`
	Frame      string    `json:"frame"`
	Port       string    `json:"port,omitempty"`
	Writes     int       `json:"writes"`
	QueuedAt   time.Time `json:"queued_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Result     string    `json:"result"`
	LastError  string    `json:"last_error,omitempty"`
}

// SendHistory keeps the most recent bursts by send ID.
type SendHistory struct {
	mu    sync.RWMutex
	limit int
	items map[string]SendRecord
}

func NewSendHistory(limit int) *SendHistory {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &SendHistory{
		limit: limit,
		items: make(map[string]SendRecord),
	}
}

func (h *SendHistory) Upsert(item SendRecord) {
	key := strings.TrimSpace(item.SendID)
	if key == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items[key] = item
	h.evictLocked()
}

// Finish stamps the outcome of a burst.
func (h *SendHistory) Finish(sendID string, at time.Time, writes int, result, lastErr string) (SendRecord, bool) {
	key := strings.TrimSpace(sendID)
	h.mu.Lock()
	defer h.mu.Unlock()
	item, ok := h.items[key]
	if !ok {
		return SendRecord{}, false
	}
	item.Writes = writes
	item.FinishedAt = at
	item.Result = result
	item.LastError = strings.TrimSpace(lastErr)
	h.items[key] = item
	return item, true
}

func (h *SendHistory) Get(sendID string) (SendRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	item, ok := h.items[strings.TrimSpace(sendID)]
	return item, ok
}

// List returns records oldest first.
func (h *SendHistory) List() []SendRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sortedLocked()
}

func (h *SendHistory) sortedLocked() []SendRecord {
	out := make([]SendRecord, 0, len(h.items))
	for _, item := range h.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].SendID < out[j].SendID
		}
		return out[i].QueuedAt.Before(out[j].QueuedAt)
	})
	return out
}

func (h *SendHistory) evictLocked() {
	if len(h.items) <= h.limit {
		return
	}
	sorted := h.sortedLocked()
	for _, item := range sorted[:len(sorted)-h.limit] {
		delete(h.items, item.SendID)
	}
}
