package workspace

import (
	"sync"
	"time"
)

// maxHistoryItems bounds the log; the oldest entries are evicted first.
const maxHistoryItems = 1000

// HistoryItem records one execution, successful or failed. Items are
// immutable once appended.
type HistoryItem struct {
	ID        string
	URL       string
	Method    string
	Headers   map[string]string
	Body      string
	Timestamp time.Time
	Response  *Response
}

// HistoryLog is an append-only execution log ordered by completion time.
// Entries can only be deleted, singly or in bulk.
type HistoryLog struct {
	mu    sync.Mutex
	items []HistoryItem
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

func (l *HistoryLog) Append(item HistoryItem) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Detach from caller-owned maps so later edits cannot rewrite the log
	item.Headers = copyMap(item.Headers)
	item.Response = item.Response.clone()

	l.items = append(l.items, item)
	if len(l.items) > maxHistoryItems {
		trimmed := make([]HistoryItem, maxHistoryItems)
		copy(trimmed, l.items[len(l.items)-maxHistoryItems:])
		l.items = trimmed
	}
}

// Items returns copies, newest first.
func (l *HistoryLog) Items() []HistoryItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]HistoryItem, len(l.items))
	for i, item := range l.items {
		idx := len(l.items) - 1 - i
		out[idx] = item
		out[idx].Headers = copyMap(item.Headers)
		out[idx].Response = item.Response.clone()
	}
	return out
}

func (l *HistoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Delete removes one entry by id.
func (l *HistoryLog) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, item := range l.items {
		if item.ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every entry.
func (l *HistoryLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}
