package trace

import "sync"

// Log keeps the most recent entries up to a fixed capacity.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewLog creates a log holding up to capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 200
	}
	return &Log{entries: make([]Entry, capacity)}
}

// Add stores e, evicting the oldest entry when the log is full.
func (l *Log) Add(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = e
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.len()
}

func (l *Log) len() int {
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Last returns up to n of the newest entries, oldest first. Entries are
// filtered by endpoint when endpoint is not empty.
func (l *Log) Last(n int, endpoint string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.len()
	var out []Entry
	for i := size - 1; i >= 0 && len(out) < n; i-- {
		e := l.entries[(l.next-size+i+len(l.entries))%len(l.entries)]
		if endpoint == "" || e.Endpoint == endpoint {
			out = append(out, e)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Clear drops all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.entries)
	l.next = 0
	l.full = false
}
