package core

import "sync"

// DefaultHistorySize is the replay window used when none is configured.
const DefaultHistorySize = 100

// MessageLog is an ordered, capacity-bounded sequence of delivered messages.
// When full, appending evicts the oldest entry.
type MessageLog struct {
	mu       sync.RWMutex
	capacity int
	entries  []Message
}

// NewMessageLog creates an empty log holding at most capacity messages.
func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &MessageLog{
		capacity: capacity,
		entries:  make([]Message, 0, capacity),
	}
}

// Append adds msg at the tail. Returns true if the oldest entry was evicted.
func (l *MessageLog) Append(msg Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, msg)
		return false
	}

	copy(l.entries, l.entries[1:])
	l.entries[len(l.entries)-1] = msg
	return true
}

// Snapshot returns a copy of the log in arrival order.
func (l *MessageLog) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained messages.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Cap returns the maximum number of retained messages.
func (l *MessageLog) Cap() int {
	return l.capacity
}
