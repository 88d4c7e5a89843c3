package message

import "sync"

// Log is an append-only, id-deduplicated message list. A message whose
// ID has been seen before is dropped, which makes merging the history
// fetch, optimistic local sends and live echoes of the same message
// idempotent.
type Log struct {
	mu   sync.RWMutex
	seen map[string]struct{}
	msgs []Message
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{seen: make(map[string]struct{})}
}

// Merge appends the message unless its ID is already present. It reports
// whether the message was appended.
func (l *Log) Merge(m Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[m.ID]; ok {
		return false
	}
	l.seen[m.ID] = struct{}{}
	l.msgs = append(l.msgs, m)
	return true
}

// MergeAll merges each message in order and returns how many were
// appended.
func (l *Log) MergeAll(msgs []Message) int {
	appended := 0
	for _, m := range msgs {
		if l.Merge(m) {
			appended++
		}
	}
	return appended
}

// All returns a copy of the merged messages in merge order.
func (l *Log) All() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Len returns the number of merged messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}
