package room

import (
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/splitroom/splitroom/internal/message"
)

// State holds everything the room view works from: the room itself, the
// set of other participants currently online, and the merged message
// log. The input loop and the live session's read loop both touch it.
type State struct {
	mu     sync.RWMutex
	self   string
	room   Room
	online []string
	log    *message.Log
}

// NewState creates room state for the local user identified by self.
func NewState(self string, r Room) *State {
	return &State{
		self: strings.TrimSpace(self),
		room: r,
		log:  message.NewLog(),
	}
}

// Self returns the local user's display name.
func (s *State) Self() string {
	return s.self
}

// IsSelf reports whether name refers to the local user.
func (s *State) IsSelf(name string) bool {
	return strings.TrimSpace(name) == s.self
}

// Room returns the room metadata.
func (s *State) Room() Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

// SetOnline replaces the online set with the given list, trimmed,
// deduplicated and with the local user excluded. Full presence lists
// from the server are authoritative; applying the same list twice
// yields the same set.
func (s *State) SetOnline(names []string) {
	cleaned := lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != "" && n != s.self
	})
	cleaned = lo.Uniq(cleaned)

	s.mu.Lock()
	s.online = cleaned
	s.mu.Unlock()
}

// AddOnline inserts a single participant between full presence lists.
// The local user never joins its own set. It reports whether the set
// changed.
func (s *State) AddOnline(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == s.self {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if lo.Contains(s.online, name) {
		return false
	}
	s.online = append(s.online, name)
	return true
}

// RemoveOnline drops a participant. This covers the window where a
// leave notification arrives before the next full presence list.
func (s *State) RemoveOnline(name string) bool {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.online)
	s.online = lo.Without(s.online, name)
	return len(s.online) != before
}

// Online returns a copy of the other participants currently online.
func (s *State) Online() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.online))
	copy(out, s.online)
	return out
}

// Merge adds a message to the log unless its ID is already known.
func (s *State) Merge(m message.Message) bool {
	return s.log.Merge(m)
}

// Messages returns the merged messages in merge order.
func (s *State) Messages() []message.Message {
	return s.log.All()
}

// Split computes the current bill split from the menu and the online
// set. Derived on every call, never cached.
func (s *State) Split() Split {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeSplit(s.room.Total(), len(s.online))
}
