package auth

import (
	"sort"
	"sync"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Allowed  bool   `json:"allowed"`
}

// Service is the Telegram allowlist. An empty list lets everyone in.
// It also remembers the last known username of everyone who wrote to the bot.
type Service struct {
	mu      sync.RWMutex
	allowed map[int64]struct{}
	known   map[int64]string
}

func New(initial []int64) *Service {
	s := &Service{
		allowed: make(map[int64]struct{}),
		known:   make(map[int64]string),
	}
	for _, id := range initial {
		s.allowed[id] = struct{}{}
	}
	return s
}

// Open reports whether the allowlist is empty.
func (s *Service) Open() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.allowed) == 0
}

func (s *Service) IsAllowed(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAllowed(userID)
}

func (s *Service) isAllowed(userID int64) bool {
	if len(s.allowed) == 0 {
		return true
	}
	_, ok := s.allowed[userID]
	return ok
}

// Seen records the username of a user that wrote to the bot.
// It never changes who is allowed.
func (s *Service) Seen(userID int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known[userID] = username
}

// List returns allowlisted and seen users ordered by ID.
func (s *Service) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[int64]struct{}, len(s.allowed)+len(s.known))
	for id := range s.allowed {
		ids[id] = struct{}{}
	}
	for id := range s.known {
		ids[id] = struct{}{}
	}
	out := make([]User, 0, len(ids))
	for id := range ids {
		out = append(out, User{ID: id, Username: s.known[id], Allowed: s.isAllowed(id)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
