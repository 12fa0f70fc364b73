package store

import "context"

// Memory is an immutable in-memory UserStore, built once at setup time
// from configuration. Lookups return copies so callers cannot mutate the
// shared entries.
type Memory struct {
	byUsername map[string]*User
	byID       map[string]*User
}

// NewMemory builds a Memory store from the given users.
func NewMemory(users ...User) *Memory {
	m := &Memory{
		byUsername: make(map[string]*User, len(users)),
		byID:       make(map[string]*User, len(users)),
	}
	for i := range users {
		u := users[i]
		if u.Username != "" {
			m.byUsername[u.Username] = &u
		}
		if u.ID != "" {
			m.byID[u.ID] = &u
		}
	}
	return m
}

func (m *Memory) LookupUsername(_ context.Context, username string) (*User, error) {
	if u, ok := m.byUsername[username]; ok {
		c := *u
		return &c, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) LookupSubject(_ context.Context, subject string) (*User, error) {
	if u, ok := m.byID[subject]; ok {
		c := *u
		return &c, nil
	}
	return nil, ErrNotFound
}
