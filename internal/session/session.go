// Package session holds the explicit authentication context handed to the identity service.
// A Session carries the backend credential, the last resolved user and the listeners that
// observe auth state transitions.
package session

import (
	"sync"

	"github.com/BloggingApp/megablog/internal/model"
)

type Listener func(*model.User)

type Session struct {
	mu        sync.RWMutex
	token     string
	user      *model.User
	listeners map[uint64]Listener
	watchers  map[uint64]func(string)
	nextID    uint64
}

func New(token string) *Session {
	return &Session{
		token:     token,
		listeners: make(map[uint64]Listener),
		watchers:  make(map[uint64]func(string)),
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the last resolved user, or nil when signed out.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Set stores the credential and user. Listeners are notified when the identity changed,
// token watchers whenever the credential changed.
func (s *Session) Set(token string, user *model.User) {
	s.mu.Lock()
	changed := !model.SameUser(s.user, user)
	rotated := s.token != token
	s.token = token
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
	listeners := s.snapshot()
	var watchers []func(string)
	if rotated {
		for _, fn := range s.watchers {
			watchers = append(watchers, fn)
		}
	}
	s.mu.Unlock()

	if changed {
		notify(listeners, user)
	}
	for _, fn := range watchers {
		fn(token)
	}
}

func (s *Session) Clear() {
	s.Set("", nil)
}

// Subscribe registers fn for future transitions. The returned function detaches it and may
// be called any number of times.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// WatchToken registers fn for credential changes, including a new token for the same user.
// The returned function detaches it and may be called any number of times.
func (s *Session) WatchToken(fn func(token string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) snapshot() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []Listener, user *model.User) {
	for _, fn := range listeners {
		if user == nil {
			fn(nil)
			continue
		}
		u := *user
		fn(&u)
	}
}
