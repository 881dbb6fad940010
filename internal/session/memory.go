package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/varsilias/ease/pkg/types"
)

type Store interface {
	// Open returns the session for id, creating it when id is empty or unknown.
	Open(id string) *Session
	Lookup(id string) (*Session, bool)
	Delete(id string)
}

// Session is everything one browser session owns: the credential, the chat
// history and the last synthesized lesson. Nothing here is shared across
// sessions.
type Session struct {
	ID string

	cycle sync.Mutex

	mu      sync.RWMutex
	history []types.Message
	cred    types.Credential
	audio   []byte
	updated time.Time
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:      id,
		history: []types.Message{{Role: types.RoleAssistant, Content: types.Greeting, Timestamp: now}},
		updated: now,
	}
}

// Exclusive serializes request cycles for the session. Callers defer the
// returned func.
func (s *Session) Exclusive() func() {
	s.cycle.Lock()
	return s.cycle.Unlock
}

// Append adds turns to the end of the history in one step.
func (s *Session) Append(turns ...types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turns...)
	s.updated = time.Now()
}

// History returns a copy of the conversation in chronological order.
func (s *Session) History() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) SetCredential(c types.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = c
	s.updated = time.Now()
}

func (s *Session) Credential() types.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// SetAudio keeps the latest lesson audio for the download link.
func (s *Session) SetAudio(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = b
}

func (s *Session) Audio() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audio
}

func (s *Session) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// Title is a short label taken from the first user message.
func (s *Session) Title() string {
	return titleFrom(s.History())
}

// MemoryStore keeps sessions in process memory. Sessions idle for longer
// than the TTL are dropped together with their credential.
type MemoryStore struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, *Session]
}

// NewMemoryStore bounds the store to capacity sessions (0 means unbounded).
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: expirable.NewLRU[string, *Session](capacity, nil, ttl)}
}

func (s *MemoryStore) Open(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if sess, ok := s.lru.Get(id); ok {
			s.lru.Add(id, sess) // refresh expiry
			return sess
		}
	}
	sess := newSession(uuid.NewString())
	s.lru.Add(sess.ID, sess)
	return sess
}

func (s *MemoryStore) Lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.lru.Get(id)
	if ok {
		s.lru.Add(id, sess)
	}
	return sess, ok
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Remove(id)
}

func (s *MemoryStore) Len() int {
	return s.lru.Len()
}

// titleRunes bounds a session title.
const titleRunes = 32

func titleFrom(msgs []types.Message) string {
	for _, m := range msgs {
		if m.Role == types.RoleUser {
			return clip(strings.Join(strings.Fields(m.Content), " "), titleRunes)
		}
	}
	return ""
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
