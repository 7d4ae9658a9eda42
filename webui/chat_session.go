// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains the chat session store for per-session conversation history.
package webui

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"adei_backend/core"
	"adei_backend/metrics"
)

// DefaultChatSessionIdle is how long a chat session survives without a
// question before cleanup removes it.
const DefaultChatSessionIdle = time.Hour

// DefaultChatHistoryLimit is the fallback history ring capacity, matching
// the chat_history_limit configuration default.
const DefaultChatHistoryLimit = 20

// ChatSessionStore keeps one in-memory history ring per chat session.
// Session ids are UUIDs; clients echo the id back with each question so
// the agent sees the conversation so far. History lives only in memory,
// the durable copy goes to chat_history through the repository.
//
// Molecule composition:
//   - CircularBuffer: bounded history ring per session
//   - google/uuid: session id generation and validation
//
// Thread safety is provided via sync.RWMutex for concurrent access.
type ChatSessionStore struct {
	mu           sync.RWMutex
	sessions     map[string]*chatSession
	historyLimit int
	maxIdle      time.Duration
}

// chatSession is one conversation. lastActive is guarded by the store mutex,
// the history ring carries its own lock.
type chatSession struct {
	id         string
	createdAt  time.Time
	lastActive time.Time
	history    *CircularBuffer
}

// NewChatSessionStore creates a ChatSessionStore. historyLimit caps the
// messages kept per session (two per turn); values below 2 fall back to
// the chat history default. maxIdle <= 0 falls back to
// DefaultChatSessionIdle.
func NewChatSessionStore(historyLimit int, maxIdle time.Duration) *ChatSessionStore {
	if historyLimit < 2 {
		historyLimit = DefaultChatHistoryLimit
	}
	if maxIdle <= 0 {
		maxIdle = DefaultChatSessionIdle
	}
	return &ChatSessionStore{
		sessions:     make(map[string]*chatSession),
		historyLimit: historyLimit,
		maxIdle:      maxIdle,
	}
}

// Acquire resolves a client-supplied session id to a live session and
// returns its id. An empty or malformed id gets a fresh UUID. A well-formed
// id is adopted even when the store does not know it yet, so a client keeps
// its session across server restarts (the in-memory history starts over).
func (s *ChatSessionStore) Acquire(id string) string {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		now := time.Now()
		session = &chatSession{
			id:        id,
			createdAt: now,
			history:   NewCircularBuffer(s.historyLimit),
		}
		s.sessions[id] = session
		metrics.UpdateActiveSessions(len(s.sessions))
	}
	session.lastActive = time.Now()

	return id
}

// History returns the session's conversation so far, oldest first.
// An unknown session has no history.
func (s *ChatSessionStore) History(id string) []core.Message {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil
	}

	entries := session.history.GetAll()
	messages := make([]core.Message, 0, len(entries))
	for _, entry := range entries {
		if msg, ok := entry.(core.Message); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// AppendTurn records one completed turn: the user's question followed by
// the assistant's answer. The ring drops the oldest messages once the
// history limit is reached. Appending to an unknown session is a no-op.
func (s *ChatSessionStore) AppendTurn(id, question, answer string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		session.lastActive = time.Now()
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	session.history.Push(core.Message{Role: "user", Content: question})
	session.history.Push(core.Message{Role: "assistant", Content: answer})
}

// Cleanup removes sessions idle beyond the configured maximum.
// Returns the number of sessions that were removed.
func (s *ChatSessionStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.maxIdle)
	removed := 0
	for id, session := range s.sessions {
		if session.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.UpdateActiveSessions(len(s.sessions))
	}

	return removed
}

// StartCleanupTicker starts a background goroutine that periodically
// calls Cleanup to remove idle sessions.
//
// The ticker stops when the provided context is cancelled.
func (s *ChatSessionStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Count returns the current number of live sessions.
func (s *ChatSessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
