// Package ratelimit enforces the per-session creation quota: at most N
// tickets or payment requests inside the trailing window. The legacy
// handlers raced on the check-then-insert; here each session's check and
// insert run under a per-session lock, which is enough now that the
// service is a single process.
package ratelimit

import (
	"sync"
	"time"

	"gorm.io/gorm"
)

// SessionLimiter serializes creation per session and counts recent rows.
type SessionLimiter struct {
	window time.Duration
	max    int64

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionLimiter creates a limiter for the given quota.
func NewSessionLimiter(window time.Duration, max int64) *SessionLimiter {
	return &SessionLimiter{
		window: window,
		max:    max,
		locks:  make(map[string]*sessionLock),
	}
}

// Lock acquires the per-session lock and returns its release func. Lock
// entries are reference-counted so the map does not grow with every
// session ever seen.
func (l *SessionLimiter) Lock(sessionID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}

// Allow counts rows of the given model created by the session inside
// the window and reports whether one more creation fits the quota. Call
// under Lock.
func (l *SessionLimiter) Allow(db *gorm.DB, entity interface{}, sessionID string) (bool, error) {
	var count int64
	cutoff := time.Now().Add(-l.window)
	err := db.Model(entity).
		Where("session_id = ? AND created_at > ?", sessionID, cutoff).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count < l.max, nil
}

// Max returns the configured quota, for error messages.
func (l *SessionLimiter) Max() int64 {
	return l.max
}
