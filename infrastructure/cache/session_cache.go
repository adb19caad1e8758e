package cache

import (
	"sync"

	"stockmaster/models"
)

// UserSessionCache stores sessions by token.
type UserSessionCache struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewUserSessionCache() *UserSessionCache {
	return &UserSessionCache{sessions: make(map[string]models.Session)}
}

func (c *UserSessionCache) AddSession(s models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID] = s
}

func (c *UserSessionCache) FindSessionBySessionToken(token string) (models.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[token]
	return s, ok
}

func (c *UserSessionCache) DeleteSessionBySessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, token)
}

// DeleteSessionsByUserID evicts every cached session of a user, e.g. after a
// role change or deletion, so the next request reloads from the database.
func (c *UserSessionCache) DeleteSessionsByUserID(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for token, s := range c.sessions {
		if s.UserID == userID {
			delete(c.sessions, token)
			removed++
		}
	}
	return removed
}
