package cache

import (
	"strings"
	"sync"

	"stockmaster/models"
)

// UserCache caches users by lower-cased email.
type UserCache struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserCache() *UserCache {
	return &UserCache{users: make(map[string]models.User)}
}

func (c *UserCache) Add(user models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[strings.ToLower(user.Email)] = user
}

func (c *UserCache) Get(email string) (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[strings.ToLower(email)]
	return u, ok
}

// Forget removes any cached entry for the user id.
func (c *UserCache) Forget(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for email, u := range c.users {
		if u.ID == userID {
			delete(c.users, email)
		}
	}
}
