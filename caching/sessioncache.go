package caches

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// SessionCache keeps the most recently used sessions by game code. The
// eviction callback runs both when the cache is full and on Remove.
type SessionCache struct {
	sessions *lru.Cache
}

func NewSessionCache(size int, onEvict func(gameCode string, session interface{})) (*SessionCache, error) {
	sessions, err := lru.NewWithEvict(size, func(key interface{}, value interface{}) {
		if onEvict != nil {
			onEvict(key.(string), value)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "Unable to initialize session cache")
	}
	return &SessionCache{sessions: sessions}, nil
}

// Add stores the session and reports whether an older one was evicted to
// make room.
func (c *SessionCache) Add(gameCode string, session interface{}) (bool, error) {
	if gameCode == "" {
		return false, fmt.Errorf("Invalid game Code [%s]", gameCode)
	} else if session == nil {
		return false, fmt.Errorf("Invalid session for game [%s]", gameCode)
	}
	return c.sessions.Add(gameCode, session), nil
}

func (c *SessionCache) Get(gameCode string) (interface{}, bool) {
	return c.sessions.Get(gameCode)
}

func (c *SessionCache) Remove(gameCode string) bool {
	return c.sessions.Remove(gameCode)
}

func (c *SessionCache) Len() int {
	return c.sessions.Len()
}

func (c *SessionCache) GameCodes() []string {
	keys := c.sessions.Keys()
	codes := make([]string, len(keys))
	for i, k := range keys {
		codes[i] = k.(string)
	}
	return codes
}
