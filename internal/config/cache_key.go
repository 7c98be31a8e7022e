package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key holding the owner of a login session (JWT jti).
func (r *CacheKeyStruct) SessionKey(jti string) string {
	return fmt.Sprintf("session:%s", jti)
}

// UserSessionsKey returns the cache key of the set of active session ids for a user.
func (r *CacheKeyStruct) UserSessionsKey(userID int) string {
	return fmt.Sprintf("user:%d:sessions", userID)
}

// RBACEventsChannel returns the Redis PubSub channel carrying role/permission changes.
func (r *CacheKeyStruct) RBACEventsChannel() string {
	return "rbac:events"
}

var CacheKey = NewCacheKeyStruct()
