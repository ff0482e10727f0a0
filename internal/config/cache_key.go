package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(email string) string {
	return fmt.Sprintf("login:%s", email)
}

// SwitchTallyKey returns the cache key for the server-side tab-switch
// counter of a (test, user) pair.
func (r *CacheKeyStruct) SwitchTallyKey(testID, email string) string {
	return fmt.Sprintf("test:%s:user:%s:switches", testID, email)
}

var CacheKey = NewCacheKeyStruct()
