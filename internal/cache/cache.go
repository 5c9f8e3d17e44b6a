package cache

import (
	"time"
)

// Cache stores serialized responses for a limited time.
type Cache interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte, ttl time.Duration) bool
	Clear()
}
