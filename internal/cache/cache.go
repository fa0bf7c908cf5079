// Package cache holds short-lived, in-process copies of claim reads.
// Nothing here is persisted, and verification responses never enter it.
package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "claimaudit:v1:"

// ClaimsKey is the key of the full claim list
func ClaimsKey() string {
	return keyPrefix + "claims"
}

// ClaimKey is the key of one claim record
func ClaimKey(id int64) string {
	return fmt.Sprintf("%sclaim:%d", keyPrefix, id)
}

// GetJSON decodes a cached JSON value into dst. A corrupt entry is
// dropped and reported as a miss.
func GetJSON(c Cache, key string, dst any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.Delete(key)
		return false
	}
	return true
}

// SetJSON stores v as JSON
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return c.Set(key, data, ttl)
}
