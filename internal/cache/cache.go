// Package cache provides byte-level lookup caches and the session-scoped
// evidence cache used by retrieval.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for byte-level caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a file-safe cache key from a namespace and its parts
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "filingqa:v1:" + namespace + ":" + hex.EncodeToString(hash[:16])
}
