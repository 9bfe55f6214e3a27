package cache

import (
	"fmt"
)

// GenerateKey creates a cache key with prefix and ID.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// LockKey names the lock guarding a pipeline stage.
func LockKey(stage string) string {
	return GenerateKey("lock", stage)
}
