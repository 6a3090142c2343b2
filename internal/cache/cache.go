package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/idiomfetch/internal/model"
)

// Cache stores looked-up definitions by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds the cache key of a term in a language.
// Case and surrounding space do not change the key.
func Key(language, term string) string {
	hash := sha256.Sum256([]byte(model.NormalizeTerm(term)))
	return "idiomfetch-v1-" + language + "-" + hex.EncodeToString(hash[:16])
}
