package toxicity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// VerdictCache stores model verdicts keyed by processed text. Implementations
// report misses with ok=false and a nil error.
type VerdictCache interface {
	Get(ctx context.Context, key string) (ModelVerdict, bool, error)
	Set(ctx context.Context, key string, verdict ModelVerdict) error
}

func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
