package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/deprule"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// ExtractionCache caches per-answer extraction results keyed by a digest of
// the answer text, so re-running a corpus skips annotator and engine calls
// for answers already seen.
type ExtractionCache struct {
	cache Cache
	ttl   time.Duration
}

func NewExtractionCache(cache Cache, ttl time.Duration) *ExtractionCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &ExtractionCache{cache: cache, ttl: ttl}
}

func answerKey(kind string, lang record.Language, answer string) string {
	sum := sha256.Sum256([]byte(answer))
	return kind + ":" + string(lang) + ":" + hex.EncodeToString(sum[:])
}

// RuleResult returns the cached rule-based result for an answer, loading and
// caching it on a miss.
func (c *ExtractionCache) RuleResult(ctx context.Context, lang record.Language, answer string, loader func(ctx context.Context) (*deprule.ExtractionResult, error)) (*deprule.ExtractionResult, error) {
	var result deprule.ExtractionResult
	err := c.cache.GetOrSet(ctx, answerKey("rule", lang, answer), &result, c.ttl, func(ctx context.Context) (interface{}, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, nil
		}
		return loaded, nil
	})
	if err == ErrCacheMiss {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Keywords returns the cached generative keyword list for an answer, loading
// and caching it on a miss.
func (c *ExtractionCache) Keywords(ctx context.Context, lang record.Language, answer string, loader func(ctx context.Context) ([]string, error)) ([]string, error) {
	var keywords []string
	err := c.cache.GetOrSet(ctx, answerKey("llm", lang, answer), &keywords, c.ttl, func(ctx context.Context) (interface{}, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return loaded, nil
	})
	if err == ErrCacheMiss {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return keywords, nil
}

// Invalidate drops all cached results for both extraction paths.
func (c *ExtractionCache) Invalidate(ctx context.Context) (int64, error) {
	ruleDeleted, err := c.cache.DeleteByPrefix(ctx, "rule:")
	if err != nil {
		return ruleDeleted, err
	}
	llmDeleted, err := c.cache.DeleteByPrefix(ctx, "llm:")
	return ruleDeleted + llmDeleted, err
}
