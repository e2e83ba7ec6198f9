package dedupe

import (
	"context"
	"encoding/json"
	"math"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/cache"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/generator"
)

// Cosine returns the cosine similarity of two vectors. Vectors of
// mismatched dimension (different embedding providers over time) compare
// as 0 rather than erroring, so old ledger rows never block a run.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CachedEmbedder memoizes an embedder through the byte cache. Takeaway
// texts repeat across regeneration rounds and runs; embedding them once
// is enough.
type CachedEmbedder struct {
	inner generator.Embedder
	cache cache.Cache
}

// NewCachedEmbedder wraps inner with the given cache. A nil cache
// disables memoization.
func NewCachedEmbedder(inner generator.Embedder, c cache.Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c}
}

// Name returns the wrapped provider's name.
func (e *CachedEmbedder) Name() string { return e.inner.Name() }

// Embed returns the cached vector when present, otherwise delegates.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache == nil {
		return e.inner.Embed(ctx, text)
	}

	key := cache.Key("embed:"+e.inner.Name(), text)
	if raw, ok := e.cache.Get(key); ok {
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err == nil {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(vec); err == nil {
		_ = e.cache.Set(key, raw, 0)
	}
	return vec, nil
}
