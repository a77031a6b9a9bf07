package imagegen

import (
	"context"

	"menuviz/internal/cache"
)

// CachedGenerator consults a tiered cache keyed by the normalized dish name
// before asking the wrapped generator. Failures are not cached.
type CachedGenerator struct {
	next  Generator
	cache *cache.Tiered
}

// NewCached wraps next with c.
func NewCached(next Generator, c *cache.Tiered) *CachedGenerator {
	return &CachedGenerator{next: next, cache: c}
}

// Generate returns a cached reference when one exists for the dish name.
func (g *CachedGenerator) Generate(ctx context.Context, name, description string) (string, error) {
	key := cache.Normalize(name)
	if cached, ok := g.cache.Get(ctx, key); ok {
		return cached, nil
	}
	ref, err := g.next.Generate(ctx, name, description)
	if err != nil {
		return "", err
	}
	g.cache.Put(ctx, key, ref)
	return ref, nil
}
