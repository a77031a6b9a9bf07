package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"menuviz/internal/logging"
)

// Namespaces owned by the caches. Each cache only evicts or clears its own.
const (
	ImageNamespace       = "menuviz_cache_"
	TranslationNamespace = "menuviz_translation_"
)

const defaultEvictBatch = 50

// KV is the persistent tier.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	EvictOldest(ctx context.Context, prefix string, n int) (int, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Normalize derives the cache key for a name: lowercased, trimmed, inner
// whitespace runs collapsed to a single underscore.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// Tiered is a read-through, write-through cache over a volatile map and a
// persistent key-value store. Entries never expire.
type Tiered struct {
	mu         sync.RWMutex
	memory     map[string]string
	kv         KV
	namespace  string
	evictBatch int
	logger     *slog.Logger
}

// Option customizes a Tiered cache.
type Option func(*Tiered)

// WithEvictBatch sets how many persisted entries a quota failure evicts.
func WithEvictBatch(n int) Option {
	return func(t *Tiered) {
		if n > 0 {
			t.evictBatch = n
		}
	}
}

// WithLogger attaches a logger for absorbed persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tiered) {
		t.logger = logging.NewComponentLogger(logger, "cache")
	}
}

// New builds a cache whose persisted keys live under namespace. A nil kv
// yields a volatile-only cache.
func New(kv KV, namespace string, opts ...Option) *Tiered {
	t := &Tiered{
		memory:     make(map[string]string),
		kv:         kv,
		namespace:  namespace,
		evictBatch: defaultEvictBatch,
		logger:     logging.NewComponentLogger(nil, "cache"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Namespace returns the persistent key prefix.
func (t *Tiered) Namespace() string {
	return t.namespace
}

// Get checks the volatile tier, then the persistent tier. A persistent hit is
// copied into the volatile tier. Persistent read errors count as a miss.
func (t *Tiered) Get(ctx context.Context, key string) (string, bool) {
	t.mu.RLock()
	value, ok := t.memory[key]
	t.mu.RUnlock()
	if ok {
		return value, true
	}
	if t.kv == nil {
		return "", false
	}

	stored, ok, err := t.kv.Get(ctx, t.namespace+key)
	if err != nil {
		logging.WarnWithContext(t.logger, "persistent cache read failed", "cache_read_failed",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "entry treated as a miss"),
		)
		return "", false
	}
	if !ok || stored == "" {
		return "", false
	}

	t.mu.Lock()
	t.memory[key] = stored
	t.mu.Unlock()
	return stored, true
}

// Put writes value to both tiers. A persistent failure evicts a batch of this
// namespace's oldest entries and retries once; if that fails too the entry
// stays volatile-only. Put never fails.
func (t *Tiered) Put(ctx context.Context, key, value string) {
	t.mu.Lock()
	t.memory[key] = value
	t.mu.Unlock()
	if t.kv == nil {
		return
	}

	persistKey := t.namespace + key
	err := t.kv.Set(ctx, persistKey, value)
	if err == nil {
		return
	}
	evicted, evictErr := t.kv.EvictOldest(ctx, t.namespace, t.evictBatch)
	if evictErr == nil {
		err = t.kv.Set(ctx, persistKey, value)
		if err == nil {
			t.logger.Debug("persistent cache write succeeded after eviction",
				logging.String("key", key), logging.Int("evicted", evicted))
			return
		}
	}
	logging.WarnWithContext(t.logger, "persistent cache write failed", "cache_write_failed",
		logging.String("key", key),
		logging.Int("evicted", evicted),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "raise storage.quota_bytes or run menuviz cache clear"),
		logging.String(logging.FieldImpact, "entry cached in memory only"),
	)
}

// Clear drops every entry from both tiers and reports how many persisted
// entries were removed.
func (t *Tiered) Clear(ctx context.Context) (int, error) {
	t.mu.Lock()
	t.memory = make(map[string]string)
	t.mu.Unlock()
	if t.kv == nil {
		return 0, nil
	}
	return t.kv.DeletePrefix(ctx, t.namespace)
}

// Len reports the number of volatile entries.
func (t *Tiered) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.memory)
}
