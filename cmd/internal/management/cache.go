package management

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/bluele/gcache"

	"methodius/cmd/security/token"
)

// listCache keeps whole-collection loads for a short time. Keys are scoped to
// the bearer token fingerprint so a new session never reads another's lists.
type listCache struct {
	c gcache.Cache
}

func newListCache(size int, ttl time.Duration) *listCache {
	if size <= 0 {
		return &listCache{}
	}
	return &listCache{c: gcache.New(size).LRU().Expiration(ttl).Build()}
}

func cacheKey(collection, tok string) string {
	return collection + ":" + token.Fingerprint(tok)
}

// cachedList returns a private copy of the collection loaded with tok.
func cachedList[T any](ctx context.Context, lc *listCache, collection, tok string, load func(context.Context, string) ([]T, error)) ([]T, error) {
	if lc == nil || lc.c == nil {
		return load(ctx, tok)
	}
	key := cacheKey(collection, tok)
	if v, err := lc.c.Get(key); err == nil {
		if items, ok := v.([]T); ok {
			return slices.Clone(items), nil
		}
	}
	items, err := load(ctx, tok)
	if err != nil {
		return nil, err
	}
	_ = lc.c.Set(key, items)
	return slices.Clone(items), nil
}

// invalidate drops every cached load of collection.
func (lc *listCache) invalidate(collection string) {
	if lc == nil || lc.c == nil {
		return
	}
	prefix := collection + ":"
	for _, k := range lc.c.Keys(false) {
		if s, ok := k.(string); ok && strings.HasPrefix(s, prefix) {
			lc.c.Remove(k)
		}
	}
}

func (lc *listCache) purge() {
	if lc == nil || lc.c == nil {
		return
	}
	lc.c.Purge()
}
