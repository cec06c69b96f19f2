// internal/catalog/cached.go
package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"tour-estimate-workers/internal/common/cache"
	"tour-estimate-workers/internal/models"
)

// KeyPrefix namespaces every catalog entry in the shared cache.
const KeyPrefix = "catalog:"

// Lookup is the read surface of the catalog.
type Lookup interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.CatalogEntry, error)
	FindByNames(ctx context.Context, names []string, regions []string) ([]models.CatalogEntry, error)
	FindIneligible(ctx context.Context, names []string) (map[string]struct{}, error)
}

// CachedLookup memoizes catalog reads. Entries expire after ttl and are
// dropped together by Invalidate.
type CachedLookup struct {
	next  Lookup
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedLookup(next Lookup, c cache.Cache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: c, ttl: ttl}
}

func (l *CachedLookup) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.CatalogEntry, error) {
	out := make(map[int64]models.CatalogEntry, len(ids))
	var missing []int64
	for _, id := range ids {
		var e models.CatalogEntry
		if err := l.cache.Get(ctx, idKey(id), &e); err == nil {
			out[id] = e
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := l.next.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, e := range loaded {
		out[id] = e
		_ = l.cache.Set(ctx, idKey(id), e, l.ttl)
	}
	return out, nil
}

func (l *CachedLookup) FindByNames(ctx context.Context, names []string, regions []string) ([]models.CatalogEntry, error) {
	key := KeyPrefix + "names:" + digest(names, regions)
	return cache.GetOrLoad(ctx, l.cache, key, l.ttl, func(ctx context.Context) ([]models.CatalogEntry, error) {
		return l.next.FindByNames(ctx, names, regions)
	})
}

func (l *CachedLookup) FindIneligible(ctx context.Context, names []string) (map[string]struct{}, error) {
	key := KeyPrefix + "ineligible:" + digest(names, nil)
	return cache.GetOrLoad(ctx, l.cache, key, l.ttl, func(ctx context.Context) (map[string]struct{}, error) {
		return l.next.FindIneligible(ctx, names)
	})
}

// Invalidate drops every cached catalog read.
func (l *CachedLookup) Invalidate(ctx context.Context) (int, error) {
	return l.cache.DeletePrefix(ctx, KeyPrefix)
}

func idKey(id int64) string {
	return fmt.Sprintf("%sid:%d", KeyPrefix, id)
}

func digest(names []string, regions []string) string {
	n := append([]string(nil), names...)
	r := append([]string(nil), regions...)
	sort.Strings(n)
	sort.Strings(r)
	sum := sha1.Sum([]byte(strings.Join(n, "\x1f") + "\x1e" + strings.Join(r, "\x1f")))
	return hex.EncodeToString(sum[:])
}
