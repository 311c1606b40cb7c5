package market

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/trader/backend/logger"
)

type cacheEntry struct {
	candles []Candle
	quote   *Quote
	expires time.Time
}

// CachedProvider memoizes candles and quotes of another Provider for a fixed TTL.
// Failed lookups are not cached. Search is passed through.
type CachedProvider struct {
	next  Provider
	cache *lru.Cache[string, cacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedProvider wraps next with an LRU cache holding up to size entries.
func NewCachedProvider(next Provider, size int, ttl time.Duration) (*CachedProvider, error) {
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create market cache: %w", err)
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl, now: time.Now}, nil
}

func (p *CachedProvider) Candles(ctx context.Context, symbol, rangeStr string) ([]Candle, error) {
	key := "candles|" + symbol + "|" + rangeStr
	if e, ok := p.lookup(key); ok {
		return e.candles, nil
	}

	candles, err := p.next.Candles(ctx, symbol, rangeStr)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, cacheEntry{candles: candles, expires: p.now().Add(p.ttl)})
	return candles, nil
}

func (p *CachedProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	key := "quote|" + symbol
	if e, ok := p.lookup(key); ok {
		q := *e.quote
		return &q, nil
	}

	quote, err := p.next.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	stored := *quote
	p.cache.Add(key, cacheEntry{quote: &stored, expires: p.now().Add(p.ttl)})
	return quote, nil
}

func (p *CachedProvider) Search(ctx context.Context, q string) ([]SearchResult, error) {
	return p.next.Search(ctx, q)
}

func (p *CachedProvider) lookup(key string) (cacheEntry, bool) {
	e, ok := p.cache.Get(key)
	if !ok {
		return cacheEntry{}, false
	}
	if p.now().After(e.expires) {
		p.cache.Remove(key)
		return cacheEntry{}, false
	}
	logger.Debug("market cache hit: %s", key)
	return e, true
}
