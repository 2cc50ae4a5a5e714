package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ResultCache persists analysis results keyed by image hash.
type ResultCache interface {
	GetAnalysisCache(imageHash string, maxAge time.Duration) ([]byte, error)
	SetAnalysisCache(imageHash string, payload []byte) error
}

// CachedAnalyzer wraps an Analyzer with a persistent result cache. Concurrent
// requests for the same image share a single model call.
type CachedAnalyzer struct {
	inner  Analyzer
	store  ResultCache
	maxAge time.Duration
	group  singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight owns the context of a shared model call. The call keeps running as
// long as one waiter with a live context remains.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters map[context.Context]int
}

func (f *flight) live() bool {
	for ctx := range f.waiters {
		if ctx.Err() == nil {
			return true
		}
	}
	return false
}

// NewCachedAnalyzer creates a cached analyzer. Entries older than maxAge are
// ignored; zero means no expiry.
func NewCachedAnalyzer(inner Analyzer, store ResultCache, maxAge time.Duration) *CachedAnalyzer {
	return &CachedAnalyzer{
		inner:   inner,
		store:   store,
		maxAge:  maxAge,
		flights: make(map[string]*flight),
	}
}

// AnalyzeImage implements the Analyzer interface with caching.
func (c *CachedAnalyzer) AnalyzeImage(ctx context.Context, img Image) (*AnalysisResult, error) {
	hash := img.Hash()

	if item := c.lookup(hash); item != nil {
		log.Debug().Str("hash", hash[:16]).Msg("analysis cache hit")
		return &AnalysisResult{Item: item, Cached: true}, nil
	}

	f := c.join(ctx, hash)
	defer c.leave(ctx, hash, f)

	ch := c.group.DoChan(hash, func() (any, error) {
		result, err := c.inner.AnalyzeImage(c.flightContext(hash, f), img)
		if err != nil {
			return nil, err
		}
		c.save(hash, result.Item)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug().Str("hash", hash[:16]).Msg("shared in-flight analysis")
		}
		result := *res.Val.(*AnalysisResult)
		return &result, nil
	}
}

// join registers ctx as a waiter for hash. A flight whose waiters have all
// been cancelled is abandoned and a fresh one started.
func (c *CachedAnalyzer) join(ctx context.Context, hash string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flights == nil {
		c.flights = make(map[string]*flight)
	}
	f := c.flights[hash]
	if f != nil && !f.live() {
		c.endLocked(hash, f)
		f = nil
	}
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel, waiters: make(map[context.Context]int)}
		c.flights[hash] = f
	}
	f.waiters[ctx]++
	return f
}

func (c *CachedAnalyzer) leave(ctx context.Context, hash string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters[ctx]--
	if f.waiters[ctx] <= 0 {
		delete(f.waiters, ctx)
	}
	if !f.live() {
		c.endLocked(hash, f)
	}
}

// flightContext returns the context of the current flight for hash, which
// may have replaced f after f's waiters were all cancelled.
func (c *CachedAnalyzer) flightContext(hash string, f *flight) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.flights[hash]; cur != nil {
		return cur.ctx
	}
	return f.ctx
}

// endLocked cancels f and, if it is still the current flight for hash, lets
// the next caller start a new model call.
func (c *CachedAnalyzer) endLocked(hash string, f *flight) {
	f.cancel()
	if c.flights[hash] == f {
		delete(c.flights, hash)
		c.group.Forget(hash)
	}
}

func (c *CachedAnalyzer) lookup(hash string) *ClothingAnalysis {
	if c.store == nil {
		return nil
	}
	payload, err := c.store.GetAnalysisCache(hash, c.maxAge)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check analysis cache")
		return nil
	}
	if payload == nil {
		return nil
	}

	var item ClothingAnalysis
	if err := json.Unmarshal(payload, &item); err != nil {
		log.Warn().Err(err).Str("hash", hash[:16]).Msg("ignoring unreadable analysis cache entry")
		return nil
	}
	if err := item.Validate(); err != nil {
		log.Warn().Err(err).Str("hash", hash[:16]).Msg("ignoring invalid analysis cache entry")
		return nil
	}
	return &item
}

func (c *CachedAnalyzer) save(hash string, item *ClothingAnalysis) {
	if c.store == nil || item == nil {
		return
	}
	payload, err := json.Marshal(item)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode analysis result")
		return
	}
	if err := c.store.SetAnalysisCache(hash, payload); err != nil {
		log.Warn().Err(err).Msg("failed to cache analysis result")
		return
	}
	log.Debug().Str("hash", hash[:16]).Msg("cached analysis result")
}
