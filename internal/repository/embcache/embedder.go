// Package embcache decorates an embedder with a two-tier cache: an
// in-process LRU in front of an optional shared key-value store. Cache
// failures degrade to the inner embedder, never fail the request.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/db"
	"github.com/reelrank/reelrank/internal/domain"
)

const cacheKeyPrefix = "reelrank:emb_cache:"

// Store is the consumer interface for the shared cache tier (ISP).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches embeddings in an LRU and, when configured, a KV store.
type CachedEmbedder struct {
	inner      domain.Embedder
	lru        *lru.Cache[string, []float32]
	store      Store // nil when no shared tier is configured
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. lruSize must be positive. kv may be nil.
// cacheTotal is a counter vec with labels "tier" and "result", passed explicitly.
func New(
	inner domain.Embedder,
	lruSize int,
	kv Store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) (*CachedEmbedder, error) {
	l, err := lru.New[string, []float32](lruSize)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &CachedEmbedder{
		inner:      inner,
		lru:        l,
		store:      kv,
		cacheTotal: cacheTotal,
		logger:     logger,
	}, nil
}

// WithTTL sets an expiry for entries in the shared tier. Zero keeps them
// forever.
func (c *CachedEmbedder) WithTTL(ttl time.Duration) *CachedEmbedder {
	c.ttl = ttl
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)

	if vec, ok := c.lru.Get(key); ok {
		c.incCache("lru", "hit")
		return domain.EmbeddingResult{Embedding: cloneVector(vec)}, nil
	}
	c.incCache("lru", "miss")

	if vec, ok := c.getFromStore(ctx, key); ok {
		c.incCache("kv", "hit")
		c.lru.Add(key, cloneVector(vec))
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	if c.store != nil {
		c.incCache("kv", "miss")
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.lru.Add(key, cloneVector(result.Embedding))
	c.putToStore(ctx, key, result.Embedding)
	return result, nil
}

// BatchEmbed serves what it can from cache and embeds only the misses in a
// single inner call. Token usage reflects the misses only.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		key := cacheKey(text)
		if vec, ok := c.lru.Get(key); ok {
			c.incCache("lru", "hit")
			out.Embeddings[i] = cloneVector(vec)
			continue
		}
		c.incCache("lru", "miss")
		if vec, ok := c.getFromStore(ctx, key); ok {
			c.incCache("kv", "hit")
			c.lru.Add(key, cloneVector(vec))
			out.Embeddings[i] = vec
			continue
		}
		if c.store != nil {
			c.incCache("kv", "miss")
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	var res domain.BatchEmbeddingResult
	var err error
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, missTexts)
	} else {
		res, err = domain.BatchFallback(ctx, c.inner, missTexts)
	}
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed misses: %w", err)
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"batch embed returned %d vectors for %d texts", len(res.Embeddings), len(missTexts))
	}

	for j, i := range missIdx {
		key := cacheKey(missTexts[j])
		c.lru.Add(key, cloneVector(res.Embeddings[j]))
		c.putToStore(ctx, key, res.Embeddings[j])
		out.Embeddings[i] = res.Embeddings[j]
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens
	return out, nil
}

func (c *CachedEmbedder) incCache(tier, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

// cloneVector keeps LRU entries private. Callers normalize the vectors they
// get back, and concurrent hits on one key must never share memory.
func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromStore(ctx context.Context, key string) ([]float32, bool) {
	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToStore(ctx context.Context, key string, vec []float32) {
	if c.store == nil {
		return
	}
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.ttl)
	} else {
		err = c.store.Set(ctx, key, vectorToCacheBytes(vec))
	}
	if err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
