package features

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/soundclass/pkg/audio/mfcc"
	"github.com/haivivi/soundclass/pkg/kv"
)

// cachePrefix is the key namespace for cached vectors.
var cachePrefix = kv.Key{"features"}

// CachePrefix returns the key prefix under which vectors are cached.
func CachePrefix() kv.Key { return append(kv.Key(nil), cachePrefix...) }

// fingerprint identifies the extraction parameters, so vectors computed with
// a different configuration are never returned.
func fingerprint(cfg mfcc.Config) (string, error) {
	b, err := msgpack.Marshal(&cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8]), nil
}

func cacheKey(fp, contentHash string) kv.Key {
	return append(CachePrefix(), fp, contentHash)
}

// lookup returns a cached vector. Errors are logged and treated as a miss;
// entries that do not decode to a vector of the right width are evicted.
func (e *Extractor) lookup(ctx context.Context, key kv.Key) (Vector, bool) {
	b, err := e.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			e.logger.Warn("features cache read failed", "key", key.String(), "error", err)
		}
		return nil, false
	}
	var v Vector
	if err := msgpack.Unmarshal(b, &v); err != nil || len(v) != e.Width() {
		e.logger.Warn("features cache entry invalid", "key", key.String(), "error", err)
		if err := e.cache.Delete(ctx, key); err != nil {
			e.logger.Warn("features cache evict failed", "key", key.String(), "error", err)
		}
		return nil, false
	}
	return v, true
}

func (e *Extractor) store(ctx context.Context, key kv.Key, v Vector) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		e.logger.Warn("features cache encode failed", "error", err)
		return
	}
	if err := e.cache.Set(ctx, key, b, e.cacheTTL); err != nil {
		e.logger.Warn("features cache write failed", "key", key.String(), "error", err)
	}
}
