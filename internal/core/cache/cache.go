package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/duuta/ocr-flavors/internal/core/domain"
	"github.com/duuta/ocr-flavors/internal/core/ports"
)

const DefaultTTL = 3600 * time.Second

// ResultCache is a content-addressed cache of extraction results keyed by
// (document fingerprint, canonical processing parameters). Expiry is enforced
// by the backing store; concurrent sets to the same key race last-write-wins.
type ResultCache struct {
	store ports.CacheStore
	ttl   time.Duration
}

func New(store ports.CacheStore, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{store: store, ttl: ttl}
}

// Key derives the lookup key from the fingerprint and the canonicalized
// parameters. Identical logical inputs always produce the same key; JSON
// object keys marshal in sorted order, so insertion order never matters.
func Key(fingerprint string, params domain.ProcessingParams) string {
	if params == nil {
		params = domain.ProcessingParams{}
	}
	canonical, err := json.Marshal(params)
	if err != nil {
		// A map[string]string cannot fail to marshal.
		canonical = []byte("{}")
	}
	sum := sha256.Sum256([]byte(fingerprint + ":" + string(canonical)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result when present and unexpired. A miss is
// reported via the bool, not an error.
func (c *ResultCache) Get(ctx context.Context, fingerprint string, params domain.ProcessingParams) (*domain.ExtractionResult, bool, error) {
	raw, ok, err := c.store.Get(ctx, Key(fingerprint, params))
	if err != nil {
		return nil, false, domain.WrapError(domain.ErrCache, "cache get", err)
	}
	if !ok {
		return nil, false, nil
	}

	var res domain.ExtractionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, domain.WrapError(domain.ErrCache, "cache decode", err)
	}
	return &res, true, nil
}

// Set stores the result unconditionally, overwriting any existing entry and
// resetting its expiry clock.
func (c *ResultCache) Set(ctx context.Context, fingerprint string, params domain.ProcessingParams, res *domain.ExtractionResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return domain.WrapError(domain.ErrCache, "cache encode", err)
	}
	if err := c.store.SetWithTTL(ctx, Key(fingerprint, params), raw, c.ttl); err != nil {
		return domain.WrapError(domain.ErrCache, "cache set", err)
	}
	return nil
}

// TTL reports the configured entry lifetime.
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}
