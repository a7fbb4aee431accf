package cache

import (
	"fmt"
	"time"
)

// Remember returns the cached value for key, or computes it with fn, caches
// it and returns it. Concurrent callers for the same key share a single
// call to fn. Errors from fn are returned and not cached. A value is not
// cached when one of tags was cleared while fn ran, since it may predate the
// change that caused the clear.
func (c *Cache) Remember(key string, ttl time.Duration, tags []string, fn func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		gen := c.generation(tags)
		v, err := fn()
		if err != nil {
			return nil, err
		}
		stored, err := c.setIfGeneration(gen, key, v, ttl, tags)
		switch {
		case err != nil:
			c.log.Warn("remember: value not cached", "key", key, "error", err)
		case !stored:
			c.log.Debug("remember: invalidated during compute", "key", key)
		}
		return v, nil
	})
	return v, err
}

// RememberAs is Remember with a typed value. A cached value of another type
// is treated as a miss and replaced.
func RememberAs[T any](c *Cache, key string, ttl time.Duration, tags []string, fn func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
		c.Delete(key)
	}
	v, err := c.Remember(key, ttl, tags, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("remember %s: cached %T, want %T", key, v, zero)
	}
	return t, nil
}

// Sizer is implemented by values that know their approximate footprint.
type Sizer interface {
	Size() int64
}

// headerSize is charged for values of unknown size.
const headerSize = 64

// approxSize estimates the bytes held for an item. Values that are neither
// strings, byte slices nor Sizers are charged headerSize.
func approxSize(key string, value any) int64 {
	n := int64(len(key))
	switch v := value.(type) {
	case Sizer:
		return n + v.Size()
	case string:
		return n + int64(len(v))
	case []byte:
		return n + int64(len(v))
	default:
		return n + headerSize
	}
}
