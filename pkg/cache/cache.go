package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

var (
	ErrCacheMiss    = errors.New("cache: key not found")
	ErrInvalidDest  = errors.New("cache: destination must be a non-nil pointer")
	ErrTypeMismatch = errors.New("cache: cached value does not fit destination")
)

// Service is a key -> (value, expiry) store shared by the fetch pipelines.
// Entries are replaced wholesale on Set and never mutated in place.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Lookup is a typed Get. A miss or any backend error reports false.
func Lookup[T any](ctx context.Context, c Service, key string) (T, bool) {
	var v T
	if c == nil {
		return v, false
	}
	if err := c.Get(ctx, key, &v); err != nil {
		return v, false
	}
	return v, true
}

// assign stores value into *dest without copying: pointer values stay the
// same pointer, so in-process hits hand back the very object that was cached.
func assign(dest, value interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return ErrInvalidDest
	}
	target := dv.Elem()

	vv := reflect.ValueOf(value)
	if !vv.IsValid() {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	if !vv.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("%w: %s into %s", ErrTypeMismatch, vv.Type(), target.Type())
	}
	target.Set(vv)
	return nil
}
