package storage

import (
	"context"
	"errors"
)

// ErrConflict is returned when a read-modify-write lost the race too many times.
var ErrConflict = errors.New("storage: concurrent update conflict")

// UpdateFunc gets the current value (found=false when the key is absent)
// and returns the value to store.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Store is the client-local key-value storage both persisted collections live in.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Update is atomic per key: fn sees the latest committed value.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

type prefixed struct {
	store  Store
	prefix string
}

// Prefixed namespaces every key, e.g. per account and network.
func Prefixed(store Store, prefix string) Store {
	if prefix == "" {
		return store
	}
	return &prefixed{store: store, prefix: prefix}
}

func (p *prefixed) key(k string) string {
	return p.prefix + ":" + k
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.store.Get(ctx, p.key(key))
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.store.Set(ctx, p.key(key), value)
}

func (p *prefixed) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return p.store.Update(ctx, p.key(key), fn)
}
