package kv

import (
	"context"
	"fmt"

	"github.com/fieldvisor/auditsync/internal/cryptox"
)

// Sealed wraps a Store and transparently encrypts values at rest with
// AES-GCM. Keys stay in the clear so prefix listing keeps working; audit
// drafts and auth metadata on a shared device are the values worth sealing.
type Sealed struct {
	inner Store
	key   []byte
}

// NewSealed returns a Sealed store using the given 32-byte AES key,
// typically derived via cryptox.DeriveKey.
func NewSealed(inner Store, key []byte) *Sealed {
	return &Sealed{inner: inner, key: key}
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := cryptox.Open(sealed, s.key)
	if err != nil {
		return nil, fmt.Errorf("unseal %q: %w", key, err)
	}
	return plain, nil
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(value, s.key)
	if err != nil {
		return fmt.Errorf("seal %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Sealed) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.Keys(ctx, prefix)
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}
