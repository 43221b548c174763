package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/keepsake-app/keepsake/internal/gifts"
)

// bundleKey is the single cache slot holding the widget snapshot.
const bundleKey = "gift_bundle"

// BundleStore persists the derived gift snapshot consumed by the surface
// renderer. The whole bundle is replaced on every sync; there are no
// partial updates.
type BundleStore struct {
	repo Repository
}

func NewBundleStore(repo Repository) *BundleStore {
	return &BundleStore{repo: repo}
}

// Load returns the cached bundle, or nil when no sync has completed yet.
func (s *BundleStore) Load(ctx context.Context) (*gifts.Bundle, error) {
	raw, err := s.repo.Get(ctx, bundleKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var b gifts.Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("failed to decode cached bundle: %w", err)
	}
	return &b, nil
}

// Store replaces the cached bundle atomically.
func (s *BundleStore) Store(ctx context.Context, b *gifts.Bundle) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return s.repo.Set(ctx, bundleKey, raw)
}
