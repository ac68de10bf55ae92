package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/catchcert/internal/landing"
)

// UploadedLandingsKey is the store key for the last validated upload.
const UploadedLandingsKey = "uploadedLandings"

// UploadCache holds the last validated upload per user and contact so the
// preview can be shown again before the rows are saved.
type UploadCache struct {
	store Store
}

func NewUploadCache(store Store) *UploadCache {
	return &UploadCache{store: store}
}

func (c *UploadCache) Put(ctx context.Context, p landing.Principal, rows []landing.UploadedLanding) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode uploaded landings: %w", err)
	}
	if err := c.store.WriteAllFor(ctx, p.UserID, p.ContactID, UploadedLandingsKey, data); err != nil {
		return fmt.Errorf("cache uploaded landings: %w", err)
	}
	return nil
}

// Get returns the cached rows, or nil when nothing is cached.
func (c *UploadCache) Get(ctx context.Context, p landing.Principal) ([]landing.UploadedLanding, error) {
	raw, err := c.store.ReadAllFor(ctx, p.UserID, p.ContactID, UploadedLandingsKey)
	if err != nil {
		return nil, fmt.Errorf("read uploaded landings: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var rows []landing.UploadedLanding
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode uploaded landings: %w", err)
	}
	return rows, nil
}

func (c *UploadCache) Invalidate(ctx context.Context, p landing.Principal) error {
	if err := c.store.DeleteAllFor(ctx, p.UserID, p.ContactID, UploadedLandingsKey); err != nil {
		return fmt.Errorf("invalidate uploaded landings: %w", err)
	}
	return nil
}
