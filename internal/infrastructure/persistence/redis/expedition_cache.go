package redis

import (
	"context"
	"errors"

	"github.com/bourgade-rp/bourgade-hub/internal/application/query"
)

// ExpeditionCache caches rendered expedition cards and town overviews.
// It is strictly best-effort: a miss or a Redis failure falls through to
// PostgreSQL, and every write path invalidates the affected keys.
type ExpeditionCache struct {
	cache *Cache
}

// NewExpeditionCache creates a new ExpeditionCache.
func NewExpeditionCache(cache *Cache) *ExpeditionCache {
	return &ExpeditionCache{cache: cache}
}

// GetCard returns the cached expedition card, or (nil, nil) on a miss.
func (c *ExpeditionCache) GetCard(ctx context.Context, expeditionID string) (*query.ExpeditionDTO, error) {
	var dto query.ExpeditionDTO
	err := c.cache.Get(ctx, ExpeditionKey(expeditionID), &dto)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// SetCard stores an expedition card.
func (c *ExpeditionCache) SetCard(ctx context.Context, dto *query.ExpeditionDTO) error {
	if dto == nil {
		return nil
	}
	return c.cache.Set(ctx, ExpeditionKey(dto.ID), dto, TTLExpeditionCard)
}

// GetTownList returns the cached town overview, or (nil, nil) on a miss.
func (c *ExpeditionCache) GetTownList(ctx context.Context, townID string, includeReturned bool) (*query.ExpeditionListResult, error) {
	var list query.ExpeditionListResult
	err := c.cache.Get(ctx, TownListKey(townID, includeReturned), &list)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// SetTownList stores a town overview.
func (c *ExpeditionCache) SetTownList(ctx context.Context, townID string, includeReturned bool, list *query.ExpeditionListResult) error {
	if list == nil {
		return nil
	}
	return c.cache.Set(ctx, TownListKey(townID, includeReturned), list, TTLTownList)
}

// Invalidate drops the expedition's card and both variants of its town's
// overview. Called after every successful command on the expedition.
func (c *ExpeditionCache) Invalidate(ctx context.Context, expeditionID, townID string) error {
	return c.cache.Delete(ctx,
		ExpeditionKey(expeditionID),
		TownListKey(townID, true),
		TownListKey(townID, false),
	)
}

// InvalidateCard drops one expedition card. Used by event-driven
// invalidation where the town is not known.
func (c *ExpeditionCache) InvalidateCard(ctx context.Context, expeditionID string) error {
	return c.cache.Delete(ctx, ExpeditionKey(expeditionID))
}

// InvalidateTownLists drops every town overview. Cheap at this key count
// and saves resolving the town from an event.
func (c *ExpeditionCache) InvalidateTownLists(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixTownList+"*")
}

// InvalidateAll clears every expedition-related key. Used by admin tooling
// after bulk imports.
func (c *ExpeditionCache) InvalidateAll(ctx context.Context) error {
	if err := c.cache.DeleteByPattern(ctx, PrefixExpedition+"*"); err != nil {
		return err
	}
	return c.cache.DeleteByPattern(ctx, PrefixTownList+"*")
}
