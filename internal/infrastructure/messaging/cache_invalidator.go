package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ExpeditionCacheDropper is the slice of the cache the invalidator needs.
type ExpeditionCacheDropper interface {
	InvalidateCard(ctx context.Context, expeditionID string) error
	InvalidateTownLists(ctx context.Context) error
}

// CacheInvalidator drops stale cache entries whenever an expedition event is
// published. Failures are logged and swallowed: the TTL bounds staleness.
type CacheInvalidator struct {
	cache   ExpeditionCacheDropper
	logger  *slog.Logger
	timeout time.Duration
}

// NewCacheInvalidator creates a new CacheInvalidator.
func NewCacheInvalidator(cache ExpeditionCacheDropper, logger *slog.Logger) *CacheInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheInvalidator{
		cache:   cache,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// InterestedIn implements shared.EventHandler. An empty list subscribes the
// invalidator to every event: anything the core publishes can change a card.
func (h *CacheInvalidator) InterestedIn() []shared.EventType {
	return nil
}

// Handle implements shared.EventHandler.
func (h *CacheInvalidator) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.InvalidateCard(ctx, event.AggregateID()); err != nil {
		h.logger.Warn("cache card invalidation failed",
			"expedition_id", event.AggregateID(), "error", err)
	}
	if err := h.cache.InvalidateTownLists(ctx); err != nil {
		h.logger.Warn("cache town list invalidation failed", "error", err)
	}
	return nil
}
