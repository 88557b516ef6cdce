package allegrosync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	orderCachePrefix = "allegro:order:"
	orderCacheTTL    = 24 * time.Hour
)

func orderCacheKey(externalOrderId string) string {
	return orderCachePrefix + externalOrderId
}

// isOrderProcessed checks the cache first and falls back to the invoice table.
// Only the durable check is authoritative; a cache error degrades to the
// database lookup instead of failing the order.
func (s *Service) isOrderProcessed(ctx context.Context, externalOrderId string) (bool, error) {
	hit, err := s.cache.Exists(ctx, orderCacheKey(externalOrderId))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":   "allegrosync",
			"funcName": "isOrderProcessed",
			"orderId":  externalOrderId,
		}).Warnf("order cache lookup failed: %v", err)
	} else if hit {
		return true, nil
	}
	return s.invoices.ExistsForOrder(ctx, externalOrderId)
}

// markOrderProcessed drops the cache sentinel. The invoice row already exists
// at this point, so a cache write failure costs one extra database check later.
func (s *Service) markOrderProcessed(ctx context.Context, externalOrderId string) {
	if err := s.cache.SetSentinel(ctx, orderCacheKey(externalOrderId), orderCacheTTL); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":   "allegrosync",
			"funcName": "markOrderProcessed",
			"orderId":  externalOrderId,
		}).Warnf("order cache write failed: %v", err)
	}
}
