package allegrosync

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/models"
	"github.com/sirupsen/logrus"
)

const (
	schedulerTick = time.Minute

	// The lock TTL is short and refreshed while the pass runs. A pass can sit
	// in the retry ladder for hours, so the TTL alone must never be relied on
	// to outlive it; refreshing keeps the lock held and lets it lapse quickly
	// if the holder dies.
	syncLockPrefix      = "allegro:sync:lock:"
	syncLockTTL         = 5 * time.Minute
	syncLockRefreshTick = time.Minute
)

// StartScheduler walks active integrations once a minute and runs the ones
// whose frequency says they are due. A Redis lock per integration keeps one
// pass in flight across replicas. Blocks until the context is cancelled.
func (s *Service) StartScheduler(ctx context.Context) {
	logger := s.logger
	logger.WithFields(logrus.Fields{
		"module":   "allegrosync",
		"funcName": "StartScheduler",
	}).Info("sync scheduler started")

	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.WithFields(logrus.Fields{
				"module":   "allegrosync",
				"funcName": "StartScheduler",
			}).Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runDueIntegrations(ctx)
		}
	}
}

func (s *Service) runDueIntegrations(ctx context.Context) {
	integrations, err := models.ListDueIntegrations(ctx)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":   "allegrosync",
			"funcName": "runDueIntegrations",
		}).Errorf("failed to list integrations: %v", err)
		return
	}

	now := s.now()
	for _, integ := range integrations {
		if !integrationIsDue(integ, now) {
			continue
		}
		// Each integration syncs on its own goroutine so one integration's
		// retry ladder cannot hold up every other tenant behind it. The Redis
		// lock keeps reruns of the same integration from overlapping.
		go s.runLocked(ctx, integ.ID)
	}
}

func integrationIsDue(integ *models.Integration, now time.Time) bool {
	if integ.LastSyncAt == nil {
		return true
	}
	settings := DecodeSettings(integ.SettingsJSON)
	return !NextFireTime(settings.SyncFrequency, *integ.LastSyncAt).After(now)
}

// runLocked takes the per-integration lock and runs one retrying sync under
// it, refreshing the lock for as long as the pass is in flight.
func (s *Service) runLocked(ctx context.Context, integrationId uint) {
	locker := config.GetRedisLock()
	if locker != nil {
		lock, err := locker.Obtain(ctx, syncLockKey(integrationId), syncLockTTL, nil)
		if err != nil {
			if !errors.Is(err, redislock.ErrNotObtained) {
				s.logger.WithFields(logrus.Fields{
					"module":        "allegrosync",
					"funcName":      "runLocked",
					"integrationId": integrationId,
				}).Errorf("failed to obtain sync lock: %v", err)
			}
			return
		}
		defer lock.Release(ctx)

		done := make(chan struct{})
		defer close(done)
		go s.refreshLock(ctx, lock, integrationId, done)
	}

	s.SyncWithRetry(ctx, integrationId)
}

// refreshLock extends the per-integration lock until done closes. A failed
// refresh means the lock is lost; the pass keeps running and relies on the
// idempotency layers, which is why a lapse is logged loudly.
func (s *Service) refreshLock(ctx context.Context, lock *redislock.Lock, integrationId uint, done <-chan struct{}) {
	ticker := time.NewTicker(syncLockRefreshTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lock.Refresh(ctx, syncLockTTL, nil); err != nil {
				s.logger.WithFields(logrus.Fields{
					"module":        "allegrosync",
					"funcName":      "refreshLock",
					"integrationId": integrationId,
				}).Errorf("sync lock lost mid-pass: %v", err)
				return
			}
		}
	}
}

func syncLockKey(integrationId uint) string {
	return syncLockPrefix + strconv.FormatUint(uint64(integrationId), 10)
}
