package allegrosync

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

const maxSyncAttempts = 6

// backoffLadder holds the wait after the nth failed attempt. The final attempt
// has no delay after it.
var backoffLadder = []time.Duration{
	time.Second,
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	time.Hour,
	4 * time.Hour,
}

// SyncWithRetry drives SyncOnce through the backoff ladder. Any pass that
// returns a result ends the loop, per-order errors included; only pass-level
// failures (fetch, credentials) are reattempted, and a credential failure, a
// disabled integration or context cancellation ends the loop at once. Callers
// always get a SyncResult;
// an exhausted ladder yields one with Success false and the attempt errors.
func (s *Service) SyncWithRetry(ctx context.Context, integrationId uint) *SyncResult {
	var attemptErrs []string
	for attempt := 1; attempt <= maxSyncAttempts; attempt++ {
		result, err := s.SyncOnce(ctx, integrationId)
		if err == nil {
			return result
		}
		attemptErrs = append(attemptErrs, err.Error())

		var authErr *AuthError
		if errors.As(err, &authErr) || errors.Is(err, errIntegrationInactive) {
			return &SyncResult{Errors: attemptErrs, Success: false}
		}

		if attempt == maxSyncAttempts {
			break
		}
		delay := backoffLadder[attempt-1]
		s.logger.WithFields(logrus.Fields{
			"module":        "allegrosync",
			"funcName":      "SyncWithRetry",
			"integrationId": integrationId,
			"attempt":       attempt,
			"delay":         delay.String(),
		}).Warnf("sync attempt failed, retrying: %v", err)
		if err := s.sleep(ctx, delay); err != nil {
			break
		}
	}
	return &SyncResult{Errors: attemptErrs, Success: false}
}
