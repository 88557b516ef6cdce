package allegrosync

import (
	"context"
	"time"

	"github.com/fakturo/invoices_backend/models"
	"github.com/fakturo/invoices_backend/utils"
	"github.com/sirupsen/logrus"
)

// ensureValidToken returns a usable plaintext access token, refreshing when
// the stored one expires within the refresh margin. A failed refresh
// deactivates the integration and surfaces as an AuthError.
func (s *Service) ensureValidToken(ctx context.Context, integ *models.Integration) (string, error) {
	if s.now().Add(tokenRefreshMargin).Before(integ.TokenExpiresAt) {
		access, err := s.cipher.Decrypt(integ.AccessToken)
		if err != nil {
			return "", &AuthError{Err: err}
		}
		return access, nil
	}

	refresh, err := s.cipher.Decrypt(integ.RefreshToken)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	token, err := s.api.RefreshToken(ctx, refresh)
	if err != nil {
		s.deactivate(ctx, integ, err)
		return "", &AuthError{Err: err}
	}

	encAccess, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return "", err
	}
	integ.AccessToken = encAccess
	if token.RefreshToken != "" {
		encRefresh, err := s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return "", err
		}
		integ.RefreshToken = encRefresh
	}
	integ.TokenExpiresAt = s.now().Add(time.Duration(token.ExpiresIn) * time.Second)

	if err := s.store.Save(ctx, integ); err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{
		"module":        "allegrosync",
		"funcName":      "ensureValidToken",
		"integrationId": integ.ID,
	}).Info("access token refreshed")
	return token.AccessToken, nil
}

func (s *Service) deactivate(ctx context.Context, integ *models.Integration, cause error) {
	integ.IsActive = utils.NewFalse()
	integ.LastSyncError = cause.Error()
	if err := s.store.Save(ctx, integ); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":        "allegrosync",
			"funcName":      "deactivate",
			"integrationId": integ.ID,
		}).Errorf("failed to persist deactivation: %v", err)
	}
	s.logger.WithFields(logrus.Fields{
		"module":        "allegrosync",
		"funcName":      "deactivate",
		"integrationId": integ.ID,
	}).Warnf("integration deactivated: %v", cause)
}
