package allegrosync

import (
	"context"
	"errors"

	"github.com/fakturo/invoices_backend/models"
	"github.com/fakturo/invoices_backend/utils"
	"github.com/sirupsen/logrus"
)

// errIntegrationInactive is terminal: a disabled integration must not be
// reattempted until it is reactivated.
var errIntegrationInactive = errors.New("integration is not active")

// SyncOnce runs a single sync pass for the integration. Per-order failures are
// collected into the result; only credential and fetch failures abort the pass
// and come back as an error. The integration's sync bookkeeping is persisted
// either way.
func (s *Service) SyncOnce(ctx context.Context, integrationId uint) (*SyncResult, error) {
	integ, err := s.store.Get(ctx, integrationId)
	if err != nil {
		return nil, err
	}
	ctx = utils.SetBusinessIdInContext(ctx, integ.BusinessId)

	if integ.IsActive == nil || !*integ.IsActive {
		return nil, errIntegrationInactive
	}

	settings := DecodeSettings(integ.SettingsJSON)
	if settings.AutoGenerateInvoices == nil || !*settings.AutoGenerateInvoices {
		return &SyncResult{Success: true}, nil
	}

	accessToken, err := s.ensureValidToken(ctx, integ)
	if err != nil {
		return nil, err
	}

	orders, err := s.api.ListOrders(ctx, accessToken, orderPageSize)
	if err != nil {
		s.recordPassFailure(ctx, integ, err)
		return nil, err
	}

	result := &SyncResult{}
	for i := range orders {
		// Cancellation says nothing about the integration's health, so the
		// failure streak is left untouched.
		if err := ctx.Err(); err != nil {
			return result, err
		}
		order := &orders[i]
		if settings.OrderSourceFilter != "" && order.Marketplace != settings.OrderSourceFilter {
			continue
		}
		result.OrdersProcessed++

		processed, err := s.isOrderProcessed(ctx, order.ExternalId)
		if err != nil {
			result.Errors = append(result.Errors, (&CreationError{ExternalOrderId: order.ExternalId, OrderNumber: order.OrderNumber, Err: err}).Error())
			continue
		}
		if processed {
			continue
		}

		invoice, err := s.buildAndCreate(ctx, order, settings, integ.CompanyId)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			s.logger.WithFields(logrus.Fields{
				"module":        "allegrosync",
				"funcName":      "SyncOnce",
				"integrationId": integ.ID,
				"orderId":       order.ExternalId,
			}).Warnf("order failed: %v", err)
			continue
		}
		s.markOrderProcessed(ctx, order.ExternalId)
		if invoice != nil {
			result.InvoicesCreated++
		}
	}

	result.Success = len(result.Errors) == 0
	if result.Success {
		s.recordPassSuccess(ctx, integ)
	} else {
		s.recordPassFailure(ctx, integ, errors.New(result.Errors[0]))
	}

	s.logger.WithFields(logrus.Fields{
		"module":          "allegrosync",
		"funcName":        "SyncOnce",
		"integrationId":   integ.ID,
		"ordersProcessed": result.OrdersProcessed,
		"invoicesCreated": result.InvoicesCreated,
		"errors":          len(result.Errors),
	}).Info("sync pass finished")
	return result, nil
}

func (s *Service) recordPassSuccess(ctx context.Context, integ *models.Integration) {
	now := s.now()
	integ.SyncErrorCount = 0
	integ.LastSyncError = ""
	integ.LastSyncAt = &now
	if err := s.store.Save(ctx, integ); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":        "allegrosync",
			"funcName":      "recordPassSuccess",
			"integrationId": integ.ID,
		}).Errorf("failed to persist sync state: %v", err)
	}
}

// recordPassFailure bumps the failure streak and disables the integration once
// the streak reaches the threshold.
func (s *Service) recordPassFailure(ctx context.Context, integ *models.Integration, cause error) {
	now := s.now()
	integ.SyncErrorCount++
	integ.LastSyncError = cause.Error()
	integ.LastSyncAt = &now
	if integ.SyncErrorCount >= disableThreshold {
		integ.IsActive = utils.NewFalse()
		s.logger.WithFields(logrus.Fields{
			"module":         "allegrosync",
			"funcName":       "recordPassFailure",
			"integrationId":  integ.ID,
			"syncErrorCount": integ.SyncErrorCount,
		}).Warn("integration disabled after repeated sync failures")
	}
	if err := s.store.Save(ctx, integ); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":        "allegrosync",
			"funcName":      "recordPassFailure",
			"integrationId": integ.ID,
		}).Errorf("failed to persist sync state: %v", err)
	}
}
