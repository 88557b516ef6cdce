package allegrosync

import (
	"context"
	"errors"
	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/models"
	"github.com/fakturo/invoices_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	// How long before expiry a token is considered stale and refreshed.
	tokenRefreshMargin = time.Hour

	// Orders pulled per fetch.
	orderPageSize = 100

	// Consecutive failing passes before an integration is switched off.
	disableThreshold = 5
)

// MarketplaceAPI is the provider-facing surface: OAuth plus order listing.
type MarketplaceAPI interface {
	AuthorizeURL(state string) string
	ExchangeAuthCode(ctx context.Context, code string) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	AccountId(ctx context.Context, accessToken string) (string, error)
	ListOrders(ctx context.Context, accessToken string, limit int) ([]NormalizedOrder, error)
}

type IntegrationStore interface {
	Get(ctx context.Context, id uint) (*models.Integration, error)
	FindByAccount(ctx context.Context, userId int, externalAccountId string) (*models.Integration, error)
	Save(ctx context.Context, integ *models.Integration) error
}

type CustomerRepository interface {
	FindByExternalBuyerId(ctx context.Context, buyerId string) (*models.Customer, error)
	Create(ctx context.Context, input *models.NewCustomer) (*models.Customer, error)
}

type ProductRepository interface {
	FindByExternalOfferId(ctx context.Context, offerId string) (*models.Product, error)
	Create(ctx context.Context, input *models.NewProduct) (*models.Product, error)
}

type InvoiceRepository interface {
	ExistsForOrder(ctx context.Context, externalOrderId string) (bool, error)
	Create(ctx context.Context, input *models.NewSalesInvoice) (*models.SalesInvoice, error)
}

// OrderCache is the fast idempotency layer in front of the durable invoice
// uniqueness check. A cache miss is never authoritative.
type OrderCache interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetSentinel(ctx context.Context, key string, ttl time.Duration) error
}

type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type Dependencies struct {
	API       MarketplaceAPI
	Store     IntegrationStore
	Customers CustomerRepository
	Products  ProductRepository
	Invoices  InvoiceRepository
	Cache     OrderCache
	Cipher    TokenCipher
	Logger    *logrus.Logger
}

// Service runs the Allegro order ingestion pipeline. All collaborators are
// injected so passes can run against fakes.
type Service struct {
	api       MarketplaceAPI
	store     IntegrationStore
	customers CustomerRepository
	products  ProductRepository
	invoices  InvoiceRepository
	cache     OrderCache
	cipher    TokenCipher
	logger    *logrus.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(deps Dependencies) (*Service, error) {
	if deps.API == nil || deps.Store == nil || deps.Customers == nil ||
		deps.Products == nil || deps.Invoices == nil || deps.Cache == nil || deps.Cipher == nil {
		return nil, errors.New("allegrosync: missing dependency")
	}
	logger := deps.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Service{
		api:       deps.API,
		store:     deps.Store,
		customers: deps.Customers,
		products:  deps.Products,
		invoices:  deps.Invoices,
		cache:     deps.Cache,
		cipher:    deps.Cipher,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}, nil
}

// NewDefaultService wires the production collaborators: the HTTP client, the
// gorm-backed repositories and the Redis order cache.
func NewDefaultService() (*Service, error) {
	cipher, err := utils.NewTokenCipherFromEnv()
	if err != nil {
		return nil, err
	}
	return NewService(Dependencies{
		API:       NewAllegroClient(),
		Store:     &gormIntegrationStore{},
		Customers: &gormCustomerRepository{},
		Products:  &gormProductRepository{},
		Invoices:  &gormInvoiceRepository{},
		Cache:     &redisOrderCache{},
		Cipher:    cipher,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CompleteOAuth exchanges the callback code, resolves the provider account and
// upserts the integration for the user. Re-linking an existing account only
// rotates its credentials and reactivates it.
func (s *Service) CompleteOAuth(ctx context.Context, businessId string, userId int, code string) (*models.Integration, error) {
	token, err := s.api.ExchangeAuthCode(ctx, code)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	accountId, err := s.api.AccountId(ctx, token.AccessToken)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	encAccess, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}
	encRefresh, err := s.cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(time.Duration(token.ExpiresIn) * time.Second)

	integ, err := s.store.FindByAccount(ctx, userId, accountId)
	if err != nil {
		return nil, err
	}
	if integ == nil {
		integ = &models.Integration{
			BusinessId:        businessId,
			UserId:            userId,
			Provider:          models.IntegrationProviderAllegro,
			ExternalAccountId: accountId,
			SettingsJSON:      EncodeSettings(DefaultSettings()),
		}
	}
	integ.AccessToken = encAccess
	integ.RefreshToken = encRefresh
	integ.TokenExpiresAt = expiresAt
	integ.IsActive = utils.NewTrue()
	integ.SyncErrorCount = 0
	integ.LastSyncError = ""

	if err := s.store.Save(ctx, integ); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"module":        "allegrosync",
		"funcName":      "CompleteOAuth",
		"integrationId": integ.ID,
		"accountId":     accountId,
	}).Info("allegro account linked")
	return integ, nil
}

// Disconnect deactivates the integration without touching its history.
func (s *Service) Disconnect(ctx context.Context, id uint) error {
	integ, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	integ.IsActive = utils.NewFalse()
	return s.store.Save(ctx, integ)
}

// Reactivate re-enables a disabled integration and clears its failure streak.
func (s *Service) Reactivate(ctx context.Context, id uint) error {
	integ, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	integ.IsActive = utils.NewTrue()
	integ.SyncErrorCount = 0
	integ.LastSyncError = ""
	return s.store.Save(ctx, integ)
}

// UpdateSettings replaces the integration's settings blob, filling defaults
// for unset fields.
func (s *Service) UpdateSettings(ctx context.Context, id uint, settings Settings) (*models.Integration, error) {
	integ, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	integ.SettingsJSON = EncodeSettings(settings)
	if err := s.store.Save(ctx, integ); err != nil {
		return nil, err
	}
	return integ, nil
}

func ToIntegrationResponse(integ *models.Integration) IntegrationResponse {
	resp := IntegrationResponse{
		ID:                integ.ID,
		ExternalAccountId: integ.ExternalAccountId,
		IsActive:          integ.IsActive != nil && *integ.IsActive,
		SyncErrorCount:    integ.SyncErrorCount,
		LastSyncError:     integ.LastSyncError,
		Settings:          DecodeSettings(integ.SettingsJSON),
	}
	if integ.LastSyncAt != nil {
		formatted := integ.LastSyncAt.UTC().Format(time.RFC3339)
		resp.LastSyncAt = &formatted
	}
	return resp
}
