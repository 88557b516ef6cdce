package allegrosync

import (
	"context"
	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/models"
)

// gorm-backed adapters over the model layer. They exist so the service can be
// exercised against fakes in tests while production keeps the shared DB.

type gormIntegrationStore struct{}

func (gormIntegrationStore) Get(ctx context.Context, id uint) (*models.Integration, error) {
	return models.GetIntegration(ctx, id)
}

func (gormIntegrationStore) FindByAccount(ctx context.Context, userId int, externalAccountId string) (*models.Integration, error) {
	return models.GetIntegrationByAccount(ctx, userId, externalAccountId)
}

func (gormIntegrationStore) Save(ctx context.Context, integ *models.Integration) error {
	return models.SaveIntegration(ctx, integ)
}

type gormCustomerRepository struct{}

func (gormCustomerRepository) FindByExternalBuyerId(ctx context.Context, buyerId string) (*models.Customer, error) {
	return models.GetCustomerByExternalBuyerId(ctx, buyerId)
}

func (gormCustomerRepository) Create(ctx context.Context, input *models.NewCustomer) (*models.Customer, error) {
	return models.CreateCustomer(ctx, input)
}

type gormProductRepository struct{}

func (gormProductRepository) FindByExternalOfferId(ctx context.Context, offerId string) (*models.Product, error) {
	return models.GetProductByExternalOfferId(ctx, offerId)
}

func (gormProductRepository) Create(ctx context.Context, input *models.NewProduct) (*models.Product, error) {
	return models.CreateProduct(ctx, input)
}

type gormInvoiceRepository struct{}

func (gormInvoiceRepository) ExistsForOrder(ctx context.Context, externalOrderId string) (bool, error) {
	return models.SalesInvoiceExistsForOrder(ctx, externalOrderId)
}

func (gormInvoiceRepository) Create(ctx context.Context, input *models.NewSalesInvoice) (*models.SalesInvoice, error) {
	return models.CreateSalesInvoice(ctx, input)
}

type redisOrderCache struct{}

func (redisOrderCache) Exists(ctx context.Context, key string) (bool, error) {
	_, found, err := config.GetRedisValue(key)
	return found, err
}

func (redisOrderCache) SetSentinel(ctx context.Context, key string, ttl time.Duration) error {
	return config.SetRedisValue(key, "1", ttl)
}
