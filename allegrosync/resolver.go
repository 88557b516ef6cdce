package allegrosync

import (
	"context"
	"fmt"

	"github.com/fakturo/invoices_backend/models"
	"github.com/fakturo/invoices_backend/utils"
)

const skuPrefix = "ALG-"

// resolveCustomer maps the order's buyer onto a tenant customer, creating one
// when allowed. A duplicate-key failure means another pass created the same
// customer first; the winner's row is fetched and reused.
func (s *Service) resolveCustomer(ctx context.Context, order *NormalizedOrder, settings Settings, companyId int) (*models.Customer, error) {
	customer, err := s.customers.FindByExternalBuyerId(ctx, order.BuyerId)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		return customer, nil
	}
	if settings.AutoCreateCustomer == nil || !*settings.AutoCreateCustomer {
		return nil, fmt.Errorf("no customer for buyer %s and auto-create is off", order.BuyerId)
	}

	name := order.BuyerName
	if name == "" {
		name = order.BuyerId
	}
	country := order.CountryCode
	if country == "" {
		country = utils.CountryCode
	}
	email := order.BuyerEmail
	if !utils.IsValidEmail(email) {
		email = ""
	}
	customer, err = s.customers.Create(ctx, &models.NewCustomer{
		CompanyId:       companyId,
		Name:            name,
		Email:           email,
		Phone:           utils.NormalizePhoneNumber(order.BuyerPhone, country),
		AddressLine1:    order.Street,
		City:            order.City,
		PostalCode:      order.PostalCode,
		CountryCode:     order.CountryCode,
		ExternalBuyerId: order.BuyerId,
	})
	if err != nil {
		if isDuplicateKeyErr(err) {
			return s.customers.FindByExternalBuyerId(ctx, order.BuyerId)
		}
		return nil, err
	}
	return customer, nil
}

// resolveLineItemProduct maps one order line onto a tenant product, creating
// one with a synthesized SKU when allowed.
func (s *Service) resolveLineItemProduct(ctx context.Context, item *OrderLineItem, settings Settings, companyId int) (*models.Product, error) {
	product, err := s.products.FindByExternalOfferId(ctx, item.OfferId)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}
	if settings.AutoCreateProduct == nil || !*settings.AutoCreateProduct {
		return nil, fmt.Errorf("no product for offer %s and auto-create is off", item.OfferId)
	}

	product, err = s.products.Create(ctx, &models.NewProduct{
		CompanyId:       companyId,
		Name:            item.Title,
		Description:     item.Title,
		Sku:             skuPrefix + item.OfferId,
		SalesPrice:      item.UnitPrice,
		VatRate:         settings.DefaultVatRate,
		ExternalOfferId: item.OfferId,
	})
	if err != nil {
		if isDuplicateKeyErr(err) {
			return s.products.FindByExternalOfferId(ctx, item.OfferId)
		}
		return nil, err
	}
	return product, nil
}
