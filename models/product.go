package models

import (
	"context"
	"errors"
	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"uniqueIndex:idx_product_external_offer,priority:1;index;not null" json:"business_id" binding:"required"`
	CompanyId       int             `gorm:"index;not null" json:"company_id"`
	Name            string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description     string          `gorm:"type:text" json:"description"`
	Sku             string          `gorm:"size:100;not null" json:"sku" binding:"required"`
	SalesPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sales_price"`
	VatRate         decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"vat_rate"`
	ExternalOfferId string          `gorm:"uniqueIndex:idx_product_external_offer,priority:2;size:128;default:null" json:"external_offer_id"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	CompanyId       int             `json:"company_id"`
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	Sku             string          `json:"sku" binding:"required"`
	SalesPrice      decimal.Decimal `json:"sales_price"`
	VatRate         decimal.Decimal `json:"vat_rate"`
	ExternalOfferId string          `json:"external_offer_id"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	product := Product{
		BusinessId:      businessId,
		CompanyId:       input.CompanyId,
		Name:            input.Name,
		Description:     input.Description,
		Sku:             input.Sku,
		SalesPrice:      input.SalesPrice,
		VatRate:         input.VatRate,
		ExternalOfferId: input.ExternalOfferId,
		IsActive:        utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductByExternalOfferId returns (nil, nil) when no product carries the offer id.
func GetProductByExternalOfferId(ctx context.Context, externalOfferId string) (*Product, error) {
	var product Product
	err := config.GetDB().WithContext(ctx).
		Where("external_offer_id = ?", externalOfferId).
		Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}
