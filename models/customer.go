package models

import (
	"context"
	"errors"

	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/utils"
	"gorm.io/gorm"
)

type Customer struct {
	ID              int       `gorm:"primary_key" json:"id"`
	BusinessId      string    `gorm:"uniqueIndex:idx_customer_external_buyer,priority:1;index;not null" json:"business_id" binding:"required"`
	CompanyId       int       `gorm:"index;not null" json:"company_id"`
	Name            string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email           string    `gorm:"size:100" json:"email"`
	Phone           string    `gorm:"size:20" json:"phone"`
	AddressLine1    string    `gorm:"size:255" json:"address_line1"`
	City            string    `gorm:"size:100" json:"city"`
	PostalCode      string    `gorm:"size:20" json:"postal_code"`
	CountryCode     string    `gorm:"size:2" json:"country_code"`
	ExternalBuyerId string    `gorm:"uniqueIndex:idx_customer_external_buyer,priority:2;size:128;default:null" json:"external_buyer_id"`
	IsActive        *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	CompanyId       int    `json:"company_id"`
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	AddressLine1    string `json:"address_line1"`
	City            string `json:"city"`
	PostalCode      string `json:"postal_code"`
	CountryCode     string `json:"country_code"`
	ExternalBuyerId string `json:"external_buyer_id"`
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	customer := Customer{
		BusinessId:      businessId,
		CompanyId:       input.CompanyId,
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		AddressLine1:    input.AddressLine1,
		City:            input.City,
		PostalCode:      input.PostalCode,
		CountryCode:     input.CountryCode,
		ExternalBuyerId: input.ExternalBuyerId,
		IsActive:        utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	var customer Customer
	err := config.GetDB().WithContext(ctx).Where("id = ?", id).Take(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomerByExternalBuyerId returns (nil, nil) when no customer carries the buyer id.
func GetCustomerByExternalBuyerId(ctx context.Context, externalBuyerId string) (*Customer, error) {
	var customer Customer
	err := config.GetDB().WithContext(ctx).
		Where("external_buyer_id = ?", externalBuyerId).
		Take(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}
