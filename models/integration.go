package models

import (
	"context"
	"errors"
	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/utils"
	"gorm.io/gorm"
)

const (
	IntegrationProviderAllegro = "allegro"
)

// Integration holds one tenant user's marketplace account link: encrypted OAuth
// credentials, sync settings and sync health. Rows are deactivated, never deleted.
type Integration struct {
	ID                uint       `gorm:"primary_key" json:"id"`
	BusinessId        string     `gorm:"uniqueIndex:idx_integration_account,priority:1;index;not null" json:"business_id"`
	UserId            int        `gorm:"uniqueIndex:idx_integration_account,priority:2;not null" json:"user_id"`
	CompanyId         int        `gorm:"index;not null" json:"company_id"`
	Provider          string     `gorm:"index;size:50;not null" json:"provider"`
	ExternalAccountId string     `gorm:"uniqueIndex:idx_integration_account,priority:3;size:128;not null" json:"external_account_id"`
	AccessToken       string     `gorm:"type:text" json:"-"`
	RefreshToken      string     `gorm:"type:text" json:"-"`
	TokenExpiresAt    time.Time  `json:"token_expires_at"`
	IsActive          *bool      `gorm:"not null;default:true" json:"is_active"`
	SyncErrorCount    int        `gorm:"not null;default:0" json:"sync_error_count"`
	LastSyncError     string     `gorm:"type:text" json:"last_sync_error"`
	LastSyncAt        *time.Time `json:"last_sync_at"`
	SettingsJSON      []byte     `gorm:"type:json" json:"settings"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetIntegration(ctx context.Context, id uint) (*Integration, error) {
	var integ Integration
	err := config.GetDB().WithContext(ctx).Where("id = ?", id).Take(&integ).Error
	if err != nil {
		return nil, err
	}
	return &integ, nil
}

// GetIntegrationByAccount returns (nil, nil) when the account is not linked yet.
func GetIntegrationByAccount(ctx context.Context, userId int, externalAccountId string) (*Integration, error) {
	var integ Integration
	err := config.GetDB().WithContext(ctx).
		Where("user_id = ? AND external_account_id = ?", userId, externalAccountId).
		Take(&integ).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integ, nil
}

func ListIntegrationsForUser(ctx context.Context, userId int) ([]*Integration, error) {
	var items []*Integration
	err := config.GetDB().WithContext(ctx).
		Where("user_id = ? AND provider = ?", userId, IntegrationProviderAllegro).
		Order("id").
		Find(&items).Error
	return items, err
}

// ListDueIntegrations returns active integrations across all tenants. Tenant
// scoping is bypassed on purpose: the scheduler walks every tenant.
func ListDueIntegrations(ctx context.Context) ([]*Integration, error) {
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	var items []*Integration
	err := config.GetDB().WithContext(ctx).
		Where("provider = ? AND is_active = ?", IntegrationProviderAllegro, true).
		Order("id").
		Find(&items).Error
	return items, err
}

func SaveIntegration(ctx context.Context, integ *Integration) error {
	return config.GetDB().WithContext(ctx).Save(integ).Error
}
