package models

import (
	"context"
	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/utils"
)

type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Username   string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"size:100" json:"email"`
	Role       UserRole  `gorm:"size:20;not null;default:'Staff'" json:"role"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetUserByUsername looks the user up across tenants; the username carries no
// tenant prefix, so the scope guard is bypassed here.
func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	var user User
	err := config.GetDB().WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
