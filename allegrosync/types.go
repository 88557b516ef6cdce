package allegrosync

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Settings is the per-integration sync configuration blob stored on the
// Integration record. All fields are optional in the stored JSON; decoding
// fills documented defaults.
type Settings struct {
	AutoGenerateInvoices *bool           `json:"autoGenerateInvoices"`
	InvoiceTemplateId    string          `json:"invoiceTemplateId"`
	SyncFrequency        string          `json:"syncFrequency" validate:"omitempty,max=64"`
	AutoMarkAsPaid       *bool           `json:"autoMarkAsPaid"`
	AutoCreateCustomer   *bool           `json:"autoCreateCustomer"`
	AutoCreateProduct    *bool           `json:"autoCreateProduct"`
	DefaultVatRate       decimal.Decimal `json:"defaultVatRate" validate:"omitempty"`
	OrderSourceFilter    string          `json:"orderSourceFilter" validate:"omitempty,max=64"`
}

func DefaultSettings() Settings {
	return Settings{
		AutoGenerateInvoices: newBool(true),
		SyncFrequency:        "60m",
		AutoMarkAsPaid:       newBool(false),
		AutoCreateCustomer:   newBool(true),
		AutoCreateProduct:    newBool(true),
		DefaultVatRate:       decimal.NewFromInt(23),
	}
}

// NormalizeSettings fills any unset field with its default.
func NormalizeSettings(s Settings) Settings {
	def := DefaultSettings()
	if s.AutoGenerateInvoices == nil {
		s.AutoGenerateInvoices = def.AutoGenerateInvoices
	}
	if s.SyncFrequency == "" {
		s.SyncFrequency = def.SyncFrequency
	}
	if s.AutoMarkAsPaid == nil {
		s.AutoMarkAsPaid = def.AutoMarkAsPaid
	}
	if s.AutoCreateCustomer == nil {
		s.AutoCreateCustomer = def.AutoCreateCustomer
	}
	if s.AutoCreateProduct == nil {
		s.AutoCreateProduct = def.AutoCreateProduct
	}
	if s.DefaultVatRate.IsZero() {
		s.DefaultVatRate = def.DefaultVatRate
	}
	return s
}

func DecodeSettings(raw []byte) Settings {
	if len(raw) == 0 {
		return DefaultSettings()
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return DefaultSettings()
	}
	return NormalizeSettings(s)
}

func EncodeSettings(s Settings) []byte {
	b, _ := json.Marshal(NormalizeSettings(s))
	return b
}

// TokenResponse is the provider token endpoint payload for both the
// authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// NormalizedOrder is the marketplace order translated into this system's
// shape. It lives for one sync pass and is never persisted.
type NormalizedOrder struct {
	ExternalId  string
	OrderNumber string
	Marketplace string
	BuyerId     string
	BuyerEmail  string
	BuyerName   string
	BuyerPhone  string
	Street      string
	City        string
	PostalCode  string
	CountryCode string
	TotalToPay  decimal.Decimal
	LineItems   []OrderLineItem
	Status      string
	BoughtAt    time.Time
}

type OrderLineItem struct {
	OfferId   string
	Title     string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// SyncResult summarizes one sync pass (or an exhausted retry ladder). Callers
// always get one of these, never a raw error.
type SyncResult struct {
	OrdersProcessed int      `json:"ordersProcessed"`
	InvoicesCreated int      `json:"invoicesCreated"`
	Errors          []string `json:"errors"`
	Success         bool     `json:"success"`
}

type IntegrationResponse struct {
	ID                uint     `json:"id"`
	ExternalAccountId string   `json:"externalAccountId"`
	IsActive          bool     `json:"isActive"`
	SyncErrorCount    int      `json:"syncErrorCount"`
	LastSyncError     string   `json:"lastSyncError,omitempty"`
	LastSyncAt        *string  `json:"lastSyncAt"`
	Settings          Settings `json:"settings"`
}

func newBool(b bool) *bool {
	return &b
}
