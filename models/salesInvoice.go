package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SalesInvoice struct {
	ID                  int                  `gorm:"primary_key" json:"id"`
	BusinessId          string               `gorm:"uniqueIndex:idx_invoice_external_order,priority:1;index;not null" json:"business_id" binding:"required"`
	CompanyId           int                  `gorm:"index;not null" json:"company_id"`
	CustomerId          int                  `gorm:"index;not null" json:"customer_id" binding:"required"`
	SequenceNo          int                  `gorm:"not null" json:"sequence_no"`
	InvoiceNumber       string               `gorm:"size:255;not null" json:"invoice_number"`
	InvoiceTemplateId   string               `gorm:"size:64;default:null" json:"invoice_template_id"`
	InvoiceDate         time.Time            `gorm:"not null" json:"invoice_date" binding:"required"`
	InvoicePaymentTerms PaymentTerms         `gorm:"type:enum('Net15','Net30','DueOnReceipt','Custom');not null;default:'Custom'" json:"invoice_payment_terms"`
	InvoiceDueDate      time.Time            `gorm:"not null" json:"invoice_due_date"`
	Notes               string               `gorm:"type:text;default:null" json:"notes"`
	CurrentStatus       SalesInvoiceStatus   `gorm:"type:enum('Draft','Confirmed','Paid','Void');not null" json:"current_status"`
	Details             []SalesInvoiceDetail `gorm:"foreignKey:SalesInvoiceId" json:"details"`
	InvoiceTotalAmount  decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"invoice_total_amount"`
	// ExternalOrderId ties an invoice back to the marketplace order it came from.
	// The unique index on (business_id, external_order_id) is the durable arbiter
	// against double ingestion of one order.
	ExternalOrderId string    `gorm:"uniqueIndex:idx_invoice_external_order,priority:2;size:128;default:null" json:"external_order_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesInvoiceDetail struct {
	ID                int             `gorm:"primary_key" json:"id"`
	SalesInvoiceId    int             `gorm:"index;not null" json:"sales_invoice_id"`
	ProductId         int             `gorm:"index" json:"product_id"`
	Name              string          `gorm:"size:255;not null" json:"name" binding:"required"`
	DetailQty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_qty" binding:"required"`
	DetailUnitRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_unit_rate" binding:"required"`
	DetailVatRate     decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"detail_vat_rate"`
	DetailTotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_total_amount"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSalesInvoice struct {
	CompanyId           int                     `json:"company_id"`
	CustomerId          int                     `json:"customer_id" binding:"required"`
	InvoiceTemplateId   string                  `json:"invoice_template_id"`
	InvoiceDate         time.Time               `json:"invoice_date" binding:"required"`
	InvoicePaymentTerms PaymentTerms            `json:"invoice_payment_terms"`
	InvoiceDueDate      time.Time               `json:"invoice_due_date" binding:"required"`
	Notes               string                  `json:"notes"`
	CurrentStatus       SalesInvoiceStatus      `json:"current_status"`
	MarkAsPaid          bool                    `json:"mark_as_paid"`
	ExternalOrderId     string                  `json:"external_order_id"`
	Details             []NewSalesInvoiceDetail `json:"details" binding:"required"`
}

type NewSalesInvoiceDetail struct {
	ProductId      int             `json:"product_id"`
	Name           string          `json:"name" binding:"required"`
	DetailQty      decimal.Decimal `json:"detail_qty" binding:"required"`
	DetailUnitRate decimal.Decimal `json:"detail_unit_rate" binding:"required"`
	DetailVatRate  decimal.Decimal `json:"detail_vat_rate"`
}

// CreateSalesInvoice persists the invoice and its lines in one transaction and
// assigns the next per-business invoice number. The numbering read locks the
// latest row so concurrent creates for one tenant cannot collide.
func CreateSalesInvoice(ctx context.Context, input *NewSalesInvoice) (*SalesInvoice, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if len(input.Details) == 0 {
		return nil, errors.New("invoice requires at least one detail line")
	}

	status := input.CurrentStatus
	if status == "" {
		status = SalesInvoiceStatusConfirmed
	}
	if input.MarkAsPaid {
		status = SalesInvoiceStatusPaid
	}
	terms := input.InvoicePaymentTerms
	if terms == "" {
		terms = PaymentTermsCustom
	}

	invoice := SalesInvoice{
		BusinessId:          businessId,
		CompanyId:           input.CompanyId,
		CustomerId:          input.CustomerId,
		InvoiceTemplateId:   input.InvoiceTemplateId,
		InvoiceDate:         input.InvoiceDate,
		InvoicePaymentTerms: terms,
		InvoiceDueDate:      input.InvoiceDueDate,
		Notes:               input.Notes,
		CurrentStatus:       status,
		ExternalOrderId:     input.ExternalOrderId,
	}

	total := decimal.Zero
	for _, d := range input.Details {
		lineTotal := d.DetailUnitRate.Mul(d.DetailQty)
		invoice.Details = append(invoice.Details, SalesInvoiceDetail{
			ProductId:         d.ProductId,
			Name:              d.Name,
			DetailQty:         d.DetailQty,
			DetailUnitRate:    d.DetailUnitRate,
			DetailVatRate:     d.DetailVatRate,
			DetailTotalAmount: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	invoice.InvoiceTotalAmount = total

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lastSeq int
		if err := latestSequenceQuery(tx, businessId).Scan(&lastSeq).Error; err != nil {
			return err
		}
		invoice.SequenceNo = lastSeq + 1
		invoice.InvoiceNumber = fmt.Sprintf("INV-%d-%06d", input.InvoiceDate.Year(), invoice.SequenceNo)
		return tx.Create(&invoice).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// latestSequenceQuery reads the tenant's highest sequence number with a FOR
// UPDATE lock so concurrent creates inside their transactions serialize on the
// numbering instead of both reading the same max.
func latestSequenceQuery(tx *gorm.DB, businessId string) *gorm.DB {
	return tx.Model(&SalesInvoice{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		Select("COALESCE(MAX(sequence_no), 0)")
}

// SalesInvoiceExistsForOrder reports whether any invoice in the tenant already
// references the external order id.
func SalesInvoiceExistsForOrder(ctx context.Context, externalOrderId string) (bool, error) {
	var count int64
	err := config.GetDB().WithContext(ctx).
		Model(&SalesInvoice{}).
		Where("external_order_id = ?", externalOrderId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
