package models

type SalesInvoiceStatus string

const (
	SalesInvoiceStatusDraft     SalesInvoiceStatus = "Draft"
	SalesInvoiceStatusConfirmed SalesInvoiceStatus = "Confirmed"
	SalesInvoiceStatusPaid      SalesInvoiceStatus = "Paid"
	SalesInvoiceStatusVoid      SalesInvoiceStatus = "Void"
)

type PaymentTerms string

const (
	PaymentTermsNet15        PaymentTerms = "Net15"
	PaymentTermsNet30        PaymentTerms = "Net30"
	PaymentTermsDueOnReceipt PaymentTerms = "DueOnReceipt"
	PaymentTermsCustom       PaymentTerms = "Custom"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "Admin"
	UserRoleOwner UserRole = "Owner"
	UserRoleStaff UserRole = "Staff"
)
