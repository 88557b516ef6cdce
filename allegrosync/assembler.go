package allegrosync

import (
	"context"
	"fmt"

	"github.com/fakturo/invoices_backend/models"
)

const invoiceDueDays = 14

// buildAndCreate turns one normalized order into a persisted sales invoice.
// Duplicate-key on the external order index means the order was invoiced by a
// concurrent pass; the caller treats it as already processed.
func (s *Service) buildAndCreate(ctx context.Context, order *NormalizedOrder, settings Settings, companyId int) (*models.SalesInvoice, error) {
	customer, err := s.resolveCustomer(ctx, order, settings, companyId)
	if err != nil {
		return nil, &CreationError{ExternalOrderId: order.ExternalId, OrderNumber: order.OrderNumber, Err: err}
	}

	var details []models.NewSalesInvoiceDetail
	for i := range order.LineItems {
		item := &order.LineItems[i]
		product, err := s.resolveLineItemProduct(ctx, item, settings, companyId)
		if err != nil {
			return nil, &CreationError{ExternalOrderId: order.ExternalId, OrderNumber: order.OrderNumber, Err: err}
		}
		details = append(details, models.NewSalesInvoiceDetail{
			ProductId:      product.ID,
			Name:           product.Name,
			DetailQty:      item.Quantity,
			DetailUnitRate: item.UnitPrice,
			DetailVatRate:  product.VatRate,
		})
	}

	invoiceDate := s.now()
	input := &models.NewSalesInvoice{
		CompanyId:         companyId,
		CustomerId:        customer.ID,
		InvoiceTemplateId: settings.InvoiceTemplateId,
		InvoiceDate:       invoiceDate,
		InvoiceDueDate:    invoiceDate.AddDate(0, 0, invoiceDueDays),
		Notes:             fmt.Sprintf("Imported from Allegro order %s", order.OrderNumber),
		MarkAsPaid:        settings.AutoMarkAsPaid != nil && *settings.AutoMarkAsPaid,
		ExternalOrderId:   order.ExternalId,
		Details:           details,
	}

	invoice, err := s.invoices.Create(ctx, input)
	if err != nil {
		if isDuplicateKeyErr(err) {
			return nil, nil
		}
		return nil, &CreationError{ExternalOrderId: order.ExternalId, OrderNumber: order.OrderNumber, Err: err}
	}
	return invoice, nil
}
