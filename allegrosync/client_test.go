package allegrosync

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func checkoutFormFixture() checkoutForm {
	raw := `{
		"id": "cf-1",
		"number": "2026/03/001",
		"status": "READY_FOR_PROCESSING",
		"buyer": {"id": "buyer-1", "firstName": "Jan", "lastName": "Kowalski"},
		"summary": {"totalToPay": {"amount": "20.00", "currency": "PLN"}},
		"lineItems": [
			{"offer": {"id": "offer-1", "name": "USB Cable"}, "quantity": 2, "price": {"amount": "10.00"}}
		],
		"boughtAt": "2026-03-01T10:00:00Z"
	}`
	var form checkoutForm
	if err := json.Unmarshal([]byte(raw), &form); err != nil {
		panic(err)
	}
	return form
}

func TestNormalizeOrder(t *testing.T) {
	order, err := normalizeOrder(checkoutFormFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ExternalId != "cf-1" || order.OrderNumber != "2026/03/001" {
		t.Errorf("ids = (%q, %q)", order.ExternalId, order.OrderNumber)
	}
	if order.BuyerName != "Jan Kowalski" {
		t.Errorf("buyer name = %q", order.BuyerName)
	}
	if !order.TotalToPay.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("total = %s, want 20.00", order.TotalToPay)
	}
	if len(order.LineItems) != 1 {
		t.Fatalf("line items = %d, want 1", len(order.LineItems))
	}
	if !order.LineItems[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("qty = %s, want 2", order.LineItems[0].Quantity)
	}
}

func TestNormalizeOrderFallsBackToLoginAsBuyerId(t *testing.T) {
	form := checkoutFormFixture()
	form.Buyer.ID = ""
	form.Buyer.Login = "jan_k"

	order, err := normalizeOrder(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.BuyerId != "jan_k" {
		t.Errorf("buyer id = %q, want jan_k", order.BuyerId)
	}
}

func TestNormalizeOrderRejectsMissingBuyer(t *testing.T) {
	form := checkoutFormFixture()
	form.Buyer.ID = ""
	form.Buyer.Login = ""

	if _, err := normalizeOrder(form); err == nil {
		t.Error("expected error for missing buyer")
	}
}

func TestNormalizeOrderRejectsEmptyLineItems(t *testing.T) {
	form := checkoutFormFixture()
	form.LineItems = form.LineItems[:0]

	if _, err := normalizeOrder(form); err == nil {
		t.Error("expected error for empty line items")
	}
}

func TestNormalizeOrderDefaultsNonPositiveQuantity(t *testing.T) {
	form := checkoutFormFixture()
	form.LineItems[0].Quantity = json.Number("0")

	order, err := normalizeOrder(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.LineItems[0].Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("qty = %s, want 1", order.LineItems[0].Quantity)
	}
}
