package allegrosync

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeSettingsEmptyYieldsDefaults(t *testing.T) {
	s := DecodeSettings(nil)

	if s.AutoGenerateInvoices == nil || !*s.AutoGenerateInvoices {
		t.Error("autoGenerateInvoices should default to true")
	}
	if s.SyncFrequency != "60m" {
		t.Errorf("syncFrequency = %q, want 60m", s.SyncFrequency)
	}
	if s.AutoMarkAsPaid == nil || *s.AutoMarkAsPaid {
		t.Error("autoMarkAsPaid should default to false")
	}
	if !s.DefaultVatRate.Equal(decimal.NewFromInt(23)) {
		t.Errorf("defaultVatRate = %s, want 23", s.DefaultVatRate)
	}
}

func TestDecodeSettingsKeepsExplicitValues(t *testing.T) {
	raw := []byte(`{"autoGenerateInvoices":false,"syncFrequency":"15m","defaultVatRate":"8"}`)
	s := DecodeSettings(raw)

	if s.AutoGenerateInvoices == nil || *s.AutoGenerateInvoices {
		t.Error("explicit autoGenerateInvoices=false was overridden")
	}
	if s.SyncFrequency != "15m" {
		t.Errorf("syncFrequency = %q, want 15m", s.SyncFrequency)
	}
	if !s.DefaultVatRate.Equal(decimal.NewFromInt(8)) {
		t.Errorf("defaultVatRate = %s, want 8", s.DefaultVatRate)
	}
	if s.AutoCreateCustomer == nil || !*s.AutoCreateCustomer {
		t.Error("unset autoCreateCustomer should fill its default")
	}
}

func TestDecodeSettingsBadJSONYieldsDefaults(t *testing.T) {
	s := DecodeSettings([]byte("{nope"))
	if s.SyncFrequency != "60m" {
		t.Errorf("syncFrequency = %q, want default 60m", s.SyncFrequency)
	}
}

func TestEncodeSettingsRoundTrip(t *testing.T) {
	in := DefaultSettings()
	in.InvoiceTemplateId = "tmpl-7"
	out := DecodeSettings(EncodeSettings(in))

	if out.InvoiceTemplateId != "tmpl-7" {
		t.Errorf("invoiceTemplateId = %q, want tmpl-7", out.InvoiceTemplateId)
	}
}
