package allegrosync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSyncWithRetryStopsOnFirstSuccess(t *testing.T) {
	integ := activeIntegration(1)
	f := newFixture(integ)
	f.api.listErrs = []error{errors.New("timeout"), errors.New("timeout"), nil}

	result := f.service.SyncWithRetry(context.Background(), 1)
	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if f.api.listCalls != 3 {
		t.Errorf("list calls = %d, want 3", f.api.listCalls)
	}
	want := []time.Duration{time.Second, time.Minute}
	if len(f.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", f.sleeps, want)
	}
	for i := range want {
		if f.sleeps[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, f.sleeps[i], want[i])
		}
	}
}

func TestSyncWithRetryExhaustsLadder(t *testing.T) {
	integ := activeIntegration(1)
	f := newFixture(integ)
	f.api.listErrs = []error{
		errors.New("down"), errors.New("down"), errors.New("down"),
		errors.New("down"), errors.New("down"), errors.New("down"),
	}

	result := f.service.SyncWithRetry(context.Background(), 1)
	if result.Success {
		t.Fatal("expected failure after exhausting the ladder")
	}
	want := []time.Duration{time.Second, time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour}
	if len(f.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", f.sleeps, want)
	}
	for i := range want {
		if f.sleeps[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, f.sleeps[i], want[i])
		}
	}
}

func TestSyncWithRetryStopsOnceIntegrationDisabled(t *testing.T) {
	integ := activeIntegration(1)
	integ.SyncErrorCount = 4
	f := newFixture(integ)
	f.api.listErrs = []error{errors.New("down"), errors.New("down")}

	result := f.service.SyncWithRetry(context.Background(), 1)
	if result.Success {
		t.Fatal("expected failure")
	}
	if integ.IsActive == nil || *integ.IsActive {
		t.Fatal("integration should be disabled after the threshold")
	}
	if f.api.listCalls != 1 {
		t.Errorf("list calls = %d, want 1 (no attempts against a disabled integration)", f.api.listCalls)
	}
	if len(f.sleeps) != 1 || f.sleeps[0] != time.Second {
		t.Errorf("sleeps = %v, want only the 1s wait before the terminal attempt", f.sleeps)
	}
}

func TestSyncWithRetryDoesNotRetryOrderLevelErrors(t *testing.T) {
	integ := activeIntegration(1)
	f := newFixture(integ)
	f.api.orders = []NormalizedOrder{orderFixture("O1")}
	f.invoices.failOrders["O1"] = errors.New("deadlock")

	result := f.service.SyncWithRetry(context.Background(), 1)
	if result.Success {
		t.Fatal("pass with order failures must not report success")
	}
	if f.api.listCalls != 1 {
		t.Errorf("list calls = %d, want 1 (no retry for order-level errors)", f.api.listCalls)
	}
	if len(f.sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", f.sleeps)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want the single order failure", result.Errors)
	}
}

func TestSyncWithRetryStopsOnAuthError(t *testing.T) {
	integ := activeIntegration(1)
	integ.TokenExpiresAt = time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	f := newFixture(integ)
	f.api.refreshErr = errors.New("invalid_grant")

	result := f.service.SyncWithRetry(context.Background(), 1)
	if result.Success {
		t.Fatal("expected failure on credential error")
	}
	if len(result.Errors) == 0 {
		t.Error("expected the auth failure in the result errors")
	}
	if len(f.sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", f.sleeps)
	}
	if f.api.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", f.api.refreshCalls)
	}
}
