package allegrosync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsOrderProcessedCacheHitSkipsDatabase(t *testing.T) {
	f := newFixture()
	f.cache.keys["allegro:order:O1"] = orderCacheTTL

	processed, err := f.service.isOrderProcessed(context.Background(), "O1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Error("cache sentinel should mark the order processed")
	}
}

func TestIsOrderProcessedFallsBackToInvoiceTable(t *testing.T) {
	f := newFixture()
	f.invoices.byOrderId["O1"] = nil

	processed, err := f.service.isOrderProcessed(context.Background(), "O1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Error("invoice row should mark the order processed on a cache miss")
	}
}

func TestIsOrderProcessedSurvivesCacheErrors(t *testing.T) {
	f := newFixture()
	f.cache.existsErr = errors.New("redis down")
	f.invoices.byOrderId["O1"] = nil

	processed, err := f.service.isOrderProcessed(context.Background(), "O1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Error("durable check must still answer when the cache errors")
	}
}

func TestMarkOrderProcessedSetsDayLongSentinel(t *testing.T) {
	f := newFixture()
	f.service.markOrderProcessed(context.Background(), "O1")

	ttl, ok := f.cache.keys["allegro:order:O1"]
	if !ok {
		t.Fatal("sentinel key missing")
	}
	if ttl != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h", ttl)
	}
}
