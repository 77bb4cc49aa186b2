package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuoteRoundsToCents(t *testing.T) {
	repo := NewMemoryRepository()
	svc, err := repo.Get(context.Background(), "tiktok-views")
	if err != nil {
		t.Fatalf("get service: %v", err)
	}

	// 1111 views at 0.0035 is 3.8885, quoted as 3.89.
	price, err := svc.Quote(1111)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("3.89")) {
		t.Fatalf("expected 3.89, got %s", price)
	}
}

func TestQuoteEnforcesBounds(t *testing.T) {
	repo := NewMemoryRepository()
	svc, err := repo.Get(context.Background(), "ig-followers")
	if err != nil {
		t.Fatalf("get service: %v", err)
	}

	if _, err := svc.Quote(svc.MinQuantity - 1); err == nil {
		t.Fatal("expected below-minimum quantity to fail")
	}
	if _, err := svc.Quote(svc.MaxQuantity + 1); err == nil {
		t.Fatal("expected above-maximum quantity to fail")
	}
	if _, err := svc.Quote(svc.MinQuantity); err != nil {
		t.Fatalf("minimum quantity should be orderable: %v", err)
	}
}

func TestQuoteRejectsInactiveService(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(Service{ID: "retired", Name: "Retired", Price: decimal.RequireFromString("0.01"), MinQuantity: 1, MaxQuantity: 10})

	svc, err := repo.Get(context.Background(), "retired")
	if err != nil {
		t.Fatalf("get service: %v", err)
	}
	if _, err := svc.Quote(5); err != ErrInactive {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestListActiveSkipsInactive(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(Service{ID: "retired", Name: "Retired", Active: false})

	list, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, svc := range list {
		if svc.ID == "retired" {
			t.Fatal("inactive service listed")
		}
	}
	if len(list) != 6 {
		t.Fatalf("expected the 6 seeded services, got %d", len(list))
	}
}
