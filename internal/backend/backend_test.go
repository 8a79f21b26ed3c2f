package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

func testOrder() *schema.Order {
	return &schema.Order{
		ID:       "o-1",
		Number:   "DMP-260315-ABCD",
		Customer: schema.Customer{Name: "Ana", Email: "ana@example.com"},
		Items:    []schema.LineItem{{ProductID: "p-1", Name: "Tamal", Quantity: 2, UnitPrice: decimal.RequireFromString("3.10")}},
		Totals:   schema.Totals{Total: decimal.RequireFromString("12.34")},
		Status:   schema.StatusPending,
		Payment:  schema.Payment{Method: schema.PaymentCash},
	}
}

func TestNew_DisabledWithoutURL(t *testing.T) {
	s := New(Options{APIKey: "k"})
	if s.Enabled() {
		t.Fatal("expected disabled syncer")
	}
	if err := s.SyncOrder(context.Background(), testOrder()); err != nil {
		t.Errorf("disabled syncer returned %v", err)
	}
}

func TestSyncOrder(t *testing.T) {
	var gotPath, gotKey, gotAuth string
	var row map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &row); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := New(Options{URL: srv.URL + "/", APIKey: "anon-key"})
	if !s.Enabled() {
		t.Fatal("expected enabled syncer")
	}
	if err := s.SyncOrder(context.Background(), testOrder()); err != nil {
		t.Fatalf("SyncOrder: %v", err)
	}
	if gotPath != "/rest/v1/orders" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "anon-key" || gotAuth != "Bearer anon-key" {
		t.Errorf("headers apikey=%q auth=%q", gotKey, gotAuth)
	}
	if row["order_number"] != "DMP-260315-ABCD" || row["total"] != "12.34" {
		t.Errorf("unexpected row %v", row)
	}
}

func TestSyncOrder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"relation \"orders\" does not exist"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(Options{URL: srv.URL}).SyncOrder(context.Background(), testOrder())
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected HTTP 404 error, got %v", err)
	}
}
