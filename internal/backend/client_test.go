package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFetchCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cart/cust-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"service_id":"svc1","title":"Sofa Cleaning","price":499,"quantity":2}],"total":998}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL+"/", zerolog.Nop())
	items, err := c.FetchCart(context.Background(), "cust-1", "tok")
	if err != nil {
		t.Fatalf("FetchCart: %v", err)
	}
	if len(items) != 1 || items[0].ServiceID != "svc1" || items[0].PriceCents != 49900 || items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestFetchCartEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[],"total":0}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.Client(), srv.URL, zerolog.Nop()).FetchCart(context.Background(), "cust-1", "")
	if err != nil {
		t.Fatalf("FetchCart: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestFetchCartErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL, zerolog.Nop()).FetchCart(context.Background(), "cust-1", "")
	if err == nil || !strings.Contains(err.Error(), "unexpected status 500") {
		t.Fatalf("expected status error, got %v", err)
	}
}
