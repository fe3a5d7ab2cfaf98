package storeapi

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storefront-sync/internal/model"
)

func TestCartFromResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []model.CartLine
	}{
		{
			name: "empty",
			body: `{}`,
			want: []model.CartLine{},
		},
		{
			name: "items preferred over cartItems",
			body: `{"items":[{"id":1,"productId":"a","quantity":1}],"cartItems":[{"id":2,"productId":"b","quantity":1}]}`,
			want: []model.CartLine{{ID: "1", ProductID: "a", Quantity: 1}},
		},
		{
			name: "product id from nested product",
			body: `{"items":[{"id":"r1","quantity":2,"product":{"id":"ring-1","name":"Ring","price":"5.00"}}]}`,
			want: []model.CartLine{{
				ID: "r1", ProductID: "ring-1", Quantity: 2,
				Product: &model.Product{ID: "ring-1", Name: "Ring", Price: 500},
			}},
		},
		{
			name: "lines without product dropped",
			body: `{"items":[{"id":"r1","quantity":2}]}`,
			want: []model.CartLine{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp cartResponse
			if err := json.Unmarshal([]byte(tt.body), &resp); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if diff := cmp.Diff(tt.want, CartFromResponse(&resp)); diff != "" {
				t.Errorf("CartFromResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWishlistFromResponse_ProductIDFallback(t *testing.T) {
	var resp wishlistResponse
	json.Unmarshal([]byte(`{"wishlistItems":[{"productId":"p9"},{"product":null}]}`), &resp)

	got := WishlistFromResponse(&resp)
	want := []model.WishlistEntry{{ProductID: "p9"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WishlistFromResponse() mismatch (-want +got):\n%s", diff)
	}
}

func TestProductFromDTO_Nil(t *testing.T) {
	if ProductFromDTO(nil) != nil {
		t.Error("ProductFromDTO(nil) should be nil")
	}
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		in   string
		want flexID
	}{
		{`"abc"`, "abc"},
		{`123`, "123"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var f flexID
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if f != tt.want {
			t.Errorf("flexID(%s) = %q, want %q", tt.in, f, tt.want)
		}
	}
}
