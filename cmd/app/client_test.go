package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clearledger/clearledger/internal/domain"
)

func TestAPIClientMapsErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"account 9: not found"}`))
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	err := client.request(context.Background(), http.MethodGet, "/api/accounts/9", nil, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	// The server's message survives the round trip.
	if err.Error() != "account 9: not found" {
		t.Fatalf("got message %q", err.Error())
	}
}

func TestServiceErrorTaxonomy(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{code: http.StatusNotFound, want: domain.ErrNotFound},
		{code: 40400, want: domain.ErrNotFound},
		{code: http.StatusConflict, want: domain.ErrInsufficientFunds},
		{code: 40900, want: domain.ErrInsufficientFunds},
		{code: http.StatusUnprocessableEntity, want: domain.ErrInvalidState},
		{code: 42200, want: domain.ErrInvalidState},
	}
	for _, tc := range cases {
		err := newServiceError(tc.code, "boom")
		if !errors.Is(err, tc.want) {
			t.Errorf("code %d: got %v, want %v", tc.code, err, tc.want)
		}
	}

	// Unknown codes stay generic instead of guessing a sentinel.
	err := newServiceError(50000, "boom")
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("unknown code mapped to a sentinel: %v", err)
	}
}
