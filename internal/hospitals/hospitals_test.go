package hospitals

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNearby(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("data")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"elements":[
			{"lat":12.9,"lon":77.6,"tags":{"name":"City Hospital","addr:full":"1 Main Rd"}},
			{"lat":12.8,"lon":77.5,"tags":{"addr:street":"Lake St"}},
			{"lat":12.7,"lon":77.4},
			{"tags":{"name":"No coords"}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2500, time.Second)
	got, err := c.Nearby(context.Background(), 12.97, 77.59)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if !strings.Contains(gotQuery, `node["amenity"="hospital"](around:2500,12.97,77.59)`) {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 hospitals, got %d: %+v", len(got), got)
	}
	if got[0].Name != "City Hospital" || got[0].Address != "1 Main Rd" {
		t.Fatalf("unexpected first: %+v", got[0])
	}
	if got[1].Name != unknownName || got[1].Address != "Lake St" {
		t.Fatalf("unexpected second: %+v", got[1])
	}
	if got[2].Address != unknownAddress {
		t.Fatalf("unexpected third: %+v", got[2])
	}
}

func TestNearby_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0, time.Second).Nearby(context.Background(), 1, 1)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err=%v", err)
	}
}

func TestValidateCoordinates(t *testing.T) {
	if err := ValidateCoordinates(91, 0); !errors.Is(err, ErrBadCoordinates) {
		t.Fatalf("lat 91: %v", err)
	}
	if err := ValidateCoordinates(0, -181); !errors.Is(err, ErrBadCoordinates) {
		t.Fatalf("lon -181: %v", err)
	}
	if err := ValidateCoordinates(-90, 180); err != nil {
		t.Fatalf("bounds: %v", err)
	}
}
