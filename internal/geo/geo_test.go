package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCountryIDRoundtrip(t *testing.T) {
	cases := []struct {
		code string
		id   uint8
	}{
		{"XX", 0},
		{"US", 225},
		{"JP", 111},
		{"RU", 185},
		{"DE", 56},
	}
	for _, c := range cases {
		if got := CountryID(c.code); got != c.id {
			t.Errorf("CountryID(%q) = %d, want %d", c.code, got, c.id)
		}
		if got := CountryCode(c.id); got != c.code {
			t.Errorf("CountryCode(%d) = %q, want %q", c.id, got, c.code)
		}
	}
}

func TestCountryIDUnknown(t *testing.T) {
	if got := CountryID("ZZ"); got != 0 {
		t.Errorf("unknown code mapped to %d", got)
	}
	if got := CountryCode(255); got != "XX" {
		t.Errorf("out of range id mapped to %q", got)
	}
}

func TestCountryIDCaseInsensitive(t *testing.T) {
	if CountryID("us") != CountryID("US") {
		t.Errorf("lowercase code not normalized")
	}
}

func TestResolveWithoutKeyReturnsUnknown(t *testing.T) {
	r := NewResolver("", zerolog.Nop())
	if got := r.Resolve(context.Background(), "8.8.8.8"); got != Unknown {
		t.Errorf("Resolve without key = %+v", got)
	}
}

func TestResolveLoopbackReturnsUnknown(t *testing.T) {
	r := NewResolver("key", zerolog.Nop())
	if got := r.Resolve(context.Background(), "127.0.0.1"); got != Unknown {
		t.Errorf("Resolve loopback = %+v", got)
	}
}

func TestResolveParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"country_code": "FI",
			"latitude":     60.17,
			"longitude":    24.94,
		})
	}))
	defer srv.Close()

	r := NewResolver("key", zerolog.Nop())
	r.client = srv.Client()
	// Point the resolver at the fixture by rewriting the request host.
	r.client.Transport = rewriteHost(srv.URL)

	got := r.Resolve(context.Background(), "1.2.3.4")
	if got.CountryCode != "FI" {
		t.Errorf("country = %q, want FI", got.CountryCode)
	}
	if got.Latitude < 60 || got.Latitude > 61 {
		t.Errorf("latitude = %f", got.Latitude)
	}
}

func TestResolveServerErrorReturnsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewResolver("key", zerolog.Nop())
	r.client = srv.Client()
	r.client.Transport = rewriteHost(srv.URL)

	if got := r.Resolve(context.Background(), "1.2.3.4"); got != Unknown {
		t.Errorf("error response mapped to %+v", got)
	}
}

// rewriteHost redirects every request to the test server.
func rewriteHost(target string) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		u := *req.URL
		u.Scheme = "http"
		u.Host = target[len("http://"):]
		redirected := req.Clone(req.Context())
		redirected.URL = &u
		return (&http.Transport{ResponseHeaderTimeout: time.Second}).RoundTrip(redirected)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
