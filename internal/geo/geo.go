// Package geo resolves login IP addresses to a country and rough
// coordinates through the ip2location.io API. Lookups are best effort:
// any failure falls back to an unknown location so logins never block
// on geolocation.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Location is a resolved client position.
type Location struct {
	CountryCode string // two-letter, "XX" when unknown
	Latitude    float32
	Longitude   float32
}

// Unknown is the fallback location.
var Unknown = Location{CountryCode: "XX"}

// Resolver queries the ip2location.io API.
type Resolver struct {
	apiKey string
	client *http.Client
	log    zerolog.Logger
}

// NewResolver creates a resolver. An empty API key disables lookups;
// Resolve then always returns Unknown.
func NewResolver(apiKey string, log zerolog.Logger) *Resolver {
	return &Resolver{
		apiKey: apiKey,
		client: &http.Client{Timeout: 2 * time.Second},
		log:    log.With().Str("component", "geo").Logger(),
	}
}

type apiResponse struct {
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Resolve looks up the IP. Private and loopback addresses, API errors
// and timeouts all yield Unknown.
func (r *Resolver) Resolve(ctx context.Context, ip string) Location {
	if r.apiKey == "" || ip == "" || ip == "127.0.0.1" || ip == "::1" {
		return Unknown
	}
	u := fmt.Sprintf("https://api.ip2location.io/?key=%s&ip=%s",
		url.QueryEscape(r.apiKey), url.QueryEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Unknown
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn().Err(err).Str("ip", ip).Msg("geolocation request failed")
		return Unknown
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.log.Warn().Int("status", resp.StatusCode).Str("ip", ip).Msg("geolocation request rejected")
		return Unknown
	}
	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		r.log.Warn().Err(err).Str("ip", ip).Msg("geolocation response malformed")
		return Unknown
	}
	if body.CountryCode == "" || body.CountryCode == "-" {
		return Unknown
	}
	return Location{
		CountryCode: body.CountryCode,
		Latitude:    float32(body.Latitude),
		Longitude:   float32(body.Longitude),
	}
}
