// Package pp talks to the external performance calculation service.
// Used by the PP-competition match mode, where live scores are ranked
// by performance points instead of raw score. Failures yield zero so a
// flaky calculator never stalls in-game traffic.
package pp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Request describes one score to evaluate.
type Request struct {
	BeatmapID     int32   `json:"beatmap_id"`
	Mode          uint8   `json:"mode"`
	Mods          int32   `json:"mods"`
	MaxCombo      int32   `json:"max_combo"`
	Accuracy      float64 `json:"accuracy"`
	MissCount     int32   `json:"miss_count"`
	PassedObjects int32   `json:"passed_objects"`
}

type response struct {
	PP    float64 `json:"pp"`
	Stars float64 `json:"stars"`
}

// Client calls the performance service.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a performance service client.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "pp").Logger(),
	}
}

// Calculate returns the score's performance points, 0 on any failure.
func (c *Client) Calculate(ctx context.Context, req Request) float64 {
	body, err := json.Marshal(req)
	if err != nil {
		return 0
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/calculate", bytes.NewReader(body))
	if err != nil {
		return 0
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Int32("beatmap", req.BeatmapID).Msg("pp calculation failed")
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Int32("beatmap", req.BeatmapID).Msg("pp calculation rejected")
		return 0
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Warn().Err(err).Msg("pp response malformed")
		return 0
	}
	return out.PP
}

// Accuracy computes the mode-specific accuracy percentage from hit
// counts, matching the osu! client's formulas.
func Accuracy(mode uint8, n300, n100, n50, geki, katu, miss int32) float64 {
	switch mode {
	case 1: // taiko
		total := n300 + n100 + miss
		if total == 0 {
			return 0
		}
		return 100 * (float64(n300) + float64(n100)*0.5) / float64(total)
	case 2: // catch
		total := n300 + n100 + n50 + katu + miss
		if total == 0 {
			return 0
		}
		return 100 * float64(n300+n100+n50) / float64(total)
	case 3: // mania
		total := n300 + n100 + n50 + geki + katu + miss
		if total == 0 {
			return 0
		}
		points := float64(n50)*50 + float64(n100)*100 + float64(katu)*200 +
			float64(n300+geki)*300
		return 100 * points / (float64(total) * 300)
	default: // standard
		total := n300 + n100 + n50 + miss
		if total == 0 {
			return 0
		}
		points := float64(n50)*50 + float64(n100)*100 + float64(n300)*300
		return 100 * points / (float64(total) * 300)
	}
}

// String implements fmt.Stringer for request logging.
func (r Request) String() string {
	return fmt.Sprintf("beatmap=%d mode=%d mods=%d", r.BeatmapID, r.Mode, r.Mods)
}
