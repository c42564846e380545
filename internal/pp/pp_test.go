package pp

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAccuracyStandard(t *testing.T) {
	// SS play.
	if acc := Accuracy(0, 100, 0, 0, 0, 0, 0); acc != 100 {
		t.Errorf("SS accuracy = %f", acc)
	}
	// All misses.
	if acc := Accuracy(0, 0, 0, 0, 0, 0, 50); acc != 0 {
		t.Errorf("all-miss accuracy = %f", acc)
	}
	// Mixed: 90x300 + 10x100 = (9000*3 + 1000) / (100*300).
	want := 100 * (90.0*300 + 10.0*100) / (100.0 * 300)
	if acc := Accuracy(0, 90, 10, 0, 0, 0, 0); math.Abs(acc-want) > 1e-9 {
		t.Errorf("mixed accuracy = %f, want %f", acc, want)
	}
}

func TestAccuracyTaiko(t *testing.T) {
	want := 100 * (50.0 + 25.0) / 100.0 // 50 great, 50 good
	if acc := Accuracy(1, 50, 50, 0, 0, 0, 0); math.Abs(acc-want) > 1e-9 {
		t.Errorf("taiko accuracy = %f, want %f", acc, want)
	}
}

func TestAccuracyEmptyCounts(t *testing.T) {
	for mode := uint8(0); mode < 4; mode++ {
		if acc := Accuracy(mode, 0, 0, 0, 0, 0, 0); acc != 0 {
			t.Errorf("mode %d empty accuracy = %f", mode, acc)
		}
	}
}

func TestCalculate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var got Request
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if got.BeatmapID != 129891 {
			t.Errorf("beatmap id = %d", got.BeatmapID)
		}
		json.NewEncoder(w).Encode(map[string]float64{"pp": 727.5, "stars": 7.1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	pp := c.Calculate(context.Background(), Request{BeatmapID: 129891, Accuracy: 99.5})
	if pp != 727.5 {
		t.Errorf("pp = %f, want 727.5", pp)
	}
}

func TestCalculateFailureReturnsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	if pp := c.Calculate(context.Background(), Request{}); pp != 0 {
		t.Errorf("pp on server error = %f, want 0", pp)
	}
}

func TestCalculateTimeoutReturnsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10*time.Millisecond, zerolog.Nop())
	if pp := c.Calculate(context.Background(), Request{}); pp != 0 {
		t.Errorf("pp on timeout = %f, want 0", pp)
	}
}
