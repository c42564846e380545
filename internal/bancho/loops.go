package bancho

import (
	"context"
	"time"
)

// Maintenance intervals.
const (
	timeoutSweepEvery = 15 * time.Second
	sessionTimeout    = 100 * time.Second
	sessionLoginGrace = 50 * time.Second
	matchCleanupEvery = 30 * time.Second
)

// RunTimeoutSweep drops sessions whose client stopped polling.
func (h *Hub) RunTimeoutSweep(ctx context.Context) error {
	ticker := time.NewTicker(timeoutSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, t := range h.Sessions.TimedOut(sessionTimeout, sessionLoginGrace) {
				h.log.Info().
					Int32("user", t.UserID).
					Str("username", t.Username).
					Time("last_ping", t.LastPing()).
					Msg("session timed out")
				h.DestroySession(ctx, t, true)
			}
		}
	}
}

// RunSpamReset clears every session's chat counter periodically. The
// counter plus this reset bound the sustained message rate.
func (h *Hub) RunSpamReset(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.SpamResetInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, t := range h.Sessions.Snapshot() {
				t.SpamReset()
			}
		}
	}
}

// RunMatchCleanup disposes matches whose members all vanished without
// a clean part (crashed clients, dropped sessions).
func (h *Hub) RunMatchCleanup(ctx context.Context) error {
	ticker := time.NewTicker(matchCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, m := range h.Matches.Snapshot() {
				alive := 0
				for _, tokenID := range m.MemberTokens() {
					if h.Sessions.Get(tokenID) != nil {
						alive++
					}
				}
				if alive == 0 {
					h.disposeMatch(m)
				}
			}
		}
	}
}
