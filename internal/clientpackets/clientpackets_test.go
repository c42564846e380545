package clientpackets

import (
	"testing"

	"github.com/rosupd/bancho/internal/packet"
)

// payload strips the reserved frame header so tests feed parsers the
// same bytes the router hands them.
func payload(w *packet.Writer) []byte {
	return append([]byte(nil), w.Finish(0)[packet.HeaderSize:]...)
}

func TestParseChangeAction(t *testing.T) {
	data := payload(packet.Get().
		WriteU8(2).
		WriteString("playing something").
		WriteString("ffae06fb022871fe9beb58b005c5e21d").
		WriteI32(72).
		WriteU8(3).
		WriteI32(1234))

	got, err := ParseChangeAction(data)
	if err != nil {
		t.Fatalf("ParseChangeAction: %v", err)
	}
	if got.ActionID != 2 || got.Text != "playing something" || got.Mods != 72 {
		t.Errorf("decoded %+v", got)
	}
	if got.GameMode != 3 || got.BeatmapID != 1234 {
		t.Errorf("decoded %+v", got)
	}
}

func TestParseChangeActionTruncated(t *testing.T) {
	if _, err := ParseChangeAction([]byte{2, 0x0B}); err == nil {
		t.Errorf("truncated payload parsed without error")
	}
}

func TestParseMessage(t *testing.T) {
	data := payload(packet.Get().
		WriteString("").
		WriteString("hello there").
		WriteString("#osu").
		WriteI32(0))

	got, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if got.Content != "hello there" || got.To != "#osu" {
		t.Errorf("decoded %+v", got)
	}
}

func TestParseJoinMatch(t *testing.T) {
	data := payload(packet.Get().WriteI32(33).WriteString("pw"))
	got, err := ParseJoinMatch(data)
	if err != nil {
		t.Fatalf("ParseJoinMatch: %v", err)
	}
	if got.MatchID != 33 || got.Password != "pw" {
		t.Errorf("decoded %+v", got)
	}
}

func buildSettings(freeMod bool, withSeed bool) []byte {
	w := packet.Get().
		WriteU16(1).
		WriteU8(0). // not in progress
		WriteU8(0). // match type
		WriteU32(0).
		WriteString("room").
		WriteString("secret").
		WriteString("map name").
		WriteI32(99).
		WriteString("md5md5")
	// Slot 0 occupied (not ready), slot 1 occupied (ready), rest free.
	statuses := [16]uint8{4, 8}
	for i := 2; i < 16; i++ {
		statuses[i] = 1
	}
	for i := 0; i < 16; i++ {
		w.WriteU8(statuses[i])
	}
	for i := 0; i < 16; i++ {
		w.WriteU8(0)
	}
	w.WriteI32(500) // slot 0 user
	w.WriteI32(501) // slot 1 user
	w.WriteI32(500) // host
	w.WriteU8(0).WriteU8(0).WriteU8(0)
	if freeMod {
		w.WriteU8(1)
		for i := 0; i < 16; i++ {
			w.WriteI32(int32(i))
		}
	} else {
		w.WriteU8(0)
	}
	if withSeed {
		w.WriteI32(42)
	}
	return payload(w)
}

func TestParseMatchSettings(t *testing.T) {
	got, err := ParseMatchSettings(buildSettings(false, true))
	if err != nil {
		t.Fatalf("ParseMatchSettings: %v", err)
	}
	if got.Name != "room" || got.Password != "secret" || got.BeatmapID != 99 {
		t.Errorf("decoded %+v", got)
	}
	if !got.SlotOccupied[0] || !got.SlotOccupied[1] || got.SlotOccupied[2] {
		t.Errorf("occupancy wrong: %v", got.SlotOccupied)
	}
	if got.SlotUserIDs[0] != 500 || got.SlotUserIDs[1] != 501 {
		t.Errorf("slot user ids wrong: %v", got.SlotUserIDs[:2])
	}
	if got.HostUserID != 500 || got.Seed != 42 {
		t.Errorf("host/seed wrong: %d/%d", got.HostUserID, got.Seed)
	}
}

func TestParseMatchSettingsFreeMod(t *testing.T) {
	got, err := ParseMatchSettings(buildSettings(true, true))
	if err != nil {
		t.Fatalf("ParseMatchSettings: %v", err)
	}
	if !got.FreeMod || got.SlotMods[3] != 3 {
		t.Errorf("free mod decode wrong: %+v", got)
	}
}

func TestParseMatchSettingsMissingSeed(t *testing.T) {
	got, err := ParseMatchSettings(buildSettings(false, false))
	if err != nil {
		t.Fatalf("old client payload rejected: %v", err)
	}
	if got.Seed != 0 {
		t.Errorf("seed = %d, want 0 default", got.Seed)
	}
}

func buildScoreFrame(slot uint8, hp uint8) []byte {
	w := packet.Get().
		WriteI32(12345). // time
		WriteU8(slot).
		WriteU16(100). // 300s
		WriteU16(20).  // 100s
		WriteU16(3).   // 50s
		WriteU16(5).   // geki
		WriteU16(2).   // katu
		WriteU16(1).   // miss
		WriteI32(725000).
		WriteU16(180). // max combo
		WriteU16(90).  // current combo
		WriteU8(0).    // perfect
		WriteU8(hp).
		WriteU8(0) // tag byte
	return payload(w)
}

func TestParseScoreFrame(t *testing.T) {
	got, err := ParseScoreFrame(buildScoreFrame(3, 120))
	if err != nil {
		t.Fatalf("ParseScoreFrame: %v", err)
	}
	if got.SlotID != 3 || got.Count300 != 100 || got.CountMiss != 1 {
		t.Errorf("decoded %+v", got)
	}
	if got.TotalScore != 725000 || got.MaxCombo != 180 {
		t.Errorf("decoded %+v", got)
	}
	if got.CurrentHP != 120 {
		t.Errorf("hp = %d, want 120", got.CurrentHP)
	}
	if got.Failed {
		t.Errorf("alive player decoded as failed")
	}
}

func TestParseScoreFrameFailed(t *testing.T) {
	got, err := ParseScoreFrame(buildScoreFrame(0, 254))
	if err != nil {
		t.Fatalf("ParseScoreFrame: %v", err)
	}
	if !got.Failed {
		t.Errorf("hp 254 not decoded as failed")
	}
}

func TestRewriteSlot(t *testing.T) {
	got, err := ParseScoreFrame(buildScoreFrame(9, 100))
	if err != nil {
		t.Fatalf("ParseScoreFrame: %v", err)
	}
	rewritten := got.RewriteSlot(5)
	if rewritten[4] != 5 {
		t.Errorf("slot byte = %d, want 5", rewritten[4])
	}
	if got.Raw[4] != 9 {
		t.Errorf("RewriteSlot mutated the original frame")
	}
}

func TestParseAwayMessage(t *testing.T) {
	data := payload(packet.Get().WriteString("").WriteString("brb food").WriteString("").WriteI32(0))
	got, err := ParseAwayMessage(data)
	if err != nil {
		t.Fatalf("ParseAwayMessage: %v", err)
	}
	if got != "brb food" {
		t.Errorf("away message = %q", got)
	}
}
