package serverpackets

import (
	"testing"

	"github.com/rosupd/bancho/internal/packet"
	"github.com/rosupd/bancho/internal/session"
)

func header(t *testing.T, frame []byte) (packet.ID, int) {
	t.Helper()
	id, length, err := packet.ReadFrameHeader(frame)
	if err != nil {
		t.Fatalf("reading frame header: %v", err)
	}
	if len(frame) != packet.HeaderSize+length {
		t.Fatalf("frame size %d does not match declared payload %d", len(frame), length)
	}
	return id, length
}

func TestUserID(t *testing.T) {
	frame := UserID(-1)
	id, length := header(t, frame)
	if id != packet.ServerUserID {
		t.Errorf("packet id = %d, want %d", id, packet.ServerUserID)
	}
	if length != 4 {
		t.Errorf("payload length = %d, want 4", length)
	}
	r, _ := packet.NewFrameReader(frame)
	if v, _ := r.ReadI32(); v != -1 {
		t.Errorf("user id = %d, want -1", v)
	}
}

func TestSendMessageRoundtrip(t *testing.T) {
	frame := SendMessage("peppy", "hello world", "#osu", 2)
	id, _ := header(t, frame)
	if id != packet.ServerSendMessage {
		t.Fatalf("packet id = %d, want %d", id, packet.ServerSendMessage)
	}
	r, _ := packet.NewFrameReader(frame)
	from, _ := r.ReadString()
	msg, _ := r.ReadString()
	target, _ := r.ReadString()
	sender, _ := r.ReadI32()
	if from != "peppy" || msg != "hello world" || target != "#osu" || sender != 2 {
		t.Errorf("decoded %q %q %q %d", from, msg, target, sender)
	}
}

func TestChannelInfo(t *testing.T) {
	frame := ChannelInfo("#osu", "Main channel", 42)
	r, _ := packet.NewFrameReader(frame)
	name, _ := r.ReadString()
	desc, _ := r.ReadString()
	count, _ := r.ReadU16()
	if name != "#osu" || desc != "Main channel" || count != 42 {
		t.Errorf("decoded %q %q %d", name, desc, count)
	}
}

func TestSimplePacketsHaveEmptyPayload(t *testing.T) {
	for _, frame := range [][]byte{
		ChannelInfoEnd(),
		MatchJoinFail(),
		MatchTransferHost(),
		MatchAllPlayersLoaded(),
		MatchComplete(),
		MatchSkip(),
		AccountRestricted(),
	} {
		if _, length := header(t, frame); length != 0 {
			t.Errorf("simple packet declared %d payload bytes", length)
		}
	}
}

func TestUserStatsFields(t *testing.T) {
	reg := session.NewRegistry()
	tok := reg.Add(1001, "player")
	tok.SetAction(session.Action{
		ID:        2,
		Text:      "FREEDOM DiVE",
		MD5:       "d41d8cd98f00b204e9800998ecf8427e",
		Mods:      64,
		GameMode:  0,
		BeatmapID: 129891,
	})
	tok.SetStats(session.Stats{
		RankedScore: 123456789,
		Accuracy:    98.76,
		Playcount:   5000,
		TotalScore:  987654321,
		PP:          7331,
		GameRank:    12,
	})

	frame := UserStats(tok)
	id, _ := header(t, frame)
	if id != packet.ServerUserStats {
		t.Fatalf("packet id = %d, want %d", id, packet.ServerUserStats)
	}
	r, _ := packet.NewFrameReader(frame)
	userID, _ := r.ReadI32()
	actionID, _ := r.ReadU8()
	text, _ := r.ReadString()
	md5, _ := r.ReadString()
	mods, _ := r.ReadI32()
	mode, _ := r.ReadU8()
	beatmapID, _ := r.ReadI32()
	rankedScore, _ := r.ReadU64()
	acc, _ := r.ReadF32()
	playcount, _ := r.ReadU32()
	totalScore, _ := r.ReadU64()
	rank, _ := r.ReadU32()
	pp, _ := r.ReadU16()

	if userID != 1001 || actionID != 2 || text != "FREEDOM DiVE" {
		t.Errorf("identity fields wrong: %d %d %q", userID, actionID, text)
	}
	if md5 == "" || mods != 64 || mode != 0 || beatmapID != 129891 {
		t.Errorf("action fields wrong: %q %d %d %d", md5, mods, mode, beatmapID)
	}
	if rankedScore != 123456789 || playcount != 5000 || totalScore != 987654321 {
		t.Errorf("score fields wrong: %d %d %d", rankedScore, playcount, totalScore)
	}
	if rank != 12 || pp != 7331 {
		t.Errorf("rank/pp wrong: %d %d", rank, pp)
	}
	if acc < 0.98 || acc > 0.99 {
		t.Errorf("accuracy = %f, want ~0.9876", acc)
	}
	if r.Remaining() != 0 {
		t.Errorf("%d trailing bytes", r.Remaining())
	}
}

func TestUserPresenceTimezoneShift(t *testing.T) {
	reg := session.NewRegistry()
	tok := reg.Add(7, "zoner")
	tok.SetTimeOffset(-5)
	tok.SetLocation("US", 225, 40.7, -74.0)

	frame := UserPresence(tok, 4)
	r, _ := packet.NewFrameReader(frame)
	r.ReadI32()    // user id
	r.ReadString() // username
	tz, _ := r.ReadU8()
	country, _ := r.ReadU8()
	rank, _ := r.ReadU8()
	if tz != 19 {
		t.Errorf("timezone byte = %d, want 19 (offset -5 + 24)", tz)
	}
	if country != 225 || rank != 4 {
		t.Errorf("country/rank = %d/%d", country, rank)
	}
}

func matchFixture() MatchData {
	m := MatchData{
		ID:          5,
		Mods:        0,
		Name:        "test lobby",
		Password:    "hunter2",
		BeatmapName: "some map",
		BeatmapID:   42,
		BeatmapMD5:  "abc",
		HostUserID:  1001,
		Seed:        777,
	}
	for i := range m.SlotStatuses {
		m.SlotStatuses[i] = 1 // free
	}
	m.SlotStatuses[0] = 4 // not ready
	m.SlotOccupied[0] = true
	m.SlotUserIDs[0] = 1001
	return m
}

func TestMatchPasswordCensoring(t *testing.T) {
	m := matchFixture()

	// Lobby variant replaces the password so only the lock icon shows.
	lobby := NewMatch(m)
	r, _ := packet.NewFrameReader(lobby)
	r.ReadU16() // id
	r.ReadU8()  // in progress
	r.ReadU8()  // match type
	r.ReadU32() // mods
	r.ReadString()
	pw, err := r.ReadString()
	if err != nil {
		t.Fatalf("reading censored password: %v", err)
	}
	if pw != "*" {
		t.Errorf("censored password = %q, want *", pw)
	}

	// Member variant carries the real password.
	member := MatchJoinSuccess(m)
	r2, _ := packet.NewFrameReader(member)
	r2.ReadU16()
	r2.ReadU8()
	r2.ReadU8()
	r2.ReadU32()
	r2.ReadString()
	pw2, _ := r2.ReadString()
	if pw2 != "hunter2" {
		t.Errorf("member password = %q, want hunter2", pw2)
	}
}

func TestMatchOnlyOccupiedSlotsCarryUserIDs(t *testing.T) {
	m := matchFixture()
	frame := MatchJoinSuccess(m)
	r, _ := packet.NewFrameReader(frame)
	r.ReadU16()
	r.ReadU8()
	r.ReadU8()
	r.ReadU32()
	r.ReadString()
	r.ReadString()
	r.ReadString()
	r.ReadI32()
	r.ReadString()
	for i := 0; i < 32; i++ { // statuses + teams
		r.ReadU8()
	}
	uid, _ := r.ReadI32() // only slot 0 is occupied
	if uid != 1001 {
		t.Fatalf("slot 0 user id = %d, want 1001", uid)
	}
	host, _ := r.ReadI32()
	if host != 1001 {
		t.Fatalf("host id = %d, want 1001 (empty slots must not be serialized)", host)
	}
	r.ReadU8() // game mode
	r.ReadU8() // scoring
	r.ReadU8() // team type
	freeMod, _ := r.ReadU8()
	if freeMod != 0 {
		t.Fatalf("free mod flag = %d, want 0", freeMod)
	}
	seed, _ := r.ReadI32()
	if seed != 777 {
		t.Errorf("seed = %d, want 777", seed)
	}
	if r.Remaining() != 0 {
		t.Errorf("%d trailing bytes", r.Remaining())
	}
}

func TestFreeModAppendsSlotMods(t *testing.T) {
	m := matchFixture()
	m.FreeMod = true
	m.SlotMods[0] = 8 // hidden
	frame := MatchJoinSuccess(m)

	noFree := matchFixture()
	plain := MatchJoinSuccess(noFree)
	if len(frame) != len(plain)+16*4 {
		t.Errorf("free mod frame is %d bytes, want %d", len(frame), len(plain)+16*4)
	}
}
