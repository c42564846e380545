package match

import (
	"testing"

	"github.com/rosupd/bancho/internal/clientpackets"
	"github.com/rosupd/bancho/internal/constants"
)

func settings(name string) clientpackets.MatchSettings {
	return clientpackets.MatchSettings{
		Name:       name,
		Password:   "",
		BeatmapMD5: "aaa",
		HostUserID: 100,
	}
}

func TestCreateAssignsSmallestUnusedID(t *testing.T) {
	l := NewList()
	a := l.Create(settings("a"))
	b := l.Create(settings("b"))
	if a.ID() != 1 || b.ID() != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", a.ID(), b.ID())
	}
	l.Remove(a.ID())
	c := l.Create(settings("c"))
	if c.ID() != 1 {
		t.Errorf("reused id = %d, want 1", c.ID())
	}
}

func TestJoinLeaveAndHostTransfer(t *testing.T) {
	l := NewList()
	m := l.Create(settings("room"))
	if err := m.Join(100, "tok-host", ""); err != nil {
		t.Fatalf("host join: %v", err)
	}
	if err := m.Join(200, "tok-b", ""); err != nil {
		t.Fatalf("second join: %v", err)
	}
	if m.MemberCount() != 2 {
		t.Fatalf("member count = %d", m.MemberCount())
	}

	res := m.Leave("tok-host")
	if !res.Left || res.Empty {
		t.Fatalf("leave result %+v", res)
	}
	if !res.HostChanged || res.NewHostID != 200 {
		t.Errorf("host not transferred: %+v", res)
	}

	res = m.Leave("tok-b")
	if !res.Empty {
		t.Errorf("match not empty after last leave")
	}
}

func TestJoinPassword(t *testing.T) {
	l := NewList()
	s := settings("locked")
	s.Password = "hunter2"
	m := l.Create(s)

	if err := m.Join(1, "t1", "wrong"); err != ErrWrongPassword {
		t.Errorf("wrong password join: %v", err)
	}
	if err := m.Join(1, "t1", "hunter2"); err != nil {
		t.Errorf("correct password join: %v", err)
	}
}

func TestJoinFullMatch(t *testing.T) {
	l := NewList()
	m := l.Create(settings("full"))
	for i := 0; i < 16; i++ {
		if err := m.Join(int32(i+1), string(rune('a'+i)), ""); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if err := m.Join(99, "late", ""); err != ErrFull {
		t.Errorf("17th join error = %v, want ErrFull", err)
	}
}

func TestChangeSlot(t *testing.T) {
	l := NewList()
	m := l.Create(settings("slots"))
	m.Join(1, "t1", "")

	if err := m.ChangeSlot("t1", 5); err != nil {
		t.Fatalf("ChangeSlot: %v", err)
	}
	if m.SlotByToken("t1") != 5 {
		t.Errorf("member in slot %d, want 5", m.SlotByToken("t1"))
	}
	if err := m.ChangeSlot("t1", 99); err != ErrBadSlot {
		t.Errorf("out of range slot error = %v", err)
	}
}

func TestLockKicksOccupant(t *testing.T) {
	l := NewList()
	m := l.Create(settings("locky"))
	m.Join(100, "tok-host", "")
	m.Join(200, "tok-b", "")
	idx := m.SlotByToken("tok-b")

	kicked, err := m.Lock(idx)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if kicked != "tok-b" {
		t.Errorf("kicked = %q, want tok-b", kicked)
	}
	d := m.Data()
	if d.SlotStatuses[idx] != StatusLocked {
		t.Errorf("slot status = %d, want locked", d.SlotStatuses[idx])
	}

	// Locking the host's slot is refused.
	if _, err := m.Lock(m.SlotByToken("tok-host")); err != ErrBadSlot {
		t.Errorf("locking host slot error = %v", err)
	}

	// Toggling a locked slot frees it.
	if _, err := m.Lock(idx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if m.Data().SlotStatuses[idx] != StatusFree {
		t.Errorf("slot not freed by second lock")
	}
}

func TestFreeModTransition(t *testing.T) {
	l := NewList()
	s := settings("mods")
	s.Mods = constants.ModHidden | constants.ModDoubleTime
	m := l.Create(s)
	m.Join(100, "tok-host", "")

	on := settings("mods")
	on.BeatmapMD5 = "aaa"
	on.FreeMod = true
	m.ChangeSettings(on)

	d := m.Data()
	if d.Mods != constants.ModDoubleTime {
		t.Errorf("global mods = %d, want only DT retained", d.Mods)
	}
	if d.SlotMods[0] != constants.ModHidden {
		t.Errorf("slot mods = %d, want hidden moved to slot", d.SlotMods[0])
	}

	off := settings("mods")
	off.BeatmapMD5 = "aaa"
	off.FreeMod = false
	m.ChangeSettings(off)
	if m.Data().SlotMods[0] != 0 {
		t.Errorf("slot mods survive free mod off")
	}
}

func TestChangeModsRespectsRoles(t *testing.T) {
	l := NewList()
	s := settings("roles")
	s.FreeMod = true
	m := l.Create(s)
	m.Join(100, "tok-host", "")
	m.Join(200, "tok-b", "")

	// Non-host under free mod changes only their own slot.
	m.ChangeMods("tok-b", 200, constants.ModHardRock|constants.ModDoubleTime)
	d := m.Data()
	if d.SlotMods[1] != constants.ModHardRock {
		t.Errorf("guest slot mods = %d, want HR only (time mods stripped)", d.SlotMods[1])
	}
	if d.Mods != 0 {
		t.Errorf("guest changed global mods")
	}

	// Host under free mod owns the global time mods.
	m.ChangeMods("tok-host", 100, constants.ModDoubleTime)
	if m.Data().Mods != constants.ModDoubleTime {
		t.Errorf("host time mods not applied globally")
	}
}

func TestBeatmapChangeClearsReady(t *testing.T) {
	l := NewList()
	m := l.Create(settings("ready"))
	m.Join(1, "t1", "")
	m.SetStatus("t1", StatusReady)

	changed := settings("ready")
	changed.BeatmapMD5 = "bbb"
	m.ChangeSettings(changed)

	if m.Data().SlotStatuses[0] != StatusNotReady {
		t.Errorf("ready state survived a beatmap change")
	}
}

func TestTeamVsAssignsTeams(t *testing.T) {
	l := NewList()
	m := l.Create(settings("teams"))
	m.Join(1, "t1", "")
	m.Join(2, "t2", "")

	vs := settings("teams")
	vs.BeatmapMD5 = "aaa"
	vs.TeamType = TypeTeamVs
	m.ChangeSettings(vs)

	d := m.Data()
	if d.SlotTeams[0] != TeamRed || d.SlotTeams[1] != TeamBlue {
		t.Errorf("teams = %d/%d, want red/blue", d.SlotTeams[0], d.SlotTeams[1])
	}

	if err := m.ChangeTeam("t1"); err != nil {
		t.Fatalf("ChangeTeam: %v", err)
	}
	if m.Data().SlotTeams[0] != TeamBlue {
		t.Errorf("team not flipped")
	}
}

func TestGameLifecycle(t *testing.T) {
	l := NewList()
	m := l.Create(settings("game"))
	m.Join(1, "t1", "")
	m.Join(2, "t2", "")
	m.Join(3, "t3", "")
	m.SetStatus("t3", StatusNoMap)

	playing := m.Start()
	if len(playing) != 2 {
		t.Fatalf("started %d players, want 2 (no-map sits out)", len(playing))
	}
	if !m.InProgress() {
		t.Fatalf("match not in progress after start")
	}

	if all, _ := m.PlayerLoaded("t1"); all {
		t.Errorf("all loaded with one pending")
	}
	if all, _ := m.PlayerLoaded("t2"); !all {
		t.Errorf("not all loaded after both reported")
	}

	slot, all, _ := m.SkipRequest("t1")
	if slot != 0 || all {
		t.Errorf("skip vote: slot=%d all=%v", slot, all)
	}
	if _, all, _ = m.SkipRequest("t2"); !all {
		t.Errorf("skip not complete after both voted")
	}

	if slot, _ := m.PlayerFailed("t2"); slot != 1 {
		t.Errorf("failed slot = %d, want 1", slot)
	}

	if all, _ := m.PlayerCompleted("t1"); all {
		t.Errorf("complete with one player still playing")
	}
	all, _ = m.PlayerCompleted("t2")
	if !all {
		t.Errorf("not complete after both finished")
	}

	m.FinishGame()
	if m.InProgress() {
		t.Errorf("still in progress after finish")
	}
	d := m.Data()
	if d.SlotStatuses[0] != StatusNotReady || d.SlotStatuses[1] != StatusNotReady {
		t.Errorf("players not returned to not-ready: %v", d.SlotStatuses[:3])
	}
	if d.SlotStatuses[2] != StatusNoMap {
		t.Errorf("no-map slot disturbed: %d", d.SlotStatuses[2])
	}
}

func TestRecordScoreTracksSlots(t *testing.T) {
	l := NewList()
	m := l.Create(settings("scores"))
	m.Join(1, "t1", "")
	m.Join(2, "t2", "")
	m.Start()

	slot, err := m.RecordScore("t2", 725_000, 180)
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if slot != 1 {
		t.Errorf("slot = %d, want 1", slot)
	}
	if score, hp := m.SlotScore(1); score != 725_000 || hp != 180 {
		t.Errorf("slot state = (%d, %d), want (725000, 180)", score, hp)
	}
	if score, hp := m.SlotScore(0); score != 0 || hp != 0 {
		t.Errorf("untouched slot state = (%d, %d)", score, hp)
	}
	if _, err := m.RecordScore("ghost", 1, 1); err != ErrNotInMatch {
		t.Errorf("non-member record error = %v", err)
	}

	// A new game starts from zero.
	m.FinishGame()
	m.Start()
	if score, hp := m.SlotScore(1); score != 0 || hp != 0 {
		t.Errorf("stale score survived into a new game: (%d, %d)", score, hp)
	}
}

func TestTransferHost(t *testing.T) {
	l := NewList()
	m := l.Create(settings("host"))
	m.Join(100, "t1", "")
	m.Join(200, "t2", "")

	newHost, err := m.TransferHost(1)
	if err != nil {
		t.Fatalf("TransferHost: %v", err)
	}
	if newHost != 200 || m.HostUserID() != 200 {
		t.Errorf("host = %d, want 200", m.HostUserID())
	}
	if _, err := m.TransferHost(10); err != ErrBadSlot {
		t.Errorf("transfer to empty slot error = %v", err)
	}
}
