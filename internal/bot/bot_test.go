package bot

import (
	"strings"
	"testing"
	"time"
)

func testBot(isAdmin, isMod bool) (*Bot, *recorded) {
	rec := &recorded{}
	hooks := Hooks{
		Alert:       func(msg string) { rec.alert = msg },
		Silence:     func(u string, d time.Duration, r string) error { rec.silenced = u; rec.duration = d; return nil },
		Unsilence:   func(u string) error { rec.unsilenced = u; return nil },
		Kick:        func(u string) error { rec.kicked = u; return nil },
		OnlineCount: func() int { return 42 },
		IsAdmin:     func(int32) bool { return isAdmin },
		IsMod:       func(int32) bool { return isMod },
	}
	return New(999, "RealistikBot", hooks, false, nil), rec
}

type recorded struct {
	alert      string
	silenced   string
	unsilenced string
	kicked     string
	duration   time.Duration
}

func TestNonCommandIgnored(t *testing.T) {
	b, _ := testBot(false, false)
	if _, handled := b.Handle(1, "user", "hello bot"); handled {
		t.Errorf("plain message treated as command")
	}
}

func TestRoll(t *testing.T) {
	b, _ := testBot(false, false)
	reply, handled := b.Handle(1, "player", "!roll 10")
	if !handled {
		t.Fatalf("!roll not handled")
	}
	if !strings.HasPrefix(reply, "player rolls ") {
		t.Errorf("reply = %q", reply)
	}
}

func TestOnline(t *testing.T) {
	b, _ := testBot(false, false)
	reply, _ := b.Handle(1, "player", "!online")
	if !strings.Contains(reply, "42") {
		t.Errorf("reply = %q", reply)
	}
}

func TestAlertRequiresAdmin(t *testing.T) {
	b, rec := testBot(false, false)
	reply, _ := b.Handle(1, "pleb", "!alert hi everyone")
	if rec.alert != "" {
		t.Errorf("alert fired without privileges")
	}
	if !strings.Contains(reply, "privileges") {
		t.Errorf("reply = %q", reply)
	}

	b, rec = testBot(true, false)
	b.Handle(1, "admin", "!alert server going down")
	if rec.alert != "server going down" {
		t.Errorf("alert = %q", rec.alert)
	}
}

func TestSilenceParsesDuration(t *testing.T) {
	b, rec := testBot(false, true)
	reply, _ := b.Handle(1, "mod", "!silence cheater 2 h multiaccounting badly")
	if rec.silenced != "cheater" {
		t.Errorf("silenced = %q", rec.silenced)
	}
	if rec.duration != 2*time.Hour {
		t.Errorf("duration = %v", rec.duration)
	}
	if !strings.Contains(reply, "multiaccounting badly") {
		t.Errorf("reply = %q", reply)
	}
}

func TestSilenceRejectsBadUnit(t *testing.T) {
	b, rec := testBot(false, true)
	reply, _ := b.Handle(1, "mod", "!silence cheater 2 w spam")
	if rec.silenced != "" {
		t.Errorf("silence fired with bad unit")
	}
	if !strings.Contains(reply, "unit") {
		t.Errorf("reply = %q", reply)
	}
}

func TestKick(t *testing.T) {
	b, rec := testBot(true, false)
	b.Handle(1, "admin", "!kick baduser")
	if rec.kicked != "baduser" {
		t.Errorf("kicked = %q", rec.kicked)
	}
}

func TestPyDisabled(t *testing.T) {
	b, _ := testBot(true, true)
	reply, handled := b.Handle(1, "admin", "!py print(1)")
	if !handled {
		t.Fatalf("!py not handled")
	}
	if !strings.Contains(reply, "disabled") {
		t.Errorf("reply = %q", reply)
	}
}

func TestPyEnabledStillRefuses(t *testing.T) {
	b := New(999, "bot", Hooks{}, true, []int32{5})
	reply, _ := b.Handle(5, "dev", "!py 1+1")
	if !strings.Contains(reply, "removed") {
		t.Errorf("whitelisted reply = %q", reply)
	}
	reply, _ = b.Handle(6, "other", "!py 1+1")
	if !strings.Contains(reply, "not allowed") {
		t.Errorf("non-whitelisted reply = %q", reply)
	}
}
