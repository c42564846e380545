package bancho

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rosupd/bancho/internal/constants"
	"github.com/rosupd/bancho/internal/db"
	"github.com/rosupd/bancho/internal/packet"
)

const loginBody = "cookiezi\n0123456789abcdef0123456789abcdef\n" +
	"b20200414.2|-8|1|aa:eth0:bb:cc:dd|1\n"

func TestParseLogin(t *testing.T) {
	req, err := parseLogin([]byte(loginBody))
	if err != nil {
		t.Fatalf("parseLogin: %v", err)
	}
	if req.Username != "cookiezi" {
		t.Errorf("username = %q", req.Username)
	}
	if len(req.PasswordMD5) != 32 {
		t.Errorf("password md5 length = %d", len(req.PasswordMD5))
	}
	if req.Version != "b20200414.2" || req.TimeOffset != -8 {
		t.Errorf("version/offset = %q/%d", req.Version, req.TimeOffset)
	}
	if !req.BlockPM {
		t.Errorf("block pm flag not parsed")
	}
	if req.AdaptersMD5 != "bb" || req.UniqueMD5 != "cc" || req.DiskMD5 != "dd" {
		t.Errorf("hashes = %q %q %q", req.AdaptersMD5, req.UniqueMD5, req.DiskMD5)
	}
	if req.Tournament || req.Wine {
		t.Errorf("flags wrongly set: %+v", req)
	}
}

func TestParseLoginMalformed(t *testing.T) {
	cases := []string{
		"",
		"justone",
		"user\npass\n", // short password
		"user\n0123456789abcdef0123456789abcdef\nb2020|-8\n", // too few fields
	}
	for _, body := range cases {
		if _, err := parseLogin([]byte(body)); err == nil {
			t.Errorf("parseLogin(%q) accepted", body)
		}
	}
}

func TestParseLoginDetectsTournament(t *testing.T) {
	body := "user\n0123456789abcdef0123456789abcdef\nb20200414.2tourney|0|1|a:b:c:d:e|0\n"
	req, err := parseLogin([]byte(body))
	if err != nil {
		t.Fatalf("parseLogin: %v", err)
	}
	if !req.Tournament {
		t.Errorf("tourney client not detected")
	}
}

func TestParseLoginDetectsWine(t *testing.T) {
	body := "user\n0123456789abcdef0123456789abcdef\n" +
		"b20200414.2|0|1|a:b:" + wineAdaptersMD5 + ":d:e|0\n"
	req, err := parseLogin([]byte(body))
	if err != nil {
		t.Fatalf("parseLogin: %v", err)
	}
	if !req.Wine {
		t.Errorf("wine signature not detected")
	}
}

func TestClientYear(t *testing.T) {
	cases := []struct {
		version string
		want    int
	}{
		{"b20200414.2", 2020},
		{"b20180918", 2018},
		{"b2020cuttingedge", 2020},
		{"garbage", 0},
		{"b1", 0},
	}
	for _, c := range cases {
		if got := clientYear(c.version); got != c.want {
			t.Errorf("clientYear(%q) = %d, want %d", c.version, got, c.want)
		}
	}
}

func TestLoginFailureNotificationPrecedesMarker(t *testing.T) {
	out := loginFailure(-3, "you are banned")
	id, length, err := packet.ReadFrameHeader(out)
	if err != nil || id != packet.ServerNotification {
		t.Fatalf("first packet id = %d, err %v, want notification", id, err)
	}
	rest := out[packet.HeaderSize+length:]
	id2, _, err := packet.ReadFrameHeader(rest)
	if err != nil || id2 != packet.ServerUserID {
		t.Fatalf("second packet id = %d, err %v, want login reply", id2, err)
	}
	r, _ := packet.NewFrameReader(rest)
	if v, _ := r.ReadI32(); v != -3 {
		t.Errorf("reply code = %d", v)
	}

	// Without a notification the marker stands alone.
	bare := loginFailure(-1, "")
	id3, _, err := packet.ReadFrameHeader(bare)
	if err != nil || id3 != packet.ServerUserID {
		t.Errorf("bare failure id = %d, err %v", id3, err)
	}
}

func TestClassifyFrozen(t *testing.T) {
	now := int64(1_000_000)
	cases := []struct {
		frozen, first int64
		want          frozenAction
	}{
		{0, 0, frozenNone},
		{now + 100, 0, frozenWarn},
		{now - 100, 0, frozenExpired},
		{now - 100, 1, frozenResolved},
		{now + 100, 1, frozenResolved},
	}
	for _, c := range cases {
		if got := classifyFrozen(c.frozen, c.first, now); got != c.want {
			t.Errorf("classifyFrozen(%d, %d) = %d, want %d", c.frozen, c.first, got, c.want)
		}
	}
}

func TestVerifyFirstLoginFailsClosed(t *testing.T) {
	h := newTestHub()
	user := &db.User{ID: 1000, Privileges: constants.UserPendingVerification}

	// Without hardware hashes the check cannot run.
	req := loginRequest{Username: "fresh", PasswordMD5: "x"}
	if h.verifyFirstLogin(context.Background(), user, req, zerolog.Nop()) {
		t.Errorf("hashless first login allowed")
	}

	// With hashes but storage unreachable the login is still denied.
	req.AdaptersMD5, req.UniqueMD5, req.DiskMD5 = "aa", "bb", "cc"
	if h.verifyFirstLogin(context.Background(), user, req, zerolog.Nop()) {
		t.Errorf("first login allowed while the hardware check was unavailable")
	}
	if user.Privileges&constants.UserPendingVerification == 0 {
		t.Errorf("pending flag cleared without a successful check")
	}
}
