// Package bot implements the resident chat bot. It answers commands
// addressed to it in private messages or prefixed with ! in public
// channels. Moderation commands call back into the hub through Hooks
// so the bot stays free of session plumbing.
package bot

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Hooks are the server operations commands may trigger.
type Hooks struct {
	// Alert broadcasts a notification to every online user.
	Alert func(message string)
	// Silence mutes a user by username for the duration.
	Silence func(username string, d time.Duration, reason string) error
	// Unsilence lifts a user's silence.
	Unsilence func(username string) error
	// Kick disconnects a user by username.
	Kick func(username string) error
	// OnlineCount returns the number of connected sessions.
	OnlineCount func() int
	// IsAdmin reports whether the user may run admin commands.
	IsAdmin func(userID int32) bool
	// IsMod reports whether the user may run moderation commands.
	IsMod func(userID int32) bool
}

// Bot is the resident chat bot.
type Bot struct {
	UserID   int32
	Username string

	hooks         Hooks
	evalWhitelist map[int32]struct{}
	evalEnabled   bool
}

// New creates the bot. evalWhitelist and evalEnabled gate the legacy
// !py command, which never evaluates anything in this server and only
// reports its own removal.
func New(userID int32, username string, hooks Hooks, evalEnabled bool, evalWhitelist []int32) *Bot {
	wl := make(map[int32]struct{}, len(evalWhitelist))
	for _, id := range evalWhitelist {
		wl[id] = struct{}{}
	}
	return &Bot{
		UserID:        userID,
		Username:      username,
		hooks:         hooks,
		evalEnabled:   evalEnabled,
		evalWhitelist: wl,
	}
}

// Handle processes a chat line addressed to the bot. Returns the reply
// and whether the line was a command at all.
func (b *Bot) Handle(senderID int32, senderName, message string) (string, bool) {
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, "!") {
		return "", false
	}
	fields := strings.Fields(message)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "!help":
		return "Supported commands: !help, !roll, !online, !alert, !silence, !unsilence, !kick", true
	case "!roll":
		return b.roll(senderName, args), true
	case "!online":
		if b.hooks.OnlineCount == nil {
			return "", true
		}
		return fmt.Sprintf("There are currently %d users online.", b.hooks.OnlineCount()), true
	case "!alert":
		return b.alert(senderID, args), true
	case "!silence":
		return b.silence(senderID, args), true
	case "!unsilence":
		return b.unsilence(senderID, args), true
	case "!kick":
		return b.kick(senderID, args), true
	case "!py":
		return b.py(senderID), true
	default:
		return "", false
	}
}

func (b *Bot) roll(senderName string, args []string) string {
	max := 100
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			max = n
		}
	}
	return fmt.Sprintf("%s rolls %d points!", senderName, rand.Intn(max)+1)
}

func (b *Bot) alert(senderID int32, args []string) string {
	if b.hooks.IsAdmin == nil || !b.hooks.IsAdmin(senderID) {
		return "You don't have the privileges to run this command."
	}
	if len(args) == 0 {
		return "Usage: !alert <message>"
	}
	b.hooks.Alert(strings.Join(args, " "))
	return "Alert sent."
}

func (b *Bot) silence(senderID int32, args []string) string {
	if b.hooks.IsMod == nil || !b.hooks.IsMod(senderID) {
		return "You don't have the privileges to run this command."
	}
	if len(args) < 3 {
		return "Usage: !silence <username> <amount> <unit s/m/h/d> [reason]"
	}
	amount, err := strconv.Atoi(args[1])
	if err != nil || amount <= 0 {
		return "Invalid silence amount."
	}
	var unit time.Duration
	switch args[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	default:
		return "Invalid silence unit, use s/m/h/d."
	}
	reason := "not specified"
	if len(args) > 3 {
		reason = strings.Join(args[3:], " ")
	}
	if err := b.hooks.Silence(args[0], time.Duration(amount)*unit, reason); err != nil {
		return fmt.Sprintf("Couldn't silence %s: %v", args[0], err)
	}
	return fmt.Sprintf("%s has been silenced for: %s.", args[0], reason)
}

func (b *Bot) unsilence(senderID int32, args []string) string {
	if b.hooks.IsMod == nil || !b.hooks.IsMod(senderID) {
		return "You don't have the privileges to run this command."
	}
	if len(args) < 1 {
		return "Usage: !unsilence <username>"
	}
	if err := b.hooks.Unsilence(args[0]); err != nil {
		return fmt.Sprintf("Couldn't unsilence %s: %v", args[0], err)
	}
	return fmt.Sprintf("%s's silence has been lifted.", args[0])
}

func (b *Bot) kick(senderID int32, args []string) string {
	if b.hooks.IsAdmin == nil || !b.hooks.IsAdmin(senderID) {
		return "You don't have the privileges to run this command."
	}
	if len(args) < 1 {
		return "Usage: !kick <username>"
	}
	if err := b.hooks.Kick(args[0]); err != nil {
		return fmt.Sprintf("Couldn't kick %s: %v", args[0], err)
	}
	return fmt.Sprintf("%s has been kicked from the server.", args[0])
}

// py is the legacy inline-eval command. Arbitrary evaluation is gone
// for good; the gate only controls who is told why.
func (b *Bot) py(senderID int32) string {
	if !b.evalEnabled {
		return "The !py command is disabled on this server."
	}
	if _, ok := b.evalWhitelist[senderID]; !ok {
		return "You are not allowed to run this command."
	}
	return "Inline evaluation has been removed from this server."
}
