package assistant

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/doppelbot/doppel/internal/logging"
	"github.com/doppelbot/doppel/internal/profile"
	"github.com/doppelbot/doppel/internal/types"
)

// handleCommand parses and executes an owner command.
func (a *Assistant) handleCommand(msg types.Message) {
	body := strings.TrimPrefix(strings.TrimSpace(msg.Text), a.cfg.CommandPrefix)
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	logging.Info("assistant", "command from owner: %s", cmd)

	switch cmd {
	case "autoreply":
		a.cmdAutoReply(msg.ChannelID, args)
	case "style":
		a.cmdStyle(msg.ChannelID)
	case "suggest":
		a.cmdSuggest(msg.ChannelID, strings.Join(args, " "))
	case "recent":
		a.cmdRecent(msg.ChannelID, args)
	case "status":
		a.cmdStatus(msg.ChannelID)
	case "help":
		a.cmdHelp(msg.ChannelID)
	default:
		a.reply(msg.ChannelID, fmt.Sprintf("Unknown command %q. Try %shelp.", cmd, a.cfg.CommandPrefix))
	}
}

// cmdAutoReply toggles autonomous replies, globally or for one counterpart.
func (a *Assistant) cmdAutoReply(channelID string, args []string) {
	if len(args) == 0 {
		state := "off"
		if a.scheduler.Enabled("") {
			state = "on"
		}
		a.reply(channelID, fmt.Sprintf("Auto-reply is %s by default. Usage: %sautoreply on|off [user-id]",
			state, a.cfg.CommandPrefix))
		return
	}

	mode := strings.ToLower(args[0])
	var target string
	if len(args) > 1 {
		target = stripMention(args[1])
	}

	switch {
	case mode == "on" && target != "":
		a.scheduler.Enable(target)
		a.reply(channelID, fmt.Sprintf("Auto-reply enabled for %s.", target))
	case mode == "off" && target != "":
		a.scheduler.Disable(target)
		a.reply(channelID, fmt.Sprintf("Auto-reply disabled for %s.", target))
	case mode == "on":
		a.scheduler.EnableAll()
		a.reply(channelID, "Auto-reply enabled. I'll answer in your style while you're away.")
	case mode == "off":
		a.scheduler.DisableAll()
		a.reply(channelID, "Auto-reply disabled. Any pending replies were cancelled.")
	default:
		a.reply(channelID, fmt.Sprintf("Usage: %sautoreply on|off [user-id]", a.cfg.CommandPrefix))
	}
}

// cmdStyle reports what the bot has learned so far.
func (a *Assistant) cmdStyle(channelID string) {
	p, err := a.store.Load(a.ownerID)
	if err != nil {
		a.reply(channelID, "Couldn't load your style profile.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Style profile** (%d messages analyzed, confidence %.2f / %s)\n",
		p.MessagesAnalyzed, p.ConfidenceScore, p.Reliability())
	fmt.Fprintf(&b, "Length preference: %s | Formality: %.2f | Punctuation: %s\n",
		p.ResponseLengthPreference, p.FormalityLevel, p.PunctuationStyle)
	if p.GreetingStyle != "" {
		fmt.Fprintf(&b, "Greeting style: %s\n", p.GreetingStyle)
	}
	if phrase, w := p.TopPhrase(); phrase != "" {
		fmt.Fprintf(&b, "Top phrase: %q (%.2f)\n", phrase, w)
	}
	if emojis := p.TopEmojis(5); len(emojis) > 0 {
		fmt.Fprintf(&b, "Emojis (%s usage): %s\n", p.EmojiUsageLevel(), strings.Join(emojis, " "))
	}
	if len(p.FavoriteTopics) > 0 {
		n := len(p.FavoriteTopics)
		if n > 8 {
			n = 8
		}
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(p.FavoriteTopics[:n], ", "))
	}
	a.reply(channelID, b.String())
}

// cmdSuggest previews the styled reply for a hypothetical incoming message
// without sending anything to a counterpart.
func (a *Assistant) cmdSuggest(channelID, text string) {
	if strings.TrimSpace(text) == "" {
		a.reply(channelID, fmt.Sprintf("Usage: %ssuggest <incoming message>", a.cfg.CommandPrefix))
		return
	}
	p, err := a.store.Load(a.ownerID)
	if err != nil {
		p = profile.New(a.ownerID)
	}
	draft := a.synth.Synthesize(a.extractor.Extract(text), p, nil)
	a.reply(channelID, fmt.Sprintf("I'd reply: %s", draft))
}

// cmdRecent shows the last few logged messages from a counterpart.
func (a *Assistant) cmdRecent(channelID string, args []string) {
	if len(args) == 0 {
		a.reply(channelID, fmt.Sprintf("Usage: %srecent <user-id>", a.cfg.CommandPrefix))
		return
	}
	target := stripMention(args[0])
	msgs, err := a.store.RecentMessages(target, 5)
	if err != nil || len(msgs) == 0 {
		a.reply(channelID, fmt.Sprintf("No logged messages from %s.", target))
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d from %s (style: %s):\n",
		len(msgs), target, a.scheduler.PatternFor(target).Style())
	for _, m := range msgs {
		fmt.Fprintf(&b, "- %s\n", logging.Truncate(m, 80))
	}
	a.reply(channelID, b.String())
}

// cmdStatus reports process health and scheduler state.
func (a *Assistant) cmdStatus(channelID string) {
	var b strings.Builder
	fmt.Fprintf(&b, "**Status**\nUptime: %s\n", time.Since(a.startedAt).Round(time.Second))

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			fmt.Fprintf(&b, "Memory: %.1f MB\n", float64(mem.RSS)/(1024*1024))
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			fmt.Fprintf(&b, "CPU: %.1f%%\n", cpu)
		}
	}

	fmt.Fprintf(&b, "Pending replies: %d\n", a.scheduler.PendingCount())
	if p, err := a.store.Load(a.ownerID); err == nil {
		fmt.Fprintf(&b, "Profile: %d messages analyzed, confidence %.2f\n",
			p.MessagesAnalyzed, p.ConfidenceScore)
	}
	a.reply(channelID, b.String())
}

func (a *Assistant) cmdHelp(channelID string) {
	prefix := a.cfg.CommandPrefix
	a.reply(channelID, strings.Join([]string{
		"**Commands**",
		prefix + "autoreply on|off [user-id] - toggle autonomous replies",
		prefix + "style - show the learned style profile",
		prefix + "suggest <message> - preview the reply I'd send",
		prefix + "recent <user-id> - show recent messages from a counterpart",
		prefix + "status - process and scheduler health",
	}, "\n"))
}

// stripMention unwraps a Discord mention like <@123456> to the bare id.
func stripMention(s string) string {
	s = strings.TrimPrefix(s, "<@")
	s = strings.TrimPrefix(s, "!")
	return strings.TrimSuffix(s, ">")
}
