// Package senses turns external events into inbound messages for the
// assistant core.
package senses

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/doppelbot/doppel/internal/logging"
	"github.com/doppelbot/doppel/internal/types"
)

// DiscordSense listens to Discord and emits messages
type DiscordSense struct {
	session   *discordgo.Session
	channelID string
	ownerID   string
	botID     string
	onMessage func(types.Message)
}

// DiscordConfig holds Discord connection settings
type DiscordConfig struct {
	Token     string
	ChannelID string
	OwnerID   string
}

// NewDiscordSense creates a new Discord sense
func NewDiscordSense(cfg DiscordConfig, onMessage func(types.Message)) (*DiscordSense, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	sense := &DiscordSense{
		session:   session,
		channelID: cfg.ChannelID,
		ownerID:   cfg.OwnerID,
		onMessage: onMessage,
	}

	session.AddHandler(sense.handleMessage)

	// We only need message content
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	return sense, nil
}

// Start connects to Discord and begins listening
func (d *DiscordSense) Start() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	// Bot's own ID, for self-filtering
	d.botID = d.session.State.User.ID
	logging.Info("discord-sense", "connected as %s", d.session.State.User.Username)

	return nil
}

// Stop disconnects from Discord
func (d *DiscordSense) Stop() error {
	return d.session.Close()
}

// Session returns the underlying Discord session (for sharing with effector)
func (d *DiscordSense) Session() *discordgo.Session {
	return d.session
}

// handleMessage converts incoming Discord messages to inbound messages
func (d *DiscordSense) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// The bot's own sends must never feed back into learning or gating
	if m.Author.ID == d.botID {
		return
	}

	// Only process messages from the configured channel (if set)
	if d.channelID != "" && m.ChannelID != d.channelID {
		return
	}

	msg := types.Message{
		SenderID:   m.Author.ID,
		SenderName: m.Author.Username,
		ChannelID:  m.ChannelID,
		Text:       m.Content,
		Timestamp:  time.Now(),
		IsOwner:    m.Author.ID == d.ownerID,
	}

	logging.Debug("discord-sense", "message from %s: %s", m.Author.Username, logging.Truncate(m.Content, 50))

	if d.onMessage != nil {
		d.onMessage(msg)
	}
}
