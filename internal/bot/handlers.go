package bot

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/koumartin/mundo-bot/internal/playback"
	"github.com/koumartin/mundo-bot/internal/roster"
)

// handleReactionAdd feeds reaction adds into the registration state
// machine.
func (b *Bot) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.GuildID == "" || r.UserID == s.State.User.ID {
		return
	}
	if b.config.GateReactions && !b.elector.IsLeader() {
		return
	}

	userName := ""
	if r.Member != nil && r.Member.User != nil {
		userName = r.Member.User.Username
	}

	err := b.roster.HandleReactionAdd(roster.ReactionEvent{
		GuildID:      r.GuildID,
		ChannelID:    r.ChannelID,
		MessageID:    r.MessageID,
		UserID:       r.UserID,
		UserName:     userName,
		EmojiAlias:   r.Emoji.Name,
		EmojiAPIName: r.Emoji.APIName(),
	})
	if err != nil {
		slog.Error("Failed to handle reaction add", "guild", r.GuildID, "user", r.UserID, "error", err)
	}
}

// handleReactionRemove feeds reaction removes into the registration
// state machine.
func (b *Bot) handleReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.GuildID == "" || r.UserID == s.State.User.ID {
		return
	}
	if b.config.GateReactions && !b.elector.IsLeader() {
		return
	}

	err := b.roster.HandleReactionRemove(roster.ReactionEvent{
		GuildID:    r.GuildID,
		ChannelID:  r.ChannelID,
		MessageID:  r.MessageID,
		UserID:     r.UserID,
		EmojiAlias: r.Emoji.Name,
	})
	if err != nil {
		slog.Error("Failed to handle reaction remove", "guild", r.GuildID, "user", r.UserID, "error", err)
	}
}

// handleVoiceStateUpdate greets users joining a voice channel.
func (b *Bot) handleVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.UserID == s.State.User.ID || v.ChannelID == "" {
		return
	}
	// Mute/deafen toggles arrive as updates within the same channel
	if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID == v.ChannelID {
		return
	}

	slog.Debug("User joined voice channel", "guild", v.GuildID, "user", v.UserID)
	b.playback.Enqueue(v.GuildID, v.ChannelID, playback.GreetingSound, 1)
}
