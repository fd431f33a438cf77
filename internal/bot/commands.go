package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/koumartin/mundo-bot/internal/clash"
	"github.com/koumartin/mundo-bot/internal/playback"
	"github.com/koumartin/mundo-bot/internal/storage"
)

const permissionRefusal = "Mundo no do work for lowlife like you. Get more permissions (manage channels and roles)."

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "addclash",
			Description: "Schedule a clash with a sign-up message, channel and role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Name of the clash",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "date",
					Description: "Date of the clash (day.month.year)",
					Required:    true,
				},
			},
		},
		{
			Name:        "removeclash",
			Description: "Remove a clash with its channel, role and messages",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Name of the clash to remove",
					Required:    true,
				},
			},
		},
		{
			Name:        "loadclashes",
			Description: "Sync clashes with the official Riot schedule now",
		},
		{
			Name:        "registerserver",
			Description: "Keep this server's clashes synced with the official schedule",
		},
		{
			Name:        "unregisterserver",
			Description: "Stop syncing this server with the official schedule",
		},
		{
			Name:        "regulars",
			Description: "List the regular clash players of this server",
		},
		{
			Name:        "regularadd",
			Description: "Mark yourself (or another player) as a regular clash player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "player",
					Description: "Player to mark (requires manage permissions)",
					Required:    false,
				},
			},
		},
		{
			Name:        "regularremove",
			Description: "Unmark yourself (or another player) as a regular clash player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "player",
					Description: "Player to unmark (requires manage permissions)",
					Required:    false,
				},
			},
		},
		{
			Name:        "mundo",
			Description: "Mundo come say hello in your voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "How many greetings (default 1)",
					Required:    false,
				},
			},
		},
		{
			Name:        "shutup",
			Description: "Make Mundo stop talking",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "please",
					Description: "Ask nicely instead of using manage permissions",
					Required:    false,
				},
			},
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands")

	commandDefinitions := b.getCommandDefinitions()
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commandDefinitions))

	for _, cmd := range commandDefinitions {
		registered, err := b.session.ApplicationCommandCreate(
			b.session.State.User.ID,
			"", // Empty string = global command
			cmd,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registeredCommands = append(registeredCommands, registered)
		slog.Debug("Registered command", "name", cmd.Name)
	}

	b.commands = registeredCommands
	slog.Info("Slash commands registered", "count", len(registeredCommands))
	return nil
}

// hasManagePermissions reports whether the caller may administer
// clashes: both manage-roles and manage-channels are required.
func hasManagePermissions(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&discordgo.PermissionManageRoles != 0 &&
		i.Member.Permissions&discordgo.PermissionManageChannels != 0
}

// handleAddClash handles the /addclash command
func (b *Bot) handleAddClash(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermissions(i) {
		respondEphemeral(s, i, permissionRefusal)
		return
	}

	options := i.ApplicationCommandData().Options
	name := options[0].StringValue()
	dateText := options[1].StringValue()

	date, err := clash.ParseDate(dateText)
	if err != nil {
		respondEphemeral(s, i, fmt.Sprintf("Mundo no understand date `%s`. Use day.month.year.", dateText))
		return
	}

	// Provisioning makes several Discord calls; respond deferred
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})

	if err := b.CreateClash(i.GuildID, name, date, ""); err != nil {
		switch {
		case errors.Is(err, ErrNoClashChannel):
			b.editResponse(s, i, "Mundo need clash text channel.")
		case errors.Is(err, ErrClashExists), strings.Contains(err.Error(), "UNIQUE constraint"):
			b.editResponse(s, i, fmt.Sprintf("Clash `%s` already exists.", name))
		default:
			slog.Error("Failed to create clash", "guild", i.GuildID, "clash", name, "error", err)
			b.editResponse(s, i, "Mundo failed to create clash. Try again.")
		}
		return
	}

	b.editResponse(s, i, fmt.Sprintf("Clash `%s` scheduled for %s.", name, date.Format("2.1.2006")))
}

// handleRemoveClash handles the /removeclash command
func (b *Bot) handleRemoveClash(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermissions(i) {
		respondEphemeral(s, i, permissionRefusal)
		return
	}

	name := i.ApplicationCommandData().Options[0].StringValue()

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})

	removed, err := b.repo.RemoveClash(name, i.GuildID)
	if err != nil {
		slog.Error("Failed to remove clash", "guild", i.GuildID, "clash", name, "error", err)
		b.editResponse(s, i, "Mundo failed to remove clash. Try again.")
		return
	}
	if removed == nil {
		b.editResponse(s, i, fmt.Sprintf("Mundo know no clash named `%s`.", name))
		return
	}

	if err := b.TeardownClash(*removed); err != nil {
		slog.Error("Failed to tear down clash", "guild", i.GuildID, "clash", name, "error", err)
	}

	b.editResponse(s, i, fmt.Sprintf("Clash `%s` removed.", name))
}

// handleLoadClashes handles the /loadclashes command
func (b *Bot) handleLoadClashes(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermissions(i) {
		respondEphemeral(s, i, permissionRefusal)
		return
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.engine.Sync(ctx, i.GuildID); err != nil {
		slog.Error("Failed to sync clashes", "guild", i.GuildID, "error", err)
		b.editResponse(s, i, "Mundo could not load clashes from Riot. Try again later.")
		return
	}

	b.editResponse(s, i, "Clashes synced with the official schedule.")
}

// handleRegisterServer handles the /registerserver command
func (b *Bot) handleRegisterServer(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermissions(i) {
		respondEphemeral(s, i, permissionRefusal)
		return
	}

	added, err := b.repo.RegisterGuild(i.GuildID)
	if err != nil {
		slog.Error("Failed to register guild", "guild", i.GuildID, "error", err)
		respondEphemeral(s, i, "Mundo failed to register server. Try again.")
		return
	}
	if !added {
		respondEphemeral(s, i, "This server already receives clash updates.")
		return
	}

	respondEphemeral(s, i, "This server will now receive clash updates.")
}

// handleUnregisterServer handles the /unregisterserver command
func (b *Bot) handleUnregisterServer(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermissions(i) {
		respondEphemeral(s, i, permissionRefusal)
		return
	}

	removed, err := b.repo.UnregisterGuild(i.GuildID)
	if err != nil {
		slog.Error("Failed to unregister guild", "guild", i.GuildID, "error", err)
		respondEphemeral(s, i, "Mundo failed to unregister server. Try again.")
		return
	}
	if !removed {
		respondEphemeral(s, i, "You not receive clash updates. Me no stupid to remove something no existing.")
		return
	}

	respondEphemeral(s, i, "This server will no longer receive clash updates.")
}

// handleRegulars handles the /regulars command
func (b *Bot) handleRegulars(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ids, err := b.repo.RegularPlayersForGuild(i.GuildID)
	if err != nil {
		slog.Error("Failed to list regular players", "guild", i.GuildID, "error", err)
		respondEphemeral(s, i, "Mundo failed to list regular players.")
		return
	}

	if len(ids) == 0 {
		respondWithMessage(s, i, "This server has no regular players yet.")
		return
	}

	mentions := make([]string, len(ids))
	for idx, id := range ids {
		mentions[idx] = fmt.Sprintf("<@%s>", id)
	}
	respondWithMessage(s, i, "Regular players of this server: "+strings.Join(mentions, " "))
}

// resolveRegularTarget picks the player a regular-list command acts on.
// Naming someone else requires manage permissions.
func resolveRegularTarget(s *discordgo.Session, i *discordgo.InteractionCreate) (target *discordgo.User, selfManaging, allowed bool) {
	options := i.ApplicationCommandData().Options
	if len(options) > 0 {
		if !hasManagePermissions(i) {
			return nil, false, false
		}
		return options[0].UserValue(s), false, true
	}
	return i.Member.User, true, true
}

// handleRegularAdd handles the /regularadd command
func (b *Bot) handleRegularAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target, selfManaging, allowed := resolveRegularTarget(s, i)
	if !allowed {
		respondEphemeral(s, i, permissionRefusal)
		return
	}

	err := b.repo.RegisterRegularPlayer(i.GuildID, target.ID, selfManaging, !selfManaging)
	switch {
	case errors.Is(err, storage.ErrAlreadyRegular):
		respondEphemeral(s, i, fmt.Sprintf("<@%s> is already a regular player.", target.ID))
	case errors.Is(err, storage.ErrServerOverruled):
		respondEphemeral(s, i, "The server decided you are not a regular player. Talk to an admin.")
	case errors.Is(err, storage.ErrMemberOverruled):
		respondEphemeral(s, i, fmt.Sprintf("<@%s> chose not to be a regular player.", target.ID))
	case err != nil:
		slog.Error("Failed to register regular player", "guild", i.GuildID, "player", target.ID, "error", err)
		respondEphemeral(s, i, "Mundo failed to register regular player. Try again.")
	default:
		respondEphemeral(s, i, fmt.Sprintf("<@%s> is now a regular player on this server.", target.ID))
	}
}

// handleRegularRemove handles the /regularremove command
func (b *Bot) handleRegularRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target, selfManaging, allowed := resolveRegularTarget(s, i)
	if !allowed {
		respondEphemeral(s, i, permissionRefusal)
		return
	}

	err := b.repo.UnregisterRegularPlayer(i.GuildID, target.ID, selfManaging, !selfManaging)
	switch {
	case errors.Is(err, storage.ErrNotRegular):
		respondEphemeral(s, i, fmt.Sprintf("<@%s> is not a regular player.", target.ID))
	case errors.Is(err, storage.ErrServerOverruled):
		respondEphemeral(s, i, "The server decided you are a regular player. Talk to an admin.")
	case errors.Is(err, storage.ErrMemberOverruled):
		respondEphemeral(s, i, fmt.Sprintf("<@%s> chose to stay a regular player.", target.ID))
	case err != nil:
		slog.Error("Failed to unregister regular player", "guild", i.GuildID, "player", target.ID, "error", err)
		respondEphemeral(s, i, "Mundo failed to unregister regular player. Try again.")
	default:
		respondEphemeral(s, i, fmt.Sprintf("<@%s> is no longer a regular player on this server.", target.ID))
	}
}

// handleMundo handles the /mundo command
func (b *Bot) handleMundo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	count := 1
	if options := i.ApplicationCommandData().Options; len(options) > 0 {
		count = int(options[0].IntValue())
	}
	if count < 1 {
		respondEphemeral(s, i, "Mundo no understand numbers like that.")
		return
	}

	voiceState, err := s.State.VoiceState(i.GuildID, i.Member.User.ID)
	if err != nil || voiceState == nil || voiceState.ChannelID == "" {
		respondEphemeral(s, i, "Mundo no see you in voice channel.")
		return
	}

	b.playback.Enqueue(i.GuildID, voiceState.ChannelID, playback.GreetingSound, count)
	respondEphemeral(s, i, "Mundo coming!")
}

// handleShutup handles the /shutup command
func (b *Bot) handleShutup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	please := false
	if options := i.ApplicationCommandData().Options; len(options) > 0 {
		please = options[0].BoolValue()
	}

	if !please && !hasManagePermissions(i) {
		respondEphemeral(s, i, "Mundo no listen to lowlife like you. Say please.")
		return
	}

	b.playback.Stop(i.GuildID)

	if please {
		respondEphemeral(s, i, "You say please so nice... Okey, Mundo be silent now.")
		return
	}
	respondEphemeral(s, i, "Mundo be silent now.")
}

// Helper functions

func respondWithMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
}
