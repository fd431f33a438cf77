package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/koumartin/mundo-bot/internal/clash"
	"github.com/koumartin/mundo-bot/internal/storage"
)

// ErrNoClashChannel is returned when a guild has no shared text channel
// named "clash" to post sign-up announcements into.
var ErrNoClashChannel = errors.New("guild has no clash text channel")

// ErrClashExists is returned when a clash with the same name already
// lives in the guild.
var ErrClashExists = errors.New("clash already exists in this guild")

const (
	clashChannelName = "clash"
	clashCategory    = "Clash"
)

// CreateClash provisions the Discord side of a new clash (announcement
// message, role, dedicated channel, pinned roster message) and persists
// the record together with its notification schedule.
func (b *Bot) CreateClash(guildID, name string, date time.Time, riotID string) error {
	// Check before posting anything; a duplicate name failing on the
	// insert would leave a stray @everyone announcement behind.
	exists, err := clashExists(b.repo, guildID, name)
	if err != nil {
		return fmt.Errorf("failed to check existing clashes: %w", err)
	}
	if exists {
		return ErrClashExists
	}

	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}

	clashChannel := findChannel(channels, discordgo.ChannelTypeGuildText, clashChannelName)
	if clashChannel == nil {
		return ErrNoClashChannel
	}

	announcement, err := b.session.ChannelMessageSendComplex(clashChannel.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf(
			"@everyone Clash sign-up: %s - %s\nReact with your position, fill (👍) if anything works, or 👎 if you cannot make it.",
			name, date.Format("2.1.2006"),
		),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send announcement: %w", err)
	}

	role, err := b.ensureRole(guildID, name)
	if err != nil {
		return err
	}

	channel, err := b.ensureChannel(guildID, channels, name, role.ID)
	if err != nil {
		return err
	}

	status, err := b.session.ChannelMessageSend(channel.ID, clash.RenderRoster(nil))
	if err != nil {
		return fmt.Errorf("failed to send roster message: %w", err)
	}
	if err := b.session.ChannelMessagePin(channel.ID, status.ID); err != nil {
		slog.Warn("Failed to pin roster message", "guild", guildID, "clash", name, "error", err)
	}

	c := &clash.Clash{
		Name:            name,
		GuildID:         guildID,
		Date:            date,
		ClashChannelID:  clashChannel.ID,
		ChannelID:       channel.ID,
		MessageID:       announcement.ID,
		RoleID:          role.ID,
		StatusMessageID: status.ID,
		RiotID:          riotID,
	}
	if err := b.repo.AddClash(c, clash.NotificationTimes(date)); err != nil {
		return fmt.Errorf("failed to save clash: %w", err)
	}

	slog.Info("Clash created", "guild", guildID, "clash", name, "date", date.Format("2.1.2006"))
	return nil
}

// TeardownClash removes the role, channel and messages of a clash whose
// record has already been deleted. Objects that are already gone count
// as removed.
func (b *Bot) TeardownClash(c clash.Clash) error {
	var errs []error

	if c.RoleID != "" {
		if err := b.session.GuildRoleDelete(c.GuildID, c.RoleID); err != nil && !isNotFound(err) {
			errs = append(errs, fmt.Errorf("failed to delete role: %w", err))
		}
	}
	if c.ChannelID != "" {
		if _, err := b.session.ChannelDelete(c.ChannelID); err != nil && !isNotFound(err) {
			errs = append(errs, fmt.Errorf("failed to delete channel: %w", err))
		}
	}

	messageIDs := append([]string{c.MessageID}, c.NotificationMessageIDs...)
	for _, id := range messageIDs {
		if id == "" {
			continue
		}
		if err := b.session.ChannelMessageDelete(c.ClashChannelID, id); err != nil && !isNotFound(err) {
			errs = append(errs, fmt.Errorf("failed to delete message %s: %w", id, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("Clash torn down", "guild", c.GuildID, "clash", c.Name)
	return nil
}

// ensureRole finds or creates the "<name> Player" role.
func (b *Bot) ensureRole(guildID, name string) (*discordgo.Role, error) {
	roleName := name + " Player"

	roles, err := b.session.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	for _, r := range roles {
		if r.Name == roleName {
			return r, nil
		}
	}

	role, err := b.session.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: roleName})
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// ensureChannel finds or creates the dedicated clash channel, placed
// under the "Clash" category when the guild has one and visible only to
// holders of the clash role.
func (b *Bot) ensureChannel(guildID string, channels []*discordgo.Channel, name, roleID string) (*discordgo.Channel, error) {
	channelName := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	for _, c := range channels {
		if c.Name == channelName && c.Type == discordgo.ChannelTypeGuildText {
			return c, nil
		}
	}

	parentID := ""
	if category := findChannel(channels, discordgo.ChannelTypeGuildCategory, clashCategory); category != nil {
		parentID = category.ID
	}

	channel, err := b.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: parentID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				// @everyone shares its id with the guild
				ID:   guildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			{
				ID:    roleID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: discordgo.PermissionViewChannel,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	return channel, nil
}

func clashExists(store *storage.Repository, guildID, name string) (bool, error) {
	clashes, err := store.ClashesForGuild(guildID)
	if err != nil {
		return false, err
	}
	for _, c := range clashes {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func findChannel(channels []*discordgo.Channel, channelType discordgo.ChannelType, name string) *discordgo.Channel {
	for _, c := range channels {
		if c.Type == channelType && c.Name == name {
			return c
		}
	}
	return nil
}
