// Package roster applies reaction events to clash sign-up state. One
// reaction on a tracked announcement message is one state-machine
// transition for that (clash, player) pair.
package roster

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/koumartin/mundo-bot/internal/clash"
	"github.com/koumartin/mundo-bot/internal/position"
	"github.com/koumartin/mundo-bot/internal/storage"
)

// Platform is the slice of the chat platform the state machine needs.
type Platform interface {
	GrantRole(guildID, userID, roleID string) error
	RevokeRole(guildID, userID, roleID string) error
	RemoveReaction(channelID, messageID, emoji, userID string) error
	SendDM(userID, text string) error
	EditMessage(channelID, messageID, text string) error
}

// Store is the persistence surface the state machine needs.
type Store interface {
	ClashesForGuild(guildID string) ([]clash.Clash, error)
	RegistrationsFor(clashID int64) ([]clash.Registration, error)
	UpsertRegistration(clashID int64, playerID, playerName string, pos position.Position) ([]clash.Registration, error)
	RemoveRegistration(clashID int64, playerID string, pos position.Position) ([]clash.Registration, bool, error)
}

// ReactionEvent is one inbound reaction add or remove.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	UserName  string
	// EmojiAlias is the bare emoji name and selects the position.
	EmojiAlias string
	// EmojiAPIName is what reaction-removal calls need: name:id for
	// custom emojis, the literal character for unicode ones.
	EmojiAPIName string
}

// Service handles registration transitions.
type Service struct {
	store    Store
	platform Platform
}

// NewService creates the registration state machine.
func NewService(store Store, platform Platform) *Service {
	return &Service{store: store, platform: platform}
}

// trackedClash finds the clash whose announcement message the reaction
// landed on, or nil if the reaction is not ours to handle.
func (s *Service) trackedClash(ev ReactionEvent) (*clash.Clash, error) {
	clashes, err := s.store.ClashesForGuild(ev.GuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load clashes: %w", err)
	}
	for i := range clashes {
		if clashes[i].ClashChannelID == ev.ChannelID && clashes[i].MessageID == ev.MessageID {
			return &clashes[i], nil
		}
	}
	return nil, nil
}

// HandleReactionAdd registers the player for the position the reaction
// selects. A player who already holds a position gets the reaction
// removed and a private explanation instead; the existing registration
// stands.
func (s *Service) HandleReactionAdd(ev ReactionEvent) error {
	pos, ok := position.FromAlias(ev.EmojiAlias)
	if !ok {
		return nil
	}

	c, err := s.trackedClash(ev)
	if err != nil || c == nil {
		return err
	}

	slog.Info("Player registering",
		"player", ev.UserName, "position", pos.String(), "clash", c.Name, "guild", ev.GuildID)

	_, err = s.store.UpsertRegistration(c.ID, ev.UserID, ev.UserName, pos)
	if errors.Is(err, storage.ErrDuplicateRegistration) {
		if rerr := s.platform.RemoveReaction(ev.ChannelID, ev.MessageID, ev.EmojiAPIName, ev.UserID); rerr != nil {
			slog.Error("Failed to remove duplicate reaction", "player", ev.UserName, "error", rerr)
		}
		if derr := s.platform.SendDM(ev.UserID, "Only one position per player dummy."); derr != nil {
			slog.Error("Failed to notify player about duplicate", "player", ev.UserName, "error", derr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to register player: %w", err)
	}

	// NOOB marks an absence; it never grants clash channel access.
	if pos != position.Noob {
		if err := s.platform.GrantRole(ev.GuildID, ev.UserID, c.RoleID); err != nil {
			// The registration is committed; role state lags until the
			// next successful mutation.
			slog.Error("Failed to grant clash role",
				"player", ev.UserName, "clash", c.Name, "error", err)
		}
	}

	return s.refreshStatus(c)
}

// HandleReactionRemove unregisters the player only when the removed
// reaction matches their stored position, so removing a stray second
// reaction never touches the real registration.
func (s *Service) HandleReactionRemove(ev ReactionEvent) error {
	pos, ok := position.FromAlias(ev.EmojiAlias)
	if !ok {
		return nil
	}

	c, err := s.trackedClash(ev)
	if err != nil || c == nil {
		return err
	}

	_, removed, err := s.store.RemoveRegistration(c.ID, ev.UserID, pos)
	if err != nil {
		return fmt.Errorf("failed to unregister player: %w", err)
	}
	if !removed {
		return nil
	}

	slog.Info("Player unregistered",
		"player", ev.UserName, "position", pos.String(), "clash", c.Name, "guild", ev.GuildID)

	if pos != position.Noob {
		if err := s.platform.RevokeRole(ev.GuildID, ev.UserID, c.RoleID); err != nil {
			slog.Error("Failed to revoke clash role",
				"player", ev.UserName, "clash", c.Name, "error", err)
		}
	}

	return s.refreshStatus(c)
}

// refreshStatus re-reads the roster and pushes the rendered lineup to
// the clash status message. The roster is always fetched fresh here;
// platform calls in between may have let it move on.
func (s *Service) refreshStatus(c *clash.Clash) error {
	regs, err := s.store.RegistrationsFor(c.ID)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	if err := s.platform.EditMessage(c.ChannelID, c.StatusMessageID, clash.RenderRoster(regs)); err != nil {
		slog.Error("Failed to update status message", "clash", c.Name, "error", err)
	}
	return nil
}
