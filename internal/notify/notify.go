// Package notify delivers clash reminders when their scheduled times
// pass. Each reminder tuple fires at most once; a reminder lost to a
// crash between marking and posting is acceptable, the next offset
// covers it.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/koumartin/mundo-bot/internal/clash"
)

// Sender posts a message and returns its id.
type Sender interface {
	SendMessage(channelID, text string) (string, error)
}

// Store is the persistence surface the notifier needs.
type Store interface {
	DueNotifications(now time.Time) ([]clash.Clash, error)
	RegistrationsFor(clashID int64) ([]clash.Registration, error)
	RegularPlayersForGuild(guildID string) ([]string, error)
	AppendNotificationMessageID(clashID int64, messageID string) error
}

// Notifier sends due reminders into each clash's announcement channel.
type Notifier struct {
	store  Store
	sender Sender
	now    func() time.Time
}

// New creates a notifier.
func New(store Store, sender Sender) *Notifier {
	return &Notifier{store: store, sender: sender, now: time.Now}
}

// Run pops all due reminders and posts them. The roster and regulars
// list are read fresh for every reminder.
func (n *Notifier) Run() error {
	now := n.now()
	due, err := n.store.DueNotifications(now)
	if err != nil {
		return fmt.Errorf("failed to collect due notifications: %w", err)
	}

	for _, c := range due {
		regs, err := n.store.RegistrationsFor(c.ID)
		if err != nil {
			slog.Error("Failed to load roster for reminder", "clash", c.Name, "error", err)
			continue
		}
		regulars, err := n.store.RegularPlayersForGuild(c.GuildID)
		if err != nil {
			slog.Error("Failed to load regulars for reminder", "clash", c.Name, "error", err)
			continue
		}

		messageID, err := n.sender.SendMessage(c.ClashChannelID, clash.RenderReminder(c, regs, regulars, now))
		if err != nil {
			slog.Error("Failed to send reminder", "clash", c.Name, "error", err)
			continue
		}
		if err := n.store.AppendNotificationMessageID(c.ID, messageID); err != nil {
			slog.Error("Failed to record reminder message", "clash", c.Name, "error", err)
		}
		slog.Info("Sent clash reminder", "clash", c.Name, "guild", c.GuildID)
	}
	return nil
}
