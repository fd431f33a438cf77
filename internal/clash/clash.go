package clash

import (
	"errors"
	"time"

	"github.com/koumartin/mundo-bot/internal/position"
)

// ErrInvalidDateFormat is returned when a clash date literal cannot be
// parsed as either day.month.year or an ISO date/date-time.
var ErrInvalidDateFormat = errors.New("invalid date format")

// Clash is one scheduled team event together with the Discord objects
// that were provisioned for it. (Name, GuildID) is unique among live
// clashes.
type Clash struct {
	ID       int64
	Name     string
	GuildID  string
	Date     time.Time
	// Shared announcement channel the sign-up message lives in.
	ClashChannelID string
	// Dedicated channel created for this clash.
	ChannelID string
	// Sign-up message players react to.
	MessageID string
	RoleID    string
	// Pinned roster message in the clash channel.
	StatusMessageID string
	// Reminder messages posted so far, append-only.
	NotificationMessageIDs []string
	// Tournament id in the Riot schedule, empty for manual clashes.
	RiotID string
}

// Registration is one (clash, player, position) fact. At most one
// exists per (clash, player).
type Registration struct {
	ClashID    int64
	PlayerID   string
	PlayerName string
	Position   position.Position
}

var dateLayouts = []string{
	"2.1.2006",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a clash date literal, either day.month.year or an
// ISO date/date-time. The result is truncated to midnight.
func ParseDate(text string) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
		}
	}
	return time.Time{}, ErrInvalidDateFormat
}

// Reminder offsets relative to the clash date (midnight of the event
// day). The first two land in the late morning days ahead; the last
// one is the morning of the event day itself.
var notificationDeltas = []time.Duration{
	-(6*24 + 13) * time.Hour,
	-(1*24 + 13) * time.Hour,
	9 * time.Hour,
}

// NotificationTimes computes the three reminder times for a clash date.
func NotificationTimes(date time.Time) []time.Time {
	times := make([]time.Time, 0, len(notificationDeltas))
	for _, delta := range notificationDeltas {
		times = append(times, date.Add(delta))
	}
	return times
}
