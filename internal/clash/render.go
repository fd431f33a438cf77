package clash

import (
	"fmt"
	"strings"
	"time"

	"github.com/koumartin/mundo-bot/internal/position"
)

// Assumed start of play on the event day, used only for the countdown
// in reminder messages.
const assumedStartOffset = 21 * time.Hour

// RenderRoster builds the status-message text listing every position
// and the players signed up for it.
func RenderRoster(regs []Registration) string {
	var b strings.Builder
	b.WriteString("Current lineup\n")
	for _, pos := range position.All() {
		b.WriteString(pos.String())
		b.WriteString(" :")
		for _, reg := range regs {
			if reg.Position == pos {
				b.WriteString(" ")
				b.WriteString(reg.PlayerName)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderReminder builds one reminder message for a clash: countdown to
// the assumed start, an understaffing warning, missing positions, and a
// call-out of regular players who have not signed up. When the team is
// full and every position is covered it is only a neutral reminder.
func RenderReminder(c Clash, regs []Registration, regularIDs []string, now time.Time) string {
	start := c.Date.Add(assumedStartOffset)
	remaining := start.Sub(now)
	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	minutes := int(remaining.Minutes()) % 60

	var b strings.Builder
	fmt.Fprintf(&b, "Clash %s starts in roughly %d days, %d hours and %d minutes.\n",
		c.Name, days, hours, minutes)

	players := distinctPlayers(regs)
	missing := missingPositions(regs)

	understaffed := len(players) < 5
	if understaffed {
		if len(players) == 1 {
			b.WriteString("Still not enough players. Currently only 1 player is signed up.\n")
		} else {
			fmt.Fprintf(&b, "Still not enough players. Currently only %d players are signed up.\n", len(players))
		}
	}

	if len(missing) > 0 {
		b.WriteString("Still missing players for positions:\n")
		for _, pos := range missing {
			b.WriteString(pos.String())
			b.WriteString(" ")
		}
		b.WriteString("\n")
	} else if !understaffed {
		b.WriteString("All positions are filled, so this is just a reminder.")
		return b.String()
	}

	if callouts := unregisteredRegulars(regs, regularIDs); len(callouts) > 0 {
		b.WriteString("Regulars who have not signed up yet: ")
		for i, id := range callouts {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "<@%s>", id)
		}
	}
	return b.String()
}

// distinctPlayers counts each attending player once. NOOB sign-ups are
// declared absences, not attendees.
func distinctPlayers(regs []Registration) map[string]struct{} {
	players := make(map[string]struct{})
	for _, reg := range regs {
		if reg.Position != position.Noob {
			players[reg.PlayerID] = struct{}{}
		}
	}
	return players
}

// missingPositions lists positions nobody has taken, in display order.
// FILL and NOOB are not real slots.
func missingPositions(regs []Registration) []position.Position {
	taken := make(map[position.Position]bool)
	for _, reg := range regs {
		taken[reg.Position] = true
	}
	var missing []position.Position
	for _, pos := range position.All() {
		if pos == position.Fill || pos == position.Noob {
			continue
		}
		if !taken[pos] {
			missing = append(missing, pos)
		}
	}
	return missing
}

func unregisteredRegulars(regs []Registration, regularIDs []string) []string {
	registered := make(map[string]bool)
	for _, reg := range regs {
		registered[reg.PlayerID] = true
	}
	var out []string
	for _, id := range regularIDs {
		if !registered[id] {
			out = append(out, id)
		}
	}
	return out
}
