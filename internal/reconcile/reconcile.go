// Package reconcile keeps the locally stored clashes of a guild in
// step with the confirmed tournament list from the Riot schedule.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/koumartin/mundo-bot/internal/clash"
	"github.com/koumartin/mundo-bot/internal/riot"
)

// Provisioner creates and tears down the Discord side of a clash.
// Creation ends with the clash persisted; teardown removes channels,
// roles and messages of an already-deleted record.
type Provisioner interface {
	CreateClash(guildID, name string, date time.Time, riotID string) error
	TeardownClash(c clash.Clash) error
}

// Store is the persistence surface the engine needs.
type Store interface {
	ClashesForGuild(guildID string) ([]clash.Clash, error)
	RemoveClash(name, guildID string) (*clash.Clash, error)
	ExpiredClashes(now time.Time) ([]clash.Clash, error)
}

// Source yields the authoritative tournament list.
type Source interface {
	GetTournaments(ctx context.Context) ([]riot.APIClash, error)
}

// Diff splits the confirmed list against the locally stored clashes.
// Matching is by name only: a renamed tournament shows up as one
// surplus plus one missing entry, not as an update.
func Diff(local []clash.Clash, confirmed []riot.APIClash) (missing []riot.APIClash, surplus []clash.Clash) {
	confirmedNames := make(map[string]bool, len(confirmed))
	for _, c := range confirmed {
		confirmedNames[c.Name] = true
	}

	localNames := make(map[string]bool, len(local))
	for _, c := range local {
		localNames[c.Name] = true
		if !confirmedNames[c.Name] {
			surplus = append(surplus, c)
		}
	}

	for _, c := range confirmed {
		if !localNames[c.Name] {
			missing = append(missing, c)
		}
	}
	return missing, surplus
}

// Engine drives reconciliation for registered guilds.
type Engine struct {
	store  Store
	source Source
	prov   Provisioner
}

// NewEngine creates a reconciliation engine.
func NewEngine(store Store, source Source, prov Provisioner) *Engine {
	return &Engine{store: store, source: source, prov: prov}
}

// Sync makes one guild's clashes consistent with the confirmed list.
// Missing clashes are created nearest-first so the next event's
// channel appears at the top.
func (e *Engine) Sync(ctx context.Context, guildID string) error {
	confirmed, err := e.source.GetTournaments(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch tournament list: %w", err)
	}

	local, err := e.store.ClashesForGuild(guildID)
	if err != nil {
		return fmt.Errorf("failed to load clashes: %w", err)
	}

	missing, surplus := Diff(local, confirmed)
	sort.Slice(missing, func(i, j int) bool { return missing[i].Date.Before(missing[j].Date) })

	for _, api := range missing {
		slog.Info("Creating clash from schedule", "guild", guildID, "clash", api.Name)
		if err := e.prov.CreateClash(guildID, api.Name, api.Date, fmt.Sprint(api.ID)); err != nil {
			slog.Error("Failed to create clash", "guild", guildID, "clash", api.Name, "error", err)
		}
	}

	for _, c := range surplus {
		slog.Info("Removing clash no longer in schedule", "guild", guildID, "clash", c.Name)
		removed, err := e.store.RemoveClash(c.Name, guildID)
		if err != nil {
			slog.Error("Failed to remove clash", "guild", guildID, "clash", c.Name, "error", err)
			continue
		}
		if removed == nil {
			continue
		}
		if err := e.prov.TeardownClash(*removed); err != nil {
			slog.Error("Failed to tear down clash", "guild", guildID, "clash", c.Name, "error", err)
		}
	}
	return nil
}

// SweepExpired removes clashes whose date has passed and tears down
// their Discord objects.
func (e *Engine) SweepExpired(now time.Time) error {
	expired, err := e.store.ExpiredClashes(now)
	if err != nil {
		return fmt.Errorf("failed to sweep expired clashes: %w", err)
	}
	for _, c := range expired {
		slog.Info("Removing expired clash", "guild", c.GuildID, "clash", c.Name)
		if err := e.prov.TeardownClash(c); err != nil {
			slog.Error("Failed to tear down expired clash", "clash", c.Name, "error", err)
		}
	}
	return nil
}
