// Package poller drives the periodic clash jobs: leader election,
// schedule reconciliation, expiry sweeps and reminder delivery.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/koumartin/mundo-bot/internal/election"
	"github.com/koumartin/mundo-bot/internal/notify"
	"github.com/koumartin/mundo-bot/internal/reconcile"
	"github.com/koumartin/mundo-bot/internal/storage"
)

// Poller periodically competes for leadership and, while leading, runs
// the clash maintenance jobs.
type Poller struct {
	repo     *storage.Repository
	elector  *election.Elector
	engine   *reconcile.Engine
	notifier *notify.Notifier

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Poller
func New(repo *storage.Repository, elector *election.Elector, engine *reconcile.Engine, notifier *notify.Notifier) *Poller {
	return &Poller{
		repo:     repo,
		elector:  elector,
		engine:   engine,
		notifier: notifier,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop. The first check runs after a short
// delay so a restarted instance rejoins the election quickly; later
// checks follow the leader/follower cadence.
func (p *Poller) Start(ctx context.Context) {
	slog.Info("Starting periodic clash checks", "instance", p.elector.ID())

	p.wg.Add(1)
	defer p.wg.Done()

	timer := time.NewTimer(election.InitialCheckDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Poller stopped (context cancelled)")
			return
		case <-p.stopChan:
			slog.Info("Poller stopped")
			return
		case <-timer.C:
			p.check(ctx)
			timer.Reset(p.elector.CheckInterval())
		}
	}
}

// Stop signals the poller to stop
func (p *Poller) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

// check competes for the lock and runs the maintenance jobs when this
// instance leads. Followers only refresh their view of the lock.
func (p *Poller) check(ctx context.Context) {
	if !p.elector.Tick() {
		return
	}

	guildIDs, err := p.repo.RegisteredGuildIDs()
	if err != nil {
		slog.Error("Failed to get registered guilds", "error", err)
		return
	}

	for _, guildID := range guildIDs {
		select {
		case <-ctx.Done():
			return
		default:
			if err := p.engine.Sync(ctx, guildID); err != nil {
				slog.Error("Failed to sync clashes", "guild", guildID, "error", err)
			}
		}
	}

	if err := p.engine.SweepExpired(time.Now()); err != nil {
		slog.Error("Failed to sweep expired clashes", "error", err)
	}

	if err := p.notifier.Run(); err != nil {
		slog.Error("Failed to send reminders", "error", err)
	}
}
