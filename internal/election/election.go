// Package election implements leadership over a single shared lock
// record. Several redundant bot instances poll the record; whichever
// holds it runs the periodic clash jobs, everyone else follows.
package election

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRefreshWindow is how long a claimed lock stays valid
	// without a refresh.
	DefaultRefreshWindow = 90 * time.Second
	// LeaderCheckInterval is how often the leader refreshes its claim.
	// It must be comfortably below the refresh window.
	LeaderCheckInterval = time.Minute
	// FollowerCheckInterval is how often followers probe for an
	// expired lock.
	FollowerCheckInterval = 4 * time.Minute
	// InitialCheckDelay is the delay before the first claim attempt
	// after startup.
	InitialCheckDelay = 5 * time.Second
)

// LockStore is the storage surface the elector needs. Both operations
// must be atomic conditional updates of the single lock record.
type LockStore interface {
	TryAcquireLock(holder string, now, validUntil time.Time) (bool, error)
	ReleaseLock(holder string, now time.Time) error
}

// Elector tracks whether this instance currently holds leadership.
type Elector struct {
	store         LockStore
	id            string
	refresh       time.Duration
	followerCheck time.Duration
	now           func() time.Time

	mu     sync.Mutex
	leader bool
}

// New creates an elector with a random stable instance identifier.
// followerCheck sets how often a non-leader probes the lock; zero
// falls back to the default. The leader cadence is fixed because it
// must stay below the refresh window.
func New(store LockStore, refresh, followerCheck time.Duration) *Elector {
	if refresh <= 0 {
		refresh = DefaultRefreshWindow
	}
	if followerCheck <= 0 {
		followerCheck = FollowerCheckInterval
	}
	return &Elector{
		store:         store,
		id:            uuid.NewString(),
		refresh:       refresh,
		followerCheck: followerCheck,
		now:           time.Now,
	}
}

// ID returns the holder identifier of this instance.
func (e *Elector) ID() string {
	return e.id
}

// IsLeader reports the outcome of the most recent Tick.
func (e *Elector) IsLeader() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leader
}

// Tick attempts to claim, refresh or steal the lock and returns
// whether this instance is the leader afterwards. Losing a claim is
// the expected steady state for followers, not an error.
func (e *Elector) Tick() bool {
	now := e.now()
	leader, err := e.store.TryAcquireLock(e.id, now, now.Add(e.refresh))
	if err != nil {
		slog.Error("Lock claim failed", "holder", e.id, "error", err)
		leader = false
	}

	e.mu.Lock()
	was := e.leader
	e.leader = leader
	e.mu.Unlock()

	if leader && !was {
		slog.Info("Became leader", "holder", e.id)
	}
	if !leader && was {
		slog.Info("Lost leadership", "holder", e.id)
	}
	return leader
}

// Resign releases the lock on graceful shutdown so a peer can take
// over without waiting out the validity window.
func (e *Elector) Resign() {
	e.mu.Lock()
	leader := e.leader
	e.leader = false
	e.mu.Unlock()

	if !leader {
		return
	}
	if err := e.store.ReleaseLock(e.id, e.now()); err != nil {
		slog.Error("Lock release failed", "holder", e.id, "error", err)
	}
}

// CheckInterval returns how long to wait before the next Tick given
// the current role.
func (e *Elector) CheckInterval() time.Duration {
	if e.IsLeader() {
		return LeaderCheckInterval
	}
	return e.followerCheck
}
