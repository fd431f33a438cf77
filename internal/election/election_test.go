package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koumartin/mundo-bot/internal/storage"
)

// fakeClock drives two electors through simulated time against one
// shared lock record.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newElectors(t *testing.T) (*Elector, *Elector, *fakeClock) {
	t.Helper()
	repo, err := storage.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	a := New(repo, DefaultRefreshWindow, 0)
	b := New(repo, DefaultRefreshWindow, 0)
	a.now = clock.Now
	b.now = clock.Now
	return a, b, clock
}

func TestAtMostOneLeader(t *testing.T) {
	a, b, clock := newElectors(t)

	assert.True(t, a.Tick())
	assert.False(t, b.Tick())

	// Both keep ticking inside the validity window; the roles hold.
	for i := 0; i < 5; i++ {
		clock.Advance(30 * time.Second)
		leaderA := a.Tick()
		leaderB := b.Tick()
		assert.True(t, leaderA)
		assert.False(t, leaderB)
		assert.False(t, leaderA && leaderB)
	}
}

func TestFollowerTakesOverAfterExpiry(t *testing.T) {
	a, b, clock := newElectors(t)

	require.True(t, a.Tick())
	require.False(t, b.Tick())

	// Leader goes silent; once the window passes, the follower's next
	// tick steals the lock.
	clock.Advance(DefaultRefreshWindow + time.Second)
	assert.True(t, b.Tick())
	assert.True(t, b.IsLeader())

	// The old leader discovers it lost on its next tick.
	assert.False(t, a.Tick())
	assert.False(t, a.IsLeader())
}

func TestResignHandsOverImmediately(t *testing.T) {
	a, b, clock := newElectors(t)

	require.True(t, a.Tick())
	a.Resign()
	assert.False(t, a.IsLeader())

	// No expiry wait needed.
	clock.Advance(time.Second)
	assert.True(t, b.Tick())
}

func TestCheckIntervalFollowsRole(t *testing.T) {
	a, b, _ := newElectors(t)

	require.True(t, a.Tick())
	require.False(t, b.Tick())

	assert.Equal(t, LeaderCheckInterval, a.CheckInterval())
	assert.Equal(t, FollowerCheckInterval, b.CheckInterval())
}

func TestConfiguredFollowerInterval(t *testing.T) {
	repo, err := storage.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	a := New(repo, DefaultRefreshWindow, 2*time.Minute)
	b := New(repo, DefaultRefreshWindow, 2*time.Minute)
	require.True(t, a.Tick())
	require.False(t, b.Tick())

	// The follower cadence comes from configuration; the leader's is
	// pinned under the refresh window.
	assert.Equal(t, 2*time.Minute, b.CheckInterval())
	assert.Equal(t, LeaderCheckInterval, a.CheckInterval())
}

func TestResignAsFollowerLeavesLockAlone(t *testing.T) {
	a, b, clock := newElectors(t)

	require.True(t, a.Tick())
	require.False(t, b.Tick())

	b.Resign()
	clock.Advance(time.Second)

	// a still holds a valid lock.
	assert.True(t, a.Tick())
}
