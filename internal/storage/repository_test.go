package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koumartin/mundo-bot/internal/clash"
	"github.com/koumartin/mundo-bot/internal/position"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testClash(name, guildID string, date time.Time) *clash.Clash {
	return &clash.Clash{
		Name:            name,
		GuildID:         guildID,
		Date:            date,
		ClashChannelID:  "100",
		ChannelID:       "101",
		MessageID:       "102",
		RoleID:          "103",
		StatusMessageID: "104",
	}
}

func TestAddAndListClashes(t *testing.T) {
	repo := newTestRepo(t)
	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)

	c := testClash("Spring Cup", "g1", date)
	require.NoError(t, repo.AddClash(c, clash.NotificationTimes(date)))
	assert.NotZero(t, c.ID)

	clashes, err := repo.ClashesForGuild("g1")
	require.NoError(t, err)
	require.Len(t, clashes, 1)
	assert.Equal(t, "Spring Cup", clashes[0].Name)
	assert.Equal(t, date, clashes[0].Date)

	other, err := repo.ClashesForGuild("g2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRemoveClashCascades(t *testing.T) {
	repo := newTestRepo(t)
	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	c := testClash("Spring Cup", "g1", date)
	require.NoError(t, repo.AddClash(c, clash.NotificationTimes(date)))

	_, err := repo.UpsertRegistration(c.ID, "u1", "Alice", position.Top)
	require.NoError(t, err)
	require.NoError(t, repo.AppendNotificationMessageID(c.ID, "m1"))

	removed, err := repo.RemoveClash("Spring Cup", "g1")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, c.ID, removed.ID)
	assert.Equal(t, []string{"m1"}, removed.NotificationMessageIDs)

	clashes, err := repo.ClashesForGuild("g1")
	require.NoError(t, err)
	assert.Empty(t, clashes)

	regs, err := repo.RegistrationsFor(c.ID)
	require.NoError(t, err)
	assert.Empty(t, regs)

	// Reminders are gone too; nothing fires after deletion.
	due, err := repo.DueNotifications(date.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestRemoveClashMissingReturnsNil(t *testing.T) {
	repo := newTestRepo(t)
	removed, err := repo.RemoveClash("nope", "g1")
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestUpsertRegistrationRejectsSecondPosition(t *testing.T) {
	repo := newTestRepo(t)
	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	c := testClash("Cup", "g1", date)
	require.NoError(t, repo.AddClash(c, nil))

	regs, err := repo.UpsertRegistration(c.ID, "u1", "Alice", position.Top)
	require.NoError(t, err)
	require.Len(t, regs, 1)

	// Same player, different position: rejected, roster untouched.
	_, err = repo.UpsertRegistration(c.ID, "u1", "Alice", position.Mid)
	assert.ErrorIs(t, err, ErrDuplicateRegistration)

	regs, err = repo.RegistrationsFor(c.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, position.Top, regs[0].Position)

	// Another player may take the same position.
	regs, err = repo.UpsertRegistration(c.ID, "u2", "Bob", position.Top)
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}

func TestRemoveRegistrationExactMatchOnly(t *testing.T) {
	repo := newTestRepo(t)
	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	c := testClash("Cup", "g1", date)
	require.NoError(t, repo.AddClash(c, nil))

	_, err := repo.UpsertRegistration(c.ID, "u1", "Alice", position.Top)
	require.NoError(t, err)

	// Wrong position: no-op.
	regs, removed, err := repo.RemoveRegistration(c.ID, "u1", position.Jungle)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, regs, 1)

	regs, removed, err = repo.RemoveRegistration(c.ID, "u1", position.Top)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, regs)

	// Removing again is idempotent.
	regs, removed, err = repo.RemoveRegistration(c.ID, "u1", position.Top)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, regs)
}

func TestExpiredClashesPopSemantics(t *testing.T) {
	repo := newTestRepo(t)
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.AddClash(testClash("Old Cup", "g1", past), nil))
	require.NoError(t, repo.AddClash(testClash("New Cup", "g1", future), nil))

	expired, err := repo.ExpiredClashes(now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "Old Cup", expired[0].Name)

	// The sweep removed it; a second call finds nothing.
	expired, err = repo.ExpiredClashes(now)
	require.NoError(t, err)
	assert.Empty(t, expired)

	clashes, err := repo.ClashesForGuild("g1")
	require.NoError(t, err)
	require.Len(t, clashes, 1)
	assert.Equal(t, "New Cup", clashes[0].Name)
}

func TestClashSurvivesItsOwnDay(t *testing.T) {
	repo := newTestRepo(t)
	date := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AddClash(testClash("Cup", "g1", date), clash.NotificationTimes(date)))

	// Just after midnight of the event day the clash is not expired.
	expired, err := repo.ExpiredClashes(time.Date(2024, 6, 14, 0, 1, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, expired)

	// The morning-of reminder still fires later that day.
	due, err := repo.DueNotifications(time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Cup", due[0].Name)

	// Once the day has passed the sweep removes it.
	expired, err = repo.ExpiredClashes(time.Date(2024, 6, 15, 0, 1, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "Cup", expired[0].Name)
}

func TestDueNotificationsFireAtMostOnce(t *testing.T) {
	repo := newTestRepo(t)
	date := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	c := testClash("Cup", "g1", date)
	require.NoError(t, repo.AddClash(c, clash.NotificationTimes(date)))

	// Before the first reminder time nothing is due.
	due, err := repo.DueNotifications(time.Date(2024, 6, 7, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.DueNotifications(time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Cup", due[0].Name)

	// Firing is monotonic.
	due, err = repo.DueNotifications(time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, due)

	// The later reminders remain pending and fire independently.
	due, err = repo.DueNotifications(time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestGuildRegistration(t *testing.T) {
	repo := newTestRepo(t)

	ok, err := repo.RegisterGuild("g1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RegisterGuild("g1")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := repo.RegisteredGuildIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, ids)

	ok, err = repo.UnregisterGuild("g1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UnregisterGuild("g1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegularPlayerLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.RegisterRegularPlayer("g1", "u1", true, false))

	ids, err := repo.RegularPlayersForGuild("g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)

	err = repo.RegisterRegularPlayer("g1", "u1", true, false)
	assert.ErrorIs(t, err, ErrAlreadyRegular)

	require.NoError(t, repo.UnregisterRegularPlayer("g1", "u1", true, false))
	ids, err = repo.RegularPlayersForGuild("g1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = repo.UnregisterRegularPlayer("g1", "u1", true, false)
	assert.ErrorIs(t, err, ErrNotActive)

	err = repo.UnregisterRegularPlayer("g1", "u2", true, false)
	assert.ErrorIs(t, err, ErrNotRegular)
}

func TestRegularPlayerMemberOverrule(t *testing.T) {
	repo := newTestRepo(t)

	// Admin adds the player, the player opts out themselves.
	require.NoError(t, repo.RegisterRegularPlayer("g1", "u1", false, true))
	require.NoError(t, repo.UnregisterRegularPlayer("g1", "u1", true, false))

	// The admin cannot force them back in.
	err := repo.RegisterRegularPlayer("g1", "u1", false, true)
	assert.ErrorIs(t, err, ErrMemberOverruled)

	// The player themselves can.
	require.NoError(t, repo.RegisterRegularPlayer("g1", "u1", true, false))
}

func TestRegularPlayerServerOverrule(t *testing.T) {
	repo := newTestRepo(t)

	// The player opts in, the server removes them.
	require.NoError(t, repo.RegisterRegularPlayer("g1", "u1", true, false))
	require.NoError(t, repo.UnregisterRegularPlayer("g1", "u1", false, true))

	// The player cannot opt straight back in.
	err := repo.RegisterRegularPlayer("g1", "u1", true, false)
	assert.ErrorIs(t, err, ErrServerOverruled)

	// A server admin can.
	require.NoError(t, repo.RegisterRegularPlayer("g1", "u1", false, true))
}

func TestLockAcquireRefreshStealRelease(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	// No record: first caller wins.
	ok, err := repo.TryAcquireLock("a", now, now.Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	// Valid and held by someone else: denied.
	ok, err = repo.TryAcquireLock("b", now, now.Add(90*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	// Holder refreshes its own record.
	ok, err = repo.TryAcquireLock("a", now.Add(time.Minute), now.Add(time.Minute).Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	// After expiry anyone may steal.
	later := now.Add(10 * time.Minute)
	ok, err = repo.TryAcquireLock("b", later, later.Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	lock, err := repo.GetLock()
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.Equal(t, "b", lock.HolderID)

	// Release expires the record immediately, so a peer can take over.
	require.NoError(t, repo.ReleaseLock("b", later))
	ok, err = repo.TryAcquireLock("a", later.Add(time.Second), later.Add(91*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}
