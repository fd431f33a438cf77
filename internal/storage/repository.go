package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/koumartin/mundo-bot/internal/clash"
	"github.com/koumartin/mundo-bot/internal/position"
)

const schemaVersion = 1

// Repository handles all database operations
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository with SQLite
func NewRepository(dbPath string) (*Repository, error) {
	if dbPath != ":memory:" {
		// Ensure directory exists
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps :memory:
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the database schema
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS clashes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(100) NOT NULL,
			guild_id VARCHAR(20) NOT NULL,
			date INTEGER NOT NULL,
			clash_channel_id VARCHAR(20) NOT NULL,
			channel_id VARCHAR(20) NOT NULL,
			message_id VARCHAR(20) NOT NULL,
			role_id VARCHAR(20) NOT NULL,
			status_message_id VARCHAR(20) NOT NULL,
			riot_id VARCHAR(20),
			UNIQUE(name, guild_id)
		)`,
		`CREATE TABLE IF NOT EXISTS registrations (
			clash_id INTEGER NOT NULL,
			player_id VARCHAR(20) NOT NULL,
			player_name VARCHAR(100) NOT NULL,
			position VARCHAR(10) NOT NULL,
			PRIMARY KEY(clash_id, player_id),
			FOREIGN KEY (clash_id) REFERENCES clashes(id)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			clash_id INTEGER NOT NULL,
			fire_at INTEGER NOT NULL,
			notified INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (clash_id) REFERENCES clashes(id)
		)`,
		`CREATE TABLE IF NOT EXISTS notification_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			clash_id INTEGER NOT NULL,
			message_id VARCHAR(20) NOT NULL,
			FOREIGN KEY (clash_id) REFERENCES clashes(id)
		)`,
		`CREATE TABLE IF NOT EXISTS registered_guilds (
			guild_id VARCHAR(20) PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS regular_players (
			guild_id VARCHAR(20) NOT NULL,
			player_id VARCHAR(20) NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			overruled VARCHAR(10) NOT NULL DEFAULT 'none',
			last_activated VARCHAR(10) NOT NULL DEFAULT 'none',
			PRIMARY KEY(guild_id, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS singleton_lock (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			holder_id VARCHAR(40) NOT NULL,
			valid_until INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clashes_guild ON clashes(guild_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_clash ON notifications(clash_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	var version int
	err := r.db.QueryRow(`SELECT version FROM schema_version`).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = r.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion)
	}
	return err
}

// Clash operations

const clashColumns = `id, name, guild_id, date, clash_channel_id, channel_id,
	message_id, role_id, status_message_id, COALESCE(riot_id, '')`

func (r *Repository) scanClash(row interface{ Scan(...any) error }) (*clash.Clash, error) {
	c := &clash.Clash{}
	var date int64
	err := row.Scan(&c.ID, &c.Name, &c.GuildID, &date, &c.ClashChannelID,
		&c.ChannelID, &c.MessageID, &c.RoleID, &c.StatusMessageID, &c.RiotID)
	if err != nil {
		return nil, err
	}
	c.Date = time.Unix(date, 0).UTC()
	return c, nil
}

func (r *Repository) loadNotificationMessageIDs(c *clash.Clash) error {
	rows, err := r.db.Query(
		`SELECT message_id FROM notification_messages WHERE clash_id = ? ORDER BY id`,
		c.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		c.NotificationMessageIDs = append(c.NotificationMessageIDs, id)
	}
	return rows.Err()
}

func (r *Repository) queryClashes(query string, args ...any) ([]clash.Clash, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clashes []clash.Clash
	for rows.Next() {
		c, err := r.scanClash(rows)
		if err != nil {
			return nil, err
		}
		clashes = append(clashes, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range clashes {
		if err := r.loadNotificationMessageIDs(&clashes[i]); err != nil {
			return nil, err
		}
	}
	return clashes, nil
}

// ClashesForGuild returns all live clashes for a guild.
func (r *Repository) ClashesForGuild(guildID string) ([]clash.Clash, error) {
	return r.queryClashes(
		`SELECT `+clashColumns+` FROM clashes WHERE guild_id = ?`, guildID)
}

// AddClash persists a clash together with its pending reminder times
// and an empty roster.
func (r *Repository) AddClash(c *clash.Clash, notificationTimes []time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO clashes (name, guild_id, date, clash_channel_id, channel_id,
			message_id, role_id, status_message_id, riot_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.GuildID, c.Date.Unix(), c.ClashChannelID, c.ChannelID,
		c.MessageID, c.RoleID, c.StatusMessageID, nullable(c.RiotID),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id

	for _, t := range notificationTimes {
		if _, err := tx.Exec(
			`INSERT INTO notifications (clash_id, fire_at) VALUES (?, ?)`,
			id, t.Unix(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RemoveClash deletes a clash plus its roster and pending reminders.
// It returns the removed clash, or nil if no such clash exists.
func (r *Repository) RemoveClash(name, guildID string) (*clash.Clash, error) {
	c, err := r.scanClash(r.db.QueryRow(
		`SELECT `+clashColumns+` FROM clashes WHERE name = ? AND guild_id = ?`,
		name, guildID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadNotificationMessageIDs(c); err != nil {
		return nil, err
	}
	if err := r.deleteClashCascade(c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) deleteClashCascade(clashID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM registrations WHERE clash_id = ?`,
		`DELETE FROM notifications WHERE clash_id = ?`,
		`DELETE FROM notification_messages WHERE clash_id = ?`,
		`DELETE FROM clashes WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, clashID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ExpiredClashes removes all clashes whose event day has fully passed
// and returns them, so callers can tear down their Discord objects. A
// clash stays alive through its own day; sweeping at midnight would
// cascade away the morning-of reminder still waiting to fire.
func (r *Repository) ExpiredClashes(now time.Time) ([]clash.Clash, error) {
	expired, err := r.queryClashes(
		`SELECT `+clashColumns+` FROM clashes WHERE date + 86400 < ?`, now.Unix())
	if err != nil {
		return nil, err
	}
	for _, c := range expired {
		if err := r.deleteClashCascade(c.ID); err != nil {
			return nil, err
		}
	}
	return expired, nil
}

// AppendNotificationMessageID records one posted reminder message.
func (r *Repository) AppendNotificationMessageID(clashID int64, messageID string) error {
	_, err := r.db.Exec(
		`INSERT INTO notification_messages (clash_id, message_id) VALUES (?, ?)`,
		clashID, messageID,
	)
	return err
}

// Registration operations

// RegistrationsFor returns the roster of a clash.
func (r *Repository) RegistrationsFor(clashID int64) ([]clash.Registration, error) {
	rows, err := r.db.Query(
		`SELECT clash_id, player_id, player_name, position
		 FROM registrations WHERE clash_id = ? ORDER BY rowid`,
		clashID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []clash.Registration
	for rows.Next() {
		var reg clash.Registration
		var posName string
		if err := rows.Scan(&reg.ClashID, &reg.PlayerID, &reg.PlayerName, &posName); err != nil {
			return nil, err
		}
		pos, ok := position.FromName(posName)
		if !ok {
			return nil, fmt.Errorf("unknown stored position %q", posName)
		}
		reg.Position = pos
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// UpsertRegistration adds a player to the roster and returns the
// updated roster. A player who already holds any position in the clash
// gets ErrDuplicateRegistration; the caller decides how to surface it.
func (r *Repository) UpsertRegistration(clashID int64, playerID, playerName string, pos position.Position) ([]clash.Registration, error) {
	_, err := r.db.Exec(
		`INSERT INTO registrations (clash_id, player_id, player_name, position)
		 VALUES (?, ?, ?, ?)`,
		clashID, playerID, playerName, pos.String(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, ErrDuplicateRegistration
		}
		return nil, err
	}
	return r.RegistrationsFor(clashID)
}

// RemoveRegistration deletes a registration only when the stored
// position matches exactly. A non-matching remove is a logged no-op,
// so a stray reaction removal never touches the player's real slot.
func (r *Repository) RemoveRegistration(clashID int64, playerID string, pos position.Position) ([]clash.Registration, bool, error) {
	result, err := r.db.Exec(
		`DELETE FROM registrations WHERE clash_id = ? AND player_id = ? AND position = ?`,
		clashID, playerID, pos.String(),
	)
	if err != nil {
		return nil, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 0 {
		slog.Debug("No matching registration to remove",
			"clashID", clashID, "playerID", playerID, "position", pos.String())
	}
	regs, err := r.RegistrationsFor(clashID)
	return regs, affected > 0, err
}

// Notification operations

// DueNotifications returns the clashes that have unfired reminders
// older than now, marking those reminders fired in the same call.
// Each reminder tuple fires at most once. Several tuples due at the
// same moment (a clash created inside the reminder window) collapse
// into one message for their clash rather than repeating it.
func (r *Repository) DueNotifications(now time.Time) ([]clash.Clash, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT DISTINCT clash_id FROM notifications WHERE fire_at < ? AND notified = 0`,
		now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	var clashIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		clashIDs = append(clashIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		`UPDATE notifications SET notified = 1 WHERE fire_at < ? AND notified = 0`,
		now.Unix(),
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	var clashes []clash.Clash
	for _, id := range clashIDs {
		found, err := r.queryClashes(`SELECT `+clashColumns+` FROM clashes WHERE id = ?`, id)
		if err != nil {
			return nil, err
		}
		clashes = append(clashes, found...)
	}
	return clashes, nil
}

// Registered guild operations

// RegisterGuild opts a guild into periodic clash reconciliation.
// Returns false if the guild was already registered.
func (r *Repository) RegisterGuild(guildID string) (bool, error) {
	result, err := r.db.Exec(
		`INSERT OR IGNORE INTO registered_guilds (guild_id) VALUES (?)`, guildID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// UnregisterGuild opts a guild out. Returns false if it was not
// registered.
func (r *Repository) UnregisterGuild(guildID string) (bool, error) {
	result, err := r.db.Exec(
		`DELETE FROM registered_guilds WHERE guild_id = ?`, guildID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// RegisteredGuildIDs lists all guilds opted into reconciliation.
func (r *Repository) RegisteredGuildIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT guild_id FROM registered_guilds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
