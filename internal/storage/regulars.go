package storage

import "database/sql"

// Regular player operations. A regular is never hard-deleted; toggling
// leaves a record of who flipped it last so the opposite party cannot
// immediately flip it back.

// RegularPlayersForGuild returns ids of the currently active regulars.
func (r *Repository) RegularPlayersForGuild(guildID string) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT player_id FROM regular_players WHERE guild_id = ? AND active = 1`,
		guildID,
	)
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

func (r *Repository) getRegularPlayer(guildID, playerID string) (*RegularPlayer, error) {
	p := &RegularPlayer{}
	err := r.db.QueryRow(
		`SELECT guild_id, player_id, active, overruled, last_activated
		 FROM regular_players WHERE guild_id = ? AND player_id = ?`,
		guildID, playerID,
	).Scan(&p.GuildID, &p.PlayerID, &p.Active, &p.Overruled, &p.LastActivated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RegisterRegularPlayer marks a player as a regular. selfManaging means
// the player asked for themselves, privileged means a server admin did.
// An earlier explicit opt-out may only be reverted by the right party.
func (r *Repository) RegisterRegularPlayer(guildID, playerID string, selfManaging, privileged bool) error {
	current, err := r.getRegularPlayer(guildID, playerID)
	if err != nil {
		return err
	}

	lastActivated := "none"
	if selfManaging {
		lastActivated = "member"
	}
	if privileged {
		lastActivated = "server"
	}

	// The first record must carry who activated it, or a later
	// deactivation by the other party has nothing to overrule.
	if current == nil {
		_, err := r.db.Exec(
			`INSERT INTO regular_players (guild_id, player_id, active, last_activated)
			 VALUES (?, ?, 1, ?)`,
			guildID, playerID, lastActivated,
		)
		return err
	}

	if current.Active {
		return ErrAlreadyRegular
	}
	if current.Overruled == "member" && !selfManaging {
		return ErrMemberOverruled
	}
	if current.Overruled == "server" && !privileged {
		return ErrServerOverruled
	}

	_, err = r.db.Exec(
		`UPDATE regular_players SET active = 1, last_activated = ?
		 WHERE guild_id = ? AND player_id = ?`,
		lastActivated, guildID, playerID,
	)
	return err
}

// UnregisterRegularPlayer deactivates a regular. When the deactivating
// party is not the one who last activated, the record is overruled so
// the activation cannot simply be repeated.
func (r *Repository) UnregisterRegularPlayer(guildID, playerID string, selfManaging, privileged bool) error {
	current, err := r.getRegularPlayer(guildID, playerID)
	if err != nil {
		return err
	}

	if current == nil {
		return ErrNotRegular
	}
	if !current.Active {
		return ErrNotActive
	}

	overrule := "none"
	if selfManaging {
		overrule = "member"
	}
	if privileged {
		overrule = "server"
	}
	final := "none"
	if current.LastActivated != overrule && current.LastActivated != "none" {
		final = overrule
	}

	_, err = r.db.Exec(
		`UPDATE regular_players SET active = 0, overruled = ?
		 WHERE guild_id = ? AND player_id = ?`,
		final, guildID, playerID,
	)
	return err
}
