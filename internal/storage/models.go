package storage

import (
	"errors"
	"time"
)

// ErrDuplicateRegistration is returned when a player who already holds
// a position in a clash tries to register a second one.
var ErrDuplicateRegistration = errors.New("player already registered for this clash")

// Regular-player escalation errors. They are surfaced to the user by
// the command layer, never fatal.
var (
	ErrAlreadyRegular = errors.New("the player is already a regular")
	ErrNotRegular     = errors.New("the player is not a regular in this server")
	ErrNotActive      = errors.New("the player is not currently an active regular")
	// The player opted out themselves; only they can opt back in.
	ErrMemberOverruled = errors.New("the player decided not to be a regular and needs to opt in themselves")
	// The server removed the player; only a server admin can re-add.
	ErrServerOverruled = errors.New("the server removed the player from regulars and an admin needs to re-add them")
)

// Lock is the single global leadership record. At most one non-expired
// holder exists at any time.
type Lock struct {
	HolderID   string
	ValidUntil time.Time
}

// RegularPlayer is the per-guild flag marking an expected habitual
// attendee. Overruled and LastActivated implement the escalation rules
// that stop one party from immediately reverting the other's explicit
// decision.
type RegularPlayer struct {
	GuildID       string
	PlayerID      string
	Active        bool
	Overruled     string // none | member | server
	LastActivated string // none | member | server
}
