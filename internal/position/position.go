package position

import "strings"

// Position is a team role a player can sign up for in a clash.
type Position int

const (
	Top Position = iota
	Jungle
	Mid
	Bot
	Support
	// Fill means the player takes any open role.
	Fill
	// Noob means the player cannot attend. It never grants the
	// clash role.
	Noob
)

// aliases maps each position to the reaction/emoji names that select it.
// Matching is case-insensitive.
var aliases = map[Position][]string{
	Top:     {"top", "top-1"},
	Jungle:  {"jun", "jung", "jungler"},
	Mid:     {"mid", "middle"},
	Bot:     {"adc", "bot", "bottom"},
	Support: {"sup", "supp", "support"},
	Fill:    {"fill", "👍"},
	Noob:    {"noob", "👎"},
}

// All lists every position in display order.
func All() []Position {
	return []Position{Top, Jungle, Mid, Bot, Support, Fill, Noob}
}

// String returns the canonical name used for display and persistence.
func (p Position) String() string {
	switch p {
	case Top:
		return "TOP"
	case Jungle:
		return "JUNGLE"
	case Mid:
		return "MID"
	case Bot:
		return "BOT"
	case Support:
		return "SUPPORT"
	case Fill:
		return "FILL"
	case Noob:
		return "NOOB"
	}
	return "UNKNOWN"
}

// FromAlias resolves a reaction or emoji name to a position.
// Unknown aliases are not an error; the second return value is false.
func FromAlias(alias string) (Position, bool) {
	alias = strings.ToLower(alias)
	for _, p := range All() {
		for _, a := range aliases[p] {
			if a == alias {
				return p, true
			}
		}
	}
	return 0, false
}

// FromName resolves a stored canonical name back to a position.
func FromName(name string) (Position, bool) {
	for _, p := range All() {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}

// AcceptedAliases returns every alias any position responds to. The
// reaction handlers use it to reject irrelevant reactions before
// touching storage.
func AcceptedAliases() []string {
	var out []string
	for _, p := range All() {
		out = append(out, aliases[p]...)
	}
	return out
}
