package riot

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// APIClash is one confirmed tournament in the Riot clash schedule,
// reduced to what reconciliation needs.
type APIClash struct {
	ID   int
	Name string
	Date time.Time
}

// tournamentDTO mirrors the Clash-V1 tournament response
type tournamentDTO struct {
	ID               int    `json:"id"`
	ThemeID          int    `json:"themeId"`
	NameKey          string `json:"nameKey"`
	NameKeySecondary string `json:"nameKeySecondary"`
	Schedule         []struct {
		ID               int   `json:"id"`
		RegistrationTime int64 `json:"registrationTime"`
		StartTime        int64 `json:"startTime"`
		Cancelled        bool  `json:"cancelled"`
	} `json:"schedule"`
}

// GetTournaments retrieves the upcoming clash tournaments for the
// client's region. Uses the Clash-V1 API endpoint.
func (c *Client) GetTournaments(ctx context.Context) ([]APIClash, error) {
	endpoint := fmt.Sprintf("https://%s.api.riotgames.com/lol/clash/v1/tournaments", c.region)

	var dtos []tournamentDTO
	if err := c.get(ctx, endpoint, &dtos); err != nil {
		return nil, fmt.Errorf("failed to get clash tournaments: %w", err)
	}

	clashes := make([]APIClash, 0, len(dtos))
	for _, dto := range dtos {
		clashes = append(clashes, mapTournament(dto))
	}
	return clashes, nil
}

// mapTournament converts a tournament DTO into an APIClash. The
// display name combines both name keys, e.g. nameKey "bandle_city" and
// nameKeySecondary "day_1" become "Bandle City Cup - Day 1".
func mapTournament(dto tournamentDTO) APIClash {
	name := titleCase(dto.NameKey) + " Cup - " + titleCase(dto.NameKeySecondary)

	var date time.Time
	if len(dto.Schedule) > 0 {
		date = time.UnixMilli(dto.Schedule[0].StartTime).UTC()
	}
	return APIClash{ID: dto.ID, Name: name, Date: date}
}

func titleCase(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
