package leagueview

import "github.com/riskibarqy/goldstats-live/internal/domain/matchview"

// LeagueViewModel is the render-ready aggregate for one league page.
type LeagueViewModel struct {
	LeagueInfo           matchview.LeagueInfo     `json:"leagueInfo"`
	Standings            []matchview.Standing     `json:"standings"`
	Rounds               []Round                  `json:"rounds"`
	CurrentRoundID       string                   `json:"currentRoundId,omitempty"`
	CurrentRoundFixtures []matchview.MatchSummary `json:"currentRoundFixtures"`
	TopPlayers           matchview.TopPlayers     `json:"topPlayers"`
}

type Round struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsCurrent bool   `json:"is_current,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
}

// LeagueMatches groups the matches of one league for the home listing.
type LeagueMatches struct {
	League  matchview.LeagueInfo     `json:"league"`
	Matches []matchview.MatchSummary `json:"matches"`
}

type HomeListing struct {
	Date    string          `json:"date"`
	Leagues []LeagueMatches `json:"leagues"`
	HasLive bool            `json:"hasLive"`
}

// HasLiveMatch reports whether any listed match is in a live status.
func HasLiveMatch(leagues []LeagueMatches) bool {
	for _, league := range leagues {
		for _, match := range league.Matches {
			if matchview.IsLiveStatus(match.Status) {
				return true
			}
		}
	}
	return false
}
