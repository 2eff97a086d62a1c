package normalize

import (
	"github.com/riskibarqy/goldstats-live/internal/domain/leagueview"
	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
)

var leagueDetailKeys = keyTable{
	"info":          {"leagueInfo", "league_info", "league"},
	"standings":     {"standings", "table"},
	"rounds":        {"rounds"},
	"current_round": {"currentRoundId", "current_round_id", "currentRound.id", "current_round.id"},
	"top_players":   {"topPlayers", "top_players"},
}

var roundKeys = keyTable{
	"id":         {"id", "round_id"},
	"name":       {"name", "round_name"},
	"is_current": {"is_current", "isCurrent", "current"},
	"finished":   {"finished", "is_finished"},
}

var homeKeys = keyTable{
	"leagues": {"leagues", "competitions"},
	"matches": {"matches", "fixtures"},
	"league":  {"league"},
}

// LeagueDetails is the decoded league details payload shared by the match and
// league pages.
type LeagueDetails struct {
	Info           matchview.LeagueInfo
	Standings      []matchview.Standing
	Rounds         []leagueview.Round
	CurrentRoundID string
	TopPlayers     matchview.TopPlayers
}

// ParseLeagueDetails maps a /leagues/{id}/details payload. The info block falls
// back to the payload root when no dedicated key exists.
func ParseLeagueDetails(v any) LeagueDetails {
	src := asMap(v)
	info := leagueDetailKeys.obj(src, "info")
	if info == nil {
		info = src
	}
	details := LeagueDetails{
		Info:           leagueInfo(info),
		Standings:      Standings(leagueDetailKeys.value(src, "standings")),
		Rounds:         rounds(leagueDetailKeys.list(src, "rounds")),
		CurrentRoundID: leagueDetailKeys.id(src, "current_round"),
		TopPlayers:     TopPlayers(leagueDetailKeys.obj(src, "top_players")),
	}
	if details.CurrentRoundID == "" {
		for _, round := range details.Rounds {
			if round.IsCurrent {
				details.CurrentRoundID = round.ID
				break
			}
		}
	}
	return details
}

// LeagueView combines league details with the fixtures of the current round.
func LeagueView(details LeagueDetails, fixtures []matchview.MatchSummary) leagueview.LeagueViewModel {
	if fixtures == nil {
		fixtures = []matchview.MatchSummary{}
	}
	return leagueview.LeagueViewModel{
		LeagueInfo:           details.Info,
		Standings:            details.Standings,
		Rounds:               details.Rounds,
		CurrentRoundID:       details.CurrentRoundID,
		CurrentRoundFixtures: fixtures,
		TopPlayers:           details.TopPlayers,
	}
}

// RoundFixtures maps a round fixtures list.
func RoundFixtures(v any) []matchview.MatchSummary {
	return matchSummaries(asSlice(v))
}

func rounds(items []any) []leagueview.Round {
	out := make([]leagueview.Round, 0, len(items))
	for _, item := range items {
		src := asMap(item)
		if src == nil {
			continue
		}
		round := leagueview.Round{
			ID:   roundKeys.id(src, "id"),
			Name: roundKeys.str(src, "name"),
		}
		round.IsCurrent, _ = roundKeys.value(src, "is_current").(bool)
		round.Finished, _ = roundKeys.value(src, "finished").(bool)
		out = append(out, round)
	}
	return out
}

// HomeListing maps the home payload for one date. Both grouped ({leagues: [{league,
// matches}]}) and flat match lists are accepted; flat lists are grouped by league in
// first-seen order.
func HomeListing(v any, date string) leagueview.HomeListing {
	var items []any
	if src := asMap(v); src != nil {
		items = homeKeys.list(src, "leagues")
		if items == nil {
			items = homeKeys.list(src, "matches")
		}
	} else {
		items = asSlice(v)
	}

	leagues := make([]leagueview.LeagueMatches, 0)
	index := make(map[string]int)
	for _, item := range items {
		src := asMap(item)
		if src == nil {
			continue
		}
		if matches := homeKeys.list(src, "matches"); matches != nil {
			info := homeKeys.obj(src, "league")
			if info == nil {
				info = src
			}
			leagues = append(leagues, leagueview.LeagueMatches{
				League:  leagueInfo(info),
				Matches: matchSummaries(matches),
			})
			continue
		}

		match := MatchSummary(src)
		key := firstNonEmpty(match.League.ID, match.League.Name)
		pos, seen := index[key]
		if !seen {
			pos = len(leagues)
			index[key] = pos
			leagues = append(leagues, leagueview.LeagueMatches{League: match.League, Matches: []matchview.MatchSummary{}})
		}
		leagues[pos].Matches = append(leagues[pos].Matches, match)
	}

	return leagueview.HomeListing{
		Date:    date,
		Leagues: leagues,
		HasLive: leagueview.HasLiveMatch(leagues),
	}
}
