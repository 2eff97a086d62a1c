package normalize

import "github.com/riskibarqy/goldstats-live/internal/domain/matchview"

var headerKeys = keyTable{
	"id":        {"id", "match_id", "fixture_id"},
	"date":      {"date", "starting_at", "timestamp"},
	"status":    {"status", "state.short_name", "state.state"},
	"venue":     {"venue"},
	"minute":    {"minute", "time.minute"},
	"home_team": {"home_team", "homeTeam"},
	"away_team": {"away_team", "awayTeam"},
	"league":    {"league"},
	"score":     {"score", "scores"},
}

var teamKeys = keyTable{
	"id":         {"id", "team_id", "participant_id"},
	"name":       {"name", "team_name"},
	"short_name": {"short_name", "short_code"},
	"logo":       {"logo", "image_path", "image"},
	"score":      {"score", "goals"},
}

var leagueKeys = keyTable{
	"id":      {"id", "league_id"},
	"name":    {"name", "league_name"},
	"logo":    {"logo", "league_logo", "image_path"},
	"country": {"country", "country_name"},
}

// Header maps a match header payload, either the snapshot shape or the live
// matchInfo shape, into the header block.
func Header(v any) matchview.Header {
	src := asMap(v)
	if src == nil {
		return matchview.Header{Venue: matchview.DefaultVenue}
	}

	score := headerKeys.obj(src, "score")
	home := teamInfo(headerKeys.obj(src, "home_team"))
	away := teamInfo(headerKeys.obj(src, "away_team"))
	if home.Score == nil {
		home.Score = scoreKeys.countPtr(score, "home")
	}
	if away.Score == nil {
		away.Score = scoreKeys.countPtr(score, "away")
	}

	return matchview.Header{
		ID:       headerKeys.id(src, "id"),
		Date:     headerKeys.str(src, "date"),
		HomeTeam: home,
		AwayTeam: away,
		League:   leagueInfo(headerKeys.obj(src, "league")),
		Status:   matchview.NormalizeStatus(headerKeys.str(src, "status")),
		Venue:    firstNonEmpty(headerKeys.str(src, "venue"), matchview.DefaultVenue),
		Minute:   headerKeys.countPtr(src, "minute"),
	}
}

// HasTeams reports whether a header identifies both sides well enough to render.
func HasTeams(h matchview.Header) bool {
	return firstNonEmpty(h.HomeTeam.ID, h.HomeTeam.Name) != "" && firstNonEmpty(h.AwayTeam.ID, h.AwayTeam.Name) != ""
}

var scoreKeys = keyTable{
	"home": {"home", "home_score", "localteam_score"},
	"away": {"away", "away_score", "visitorteam_score"},
}

func teamInfo(src map[string]any) matchview.TeamInfo {
	if src == nil {
		return matchview.TeamInfo{}
	}
	return matchview.TeamInfo{
		ID:        teamKeys.id(src, "id"),
		Name:      teamKeys.str(src, "name"),
		ShortName: teamKeys.str(src, "short_name"),
		Logo:      teamKeys.str(src, "logo"),
		Score:     teamKeys.countPtr(src, "score"),
	}
}

func leagueInfo(src map[string]any) matchview.LeagueInfo {
	if src == nil {
		return matchview.LeagueInfo{}
	}
	return matchview.LeagueInfo{
		ID:      leagueKeys.id(src, "id"),
		Name:    leagueKeys.str(src, "name"),
		Logo:    leagueKeys.str(src, "logo"),
		Country: leagueKeys.str(src, "country"),
	}
}

// MatchSummary maps a list item (next/last matches, fixtures, home listing).
func MatchSummary(v any) matchview.MatchSummary {
	h := Header(v)
	return matchview.MatchSummary{
		ID:       h.ID,
		Date:     h.Date,
		HomeTeam: h.HomeTeam,
		AwayTeam: h.AwayTeam,
		League:   h.League,
		Status:   h.Status,
	}
}

func matchSummaries(items []any) []matchview.MatchSummary {
	out := make([]matchview.MatchSummary, 0, len(items))
	for _, item := range items {
		if asMap(item) == nil {
			continue
		}
		out = append(out, MatchSummary(item))
	}
	return out
}
