package normalize

import (
	"sort"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
)

var topPlayerKeys = keyTable{
	"id":        {"player_id", "id", "player.id"},
	"name":      {"player_name", "name", "player.common_name", "player.name"},
	"team_name": {"team_name", "team.name", "participant.name"},
	"image":     {"image", "image_path", "player.image_path"},
	"scorers":   {"goals", "total", "value"},
	"assists":   {"assists", "total", "value"},
	"ratings":   {"rating", "average", "value"},
}

var topPlayersRootKeys = keyTable{
	"scorers": {"scorers", "topscorers", "goals"},
	"assists": {"assists", "topassists"},
	"ratings": {"ratings", "toprated", "rating"},
}

// TopPlayers maps the {scorers, assists, ratings} leaderboards, each ordered by value descending.
func TopPlayers(v any) matchview.TopPlayers {
	src := asMap(v)
	return matchview.TopPlayers{
		Scorers: leaderboard(topPlayersRootKeys.list(src, "scorers"), "scorers"),
		Assists: leaderboard(topPlayersRootKeys.list(src, "assists"), "assists"),
		Ratings: leaderboard(topPlayersRootKeys.list(src, "ratings"), "ratings"),
	}
}

func leaderboard(items []any, metric string) []matchview.TopPlayer {
	out := make([]matchview.TopPlayer, 0, len(items))
	for _, item := range items {
		src := asMap(item)
		if src == nil {
			continue
		}
		out = append(out, matchview.TopPlayer{
			PlayerID: topPlayerKeys.id(src, "id"),
			Name:     topPlayerKeys.str(src, "name"),
			TeamName: topPlayerKeys.str(src, "team_name"),
			Image:    topPlayerKeys.str(src, "image"),
			Value:    topPlayerKeys.decimal(src, metric),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// MatchLists maps a {home: [...], away: [...]} payload used by next, last and h2h blocks.
func MatchLists(v any) matchview.MatchLists {
	src := asMap(v)
	return matchview.MatchLists{
		Home: matchSummaries(asSlice(src[matchview.SideHome])),
		Away: matchSummaries(asSlice(src[matchview.SideAway])),
	}
}

// Analysis maps the AI analysis payload. A bare string is accepted.
func Analysis(v any) matchview.Analysis {
	if text, ok := v.(string); ok {
		return matchview.Analysis{Analysis: text}
	}
	src := asMap(v)
	return matchview.Analysis{Analysis: firstNonEmpty(asString(src["analysis"]), asString(src["text"]))}
}
