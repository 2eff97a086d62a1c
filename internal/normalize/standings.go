package normalize

import (
	"sort"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
)

var standingKeys = keyTable{
	"position":      {"position", "rank", "pos"},
	"team_id":       {"team_id", "participant_id", "id", "team.id"},
	"team_name":     {"name", "team_name", "team.name", "participant.name"},
	"logo":          {"logo", "team_logo", "image_path", "team.image_path", "participant.image_path"},
	"played":        {"played", "stats.p", "games_played", "j"},
	"won":           {"won", "stats.w", "v"},
	"draw":          {"draw", "stats.d", "e"},
	"lost":          {"lost", "stats.l", "d"},
	"goals_for":     {"goals_for", "stats.gf", "gf"},
	"goals_against": {"goals_against", "stats.ga", "ga"},
	"goal_diff":     {"goal_difference", "goal_diff", "stats.gd", "gd"},
	"points":        {"points", "pts", "p"},
	"form":          {"form", "recent_form"},
	"status":        {"status", "result"},
}

var recordKeys = keyTable{
	"played":        {"played", "p"},
	"won":           {"won", "w"},
	"draw":          {"draw", "d"},
	"lost":          {"lost", "l"},
	"goals_for":     {"goals_for", "gf"},
	"goals_against": {"goals_against", "ga"},
	"points":        {"points", "pts"},
}

// Standings maps a standings table ordered by position.
func Standings(v any) []matchview.Standing {
	items := asSlice(v)
	out := make([]matchview.Standing, 0, len(items))
	for _, item := range items {
		src := asMap(item)
		if src == nil {
			continue
		}
		out = append(out, standing(src))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func standing(src map[string]any) matchview.Standing {
	row := matchview.Standing{
		Position:     standingKeys.count(src, "position"),
		TeamID:       standingKeys.id(src, "team_id"),
		TeamName:     standingKeys.str(src, "team_name"),
		Logo:         standingKeys.str(src, "logo"),
		Played:       standingKeys.count(src, "played"),
		Won:          standingKeys.count(src, "won"),
		Draw:         standingKeys.count(src, "draw"),
		Lost:         standingKeys.count(src, "lost"),
		GoalsFor:     standingKeys.count(src, "goals_for"),
		GoalsAgainst: standingKeys.count(src, "goals_against"),
		Points:       standingKeys.count(src, "points"),
		Form:         standingKeys.str(src, "form"),
		Status:       standingKeys.str(src, "status"),
		Home:         record(asMap(src[matchview.SideHome])),
		Away:         record(asMap(src[matchview.SideAway])),
	}
	if diff := standingKeys.value(src, "goal_diff"); diff != nil {
		row.GoalDifference = asInt(diff)
	} else {
		row.GoalDifference = row.GoalsFor - row.GoalsAgainst
	}
	if row.Played == 0 {
		row.Played = row.Won + row.Draw + row.Lost
	}
	return row
}

func record(src map[string]any) *matchview.Record {
	if src == nil {
		return nil
	}
	return &matchview.Record{
		Played:       recordKeys.count(src, "played"),
		Won:          recordKeys.count(src, "won"),
		Draw:         recordKeys.count(src, "draw"),
		Lost:         recordKeys.count(src, "lost"),
		GoalsFor:     recordKeys.count(src, "goals_for"),
		GoalsAgainst: recordKeys.count(src, "goals_against"),
		Points:       recordKeys.count(src, "points"),
	}
}
