package normalize

import (
	"strconv"
	"strings"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
)

const (
	DefaultFormation  = "4-3-3"
	predictedStarters = 11
	predictedSubs     = 7
)

var lineupKeys = keyTable{
	"formation": {"formation", "formations.formation"},
	"starters":  {"starters", "players", "startXI"},
	"subs":      {"subs", "substitutes", "bench"},
	"predicted": {"predicted", "is_predicted"},
}

var playerKeys = keyTable{
	"id":       {"player_id", "id", "player.id"},
	"name":     {"player_name", "name", "common_name", "display_name", "player.common_name", "player.name"},
	"number":   {"number", "jersey_number", "shirt_number"},
	"position": {"position", "pos", "position_code"},
	"image":    {"image", "image_path", "player.image_path"},
	"rating":   {"rating", "details.rating"},
}

// Lineups maps a {home, away} lineups payload. A missing side yields empty lists.
func Lineups(v any) matchview.Lineups {
	src := asMap(v)
	return matchview.Lineups{
		Home: teamLineup(asMap(src[matchview.SideHome])),
		Away: teamLineup(asMap(src[matchview.SideAway])),
	}
}

func teamLineup(src map[string]any) matchview.TeamLineup {
	lineup := matchview.TeamLineup{
		Formation: lineupKeys.str(src, "formation"),
		Starters:  players(lineupKeys.list(src, "starters")),
		Subs:      players(lineupKeys.list(src, "subs")),
	}
	if flag, ok := lineupKeys.value(src, "predicted").(bool); ok {
		lineup.Predicted = flag
	}
	return lineup
}

func players(items []any) []matchview.Player {
	out := make([]matchview.Player, 0, len(items))
	for _, item := range items {
		src := asMap(item)
		if src == nil {
			continue
		}
		out = append(out, player(src))
	}
	return out
}

func player(src map[string]any) matchview.Player {
	return matchview.Player{
		ID:       playerKeys.id(src, "id"),
		Name:     playerKeys.str(src, "name"),
		Number:   playerKeys.count(src, "number"),
		Position: playerKeys.str(src, "position"),
		Image:    playerKeys.str(src, "image"),
		Rating:   asFloatPtr(playerKeys.value(src, "rating")),
	}
}

// Squad maps a team squad payload, a bare array or a {data: [...]} envelope.
func Squad(v any) []matchview.Player {
	if unwrapped, ok := Unwrap(v); ok {
		v = unwrapped
	}
	return players(asSlice(v))
}

// PredictedLineup builds a lineup from a squad when the provider has none yet.
// The first eleven entries start, index 0 in goal and the outfield split by
// formation; the next seven are substitutes.
func PredictedLineup(squad []matchview.Player, formation string) matchview.TeamLineup {
	if strings.TrimSpace(formation) == "" {
		formation = DefaultFormation
	}
	positions := formationPositions(formation)

	starters := make([]matchview.Player, 0, predictedStarters)
	subs := make([]matchview.Player, 0, predictedSubs)
	for idx, p := range squad {
		switch {
		case idx < predictedStarters:
			if p.Number == 0 {
				p.Number = idx + 1
			}
			p.Position = positions[idx]
			starters = append(starters, p)
		case idx < predictedStarters+predictedSubs:
			subs = append(subs, p)
		}
	}

	return matchview.TeamLineup{
		Formation: formation,
		Starters:  starters,
		Subs:      subs,
		Predicted: true,
	}
}

// formationPositions expands "4-3-3" into G, D x4, M x3, F x3. Malformed or
// mis-sized formations fall back to the default.
func formationPositions(formation string) []string {
	parts := strings.Split(formation, "-")
	sizes := make([]int, 0, len(parts))
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return formationPositions(DefaultFormation)
		}
		sizes = append(sizes, n)
		total += n
	}
	if total != predictedStarters-1 || len(sizes) < 2 {
		return formationPositions(DefaultFormation)
	}

	positions := make([]string, 0, predictedStarters)
	positions = append(positions, "G")
	for i, n := range sizes {
		label := "M"
		switch i {
		case 0:
			label = "D"
		case len(sizes) - 1:
			label = "F"
		}
		for j := 0; j < n; j++ {
			positions = append(positions, label)
		}
	}
	return positions
}
