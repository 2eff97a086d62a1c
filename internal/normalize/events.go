package normalize

import (
	"sort"
	"strings"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
)

var eventKeys = keyTable{
	"id":             {"id", "event_id"},
	"minute":         {"minute", "time"},
	"extra_minute":   {"extra_minute", "extraMinute"},
	"type":           {"type.name", "type.developer_name", "type", "event_type"},
	"team_id":        {"participant_id", "team_id", "teamId"},
	"team_side":      {"team_side", "side", "team"},
	"player":         {"player_name", "player.common_name", "player.display_name", "player.name", "player"},
	"related_player": {"related_player_name", "related_player.common_name", "related_player.name"},
	"result":         {"result", "info"},
}

// Events maps an events (or timeline) list into the events block ordered by minute.
// homeTeamID decides the side when the event carries a participant id.
func Events(v any, homeTeamID string) []matchview.Event {
	items := asSlice(v)
	out := make([]matchview.Event, 0, len(items))
	for _, item := range items {
		src := asMap(item)
		if src == nil {
			continue
		}
		out = append(out, event(src, homeTeamID))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Minute != out[j].Minute {
			return out[i].Minute < out[j].Minute
		}
		return out[i].ExtraMinute < out[j].ExtraMinute
	})
	return out
}

func event(src map[string]any, homeTeamID string) matchview.Event {
	return matchview.Event{
		ID:            eventKeys.id(src, "id"),
		Minute:        eventKeys.count(src, "minute"),
		ExtraMinute:   eventKeys.count(src, "extra_minute"),
		Type:          EventType(eventKeys.str(src, "type")),
		TeamSide:      eventSide(src, homeTeamID),
		Player:        eventKeys.str(src, "player"),
		RelatedPlayer: eventKeys.str(src, "related_player"),
		Result:        eventKeys.str(src, "result"),
	}
}

// EventType folds a provider event name into one of the rendered event kinds.
func EventType(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)
	switch {
	case strings.Contains(name, "goal"):
		if strings.Contains(name, "missed") || strings.Contains(name, "saved") {
			return matchview.EventUnknown
		}
		return matchview.EventGoal
	case strings.Contains(name, "redcard"):
		return matchview.EventRedCard
	case strings.Contains(name, "yellowcard"):
		return matchview.EventYellowCard
	case strings.Contains(name, "corner"):
		return matchview.EventCorner
	case strings.Contains(name, "substitution"), name == "sub":
		return matchview.EventSub
	default:
		return matchview.EventUnknown
	}
}

func eventSide(src map[string]any, homeTeamID string) string {
	if side := strings.ToLower(eventKeys.str(src, "team_side")); side == matchview.SideHome || side == matchview.SideAway {
		return side
	}
	teamID := eventKeys.id(src, "team_id")
	if teamID != "" && teamID == homeTeamID {
		return matchview.SideHome
	}
	return matchview.SideAway
}
