package normalize

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
)

var updateKeys = keyTable{
	"match_id":  {"matchId", "match_id", "id"},
	"data":      {"data", "payload"},
	"timestamp": {"timestamp", "ts", "sent_at"},
}

var updateBlockKeys = keyTable{
	"match_info": {"matchInfo", "match_info", "header"},
	"events":     {"events", "timeline"},
	"lineups":    {"lineups"},
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// NormalizeUpdate maps one match:update frame payload ({matchId, data, timestamp})
// into a partial update. A block is present only when its source key is present.
// homeTeamID resolves event sides when the payload carries no header.
func NormalizeUpdate(raw []byte, homeTeamID string) (matchview.Update, error) {
	decoded, err := Decode(raw)
	if err != nil {
		return matchview.Update{}, fmt.Errorf("normalize update: %w", err)
	}
	root := asMap(decoded)
	if root == nil {
		return matchview.Update{}, fmt.Errorf("normalize update: payload is not an object")
	}
	data := updateKeys.obj(root, "data")
	if data == nil {
		return matchview.Update{}, fmt.Errorf("normalize update: missing data")
	}

	u := matchview.Update{
		MatchID:   updateKeys.id(root, "match_id"),
		Timestamp: parseTimestamp(updateKeys.value(root, "timestamp")),
	}

	if info := updateBlockKeys.obj(data, "match_info"); info != nil && headerKeys.id(info, "id") != "" {
		header := Header(info)
		u.Header = &header
		if header.HomeTeam.ID != "" {
			homeTeamID = header.HomeTeam.ID
		}
		if u.MatchID == "" {
			u.MatchID = header.ID
		}
	}
	if detailed := statsRootKeys.obj(data, "detailed"); detailed != nil {
		stats := statisticsFrom(detailed, statsRootKeys.obj(data, "xg"))
		u.Statistics = &stats
	}
	if source := updateBlockKeys.value(data, "events"); source != nil {
		events := Events(source, homeTeamID)
		u.Events = &events
	}
	if source := updateBlockKeys.obj(data, "lineups"); source != nil {
		lineups := Lineups(source)
		u.Lineups = &lineups
	}
	return u, nil
}

// parseTimestamp accepts RFC 3339 strings and unix epochs in seconds or milliseconds.
// Unparseable values yield the zero time.
func parseTimestamp(v any) time.Time {
	if text, ok := v.(string); ok {
		text = strings.TrimSpace(text)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, text); err == nil {
				return ts.UTC()
			}
		}
	}
	f, ok := asNumber(v)
	if !ok || f <= 0 || math.IsInf(f, 0) {
		return time.Time{}
	}
	if f >= 1e12 {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}
