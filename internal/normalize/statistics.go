package normalize

import "github.com/riskibarqy/goldstats-live/internal/domain/matchview"

var statsRootKeys = keyTable{
	"detailed": {"analysis.detailedStats", "detailedStats"},
	"xg":       {"xG", "xg"},
}

var periodKeys = keyTable{
	"fulltime": {"fulltime", "full_time"},
	"ht":       {"ht", "first_half"},
	"st":       {"st", "second_half"},
}

var periodStatKeys = keyTable{
	"possession":        {"possession", "ball_possession"},
	"shots_total":       {"shots.total", "shots_total"},
	"shots_on_target":   {"shots.onTarget", "shots.on_target", "shots_on_target"},
	"corners":           {"attacks.corners", "corners"},
	"dangerous_attacks": {"attacks.dangerous", "dangerous_attacks"},
	"yellow_cards":      {"others.yellowCards", "yellow_cards"},
	"red_cards":         {"others.redCards", "red_cards"},
	"passes":            {"others.passes", "passes"},
}

// Statistics maps the detailed stats payload (the /stats response root) into the
// statistics block. Missing counters default to zero.
func Statistics(v any) matchview.Statistics {
	src := asMap(v)
	return statisticsFrom(statsRootKeys.obj(src, "detailed"), statsRootKeys.obj(src, "xg"))
}

func statisticsFrom(detailed, xg map[string]any) matchview.Statistics {
	fulltime := periodStats(periodKeys.obj(detailed, "fulltime"))
	return matchview.Statistics{
		Fulltime: fulltime,
		HT:       periodStats(periodKeys.obj(detailed, "ht")),
		ST:       periodStats(periodKeys.obj(detailed, "st")),
		XG: matchview.FloatPair{
			Home: scoreKeys.decimal(xg, "home"),
			Away: scoreKeys.decimal(xg, "away"),
		},
		Home: sideStats(fulltime, matchview.SideHome),
		Away: sideStats(fulltime, matchview.SideAway),
	}
}

func periodStats(src map[string]any) matchview.PeriodStats {
	return matchview.PeriodStats{
		Possession:       statPair(src, "possession"),
		ShotsTotal:       statPair(src, "shots_total"),
		ShotsOnTarget:    statPair(src, "shots_on_target"),
		Corners:          statPair(src, "corners"),
		YellowCards:      statPair(src, "yellow_cards"),
		RedCards:         statPair(src, "red_cards"),
		Passes:           statPair(src, "passes"),
		DangerousAttacks: statPair(src, "dangerous_attacks"),
	}
}

func statPair(src map[string]any, field string) matchview.Pair {
	obj := periodStatKeys.obj(src, field)
	return matchview.Pair{
		Home: asInt(obj["home"]),
		Away: asInt(obj["away"]),
	}
}

func sideStats(p matchview.PeriodStats, side string) matchview.SideStats {
	pick := func(pair matchview.Pair) int {
		if side == matchview.SideAway {
			return pair.Away
		}
		return pair.Home
	}
	return matchview.SideStats{
		BallPossession:   pick(p.Possession),
		ShotsTotal:       pick(p.ShotsTotal),
		ShotsOnTarget:    pick(p.ShotsOnTarget),
		Corners:          pick(p.Corners),
		YellowCards:      pick(p.YellowCards),
		RedCards:         pick(p.RedCards),
		PassesTotal:      pick(p.Passes),
		DangerousAttacks: pick(p.DangerousAttacks),
	}
}
