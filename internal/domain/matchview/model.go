package matchview

import (
	"strings"
	"time"
)

const (
	StatusNotStarted = "NS"
	StatusLive       = "LIVE"
	StatusHalfTime   = "HT"
	StatusFirstHalf  = "1H"
	StatusSecondHalf = "2H"
	StatusExtraTime  = "ET"
	StatusPenLive    = "PEN_LIVE"
	StatusBreak      = "BREAK"
	StatusFinished   = "FT"

	DefaultVenue = "TBD"
)

const (
	SideHome = "home"
	SideAway = "away"
)

const (
	EventGoal       = "goal"
	EventYellowCard = "yellowcard"
	EventRedCard    = "redcard"
	EventCorner     = "corner"
	EventSub        = "sub"
	EventUnknown    = "unknown"
)

// MatchViewModel is the render-ready aggregate for one match.
type MatchViewModel struct {
	Header     Header     `json:"header"`
	Events     []Event    `json:"events"`
	Statistics Statistics `json:"statistics"`
	Lineups    Lineups    `json:"lineups"`
	Standings  []Standing `json:"standings"`
	TopPlayers TopPlayers `json:"topPlayers"`
	Next       MatchLists `json:"next"`
	Last       MatchLists `json:"last"`
	H2H        MatchLists `json:"h2h"`
	AI         Analysis   `json:"ai"`

	Revisions Revisions `json:"-"`
}

// Revisions records the timestamp of the live update that last replaced each block.
type Revisions struct {
	Header     time.Time
	Events     time.Time
	Statistics time.Time
	Lineups    time.Time
}

type Header struct {
	ID       string     `json:"id"`
	Date     string     `json:"date"`
	HomeTeam TeamInfo   `json:"home_team"`
	AwayTeam TeamInfo   `json:"away_team"`
	League   LeagueInfo `json:"league"`
	Status   string     `json:"status"`
	Venue    string     `json:"venue"`
	Minute   *int       `json:"minute,omitempty"`
}

type TeamInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Logo      string `json:"logo"`
	Score     *int   `json:"score,omitempty"`
}

type LeagueInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Logo    string `json:"logo"`
	Country string `json:"country"`
}

type Event struct {
	ID            string `json:"id,omitempty"`
	Minute        int    `json:"minute"`
	ExtraMinute   int    `json:"extra_minute,omitempty"`
	Type          string `json:"type"`
	TeamSide      string `json:"team_side"`
	Player        string `json:"player"`
	RelatedPlayer string `json:"related_player,omitempty"`
	Result        string `json:"result,omitempty"`
}

// Pair holds one counter for both sides.
type Pair struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

type FloatPair struct {
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

type PeriodStats struct {
	Possession       Pair `json:"possession"`
	ShotsTotal       Pair `json:"shots_total"`
	ShotsOnTarget    Pair `json:"shots_on_target"`
	Corners          Pair `json:"corners"`
	YellowCards      Pair `json:"yellow_cards"`
	RedCards         Pair `json:"red_cards"`
	Passes           Pair `json:"passes"`
	DangerousAttacks Pair `json:"dangerous_attacks"`
}

// SideStats is the flattened fulltime view of one side used by comparison rendering.
type SideStats struct {
	BallPossession   int `json:"ball_possession"`
	ShotsTotal       int `json:"shots_total"`
	ShotsOnTarget    int `json:"shots_on_target"`
	Corners          int `json:"corners"`
	YellowCards      int `json:"yellow_cards"`
	RedCards         int `json:"red_cards"`
	PassesTotal      int `json:"passes_total"`
	DangerousAttacks int `json:"dangerous_attacks"`
}

type Statistics struct {
	Fulltime PeriodStats `json:"fulltime"`
	HT       PeriodStats `json:"ht"`
	ST       PeriodStats `json:"st"`
	XG       FloatPair   `json:"xG"`
	Home     SideStats   `json:"home"`
	Away     SideStats   `json:"away"`
}

type Player struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Number   int      `json:"number"`
	Position string   `json:"position,omitempty"`
	Image    string   `json:"image,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
}

type TeamLineup struct {
	Formation string   `json:"formation,omitempty"`
	Starters  []Player `json:"starters"`
	Subs      []Player `json:"subs"`
	Predicted bool     `json:"predicted,omitempty"`
}

type Lineups struct {
	Home TeamLineup `json:"home"`
	Away TeamLineup `json:"away"`
}

// HasStarters reports whether either side has at least one starter.
func (l Lineups) HasStarters() bool {
	return len(l.Home.Starters) > 0 || len(l.Away.Starters) > 0
}

type Record struct {
	Played       int `json:"played"`
	Won          int `json:"won"`
	Draw         int `json:"draw"`
	Lost         int `json:"lost"`
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
	Points       int `json:"points"`
}

type Standing struct {
	Position       int     `json:"position"`
	TeamID         string  `json:"team_id"`
	TeamName       string  `json:"name"`
	Logo           string  `json:"logo,omitempty"`
	Played         int     `json:"played"`
	Won            int     `json:"won"`
	Draw           int     `json:"draw"`
	Lost           int     `json:"lost"`
	GoalsFor       int     `json:"goals_for"`
	GoalsAgainst   int     `json:"goals_against"`
	GoalDifference int     `json:"goal_difference"`
	Points         int     `json:"points"`
	Form           string  `json:"form,omitempty"`
	Status         string  `json:"status,omitempty"`
	Home           *Record `json:"home,omitempty"`
	Away           *Record `json:"away,omitempty"`
}

type TopPlayer struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	TeamName string  `json:"team_name,omitempty"`
	Image    string  `json:"image,omitempty"`
	Value    float64 `json:"value"`
}

type TopPlayers struct {
	Scorers []TopPlayer `json:"scorers"`
	Assists []TopPlayer `json:"assists"`
	Ratings []TopPlayer `json:"ratings"`
}

type MatchSummary struct {
	ID       string     `json:"id"`
	Date     string     `json:"date"`
	HomeTeam TeamInfo   `json:"home_team"`
	AwayTeam TeamInfo   `json:"away_team"`
	League   LeagueInfo `json:"league"`
	Status   string     `json:"status"`
}

type MatchLists struct {
	Home []MatchSummary `json:"home"`
	Away []MatchSummary `json:"away"`
}

type Analysis struct {
	Analysis string `json:"analysis"`
}

// EmptyMatchLists is the default used when a next/last matches fetch fails.
func EmptyMatchLists() MatchLists {
	return MatchLists{Home: []MatchSummary{}, Away: []MatchSummary{}}
}

func EmptyTopPlayers() TopPlayers {
	return TopPlayers{Scorers: []TopPlayer{}, Assists: []TopPlayer{}, Ratings: []TopPlayer{}}
}

func EmptyLineups() Lineups {
	return Lineups{
		Home: TeamLineup{Starters: []Player{}, Subs: []Player{}},
		Away: TeamLineup{Starters: []Player{}, Subs: []Player{}},
	}
}

// NormalizeStatus upper-cases and trims a raw status code.
func NormalizeStatus(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusLive, StatusHalfTime, StatusFirstHalf, StatusSecondHalf, StatusExtraTime, StatusPenLive, StatusBreak:
		return true
	default:
		return false
	}
}

func IsNotStartedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case "", StatusNotStarted:
		return true
	default:
		return false
	}
}
