package feed

import "context"

// Source exposes the read-only endpoints of the remote statistics API.
// Every method returns the raw response body of a 2xx response.
type Source interface {
	MatchHeader(ctx context.Context, matchID string) ([]byte, error)
	NextMatches(ctx context.Context, matchID string) ([]byte, error)
	LastMatches(ctx context.Context, matchID string) ([]byte, error)
	MatchAnalysis(ctx context.Context, matchID string) ([]byte, error)
	MatchStats(ctx context.Context, matchID string) ([]byte, error)
	LeagueDetails(ctx context.Context, leagueID string) ([]byte, error)
	RoundFixtures(ctx context.Context, leagueID, roundID string) ([]byte, error)
	TeamSquad(ctx context.Context, teamID string) ([]byte, error)
	Home(ctx context.Context, date string) ([]byte, error)
}
