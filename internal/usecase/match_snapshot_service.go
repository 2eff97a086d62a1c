package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/goldstats-live/internal/domain/feed"
	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/riskibarqy/goldstats-live/internal/normalize"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
)

// MatchSnapshotService assembles the initial view model of one match. Only the
// header is mandatory; every other block degrades to its empty default.
type MatchSnapshotService struct {
	source feed.Source
	pool   *ants.Pool
	logger *logging.Logger
}

func NewMatchSnapshotService(source feed.Source, pool *ants.Pool, logger *logging.Logger) *MatchSnapshotService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchSnapshotService{
		source: source,
		pool:   pool,
		logger: logger,
	}
}

func (s *MatchSnapshotService) Load(ctx context.Context, matchID string) (matchview.MatchViewModel, error) {
	matchID = strings.TrimSpace(matchID)
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSnapshotService.Load", attribute.String("match.id", matchID))
	defer span.End()

	if matchID == "" {
		return matchview.MatchViewModel{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	var header, next, last, analysis, stats fetchResult
	runPooled(s.pool,
		func() { header.raw, header.err = s.source.MatchHeader(ctx, matchID) },
		func() { next.raw, next.err = s.source.NextMatches(ctx, matchID) },
		func() { last.raw, last.err = s.source.LastMatches(ctx, matchID) },
		func() { analysis.raw, analysis.err = s.source.MatchAnalysis(ctx, matchID) },
		func() { stats.raw, stats.err = s.source.MatchStats(ctx, matchID) },
	)

	model, err := s.headerModel(matchID, header)
	if err != nil {
		recordSpanError(span, err)
		return matchview.MatchViewModel{}, err
	}

	if data, ok := s.secondary(ctx, matchID, "next_matches", next); ok {
		model.Next = normalize.MatchLists(data)
	}
	if data, ok := s.secondary(ctx, matchID, "last_matches", last); ok {
		model.Last = normalize.MatchLists(data)
		model.H2H = normalize.MatchLists(data)
	}
	if data, ok := s.secondary(ctx, matchID, "analysis", analysis); ok {
		model.AI = normalize.Analysis(data)
	}
	if data, ok := s.secondary(ctx, matchID, "stats", stats); ok {
		applyStats(&model, data)
	}

	s.loadDependents(ctx, matchID, &model)
	return model, nil
}

func (s *MatchSnapshotService) headerModel(matchID string, header fetchResult) (matchview.MatchViewModel, error) {
	if header.err != nil {
		return matchview.MatchViewModel{}, fmt.Errorf("%w: match %s header: %v", ErrNotFound, matchID, header.err)
	}
	data, err := normalize.DecodeEnvelope(header.raw)
	if err != nil {
		return matchview.MatchViewModel{}, fmt.Errorf("%w: match %s header: %v", ErrNotFound, matchID, err)
	}
	h := normalize.Header(data)
	if !normalize.HasTeams(h) {
		return matchview.MatchViewModel{}, fmt.Errorf("%w: match %s header has no teams", ErrNotFound, matchID)
	}
	if h.ID == "" {
		h.ID = matchID
	}

	return matchview.MatchViewModel{
		Header:     h,
		Events:     []matchview.Event{},
		Lineups:    matchview.EmptyLineups(),
		Standings:  []matchview.Standing{},
		TopPlayers: matchview.EmptyTopPlayers(),
		Next:       matchview.EmptyMatchLists(),
		Last:       matchview.EmptyMatchLists(),
		H2H:        matchview.EmptyMatchLists(),
		AI:         matchview.Analysis{},
	}, nil
}

// applyStats fills statistics, events and lineups from the stats payload.
func applyStats(model *matchview.MatchViewModel, data any) {
	model.Statistics = normalize.Statistics(data)
	model.Events = normalize.Events(lookupAny(data, "events", "timeline"), model.Header.HomeTeam.ID)
	if raw := lookupAny(data, "lineups"); raw != nil {
		model.Lineups = normalize.Lineups(raw)
	}
}

// loadDependents runs the fetches that need the header: league standings and,
// for matches without a lineup yet, both squads for a predicted lineup.
func (s *MatchSnapshotService) loadDependents(ctx context.Context, matchID string, model *matchview.MatchViewModel) {
	var (
		league     fetchResult
		homeSquad  fetchResult
		awaySquad  fetchResult
		leagueID   = model.Header.League.ID
		homeTeamID = model.Header.HomeTeam.ID
		awayTeamID = model.Header.AwayTeam.ID
		predict    = matchview.IsNotStartedStatus(model.Header.Status) && !model.Lineups.HasStarters()
	)

	var wg conc.WaitGroup
	if leagueID != "" {
		wg.Go(func() { league.raw, league.err = s.source.LeagueDetails(ctx, leagueID) })
	}
	if predict && homeTeamID != "" {
		wg.Go(func() { homeSquad.raw, homeSquad.err = s.source.TeamSquad(ctx, homeTeamID) })
	}
	if predict && awayTeamID != "" {
		wg.Go(func() { awaySquad.raw, awaySquad.err = s.source.TeamSquad(ctx, awayTeamID) })
	}
	wg.Wait()

	if leagueID != "" {
		if data, ok := s.secondary(ctx, matchID, "league_details", league); ok {
			details := normalize.ParseLeagueDetails(data)
			model.Standings = details.Standings
			model.TopPlayers = details.TopPlayers
		}
	}
	if !predict {
		return
	}
	if homeTeamID != "" {
		if data, ok := s.secondary(ctx, matchID, "home_squad", homeSquad); ok {
			if squad := normalize.Squad(data); len(squad) > 0 {
				model.Lineups.Home = normalize.PredictedLineup(squad, normalize.DefaultFormation)
			}
		}
	}
	if awayTeamID != "" {
		if data, ok := s.secondary(ctx, matchID, "away_squad", awaySquad); ok {
			if squad := normalize.Squad(data); len(squad) > 0 {
				model.Lineups.Away = normalize.PredictedLineup(squad, normalize.DefaultFormation)
			}
		}
	}
}

// secondary decodes a non-mandatory fetch. Failures are logged and reported as !ok
// so the caller keeps the block default.
func (s *MatchSnapshotService) secondary(ctx context.Context, matchID, block string, res fetchResult) (any, bool) {
	return decodeSecondary(ctx, s.logger, res, "match_id", matchID, "block", block)
}

func decodeSecondary(ctx context.Context, logger *logging.Logger, res fetchResult, fields ...any) (any, bool) {
	if res.err != nil {
		logger.WarnContext(ctx, "secondary fetch failed, using default", append(fields, "error", res.err)...)
		return nil, false
	}
	data, err := normalize.DecodeEnvelope(res.raw)
	if err != nil {
		logger.WarnContext(ctx, "secondary payload rejected, using default", append(fields, "error", err)...)
		return nil, false
	}
	return data, true
}

func lookupAny(v any, keys ...string) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range keys {
		if value, has := obj[key]; has && value != nil {
			return value
		}
	}
	return nil
}
