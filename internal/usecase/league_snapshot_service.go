package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/goldstats-live/internal/domain/feed"
	"github.com/riskibarqy/goldstats-live/internal/domain/leagueview"
	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/riskibarqy/goldstats-live/internal/normalize"
	"github.com/riskibarqy/goldstats-live/internal/platform/cache"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type LeagueSnapshotService struct {
	source feed.Source
	logger *logging.Logger
	cache  *cache.Store[leagueview.LeagueViewModel]
}

func NewLeagueSnapshotService(source feed.Source, logger *logging.Logger) *LeagueSnapshotService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeagueSnapshotService{source: source, logger: logger}
}

// WithCache keeps loaded league views per league id in store. Failed loads are
// not cached.
func (s *LeagueSnapshotService) WithCache(store *cache.Store[leagueview.LeagueViewModel]) *LeagueSnapshotService {
	s.cache = store
	return s
}

// Load fetches league details, then the fixtures of the current round.
func (s *LeagueSnapshotService) Load(ctx context.Context, leagueID string) (leagueview.LeagueViewModel, error) {
	leagueID = strings.TrimSpace(leagueID)
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueSnapshotService.Load", attribute.String("league.id", leagueID))
	defer span.End()

	if leagueID == "" {
		return leagueview.LeagueViewModel{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}
	if s.cache != nil {
		return s.cache.GetOrLoad(ctx, leagueID, func(ctx context.Context) (leagueview.LeagueViewModel, error) {
			return s.load(ctx, span, leagueID)
		})
	}
	return s.load(ctx, span, leagueID)
}

func (s *LeagueSnapshotService) load(ctx context.Context, span trace.Span, leagueID string) (leagueview.LeagueViewModel, error) {
	raw, err := s.source.LeagueDetails(ctx, leagueID)
	if err != nil {
		err = fmt.Errorf("%w: league %s details: %v", ErrNotFound, leagueID, err)
		recordSpanError(span, err)
		return leagueview.LeagueViewModel{}, err
	}
	data, err := normalize.DecodeEnvelope(raw)
	if err != nil {
		err = fmt.Errorf("%w: league %s details: %v", ErrNotFound, leagueID, err)
		recordSpanError(span, err)
		return leagueview.LeagueViewModel{}, err
	}

	details := normalize.ParseLeagueDetails(data)
	if details.Info.ID == "" {
		details.Info.ID = leagueID
	}

	fixtures := []matchview.MatchSummary{}
	if details.CurrentRoundID != "" {
		res := fetchResult{}
		res.raw, res.err = s.source.RoundFixtures(ctx, leagueID, details.CurrentRoundID)
		if data, ok := decodeSecondary(ctx, s.logger, res, "league_id", leagueID, "round_id", details.CurrentRoundID); ok {
			fixtures = normalize.RoundFixtures(data)
		}
	}

	return normalize.LeagueView(details, fixtures), nil
}
