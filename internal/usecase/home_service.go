package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/goldstats-live/internal/domain/feed"
	"github.com/riskibarqy/goldstats-live/internal/domain/leagueview"
	"github.com/riskibarqy/goldstats-live/internal/normalize"
	"github.com/riskibarqy/goldstats-live/internal/platform/cache"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
)

const homeDateLayout = "2006-01-02"

var errHomeUnavailable = errors.New("home listing unavailable")

type HomeService struct {
	source feed.Source
	logger *logging.Logger
	now    func() time.Time
	cache  *cache.Store[leagueview.HomeListing]
}

func NewHomeService(source feed.Source, logger *logging.Logger) *HomeService {
	if logger == nil {
		logger = logging.Default()
	}
	return &HomeService{source: source, logger: logger, now: time.Now}
}

// ListByDate returns the matches of one day grouped by league. An empty date means
// today (UTC). Remote failures yield an empty listing.
func (s *HomeService) ListByDate(ctx context.Context, date string) (leagueview.HomeListing, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HomeService.ListByDate")
	defer span.End()

	date = strings.TrimSpace(date)
	if date == "" {
		date = s.now().UTC().Format(homeDateLayout)
	}
	if _, err := time.Parse(homeDateLayout, date); err != nil {
		return leagueview.HomeListing{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	var (
		listing leagueview.HomeListing
		err     error
	)
	if s.cache != nil {
		listing, err = s.cache.GetOrLoad(ctx, date, s.fetch(date))
	} else {
		listing, err = s.fetch(date)(ctx)
	}
	if err != nil {
		return leagueview.HomeListing{Date: date, Leagues: []leagueview.LeagueMatches{}}, nil
	}
	return listing, nil
}

// WithCache keeps successful listings per date in store.
func (s *HomeService) WithCache(store *cache.Store[leagueview.HomeListing]) *HomeService {
	s.cache = store
	return s
}

func (s *HomeService) fetch(date string) func(context.Context) (leagueview.HomeListing, error) {
	return func(ctx context.Context) (leagueview.HomeListing, error) {
		res := fetchResult{}
		res.raw, res.err = s.source.Home(ctx, date)
		data, ok := decodeSecondary(ctx, s.logger, res, "date", date, "block", "home")
		if !ok {
			return leagueview.HomeListing{}, errHomeUnavailable
		}
		return normalize.HomeListing(data, date), nil
	}
}
