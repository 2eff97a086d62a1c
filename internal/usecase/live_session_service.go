package usecase

import (
	"context"
	"strings"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// LiveChannelProvider hands out a lease on the shared push connection.
type LiveChannelProvider func() LiveChannel

// LiveSessionObserver is a LiveObserver that also receives the initial snapshot,
// before any live notification.
type LiveSessionObserver interface {
	LiveObserver
	SnapshotLoaded(model matchview.MatchViewModel)
}

// LiveSessionService opens live views: snapshot first, then a merge controller
// seeded with it.
type LiveSessionService struct {
	snapshots *MatchSnapshotService
	channels  LiveChannelProvider
	logger    *logging.Logger
}

func NewLiveSessionService(snapshots *MatchSnapshotService, channels LiveChannelProvider, logger *logging.Logger) *LiveSessionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LiveSessionService{snapshots: snapshots, channels: channels, logger: logger}
}

// Open loads the match snapshot, hands it to the observer and starts a controller
// for it. The caller owns the controller and must Close it.
func (s *LiveSessionService) Open(ctx context.Context, matchID string, observer LiveSessionObserver) (*LiveMergeController, error) {
	matchID = strings.TrimSpace(matchID)
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveSessionService.Open", attribute.String("match.id", matchID))
	defer span.End()

	seed, err := s.snapshots.Load(ctx, matchID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	observer.SnapshotLoaded(seed)

	controller := NewLiveMergeController(matchID, seed, s.channels(), observer, s.logger)
	if err := controller.Start(ctx); err != nil {
		controller.Close()
		recordSpanError(span, err)
		return nil, err
	}
	return controller, nil
}
