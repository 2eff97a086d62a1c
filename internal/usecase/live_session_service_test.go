package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/stretchr/testify/mock"
)

type snapshotRecorder struct {
	recordingObserver

	snapMu    sync.Mutex
	snapshots []matchview.MatchViewModel
}

func (o *snapshotRecorder) SnapshotLoaded(model matchview.MatchViewModel) {
	o.snapMu.Lock()
	defer o.snapMu.Unlock()
	o.snapshots = append(o.snapshots, model)
}

func TestLiveSessionService_Open_SeedsControllerWithSnapshot(t *testing.T) {
	t.Parallel()

	snapshots, source := newSnapshotService(t)
	source.On("MatchHeader", mock.Anything, "77").Return([]byte(headerLive), nil).Once()
	source.On("NextMatches", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	source.On("LastMatches", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	source.On("MatchAnalysis", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	source.On("MatchStats", mock.Anything, "77").Return([]byte(statsLive), nil).Once()
	source.On("LeagueDetails", mock.Anything, "8").Return(nil, errors.New("down")).Once()

	channel := newFakeChannel()
	service := NewLiveSessionService(snapshots, func() LiveChannel { return channel }, nil)
	observer := &snapshotRecorder{}

	controller, err := service.Open(context.Background(), "77", observer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer controller.Close()

	if len(observer.snapshots) != 1 || observer.snapshots[0].Header.Status != "2H" {
		t.Fatalf("expected one live snapshot, got %+v", observer.snapshots)
	}
	if controller.State() != LiveStateConnecting {
		t.Fatalf("expected connecting state, got %s", controller.State())
	}
	if len(channel.subscribed) != 1 || channel.subscribed[0] != "77" {
		t.Fatalf("expected subscription to match 77, got %v", channel.subscribed)
	}
}

func TestLiveSessionService_Open_HeaderFailureAcquiresNothing(t *testing.T) {
	t.Parallel()

	snapshots, source := newSnapshotService(t)
	source.On("MatchHeader", mock.Anything, "77").Return(nil, errors.New("down")).Once()
	source.On("NextMatches", mock.Anything, "77").Return(nil, errors.New("down")).Maybe()
	source.On("LastMatches", mock.Anything, "77").Return(nil, errors.New("down")).Maybe()
	source.On("MatchAnalysis", mock.Anything, "77").Return(nil, errors.New("down")).Maybe()
	source.On("MatchStats", mock.Anything, "77").Return(nil, errors.New("down")).Maybe()

	acquired := 0
	service := NewLiveSessionService(snapshots, func() LiveChannel {
		acquired++
		return newFakeChannel()
	}, nil)

	_, err := service.Open(context.Background(), "77", &snapshotRecorder{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if acquired != 0 {
		t.Fatalf("expected no channel lease, got %d", acquired)
	}
}
