package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/craftlinkhq/craftlink/pkg/models"
)

func TestSweep_NotifiesRequesters(t *testing.T) {
	f := newFakeStore()
	requester := seedPrincipal(f, "requester@example.com")
	f.dueRequests = []*models.Request{
		{RequesterID: requester.ID, Status: models.RequestStatusTimeout},
		{RequesterID: requester.ID, Status: models.RequestStatusTimeout},
	}
	svc, n := newTestService(f, time.Now())

	sweeper := NewSweeper(svc, time.Minute)
	sweeper.Sweep(context.Background())

	require.Eventually(t, func() bool { return n.count() == 2 }, time.Second, 10*time.Millisecond)
}

func TestSweep_NothingDue(t *testing.T) {
	f := newFakeStore()
	svc, n := newTestService(f, time.Now())

	sweeper := NewSweeper(svc, time.Minute)
	sweeper.Sweep(context.Background())

	require.Equal(t, 0, n.count())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFakeStore()
	svc, _ := newTestService(f, time.Now())
	sweeper := NewSweeper(svc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}
