package event_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"estore/internal/event"
	"estore/internal/infra/repository"
	"estore/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Handleの途中で別インスタンスのdispatcherを回す購読者
type reentrantSub struct {
	calls *int32
	other func()
}

func (s *reentrantSub) Name() string { return "hub" }

func (s *reentrantSub) Handle(_ context.Context, _ event.Event) error {
	atomic.AddInt32(s.calls, 1)
	if s.other != nil {
		s.other()
	}
	return nil
}

func TestDispatcher_TwoInstancesDeliverRowOnce(t *testing.T) {
	gdb := testutil.NewDB(t)
	outbox := repository.NewOutboxGormRepository(gdb)
	ctx := context.Background()

	ev, err := event.NewOutboxEvent(event.TopicOrderCreated, event.IDPayload{ID: 1})
	require.NoError(t, err)
	require.NoError(t, outbox.Create(ctx, ev))

	var calls int32
	b := event.NewDispatcher(outbox, time.Second, 10, 5, &reentrantSub{calls: &calls})

	var bDelivered int
	a := event.NewDispatcher(outbox, time.Second, 10, 5, &reentrantSub{
		calls: &calls,
		other: func() {
			n, err := b.RunOnce(ctx)
			require.NoError(t, err)
			bDelivered = n
		},
	})

	n, err := a.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, bDelivered)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	n, err = b.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
