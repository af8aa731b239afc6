package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"estore/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====
// mocks
// =====

type mockOutbox struct {
	mock.Mock
}

func (m *mockOutbox) Create(ctx context.Context, e model.OutboxEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockOutbox) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxEvent, error) {
	args := m.Called(ctx, limit, lease)
	rows, _ := args.Get(0).([]model.OutboxEvent)
	return rows, args.Error(1)
}

func (m *mockOutbox) MarkDone(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutbox) MarkAttemptFailed(ctx context.Context, id string, lastErr string, maxAttempts int) error {
	return m.Called(ctx, id, lastErr, maxAttempts).Error(0)
}

type recordingSub struct {
	mu   sync.Mutex
	name string
	err  error
	got  []Event
}

func (s *recordingSub) Name() string { return s.name }

func (s *recordingSub) Handle(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
	return s.err
}

func (s *recordingSub) events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.got...)
}

func pending(t *testing.T, topic string, payload interface{}) model.OutboxEvent {
	t.Helper()
	ev, err := NewOutboxEvent(topic, payload)
	require.NoError(t, err)
	return ev
}

// =====
// tests
// =====

func TestNewOutboxEvent(t *testing.T) {
	ev := pending(t, TopicStatusChanged, StatusChangedPayload{OrderID: 7, Status: 4, StatusName: "Shipping"})

	assert.Len(t, ev.ID, 36)
	assert.Equal(t, model.OutboxStatusPending, ev.Status)
	assert.JSONEq(t, `{"order_id":7,"status":4,"status_name":"Shipping"}`, ev.Payload)
}

func TestDispatcher_RunOnce_DeliversToAllAndMarksDone(t *testing.T) {
	ob := new(mockOutbox)
	hub := &recordingSub{name: "hub"}
	bridge := &recordingSub{name: "redis"}
	d := NewDispatcher(ob, time.Second, 10, 3, hub, bridge)

	e1 := pending(t, TopicCategoryCreated, IDPayload{ID: 1})
	e2 := pending(t, TopicProductDeleted, IDPayload{ID: 2})

	ob.On("ClaimPending", mock.Anything, 10, 30*time.Second).Return([]model.OutboxEvent{e1, e2}, nil).Once()
	ob.On("MarkDone", mock.Anything, e1.ID).Return(nil).Once()
	ob.On("MarkDone", mock.Anything, e2.ID).Return(nil).Once()

	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, hub.events(), 2)
	require.Len(t, bridge.events(), 2)
	assert.Equal(t, TopicCategoryCreated, hub.events()[0].Topic)
	assert.JSONEq(t, `{"id":2}`, string(hub.events()[1].Payload))
	ob.AssertExpectations(t)
}

func TestDispatcher_RunOnce_FailedDeliveryRecordsAttempt(t *testing.T) {
	ob := new(mockOutbox)
	ok := &recordingSub{name: "hub"}
	bad := &recordingSub{name: "redis", err: errors.New("down")}
	d := NewDispatcher(ob, time.Second, 10, 5, ok, bad)

	e := pending(t, TopicOrderCreated, IDPayload{ID: 9})
	ob.On("ClaimPending", mock.Anything, 10, 30*time.Second).Return([]model.OutboxEvent{e}, nil).Once()
	ob.On("MarkAttemptFailed", mock.Anything, e.ID, "redis: down", 5).Return(nil).Once()

	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	ob.AssertNotCalled(t, "MarkDone", mock.Anything, mock.Anything)
	ob.AssertExpectations(t)
}

func TestDispatcher_RunOnce_ListError(t *testing.T) {
	ob := new(mockOutbox)
	d := NewDispatcher(ob, time.Second, 10, 5)
	ob.On("ClaimPending", mock.Anything, 10, 30*time.Second).Return(nil, errors.New("db down")).Once()

	_, err := d.RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestDispatcher_Drain(t *testing.T) {
	ob := new(mockOutbox)
	sub := &recordingSub{name: "hub"}
	d := NewDispatcher(ob, time.Second, 1, 5, sub)

	e1 := pending(t, TopicOrderUpdated, IDPayload{ID: 1})
	e2 := pending(t, TopicOrderUpdated, IDPayload{ID: 2})
	ob.On("ClaimPending", mock.Anything, 1, 30*time.Second).Return([]model.OutboxEvent{e1}, nil).Once()
	ob.On("ClaimPending", mock.Anything, 1, 30*time.Second).Return([]model.OutboxEvent{e2}, nil).Once()
	ob.On("ClaimPending", mock.Anything, 1, 30*time.Second).Return([]model.OutboxEvent{}, nil).Once()
	ob.On("MarkDone", mock.Anything, mock.Anything).Return(nil)

	n, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, sub.events(), 2)
}

func TestDispatcher_StartAndStop(t *testing.T) {
	ob := new(mockOutbox)
	sub := &recordingSub{name: "hub"}
	d := NewDispatcher(ob, 10*time.Millisecond, 10, 5, sub)

	e := pending(t, TopicMemberUpdated, IDPayload{ID: 3})
	ob.On("ClaimPending", mock.Anything, 10, 30*time.Second).Return([]model.OutboxEvent{e}, nil).Once()
	ob.On("ClaimPending", mock.Anything, 10, 30*time.Second).Return([]model.OutboxEvent{}, nil)
	ob.On("MarkDone", mock.Anything, e.ID).Return(nil).Once()

	stop := d.Start(context.Background())
	assert.Eventually(t, func() bool { return len(sub.events()) == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
}
