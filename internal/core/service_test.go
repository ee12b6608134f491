package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Cypherspark/notify-gateway/internal/core"
	"github.com/Cypherspark/notify-gateway/internal/redisstore"
	"github.com/Cypherspark/notify-gateway/internal/worker"
)

// manualRunner queues submitted tasks and runs them only when the test says
// so, making the pending window observable.
type manualRunner struct {
	mu    sync.Mutex
	tasks []func(ctx context.Context)
}

func (r *manualRunner) Submit(task func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *manualRunner) drain() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()
	for _, task := range tasks {
		task(context.Background())
	}
}

type stubSender struct {
	err error
}

func (s *stubSender) Send(context.Context, core.Channel, int64, string) error {
	return s.err
}

func newEngine(t *testing.T, snd core.Sender) (*core.Service, *redisstore.Memory, *manualRunner) {
	t.Helper()
	store := redisstore.NewMemory()
	runner := &manualRunner{}
	svc := core.NewService(store, snd, runner, zerolog.Nop(), time.Hour)
	return svc, store, runner
}

func TestDispatchLifecycle_PendingThenSent(t *testing.T) {
	svc, _, runner := newEngine(t, &stubSender{})

	rec, err := svc.Dispatch(context.Background(), 1, "hi", core.ChannelTelegram)
	require.NoError(t, err)
	require.Equal(t, core.StatusPending, rec.Status)

	// Before the runner executes, the record is visible as pending.
	records, err := svc.List(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, core.StatusPending, records[0].Status)
	require.Nil(t, records[0].SentAt)

	runner.drain()

	records, err = svc.List(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, records, 1, "transition overwrites the same key")
	require.Equal(t, core.StatusSent, records[0].Status)
	require.NotNil(t, records[0].SentAt)
	require.True(t, records[0].SentAt.After(records[0].CreatedAt))
}

func TestDispatchLifecycle_SenderErrorMarksFailed(t *testing.T) {
	svc, _, runner := newEngine(t, &stubSender{err: errors.New("channel down")})

	_, err := svc.Dispatch(context.Background(), 2, "hi", core.ChannelEmail)
	require.NoError(t, err, "acceptance is optimistic regardless of outcome")

	runner.drain()

	records, err := svc.List(context.Background(), 2, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, core.StatusFailed, records[0].Status)
	require.Nil(t, records[0].SentAt, "sent_at only accompanies sent")
}

func TestDispatchMultipleRecordsNewestFirst(t *testing.T) {
	svc, _, runner := newEngine(t, &stubSender{})

	first, err := svc.Dispatch(context.Background(), 3, "first", core.ChannelTelegram)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // distinct created_at, distinct keys
	second, err := svc.Dispatch(context.Background(), 3, "second", core.ChannelTelegram)
	require.NoError(t, err)
	require.NotEqual(t, first.Key(), second.Key())

	runner.drain()

	records, err := svc.List(context.Background(), 3, "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "second", records[0].Message)
	require.Equal(t, "first", records[1].Message)
	for _, rec := range records {
		require.Equal(t, core.StatusSent, rec.Status)
	}
}

func TestListStatusFilter(t *testing.T) {
	svc, _, runner := newEngine(t, &stubSender{})

	_, err := svc.Dispatch(context.Background(), 4, "hi", core.ChannelTelegram)
	require.NoError(t, err)

	pending, err := svc.List(context.Background(), 4, core.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	runner.drain()

	pending, err = svc.List(context.Background(), 4, core.StatusPending)
	require.NoError(t, err)
	require.Empty(t, pending)

	sent, err := svc.List(context.Background(), 4, core.StatusSent)
	require.NoError(t, err)
	require.Len(t, sent, 1)
}

func TestListSkipsCorruptRecords(t *testing.T) {
	svc, store, runner := newEngine(t, &stubSender{})

	_, err := svc.Dispatch(context.Background(), 5, "well-formed", core.ChannelEmail)
	require.NoError(t, err)
	runner.drain()

	// A record missing its message should be dropped, not break the listing.
	corrupt := core.NewNotificationRecord(5, "x", core.ChannelEmail)
	h := corrupt.Hash()
	delete(h, "message")
	require.NoError(t, store.WriteFields(context.Background(), "notification:5:999", h))

	records, err := svc.List(context.Background(), 5, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "well-formed", records[0].Message)
}

func TestUserStatusSummaryFollowsTerminalState(t *testing.T) {
	svc, _, runner := newEngine(t, &stubSender{})

	_, err := svc.Dispatch(context.Background(), 6, "hi", core.ChannelTelegram)
	require.NoError(t, err)

	// No summary until a terminal transition happens.
	_, err = svc.UserStatusFor(context.Background(), 6)
	require.ErrorIs(t, err, core.ErrNoData)

	runner.drain()

	us, err := svc.UserStatusFor(context.Background(), 6)
	require.NoError(t, err)
	require.Equal(t, int64(6), us.UserID)
	require.Equal(t, core.StatusSent, us.Status)
	require.Equal(t, core.ChannelTelegram, us.Channel)
}

func TestDispatchValidation(t *testing.T) {
	svc, _, _ := newEngine(t, &stubSender{})

	_, err := svc.Dispatch(context.Background(), -1, "hi", core.ChannelTelegram)
	require.ErrorIs(t, err, core.ErrInvalidUserID)

	_, err = svc.Dispatch(context.Background(), 1, "", core.ChannelTelegram)
	require.ErrorIs(t, err, core.ErrInvalidMessage)

	long := make([]rune, 1001)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Dispatch(context.Background(), 1, string(long), core.ChannelTelegram)
	require.ErrorIs(t, err, core.ErrInvalidMessage)

	_, err = svc.Dispatch(context.Background(), 1, "hi", core.Channel("sms"))
	require.ErrorIs(t, err, core.ErrInvalidChannel)

	_, err = svc.List(context.Background(), 0, "")
	require.ErrorIs(t, err, core.ErrInvalidUserID)
}

type fullRunner struct{}

func (fullRunner) Submit(func(ctx context.Context)) error { return worker.ErrQueueFull }

func TestDispatchSurfacesQueueBackpressure(t *testing.T) {
	store := redisstore.NewMemory()
	svc := core.NewService(store, &stubSender{}, fullRunner{}, zerolog.Nop(), 0)

	_, err := svc.Dispatch(context.Background(), 7, "hi", core.ChannelTelegram)
	require.ErrorIs(t, err, worker.ErrQueueFull)

	// The pending record was persisted before submission failed.
	records, listErr := svc.List(context.Background(), 7, "")
	require.NoError(t, listErr)
	require.Len(t, records, 1)
	require.Equal(t, core.StatusPending, records[0].Status)
}

// blockingSender never completes on its own; only the task deadline ends it.
type blockingSender struct{}

func (blockingSender) Send(ctx context.Context, _ core.Channel, _ int64, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

// strictStore refuses writes on an expired context, the way a real client
// does.
type strictStore struct{ *redisstore.Memory }

func (s strictStore) WriteFields(ctx context.Context, key string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", redisstore.ErrUnavailable, err)
	}
	return s.Memory.WriteFields(ctx, key, fields)
}

func TestDeliveryTimeoutStillPersistsFailed(t *testing.T) {
	store := strictStore{redisstore.NewMemory()}
	pool := worker.NewPool(zerolog.Nop(), worker.Options{
		QueueSize:   4,
		Concurrency: 1,
		TaskTimeout: 20 * time.Millisecond,
	})
	defer pool.Close()

	svc := core.NewService(store, blockingSender{}, pool, zerolog.Nop(), time.Hour)

	_, err := svc.Dispatch(context.Background(), 8, "hi", core.ChannelTelegram)
	require.NoError(t, err)

	// The send is aborted by the per-task deadline; the record must still
	// reach a persisted terminal state instead of sticking at pending.
	require.Eventually(t, func() bool {
		records, err := svc.List(context.Background(), 8, core.StatusFailed)
		return err == nil && len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	records, err := svc.List(context.Background(), 8, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Nil(t, records[0].SentAt)

	us, err := svc.UserStatusFor(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, core.StatusFailed, us.Status)
}

type downStore struct{ *redisstore.Memory }

func (downStore) ScanKeys(context.Context, string) ([]string, error) {
	return nil, redisstore.ErrUnavailable
}

func TestListPropagatesStoreOutage(t *testing.T) {
	svc := core.NewService(downStore{redisstore.NewMemory()}, &stubSender{}, &manualRunner{}, zerolog.Nop(), 0)

	_, err := svc.List(context.Background(), 1, "")
	require.ErrorIs(t, err, redisstore.ErrUnavailable)
}
