package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/region-insights/internal/pkg/distlock"
	"github.com/ignite/region-insights/internal/service/report"
)

type countingPublisher struct {
	calls int32
	days  int32
	err   error
}

func (p *countingPublisher) GenerateAndPublish(_ context.Context, days int) (*report.Report, error) {
	atomic.AddInt32(&p.calls, 1)
	atomic.StoreInt32(&p.days, int32(days))
	if p.err != nil {
		return nil, p.err
	}
	return &report.Report{ID: "r"}, nil
}

func TestReportScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	pub := &countingPublisher{}
	rs := NewReportScheduler(pub, nil, 20*time.Millisecond, 90)

	require.NoError(t, rs.Start(context.Background()))
	assert.Error(t, rs.Start(context.Background()), "double start")

	require.Eventually(t, func() bool { return atomic.LoadInt32(&pub.calls) >= 3 }, 2*time.Second, 5*time.Millisecond)
	rs.Stop()
	rs.Stop()

	assert.Equal(t, int32(90), atomic.LoadInt32(&pub.days))
	runs, skipped, failures := rs.Stats()
	assert.GreaterOrEqual(t, runs, int64(3))
	assert.Zero(t, skipped)
	assert.Zero(t, failures)
}

func TestReportScheduler_StopsWithContext(t *testing.T) {
	pub := &countingPublisher{}
	rs := NewReportScheduler(pub, nil, time.Hour, 30)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, rs.Start(ctx))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&pub.calls) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() { rs.Stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}

func TestReportScheduler_SkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	other := distlock.NewLock(client, nil, ReportLockKey, time.Minute)
	ok, err := other.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	pub := &countingPublisher{}
	rs := NewReportScheduler(pub, distlock.NewLock(client, nil, ReportLockKey, time.Minute), time.Hour, 90)

	assert.False(t, rs.RunOnce(context.Background()))
	assert.Zero(t, atomic.LoadInt32(&pub.calls))

	require.NoError(t, other.Release(context.Background()))
	assert.True(t, rs.RunOnce(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&pub.calls))
	assert.False(t, mr.Exists("lock:"+ReportLockKey), "lock released after the run")

	_, skipped, _ := rs.Stats()
	assert.Equal(t, int64(1), skipped)
}

func TestReportScheduler_CountsFailures(t *testing.T) {
	pub := &countingPublisher{err: errors.New("source down")}
	rs := NewReportScheduler(pub, nil, time.Hour, 90)

	assert.True(t, rs.RunOnce(context.Background()))
	_, _, failures := rs.Stats()
	assert.Equal(t, int64(1), failures)
}
