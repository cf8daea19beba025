package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()
	var calls int32
	s.AddJob("ok", time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	boom := errors.New("boom")
	s.AddJob("fails", time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return boom
	})

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"ok", "fails"}, s.Jobs())
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler()
	ran := make(chan struct{}, 1)
	s.AddJob("tick", time.Hour, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	var skipped int32
	s.Register(Job{Name: "later", Interval: time.Hour, SkipInitialRun: true, Fn: func(ctx context.Context) error {
		atomic.AddInt32(&skipped, 1)
		return nil
	}})

	s.Start()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
	assert.Equal(t, int32(0), atomic.LoadInt32(&skipped))
}

func TestScheduler_PanicIsContained(t *testing.T) {
	s := NewScheduler()
	assert.NotPanics(t, func() {
		s.executeJob(Job{Name: "panics", Fn: func(ctx context.Context) error { panic("bad") }})
	})
}
