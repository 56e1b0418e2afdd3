package orchestrator

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSupervisor struct {
	started chan struct{}
	err     error
}

func (f *fakeSupervisor) Run(ctx context.Context) error {
	close(f.started)
	<-ctx.Done()
	return f.err
}

func TestRun_StartsAllAndReturnsAfterCancel(t *testing.T) {
	a := &fakeSupervisor{started: make(chan struct{})}
	b := &fakeSupervisor{started: make(chan struct{})}
	o := New(log.Default(), a, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()

	<-a.started
	<-b.started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}
}

func TestStop_CancelsRunningOrchestrator(t *testing.T) {
	a := &fakeSupervisor{started: make(chan struct{})}
	o := New(nil, a)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()

	<-a.started
	o.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cause Run to return")
	}
}

func TestStop_BeforeRunIsNoop(t *testing.T) {
	o := New(nil)
	assert.NotPanics(t, func() { o.Stop() })
}

func TestRun_ReturnsErrorWhenASupervisorStopsWithError(t *testing.T) {
	stopErr := assert.AnError
	a := &fakeSupervisor{started: make(chan struct{}), err: stopErr}
	b := &fakeSupervisor{started: make(chan struct{})}
	o := New(log.Default(), a, b)

	ctx, cancel := context.WithCancel(context.Background())
	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = o.Run(ctx)
		close(done)
	}()

	<-a.started
	<-b.started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}
	assert.ErrorIs(t, runErr, stopErr)
}

func TestRun_NoErrorOnCleanStop(t *testing.T) {
	a := &fakeSupervisor{started: make(chan struct{})}
	o := New(log.Default(), a)

	ctx, cancel := context.WithCancel(context.Background())
	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = o.Run(ctx)
		close(done)
	}()

	<-a.started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}
	assert.NoError(t, runErr)
}
