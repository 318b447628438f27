package moxie_test

import (
	"context"
	"errors"
	"testing"
	"time"

	moxie "github.com/moxie-fn/moxie-go"
)

func wakeChannel() (moxie.Waker, chan struct{}) {
	ch := make(chan struct{}, 1)
	return moxie.WakerFunc(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}), ch
}

func awaitWake(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the runtime to be woken")
	}
}

func TestLoadLandsResultThroughStateProtocol(t *testing.T) {
	waker, woken := wakeChannel()
	rt := moxie.NewRuntime(moxie.WithWaker(waker))

	release := make(chan struct{})
	type snapshot struct {
		value int
		done  bool
		err   error
	}
	root := func() snapshot {
		v, done, err := moxie.Load(21, func(_ context.Context, n int) (int, error) {
			<-release
			return n * 2, nil
		})
		return snapshot{value: v, done: done, err: err}
	}

	if got := moxie.RunOnce(rt, root); got.done {
		t.Fatal("task still running, first revision should observe a pending load")
	}

	close(release)
	awaitWake(t, woken)

	got := moxie.RunOnce(rt, root)
	if !got.done || got.value != 42 || got.err != nil {
		t.Fatalf("expected completed load with 42, got %+v", got)
	}
}

func TestLoadReportsTaskError(t *testing.T) {
	waker, woken := wakeChannel()
	rt := moxie.NewRuntime(moxie.WithWaker(waker))

	boom := errors.New("boom")
	root := func() error {
		_, done, err := moxie.LoadOnce(func(context.Context) (int, error) {
			return 0, boom
		})
		if !done {
			return nil
		}
		return err
	}

	moxie.RunOnce(rt, root)
	awaitWake(t, woken)
	if err := moxie.RunOnce(rt, root); !errors.Is(err, boom) {
		t.Fatalf("expected the task's error, got %v", err)
	}
}

func TestLoadCancelledWhenCallsiteAbandoned(t *testing.T) {
	rt := moxie.NewRuntime()
	cancelled := make(chan struct{})

	visit := true
	root := func() bool {
		if !visit {
			return false
		}
		_, done, _ := moxie.LoadOnce(func(ctx context.Context) (int, error) {
			<-ctx.Done()
			close(cancelled)
			return 0, ctx.Err()
		})
		return done
	}

	moxie.RunOnce(rt, root)
	visit = false
	moxie.RunOnce(rt, root) // guard unvisited, evicted, context cancelled

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("abandoning the callsite should cancel the task's context")
	}
}

func TestLoadChangedArgCancelsAndRestarts(t *testing.T) {
	waker, woken := wakeChannel()
	rt := moxie.NewRuntime(moxie.WithWaker(waker))

	cancelled := make(chan struct{})
	arg := "first"
	root := func() (out string) {
		v, done, _ := moxie.Load(arg, func(ctx context.Context, a string) (string, error) {
			if a == "first" {
				<-ctx.Done()
				close(cancelled)
				return "", ctx.Err()
			}
			return a + "!", nil
		})
		if done {
			return v
		}
		return ""
	}

	moxie.RunOnce(rt, root)
	arg = "second"
	moxie.RunOnce(rt, root)

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("changing the arg should cancel the outstanding task")
	}

	awaitWake(t, woken)
	if got := moxie.RunOnce(rt, root); got != "second!" {
		t.Fatalf("expected the replacement task's result, got %q", got)
	}
}
