package expert

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLazy_RetryAfterFailure(t *testing.T) {
	m := NewMetrics(nil)
	var calls atomic.Int32
	boom := errors.New("ollama unreachable")
	l := NewLazy(func(context.Context) (*Session, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return &Session{}, nil
	}, WithLogger(discardLogger()), WithMetrics(m))

	if l.State() != StateUninitialized {
		t.Fatalf("State() = %v, want UNINITIALIZED", l.State())
	}
	if _, err := l.Get(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want %v", err, boom)
	}
	if l.State() != StateUninitialized {
		t.Errorf("State() after failure = %v, want UNINITIALIZED", l.State())
	}

	s, err := l.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() retry error = %v", err)
	}
	if s.ID == "" {
		t.Error("session should get an id")
	}
	if l.State() != StateReady {
		t.Errorf("State() = %v, want READY", l.State())
	}

	again, _ := l.Get(context.Background())
	if again != s || calls.Load() != 2 {
		t.Errorf("READY session should be reused (builds = %d)", calls.Load())
	}
	if testutil.ToFloat64(m.SessionInit.WithLabelValues("error")) != 1 || testutil.ToFloat64(m.SessionInit.WithLabelValues("ok")) != 1 {
		t.Error("session init metrics should record one failure and one success")
	}
}

func TestLazy_ConcurrentGetBuildsOnce(t *testing.T) {
	var calls atomic.Int32
	l := NewLazy(func(context.Context) (*Session, error) {
		calls.Add(1)
		return &Session{}, nil
	}, WithLogger(discardLogger()))

	var wg sync.WaitGroup
	sessions := make([]*Session, 32)
	for i := range sessions {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessions[i], _ = l.Get(context.Background())
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("builds = %d, want 1", calls.Load())
	}
	for i, s := range sessions {
		if s != sessions[0] {
			t.Fatalf("sessions[%d] differs from sessions[0]", i)
		}
	}
}

func TestLazy_Close(t *testing.T) {
	l := NewReady(&Session{}, WithLogger(discardLogger()))
	if l.State() != StateReady {
		t.Fatalf("State() = %v, want READY", l.State())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if l.State() != StateUninitialized {
		t.Errorf("State() after Close = %v, want UNINITIALIZED", l.State())
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		StateUninitialized: "UNINITIALIZED",
		StateInitializing:  "INITIALIZING",
		StateReady:         "READY",
	} {
		if state.String() != want {
			t.Errorf("%d.String() = %q, want %q", state, state.String(), want)
		}
	}
}
