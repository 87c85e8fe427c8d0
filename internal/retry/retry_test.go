package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("upstream hiccup")

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		AttemptTimeout: 200 * time.Millisecond,
		InitialBackoff: time.Millisecond,
		Retryable:      func(err error) bool { return errors.Is(err, errFlaky) },
	}
}

func TestRetryableFailuresExhaustAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "", errFlaky
	})

	if calls != 3 {
		t.Errorf("expected exactly 3 invocations, got %d", calls)
	}
	if !errors.Is(err, errFlaky) {
		t.Errorf("expected last error returned, got %v", err)
	}
}

func TestFatalErrorShortCircuits(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "", fatal
	})

	if calls != 1 {
		t.Errorf("fatal error should not retry, got %d invocations", calls)
	}
	if !errors.Is(err, fatal) {
		t.Errorf("expected fatal error, got %v", err)
	}
}

func TestSuccessAfterRetry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errFlaky
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
}

func TestAttemptTimeoutIsRetryable(t *testing.T) {
	p := fastPolicy()
	p.AttemptTimeout = 20 * time.Millisecond

	calls := 0
	got, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want ok", got)
	}
	if calls != 2 {
		t.Errorf("expected retry after timeout, got %d invocations", calls)
	}
}

func TestTimeoutSurfacesAsTimeoutError(t *testing.T) {
	p := fastPolicy()
	p.MaxAttempts = 1
	p.AttemptTimeout = 10 * time.Millisecond

	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if te.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", te.Attempt)
	}
}

func TestObserverSeesEachRetry(t *testing.T) {
	var attempts []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_, _ = Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", errFlaky
	})

	if len(attempts) != 2 {
		t.Fatalf("expected 2 retry notifications, got %d", len(attempts))
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
}

func TestParentCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", errFlaky
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no further attempts after cancellation, got %d", calls)
	}
}

func TestDelayBudgetStopsRetrying(t *testing.T) {
	// Budget is AttemptTimeout*MaxAttempts/2 = 5ms. The first backoff (4ms)
	// fits; the second (8ms) would blow the budget, so the loop must stop
	// after the second attempt instead of sleeping a clamped remainder.
	p := Policy{
		MaxAttempts:    5,
		AttemptTimeout: 2 * time.Millisecond,
		InitialBackoff: 4 * time.Millisecond,
		Retryable:      func(err error) bool { return errors.Is(err, errFlaky) },
	}

	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		return "", errFlaky
	})

	if calls != 2 {
		t.Errorf("expected budget exhaustion after 2 invocations, got %d", calls)
	}
	if !errors.Is(err, errFlaky) {
		t.Errorf("expected last attempt error, got %v", err)
	}
}
