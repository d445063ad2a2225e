package embedding

import (
	"testing"
	"time"
)

// testBreaker returns a breaker with a short cooldown so half-open
// transitions don't slow the suite down.
func testBreaker(failures, successes int, cooldown time.Duration) *breaker {
	return &breaker{
		state:            stateClosed,
		failureThreshold: failures,
		successThreshold: successes,
		cooldown:         cooldown,
	}
}

func TestBreaker_StartsClosed(t *testing.T) {
	t.Parallel()

	b := newBreaker()
	if b.current() != stateClosed {
		t.Error("new breaker should start closed")
	}
	if !b.allow() {
		t.Error("closed breaker should allow requests")
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	b := testBreaker(3, 2, time.Minute)

	b.failure()
	b.failure()
	if b.current() != stateClosed {
		t.Error("should remain closed below the failure threshold")
	}

	b.failure()
	if b.current() != stateOpen {
		t.Error("should open at the failure threshold")
	}
	if b.allow() {
		t.Error("open breaker should not allow requests")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := testBreaker(3, 2, time.Minute)

	b.failure()
	b.failure()
	b.success()

	b.failure()
	b.failure()
	if b.current() != stateClosed {
		t.Error("failure count should reset after a success")
	}
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	t.Parallel()

	b := testBreaker(1, 2, 20*time.Millisecond)

	b.failure()
	if b.current() != stateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(30 * time.Millisecond)

	if !b.allow() {
		t.Error("allow() should pass a probe after the cooldown")
	}
	if b.current() != stateHalfOpen {
		t.Error("breaker should be half-open after the cooldown probe")
	}
}

func TestBreaker_HalfOpenCloses(t *testing.T) {
	t.Parallel()

	b := testBreaker(1, 2, 20*time.Millisecond)
	b.failure()
	time.Sleep(30 * time.Millisecond)
	_ = b.allow()

	b.success()
	if b.current() != stateHalfOpen {
		t.Error("one probe success should keep the breaker half-open")
	}
	b.success()
	if b.current() != stateClosed {
		t.Error("reaching the success threshold should close the breaker")
	}
}

func TestBreaker_HalfOpenReopens(t *testing.T) {
	t.Parallel()

	b := testBreaker(1, 2, 20*time.Millisecond)
	b.failure()
	time.Sleep(30 * time.Millisecond)
	_ = b.allow()

	b.failure()
	if b.current() != stateOpen {
		t.Error("a failed probe should reopen the breaker immediately")
	}
}

func TestBreakerState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state breakerState
		want  string
	}{
		{state: stateClosed, want: "closed"},
		{state: stateOpen, want: "open"},
		{state: stateHalfOpen, want: "half-open"},
		{state: breakerState(42), want: "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
