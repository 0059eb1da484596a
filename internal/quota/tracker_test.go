package quota

import (
	"errors"
	"sync"
	"testing"
	"time"

	"intake/internal/domain"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 14, 9, 30, 0, 0, time.Local)}
}

func TestCheckBoundary(t *testing.T) {
	c := newClock()
	tr := NewTracker(Options{Now: c.Now})

	for i := 0; i < 44; i++ {
		tr.Increment()
	}
	if err := tr.Check(); err != nil {
		t.Fatalf("44 used: Check returned %v, want allowed", err)
	}

	tr.Increment()
	err := tr.Check()
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("45 used: Check returned %v, want quota exceeded", err)
	}
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("error type = %T", err)
	}
	if exceeded.Usage.Used != 45 || exceeded.Usage.Limit != 45 || exceeded.Usage.Remaining != 0 {
		t.Fatalf("usage = %+v", exceeded.Usage)
	}
	if exceeded.Usage.ResetTime == "" {
		t.Fatalf("reset time missing")
	}
}

func TestUsageSnapshot(t *testing.T) {
	c := newClock()
	tr := NewTracker(Options{Now: c.Now})

	u := tr.Usage()
	if u.Used != 0 || u.Remaining != DefaultSoftLimit || !u.CanMakeRequest {
		t.Fatalf("fresh usage = %+v", u)
	}
	if u.Date != "Fri Mar 14 2025" {
		t.Fatalf("date = %q", u.Date)
	}
	if u.ProviderLimit != DefaultProviderLimit {
		t.Fatalf("provider limit = %d", u.ProviderLimit)
	}

	for i := 0; i < DefaultSoftLimit; i++ {
		tr.Increment()
	}
	u = tr.Usage()
	if u.Used != 45 || u.Remaining != 0 || u.CanMakeRequest {
		t.Fatalf("exhausted usage = %+v", u)
	}
}

func TestDayRollover(t *testing.T) {
	c := newClock()
	tr := NewTracker(Options{SoftLimit: 2, ProviderLimit: 3, Now: c.Now})
	tr.Increment()
	tr.Increment()
	if err := tr.Check(); err == nil {
		t.Fatalf("expected rejection at limit")
	}

	c.Advance(24 * time.Hour)
	if err := tr.Check(); err != nil {
		t.Fatalf("next day Check returned %v", err)
	}
	if got := tr.Usage().Used; got != 0 {
		t.Fatalf("next day used = %d, want 0", got)
	}
	if got := tr.Increment(); got != 1 {
		t.Fatalf("next day Increment = %d, want 1", got)
	}
}

func TestCheckLimitUsesGivenCeiling(t *testing.T) {
	tr := NewTracker(Options{Now: newClock().Now})
	for i := 0; i < 47; i++ {
		tr.Increment()
	}
	if err := tr.CheckLimit(tr.ProviderLimit()); err != nil {
		t.Fatalf("47 used against provider limit: %v", err)
	}
	var exceeded *ExceededError
	if err := tr.CheckLimit(tr.SoftLimit()); !errors.As(err, &exceeded) || exceeded.Usage.Limit != 45 {
		t.Fatalf("soft limit check = %v", err)
	}
}

func TestIncrementIsMonotonicUnderConcurrency(t *testing.T) {
	tr := NewTracker(Options{Now: newClock().Now})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Increment()
		}()
	}
	wg.Wait()
	if got := tr.Usage().Used; got != 100 {
		t.Fatalf("used = %d, want 100", got)
	}
}

func TestResetTimeIsTwentyFourHoursAhead(t *testing.T) {
	now := time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC)
	if got, want := ResetTime(now), "2025-03-15T23:59:00.000Z"; got != want {
		t.Fatalf("ResetTime = %q, want %q", got, want)
	}
}
