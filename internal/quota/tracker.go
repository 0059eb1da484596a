// Package quota tracks successful model invocations per calendar day.
//
// The tracker is volatile and process-local. Check and Increment are separate
// steps so callers can check before a model call and increment only after it
// succeeds; concurrent callers that all pass Check before any of them
// increments may overshoot the limit by the number of calls in flight.
package quota

import (
	"fmt"
	"sync"
	"time"

	"intake/internal/domain"
)

const (
	DefaultSoftLimit     = 45
	DefaultProviderLimit = 50

	// dayKeyLayout mirrors a locale-independent "Mon Jan 02 2006" date string.
	dayKeyLayout = "Mon Jan 02 2006"
	resetWindow  = 24 * time.Hour
)

// Options configures a Tracker.
type Options struct {
	SoftLimit     int
	ProviderLimit int
	Now           func() time.Time
}

// Tracker owns the day -> count mapping. Entries are never pruned.
type Tracker struct {
	mu            sync.Mutex
	counts        map[string]int
	softLimit     int
	providerLimit int
	now           func() time.Time
}

// Usage is a point-in-time snapshot of today's consumption.
type Usage struct {
	Date           string `json:"date"`
	Used           int    `json:"used"`
	Limit          int    `json:"limit"`
	ProviderLimit  int    `json:"providerLimit"`
	Remaining      int    `json:"remaining"`
	CanMakeRequest bool   `json:"canMakeRequest"`
	ResetTime      string `json:"resetTime"`
}

// ExceededError is returned by Check when today's count reached the limit.
type ExceededError struct {
	Usage Usage
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("daily quota of %d requests reached (%d used)", e.Usage.Limit, e.Usage.Used)
}

func (e *ExceededError) Is(target error) bool {
	return target == domain.ErrQuotaExceeded
}

func NewTracker(opts Options) *Tracker {
	soft := opts.SoftLimit
	if soft <= 0 {
		soft = DefaultSoftLimit
	}
	provider := opts.ProviderLimit
	if provider <= 0 {
		provider = DefaultProviderLimit
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		counts:        make(map[string]int),
		softLimit:     soft,
		providerLimit: provider,
		now:           now,
	}
}

// SoftLimit is the threshold at which Check starts rejecting.
func (t *Tracker) SoftLimit() int {
	return t.softLimit
}

// ProviderLimit is the upstream provider's hard daily limit.
func (t *Tracker) ProviderLimit() int {
	return t.providerLimit
}

// Check rejects when today's count is at or above the soft limit.
func (t *Tracker) Check() error {
	return t.CheckLimit(t.softLimit)
}

// CheckLimit rejects when today's count is at or above limit.
func (t *Tracker) CheckLimit(limit int) error {
	now := t.now()
	t.mu.Lock()
	used := t.countLocked(now)
	t.mu.Unlock()
	if used >= limit {
		usage := t.snapshot(now, used)
		usage.Limit = limit
		usage.Remaining = 0
		usage.CanMakeRequest = false
		return &ExceededError{Usage: usage}
	}
	return nil
}

// Increment records one successful invocation for today and returns the new count.
func (t *Tracker) Increment() int {
	key := dayKey(t.now())
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[key]++
	return t.counts[key]
}

// Usage reports today's consumption against the soft limit.
func (t *Tracker) Usage() Usage {
	now := t.now()
	t.mu.Lock()
	used := t.countLocked(now)
	t.mu.Unlock()
	return t.snapshot(now, used)
}

// countLocked lazily creates today's entry; a new day starts at zero.
func (t *Tracker) countLocked(now time.Time) int {
	key := dayKey(now)
	used, ok := t.counts[key]
	if !ok {
		t.counts[key] = 0
	}
	return used
}

func (t *Tracker) snapshot(now time.Time, used int) Usage {
	return Usage{
		Date:           dayKey(now),
		Used:           used,
		Limit:          t.softLimit,
		ProviderLimit:  t.providerLimit,
		Remaining:      max(0, t.softLimit-used),
		CanMakeRequest: used < t.softLimit,
		ResetTime:      ResetTime(now),
	}
}

// ResetTime approximates the reset as 24 hours from now, not the next midnight.
func ResetTime(now time.Time) string {
	return now.Add(resetWindow).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func dayKey(now time.Time) string {
	return now.Local().Format(dayKeyLayout)
}
