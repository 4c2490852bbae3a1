package quota

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/Veraticus/woodsnap/internal/common"
)

const (
	// DailyLimit is the number of identifications allowed per calendar day.
	DailyLimit = 3
	// Unlimited is reported by Remaining for callers holding the capability.
	Unlimited = math.MaxInt

	dayLayout = "2006-01-02"
)

// Keys used in the backing store.
const (
	KeyUsedToday = "quota.scan_count"
	KeyDayAnchor = "quota.scan_date"
	KeyTotalUsed = "quota.total_scan_count"
)

// Tracker enforces the daily identification allowance.
type Tracker struct {
	store       Store
	entitlement Entitlement
	logger      *slog.Logger
	now         func() time.Time
	mu          sync.Mutex
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger used to report store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a Tracker over store. A nil entitlement never grants unlimited use.
func NewTracker(store Store, entitlement Entitlement, opts ...Option) *Tracker {
	if entitlement == nil {
		entitlement = EntitlementFunc(func() bool { return false })
	}
	t := &Tracker{
		store:       store,
		entitlement: entitlement,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = common.LoggerOrDefault(t.logger)
	return t
}

// CanProceed reports whether another identification may start.
func (t *Tracker) CanProceed(ctx context.Context) bool {
	if t.entitlement.Unlimited() {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(ctx)
	return t.readInt(ctx, KeyUsedToday) < DailyLimit
}

// Remaining returns how many identifications are left today.
func (t *Tracker) Remaining(ctx context.Context) int {
	if t.entitlement.Unlimited() {
		return Unlimited
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(ctx)
	return max(0, DailyLimit-t.readInt(ctx, KeyUsedToday))
}

// RecordUsage counts one completed identification. Each call counts once.
func (t *Tracker) RecordUsage(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(ctx)
	t.writeInt(ctx, KeyUsedToday, t.readInt(ctx, KeyUsedToday)+1)
	t.writeInt(ctx, KeyTotalUsed, t.readInt(ctx, KeyTotalUsed)+1)
}

// TotalUsed returns the lifetime identification count.
func (t *Tracker) TotalUsed(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readInt(ctx, KeyTotalUsed)
}

// UsedToday returns the count for the current day after rollover.
func (t *Tracker) UsedToday(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(ctx)
	return t.readInt(ctx, KeyUsedToday)
}

// rollover resets the day counter when the anchor is absent or earlier than
// today. An unreadable anchor leaves the counter alone. Callers must hold t.mu.
func (t *Tracker) rollover(ctx context.Context) {
	today := t.today()

	raw, ok, err := t.store.GetValue(ctx, KeyDayAnchor)
	if err != nil {
		t.logger.Warn("failed to read quota day anchor", "error", err)
		return
	}

	if ok {
		anchor, parseErr := time.ParseInLocation(dayLayout, raw, today.Location())
		if parseErr == nil && !today.After(anchor) {
			return
		}
	}

	t.writeInt(ctx, KeyUsedToday, 0)
	if err := t.store.SetValue(ctx, KeyDayAnchor, today.Format(dayLayout)); err != nil {
		t.logger.Warn("failed to write quota day anchor", "error", err)
	}
}

func (t *Tracker) today() time.Time {
	now := t.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func (t *Tracker) readInt(ctx context.Context, key string) int {
	raw, ok, err := t.store.GetValue(ctx, key)
	if err != nil {
		t.logger.Warn("failed to read quota value", "key", key, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		t.logger.Warn("ignoring corrupt quota value", "key", key, "value", raw)
		return 0
	}
	return v
}

func (t *Tracker) writeInt(ctx context.Context, key string, v int) {
	if err := t.store.SetValue(ctx, key, strconv.Itoa(v)); err != nil {
		t.logger.Warn("failed to write quota value", "key", key, "error", err)
	}
}
