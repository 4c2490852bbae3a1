package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestTracker(t *testing.T, unlimited bool) (*Tracker, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)}
	tracker := NewTracker(store, NewCapability(unlimited), WithClock(clock.Now))
	return tracker, store, clock
}

func TestTrackerDailyLimit(t *testing.T) {
	ctx := context.Background()
	tracker, store, _ := newTestTracker(t, false)

	assert.True(t, tracker.CanProceed(ctx))
	assert.Equal(t, DailyLimit, tracker.Remaining(ctx))

	for i := 0; i < DailyLimit; i++ {
		require.True(t, tracker.CanProceed(ctx), "scan %d should be allowed", i+1)
		tracker.RecordUsage(ctx)
	}

	assert.False(t, tracker.CanProceed(ctx))
	assert.Equal(t, 0, tracker.Remaining(ctx))

	before, _, _ := store.GetValue(ctx, KeyUsedToday)
	assert.False(t, tracker.CanProceed(ctx))
	after, _, _ := store.GetValue(ctx, KeyUsedToday)
	assert.Equal(t, before, after, "checking the quota must not change state")

	assert.Equal(t, DailyLimit, tracker.TotalUsed(ctx))
}

func TestTrackerRemainingNeverNegative(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t, false)

	for i := 0; i < DailyLimit+2; i++ {
		tracker.RecordUsage(ctx)
	}
	assert.Equal(t, 0, tracker.Remaining(ctx))
	assert.Equal(t, DailyLimit+2, tracker.UsedToday(ctx))
}

func TestTrackerRollover(t *testing.T) {
	ctx := context.Background()

	t.Run("next day resets the counter", func(t *testing.T) {
		tracker, _, clock := newTestTracker(t, false)
		for i := 0; i < DailyLimit; i++ {
			tracker.RecordUsage(ctx)
		}
		require.False(t, tracker.CanProceed(ctx))

		clock.now = clock.now.Add(24 * time.Hour)
		assert.True(t, tracker.CanProceed(ctx))
		assert.Equal(t, DailyLimit, tracker.Remaining(ctx))
		assert.Equal(t, DailyLimit, tracker.TotalUsed(ctx), "lifetime counter is never reset")
	})

	t.Run("stale anchor resets before evaluating", func(t *testing.T) {
		tracker, store, clock := newTestTracker(t, false)
		for i := 0; i < DailyLimit; i++ {
			tracker.RecordUsage(ctx)
		}

		yesterday := clock.now.AddDate(0, 0, -1).Format(dayLayout)
		require.NoError(t, store.SetValue(ctx, KeyDayAnchor, yesterday))

		assert.True(t, tracker.CanProceed(ctx))
		used, _, _ := store.GetValue(ctx, KeyUsedToday)
		assert.Equal(t, "0", used)
		anchor, _, _ := store.GetValue(ctx, KeyDayAnchor)
		assert.Equal(t, clock.now.Format(dayLayout), anchor)
	})

	t.Run("later the same day keeps the counter", func(t *testing.T) {
		tracker, _, clock := newTestTracker(t, false)
		tracker.RecordUsage(ctx)

		clock.now = clock.now.Add(10 * time.Hour)
		assert.Equal(t, DailyLimit-1, tracker.Remaining(ctx))
	})

	t.Run("clock moving backwards does not reset", func(t *testing.T) {
		tracker, _, clock := newTestTracker(t, false)
		tracker.RecordUsage(ctx)

		clock.now = clock.now.AddDate(0, 0, -2)
		assert.Equal(t, DailyLimit-1, tracker.Remaining(ctx))
	})

	t.Run("state survives a new tracker over the same store", func(t *testing.T) {
		tracker, store, clock := newTestTracker(t, false)
		tracker.RecordUsage(ctx)
		tracker.RecordUsage(ctx)

		restarted := NewTracker(store, nil, WithClock(clock.Now))
		assert.Equal(t, DailyLimit-2, restarted.Remaining(ctx))
	})
}

func TestTrackerUnlimited(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t, true)

	for i := 0; i < DailyLimit*2; i++ {
		require.True(t, tracker.CanProceed(ctx))
		tracker.RecordUsage(ctx)
	}
	assert.Equal(t, Unlimited, tracker.Remaining(ctx))
	assert.Equal(t, DailyLimit*2, tracker.TotalUsed(ctx))
}

func TestTrackerCapabilityToggle(t *testing.T) {
	ctx := context.Background()
	capability := NewCapability(false)
	tracker := NewTracker(NewMemoryStore(), capability)

	for i := 0; i < DailyLimit; i++ {
		tracker.RecordUsage(ctx)
	}
	require.False(t, tracker.CanProceed(ctx))

	capability.Set(true)
	assert.True(t, tracker.CanProceed(ctx))

	capability.Set(false)
	assert.False(t, tracker.CanProceed(ctx))
}

type failingStore struct{}

func (failingStore) GetValue(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk unavailable")
}

func (failingStore) SetValue(context.Context, string, string) error {
	return errors.New("disk unavailable")
}

func TestTrackerStoreFailuresDoNotPanic(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(failingStore{}, nil)

	assert.NotPanics(t, func() {
		assert.True(t, tracker.CanProceed(ctx))
		assert.Equal(t, DailyLimit, tracker.Remaining(ctx))
		tracker.RecordUsage(ctx)
	})
}

// flakyAnchorStore fails reads of the day anchor while failAnchor is set.
type flakyAnchorStore struct {
	*MemoryStore
	failAnchor bool
}

func (s *flakyAnchorStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	if s.failAnchor && key == KeyDayAnchor {
		return "", false, errors.New("transient read error")
	}
	return s.MemoryStore.GetValue(ctx, key)
}

func TestTrackerAnchorReadFailureKeepsCount(t *testing.T) {
	ctx := context.Background()
	store := &flakyAnchorStore{MemoryStore: NewMemoryStore()}
	clock := &fakeClock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)}
	tracker := NewTracker(store, nil, WithClock(clock.Now))

	for i := 0; i < DailyLimit; i++ {
		tracker.RecordUsage(ctx)
	}
	require.False(t, tracker.CanProceed(ctx))

	store.failAnchor = true
	assert.False(t, tracker.CanProceed(ctx), "unreadable anchor must not grant a new allowance")
	assert.Equal(t, 0, tracker.Remaining(ctx))

	store.failAnchor = false
	assert.False(t, tracker.CanProceed(ctx))
	assert.Equal(t, DailyLimit, tracker.UsedToday(ctx))

	clock.now = clock.now.AddDate(0, 0, 1)
	assert.True(t, tracker.CanProceed(ctx))
}

func TestTrackerCorruptValue(t *testing.T) {
	ctx := context.Background()
	tracker, store, _ := newTestTracker(t, false)
	require.True(t, tracker.CanProceed(ctx))

	require.NoError(t, store.SetValue(ctx, KeyUsedToday, "not-a-number"))
	assert.Equal(t, DailyLimit, tracker.Remaining(ctx))
}

func TestReviewPrompter(t *testing.T) {
	ctx := context.Background()
	tracker, store, _ := newTestTracker(t, false)
	prompter := NewReviewPrompter(tracker, store)

	for i := 0; i < ReviewMilestone-1; i++ {
		tracker.RecordUsage(ctx)
	}
	assert.False(t, prompter.Due(ctx, "1.0.0"))

	tracker.RecordUsage(ctx)
	assert.True(t, prompter.Due(ctx, "1.0.0"))
	assert.False(t, prompter.Due(ctx, "1.0.0"), "same version is prompted once")
	assert.True(t, prompter.Due(ctx, "1.1.0"))
}
