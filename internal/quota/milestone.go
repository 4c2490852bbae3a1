package quota

import (
	"context"
)

const (
	// ReviewMilestone is the lifetime scan count after which a review prompt becomes due.
	ReviewMilestone = 3

	keyReviewedVersion = "review.last_prompt_version"
)

// ReviewPrompter decides when to ask for an app review, once per released version.
type ReviewPrompter struct {
	tracker *Tracker
	store   Store
}

// NewReviewPrompter creates a prompter backed by the tracker's lifetime counter.
func NewReviewPrompter(tracker *Tracker, store Store) *ReviewPrompter {
	return &ReviewPrompter{tracker: tracker, store: store}
}

// Due reports whether a review prompt should be shown for version. A true
// result is recorded so the same version is never prompted twice.
func (p *ReviewPrompter) Due(ctx context.Context, version string) bool {
	last, ok, err := p.store.GetValue(ctx, keyReviewedVersion)
	if err != nil {
		p.tracker.logger.Warn("failed to read review prompt state", "error", err)
		return false
	}
	if ok && last == version {
		return false
	}
	if p.tracker.TotalUsed(ctx) < ReviewMilestone {
		return false
	}

	if err := p.store.SetValue(ctx, keyReviewedVersion, version); err != nil {
		p.tracker.logger.Warn("failed to record review prompt", "error", err)
		return false
	}
	return true
}
