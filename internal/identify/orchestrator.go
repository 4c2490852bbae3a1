package identify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/imaging"
	"github.com/Veraticus/woodsnap/internal/model"
)

// MaxPhotos is the largest number of photos accepted per identification.
const MaxPhotos = 3

// Config tunes the orchestrator.
type Config struct {
	TargetBytes int
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{TargetBytes: imaging.DefaultTargetBytes}
}

// Dependencies are the collaborators composed by the Orchestrator.
type Dependencies struct {
	Quota        QuotaGate
	Images       ImageCompressor
	Cache        ResultStore
	Connectivity Reachability
	Remote       RemoteIdentifier
	Local        LocalIdentifier
	Logger       *slog.Logger
}

// Orchestrator runs identification requests end to end.
type Orchestrator struct {
	quota        QuotaGate
	images       ImageCompressor
	cache        ResultStore
	connectivity Reachability
	remote       RemoteIdentifier
	local        LocalIdentifier
	logger       *slog.Logger
	targetBytes  int
}

// New creates an orchestrator with the default configuration.
func New(deps Dependencies) *Orchestrator {
	return NewWithConfig(deps, DefaultConfig())
}

// NewWithConfig creates an orchestrator with custom configuration.
func NewWithConfig(deps Dependencies, config Config) *Orchestrator {
	if config.TargetBytes <= 0 {
		config.TargetBytes = imaging.DefaultTargetBytes
	}
	return &Orchestrator{
		quota:        deps.Quota,
		images:       deps.Images,
		cache:        deps.Cache,
		connectivity: deps.Connectivity,
		remote:       deps.Remote,
		local:        deps.Local,
		logger:       common.LoggerOrDefault(deps.Logger),
		targetBytes:  config.TargetBytes,
	}
}

// Identify identifies the wood in one to three photos of the same sample.
//
// Cache hits are free. Every other successful result, including one produced
// by the offline fallback after a remote failure, consumes one scan. When both
// the remote call and the fallback fail the remote error is returned and no
// scan is consumed. Canceling ctx never consumes a scan or writes the cache.
func (o *Orchestrator) Identify(ctx context.Context, photos [][]byte) (model.IdentificationResult, error) {
	if len(photos) == 0 || len(photos) > MaxPhotos {
		return model.IdentificationResult{}, fmt.Errorf("%w: expected 1-%d photos, got %d",
			common.ErrImageProcessingFailed, MaxPhotos, len(photos))
	}

	if !o.quota.CanProceed(ctx) {
		o.logger.Info("identification refused, daily quota exhausted")
		return model.IdentificationResult{}, common.ErrQuotaExceeded
	}

	compressed, err := o.compressAll(photos)
	if err != nil {
		return model.IdentificationResult{}, err
	}

	var fingerprint string
	if len(compressed) == 1 {
		fingerprint = o.images.Fingerprint(compressed[0])
		if matches, hit := o.cache.Get(fingerprint); hit {
			o.logger.Debug("identification served from cache", "fingerprint", fingerprint)
			return model.IdentificationResult{
				Matches:        matches,
				ScansRemaining: o.quota.Remaining(ctx),
			}, nil
		}
	}

	var (
		matches []model.Match
		offline bool
	)

	if o.connectivity.Reachable() {
		matches, err = o.remote.Identify(ctx, compressed)
		if err == nil && len(matches) == 0 {
			err = fmt.Errorf("%w: remote returned no matches", common.ErrMalformedResponse)
		}
		if err != nil {
			if common.IsCancellation(ctx, err) {
				return model.IdentificationResult{}, cancellationError(ctx, err)
			}
			o.logger.Warn("remote identification failed, trying offline model", "error", err)
			matches, offline, err = o.fallbackAfter(ctx, compressed[0], err)
			if err != nil {
				return model.IdentificationResult{}, err
			}
		}
	} else {
		o.logger.Info("remote service unreachable, using offline model")
		matches, err = o.local.Identify(ctx, compressed[0])
		if err != nil {
			if common.IsCancellation(ctx, err) {
				return model.IdentificationResult{}, cancellationError(ctx, err)
			}
			return model.IdentificationResult{}, err
		}
		if len(matches) == 0 {
			return model.IdentificationResult{}, common.NewNetworkError(0, errors.New("remote service unreachable and offline model found no matches"))
		}
		offline = true
	}

	if err := ctx.Err(); err != nil {
		return model.IdentificationResult{}, err
	}

	matches = model.TopMatches(matches)
	o.quota.RecordUsage(ctx)

	if fingerprint != "" && !offline {
		o.cache.Put(fingerprint, matches)
	}

	result := model.IdentificationResult{
		Matches:         matches,
		ScansRemaining:  o.quota.Remaining(ctx),
		IsOfflineResult: offline,
	}
	o.logger.Info("identification complete",
		"photos", len(photos),
		"matches", len(matches),
		"offline", offline,
		"scans_remaining", result.ScansRemaining)
	return result, nil
}

// fallbackAfter attempts the offline model after a failed remote call. The
// original remote error is returned when the fallback cannot help.
func (o *Orchestrator) fallbackAfter(ctx context.Context, photo []byte, remoteErr error) ([]model.Match, bool, error) {
	matches, err := o.local.Identify(ctx, photo)
	switch {
	case err != nil && common.IsCancellation(ctx, err):
		return nil, false, cancellationError(ctx, err)
	case err != nil:
		o.logger.Warn("offline fallback failed", "error", err)
		return nil, false, remoteErr
	case len(matches) == 0:
		o.logger.Warn("offline fallback produced no matches")
		return nil, false, remoteErr
	}
	return matches, true, nil
}

func (o *Orchestrator) compressAll(photos [][]byte) ([][]byte, error) {
	compressed := make([][]byte, 0, len(photos))
	for i, photo := range photos {
		img, err := o.images.Decode(photo)
		if err != nil {
			return nil, processingError(i, err)
		}
		data, err := o.images.Compress(img, o.targetBytes)
		if err != nil {
			return nil, processingError(i, err)
		}
		if len(data) == 0 {
			return nil, processingError(i, errors.New("encoder produced no data"))
		}
		compressed = append(compressed, data)
	}
	return compressed, nil
}

func processingError(index int, err error) error {
	if errors.Is(err, common.ErrImageProcessingFailed) {
		return fmt.Errorf("photo %d: %w", index+1, err)
	}
	return fmt.Errorf("photo %d: %w: %v", index+1, common.ErrImageProcessingFailed, err)
}

func cancellationError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
