package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/config"
	"github.com/Veraticus/woodsnap/internal/connectivity"
	"github.com/Veraticus/woodsnap/internal/fallback"
	"github.com/Veraticus/woodsnap/internal/identify"
	"github.com/Veraticus/woodsnap/internal/imaging"
	"github.com/Veraticus/woodsnap/internal/model"
	"github.com/Veraticus/woodsnap/internal/quota"
	"github.com/Veraticus/woodsnap/internal/storage"
	"github.com/Veraticus/woodsnap/internal/vision"
)

// app wires the identification pipeline for one CLI invocation.
type app struct {
	store        *storage.SQLiteStorage
	tracker      *quota.Tracker
	reviews      *quota.ReviewPrompter
	processor    *imaging.Processor
	orchestrator *identify.Orchestrator
	remote       *vision.LimitedIdentifier
	monitor      *connectivity.Monitor
	watcher      *fallback.Watcher
}

type appOptions struct {
	offline bool
	watch   bool
}

// newStore opens the database named by configuration.
func newStore(ctx context.Context) (*config.Settings, *storage.SQLiteStorage, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(ctx, settings.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return settings, store, nil
}

func newTracker(store *storage.SQLiteStorage, capability *quota.Capability) *quota.Tracker {
	return quota.NewTracker(store, capability, quota.WithLogger(slog.Default()))
}

// watchEntitlement keeps capability in sync with entitlement.unlimited while
// the config file changes. It reports false when no config file was read.
func watchEntitlement(v *viper.Viper, capability *quota.Capability) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		unlimited := v.GetBool("entitlement.unlimited")
		capability.Set(unlimited)
		slog.Info("Entitlement updated", "file", e.Name, "unlimited", unlimited)
	})
	v.WatchConfig()
	return true
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	settings, store, err := newStore(ctx)
	if err != nil {
		return nil, err
	}

	capability := quota.NewCapability(settings.Unlimited)
	a := &app{
		store:     store,
		tracker:   newTracker(store, capability),
		processor: imaging.NewProcessor(settings.MaxDimension),
	}
	a.reviews = quota.NewReviewPrompter(a.tracker, store)

	local, err := fallback.NewIdentifierFromFile(settings.FallbackModelPath, slog.Default())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load offline model: %w", err)
	}
	if !local.HasModel() {
		slog.Warn("No offline model installed, offline scans return a placeholder", "path", settings.FallbackModelPath)
	}
	if opts.watch {
		if settings.FallbackModelPath != "" {
			if w, werr := fallback.Watch(settings.FallbackModelPath, local, slog.Default()); werr != nil {
				slog.Warn("Offline model hot reload disabled", "error", werr)
			} else {
				a.watcher = w
			}
		}
		watchEntitlement(viper.GetViper(), capability)
	}

	var reach identify.Reachability = connectivity.Static(false)
	if !opts.offline {
		a.remote, err = vision.NewIdentifier(settings.Vision, slog.Default())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.monitor = connectivity.NewMonitor(settings.ProbeAddress, settings.ProbeInterval,
			connectivity.WithLogger(slog.Default()))
		a.monitor.Start(ctx)
		reach = a.monitor
	}

	var remote identify.RemoteIdentifier = unavailableRemote{}
	if a.remote != nil {
		remote = a.remote
	}

	a.orchestrator = identify.NewWithConfig(identify.Dependencies{
		Quota:        a.tracker,
		Images:       a.processor,
		Cache:        identify.NewCache(settings.CacheCapacity),
		Connectivity: reach,
		Remote:       remote,
		Local:        local,
		Logger:       slog.Default(),
	}, identify.Config{TargetBytes: settings.TargetBytes})

	return a, nil
}

// Identify runs one identification and records it in history.
func (a *app) Identify(ctx context.Context, photos [][]byte) (model.IdentificationResult, *model.ScanRecord, error) {
	result, err := a.orchestrator.Identify(ctx, photos)
	if err != nil {
		return result, nil, err
	}
	if top := result.Top(); top != nil {
		slog.Info("Identified sample",
			"species", top.SpeciesID,
			"confidence", top.Confidence,
			"offline", result.IsOfflineResult)
	}

	scan := &model.ScanRecord{
		Matches:         result.Matches,
		Photo:           photos[0],
		ScansRemaining:  result.ScansRemaining,
		IsOfflineResult: result.IsOfflineResult,
	}
	if err := a.store.SaveScan(ctx, scan); err != nil {
		common.LogError(slog.Default(), err, "failed to save scan", nil)
		return result, nil, nil
	}
	return result, scan, nil
}

// ReviewDue reports whether the one-time review prompt should be shown now.
func (a *app) ReviewDue(ctx context.Context) bool {
	return a.reviews.Due(ctx, version)
}

// Close releases everything newApp opened.
func (a *app) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.monitor != nil {
		a.monitor.Close()
	}
	if a.remote != nil {
		a.remote.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// unavailableRemote stands in for the remote identifier in offline mode.
type unavailableRemote struct{}

func (unavailableRemote) Identify(context.Context, [][]byte) ([]model.Match, error) {
	return nil, common.NewNetworkError(0, errors.New("remote identification disabled"))
}

// readPhotos loads captured photos, reporting unreadable files as a camera
// permission problem.
func readPhotos(paths []string) ([][]byte, error) {
	photos := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- user-supplied photo path
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%s: %w", path, common.ErrCameraPermissionDenied)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read photo: %w", err)
		}
		photos = append(photos, data)
	}
	return photos, nil
}
