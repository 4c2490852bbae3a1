package identify

import (
	"context"
	"image"

	"github.com/Veraticus/woodsnap/internal/model"
)

// QuotaGate decides whether a scan may start and counts completed scans.
type QuotaGate interface {
	CanProceed(ctx context.Context) bool
	Remaining(ctx context.Context) int
	RecordUsage(ctx context.Context)
}

// ImageCompressor prepares captured bytes for upload.
type ImageCompressor interface {
	Decode(data []byte) (image.Image, error)
	Compress(img image.Image, targetBytes int) ([]byte, error)
	Fingerprint(data []byte) string
}

// ResultStore caches matches by image fingerprint.
type ResultStore interface {
	Get(fingerprint string) ([]model.Match, bool)
	Put(fingerprint string, matches []model.Match)
}

// RemoteIdentifier identifies species from one to three compressed photos.
type RemoteIdentifier interface {
	Identify(ctx context.Context, images [][]byte) ([]model.Match, error)
}

// LocalIdentifier identifies species from a single compressed photo without network access.
type LocalIdentifier interface {
	Identify(ctx context.Context, image []byte) ([]model.Match, error)
}

// Reachability reports whether the remote service is currently reachable.
type Reachability interface {
	Reachable() bool
}
