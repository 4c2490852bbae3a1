package fallback

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/imaging"
	"github.com/Veraticus/woodsnap/internal/model"
)

// Placeholder result values returned when no model is installed.
const (
	PlaceholderSpeciesID      = "unknown-offline"
	PlaceholderCommonName     = "Unknown (Offline)"
	PlaceholderScientificName = "—"
	PlaceholderConfidence     = 0.3
	placeholderNote           = "Offline model not installed. Results are placeholders."
)

// Identifier is the local best-effort identifier. It is safe for concurrent use
// and its model may be swapped at any time.
type Identifier struct {
	model     *PrototypeModel
	processor *imaging.Processor
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewIdentifier creates an Identifier with an optional initial model.
func NewIdentifier(m *PrototypeModel, logger *slog.Logger) *Identifier {
	return &Identifier{
		model:     m,
		processor: imaging.NewProcessor(0),
		logger:    common.LoggerOrDefault(logger),
	}
}

// NewIdentifierFromFile loads the model at path. A missing file yields an
// Identifier in placeholder mode; any other load failure is returned.
func NewIdentifierFromFile(path string, logger *slog.Logger) (*Identifier, error) {
	id := NewIdentifier(nil, logger)
	if path == "" {
		return id, nil
	}
	if err := id.Reload(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return id, nil
}

// Reload replaces the model with the one stored at path. On failure the
// current model is kept.
func (i *Identifier) Reload(path string) error {
	m, err := LoadModel(path)
	if err != nil {
		return err
	}
	i.SetModel(m)
	i.logger.Info("loaded offline model", "path", path, "version", m.Version, "species", len(m.Prototypes))
	return nil
}

// SetModel installs m; nil switches to placeholder mode.
func (i *Identifier) SetModel(m *PrototypeModel) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.model = m
}

// HasModel reports whether a real model is installed.
func (i *Identifier) HasModel() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.model != nil
}

// Identify ranks species for one photo. Without a model it returns the single
// placeholder match; undecodable bytes fail with common.ErrImageProcessingFailed.
func (i *Identifier) Identify(ctx context.Context, photo []byte) ([]model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	m := i.model
	i.mu.RUnlock()

	if m == nil {
		i.logger.Debug("offline model not installed, returning placeholder")
		return []model.Match{Placeholder()}, nil
	}

	img, err := i.processor.Decode(photo)
	if err != nil {
		return nil, err
	}

	matches := m.Classify(img)
	i.logger.Debug("offline identification complete", "matches", len(matches))
	return matches, nil
}

// Placeholder returns the generic match produced when no model is installed.
func Placeholder() model.Match {
	return model.Match{
		ID:             uuid.NewString(),
		SpeciesID:      PlaceholderSpeciesID,
		CommonName:     PlaceholderCommonName,
		ScientificName: PlaceholderScientificName,
		Confidence:     PlaceholderConfidence,
		Properties:     map[string]string{"note": placeholderNote},
		SimilarSpecies: []string{"White Oak", "Red Oak", "Hard Maple"},
	}
}
