package fallback

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/imaging"
	"github.com/Veraticus/woodsnap/internal/model"
)

const (
	sampleDimension = 64
	maxDistance     = 441.6729559300637 // sqrt(3 * 255^2)
)

// Prototype is the characteristic surface colour of one species.
type Prototype struct {
	SpeciesID string     `json:"speciesId"`
	Color     [3]float64 `json:"color"`
}

// PrototypeModel ranks species by how close a photo's mean colour is to each prototype.
type PrototypeModel struct {
	Version    string      `json:"version"`
	Prototypes []Prototype `json:"prototypes"`
}

// ParseModel decodes and validates a prototype model document.
func ParseModel(data []byte) (*PrototypeModel, error) {
	var m PrototypeModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode fallback model: %v", common.ErrInvalidConfig, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadModel reads a prototype model from path.
func LoadModel(path string) (*PrototypeModel, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- model path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback model: %w", err)
	}
	return ParseModel(data)
}

// Validate checks every prototype is labelled and in RGB range.
func (m *PrototypeModel) Validate() error {
	if len(m.Prototypes) == 0 {
		return fmt.Errorf("%w: fallback model has no prototypes", common.ErrInvalidConfig)
	}
	for i, p := range m.Prototypes {
		if p.SpeciesID == "" {
			return fmt.Errorf("%w: prototype %d has no species id", common.ErrInvalidConfig, i)
		}
		for _, c := range p.Color {
			if c < 0 || c > 255 || math.IsNaN(c) {
				return fmt.Errorf("%w: prototype %s colour out of range", common.ErrInvalidConfig, p.SpeciesID)
			}
		}
	}
	return nil
}

// Classify returns up to model.MaxMatches species ordered by decreasing confidence.
func (m *PrototypeModel) Classify(img image.Image) []model.Match {
	mean := MeanColor(img)

	type scored struct {
		speciesID string
		distance  float64
	}
	ranked := make([]scored, 0, len(m.Prototypes))
	for _, p := range m.Prototypes {
		ranked = append(ranked, scored{speciesID: p.SpeciesID, distance: colorDistance(mean, p.Color)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})

	matches := make([]model.Match, 0, model.MaxMatches)
	for _, r := range ranked {
		if len(matches) == model.MaxMatches {
			break
		}
		s := resolve(r.speciesID)
		matches = append(matches, model.Match{
			ID:             uuid.NewString(),
			SpeciesID:      s.ID,
			CommonName:     s.CommonName,
			ScientificName: s.ScientificName,
			Confidence:     model.ClampConfidence(1 - r.distance/maxDistance),
			Properties:     map[string]string{"source": "offline"},
			SimilarSpecies: []string{},
		})
	}
	return matches
}

// MeanColor averages img in 8-bit RGB over a small downsampled copy.
func MeanColor(img image.Image) [3]float64 {
	sample := imaging.Downsample(img, sampleDimension)
	b := sample.Bounds()
	pixels := float64(b.Dx() * b.Dy())
	if pixels == 0 {
		return [3]float64{}
	}

	var sum [3]float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := sample.At(x, y).RGBA()
			sum[0] += float64(r >> 8)
			sum[1] += float64(g >> 8)
			sum[2] += float64(bl >> 8)
		}
	}
	return [3]float64{sum[0] / pixels, sum[1] / pixels, sum[2] / pixels}
}

func colorDistance(a, b [3]float64) float64 {
	dr, dg, db := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dr*dr + dg*dg + db*db)
}
