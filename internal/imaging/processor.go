// Package imaging prepares captured photos for identification: downscaling,
// size-bounded JPEG re-encoding, content fingerprinting and a cheap quality check.
package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG captures
	"math"

	"github.com/nfnt/resize"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/model"
)

// Defaults for upload preparation.
const (
	DefaultMaxDimension = 1024
	DefaultTargetBytes  = 500_000

	minQuality      = 0.1
	maxQuality      = 0.9
	fallbackQuality = 0.5
	searchSteps     = 6
)

// Quality thresholds.
const (
	MinDimension    = 300
	DarkThreshold   = 0.15
	BrightThreshold = 0.9

	sampleDimension = 100
	lumaRed         = 0.299
	lumaGreen       = 0.587
	lumaBlue        = 0.114
	maxChannelValue = 0xffff
)

// Processor performs deterministic image transforms.
type Processor struct {
	maxDimension int
}

// NewProcessor creates a Processor. A non-positive maxDimension selects DefaultMaxDimension.
func NewProcessor(maxDimension int) *Processor {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Processor{maxDimension: maxDimension}
}

// Decode parses captured JPEG or PNG bytes.
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", common.ErrImageProcessingFailed)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrImageProcessingFailed, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", common.ErrImageProcessingFailed)
	}
	return img, nil
}

// Resize scales img down so its longer edge is at most maxDimension.
// Images already within bounds are returned unchanged.
func (p *Processor) Resize(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longer := max(w, h)
	if maxDimension <= 0 || longer <= maxDimension {
		return img
	}

	scale := float64(maxDimension) / float64(longer)
	newW := max(1, int(math.Round(float64(w)*scale)))
	newH := max(1, int(math.Round(float64(h)*scale)))

	return resize.Resize(uint(newW), uint(newH), img, resize.Bilinear)
}

// Compress resizes img to the default bound and searches for the highest JPEG
// quality whose encoding fits targetBytes. When no probed quality fits, the
// mid-quality encoding is returned instead.
func (p *Processor) Compress(img image.Image, targetBytes int) ([]byte, error) {
	resized := p.Resize(img, p.maxDimension)

	lo, hi := minQuality, maxQuality
	var best []byte

	for i := 0; i < searchSteps; i++ {
		mid := (lo + hi) / 2
		data, err := encodeJPEG(resized, mid)
		if err != nil {
			return nil, err
		}
		if len(data) <= targetBytes {
			best = data
			lo = mid
		} else {
			hi = mid
		}
	}

	if best != nil {
		return best, nil
	}
	return encodeJPEG(resized, fallbackQuality)
}

// Fingerprint returns the hex SHA-256 digest of data.
func (p *Processor) Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AssessQuality returns advisory guidance for a captured photo.
func (p *Processor) AssessQuality(img image.Image) model.QualityVerdict {
	b := img.Bounds()
	if b.Dx() < MinDimension || b.Dy() < MinDimension {
		return model.QualityTooLowResolution
	}

	brightness := AverageBrightness(img)
	switch {
	case brightness < DarkThreshold:
		return model.QualityTooDark
	case brightness > BrightThreshold:
		return model.QualityTooBright
	default:
		return model.QualityAcceptable
	}
}

// AverageBrightness samples mean luminance in [0, 1] over a copy of img
// downsampled to at most 100x100 pixels.
func AverageBrightness(img image.Image) float64 {
	sample := Downsample(img, sampleDimension)
	sb := sample.Bounds()

	pixels := sb.Dx() * sb.Dy()
	if pixels == 0 {
		return 0
	}

	var total float64
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			r, g, b, _ := sample.At(x, y).RGBA()
			total += (lumaRed*float64(r) + lumaGreen*float64(g) + lumaBlue*float64(b)) / maxChannelValue
		}
	}
	return total / float64(pixels)
}

// Downsample squeezes img into at most limit x limit pixels.
func Downsample(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := min(b.Dx(), limit), min(b.Dy(), limit)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return resize.Resize(uint(w), uint(h), img, resize.Bilinear)
}

func encodeJPEG(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	q := int(math.Round(quality * 100))
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", common.ErrImageProcessingFailed, err)
	}
	return buf.Bytes(), nil
}
