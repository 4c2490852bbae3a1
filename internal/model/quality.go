package model

// QualityVerdict is advisory guidance about a captured photo.
type QualityVerdict string

// Quality verdicts.
const (
	QualityAcceptable       QualityVerdict = "acceptable"
	QualityTooDark          QualityVerdict = "too_dark"
	QualityTooBright        QualityVerdict = "too_bright"
	QualityTooLowResolution QualityVerdict = "too_low_resolution"
)

// Acceptable reports whether the photo needs no retake guidance.
func (q QualityVerdict) Acceptable() bool {
	return q == QualityAcceptable
}

// Message returns the user-facing guidance for the verdict.
func (q QualityVerdict) Message() string {
	switch q {
	case QualityTooDark:
		return "Photo is too dark. Try better lighting."
	case QualityTooBright:
		return "Photo is overexposed. Reduce direct light."
	case QualityTooLowResolution:
		return "Photo resolution is too low. Move closer."
	default:
		return "Photo looks good."
	}
}
