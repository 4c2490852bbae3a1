package cli

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/model"
	"github.com/Veraticus/woodsnap/internal/quota"
)

const confidenceBarWidth = 20

// ConfidenceBar draws confidence in [0, 1] as a fixed-width bar with a percentage.
func ConfidenceBar(confidence float64) string {
	c := model.ClampConfidence(confidence)
	filled := int(math.Round(c * confidenceBarWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", confidenceBarWidth-filled)

	style := SuccessStyle
	switch {
	case c < 0.4:
		style = ErrorStyle
	case c < 0.7:
		style = WarningStyle
	}
	return style.Render(bar) + fmt.Sprintf(" %3.0f%%", c*100)
}

// RenderMatch renders one candidate species as a card.
func RenderMatch(rank int, m model.Match) string {
	lines := []string{
		SubtleStyle.Render(m.ScientificName),
		ConfidenceBar(m.Confidence),
	}

	if m.Hardness != nil {
		lines = append(lines, fmt.Sprintf("%s %d lbf", BoldStyle.Render("Janka hardness:"), *m.Hardness))
	}
	if m.GrainPattern != "" {
		lines = append(lines, fmt.Sprintf("%s %s", BoldStyle.Render("Grain:"), m.GrainPattern))
	}
	if m.TypicalUses != "" {
		lines = append(lines, fmt.Sprintf("%s %s", BoldStyle.Render("Uses:"), m.TypicalUses))
	}

	keys := make([]string, 0, len(m.Properties))
	for k := range m.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, SubtleStyle.Render(fmt.Sprintf("%s: %s", k, m.Properties[k])))
	}

	if len(m.SimilarSpecies) > 0 {
		lines = append(lines, SubtleStyle.Render("Looks like: "+strings.Join(m.SimilarSpecies, ", ")))
	}

	return RenderBox(fmt.Sprintf("%d. %s", rank, m.CommonName), strings.Join(lines, "\n"))
}

// RenderResult renders a full identification result.
func RenderResult(result model.IdentificationResult) string {
	var b strings.Builder

	b.WriteString(FormatTitle("Identification results"))
	b.WriteString("\n")

	if result.IsOfflineResult {
		b.WriteString(WarningStyle.Render(OfflineIcon + " Offline result: accuracy is limited until you reconnect."))
		b.WriteString("\n")
	}

	cards := make([]string, 0, len(result.Matches))
	for i, m := range result.Matches {
		cards = append(cards, RenderMatch(i+1, m))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, cards...))
	b.WriteString("\n")
	b.WriteString(RenderRemaining(result.ScansRemaining))
	return b.String()
}

// RenderRemaining describes how many free scans are left today.
func RenderRemaining(remaining int) string {
	switch {
	case remaining >= quota.Unlimited:
		return FormatInfo("Unlimited scans")
	case remaining == 0:
		return FormatWarning("No free scans left today")
	case remaining == 1:
		return FormatInfo("1 free scan left today")
	default:
		return FormatInfo(fmt.Sprintf("%d free scans left today", remaining))
	}
}

// RenderQuality describes a photo quality verdict.
func RenderQuality(name string, verdict model.QualityVerdict) string {
	if verdict.Acceptable() {
		return FormatSuccess(fmt.Sprintf("%s: %s", name, verdict.Message()))
	}
	return FormatWarning(fmt.Sprintf("%s: %s", name, verdict.Message()))
}

// RenderError renders an identification error with its user-facing message.
func RenderError(err error) string {
	return FormatError(common.UserMessage(err))
}

// RenderHistory renders scan history as a table, newest first.
func RenderHistory(scans []model.ScanRecord) string {
	if len(scans) == 0 {
		return FormatInfo("No scans yet")
	}

	header := []string{"When", "Top match", "Confidence", "Source", "Corrected", "ID"}
	rows := make([][]string, 0, len(scans))
	for _, s := range scans {
		top, confidence := "-", "-"
		if m := s.TopMatch(); m != nil {
			top = m.CommonName
			confidence = fmt.Sprintf("%.0f%%", m.Confidence*100)
		}
		source := "remote"
		if s.IsOfflineResult {
			source = "offline"
		}
		corrected := s.CorrectedSpecies
		if corrected == "" {
			corrected = "-"
		}
		rows = append(rows, []string{
			s.ScannedAt.Local().Format(time.DateTime),
			top,
			confidence,
			source,
			corrected,
			s.ID,
		})
	}

	return renderTable(header, rows)
}

func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	cellStyle := lipgloss.NewStyle().PaddingRight(2)
	renderRow := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = style.Render(cellStyle.Width(widths[i] + 2).Render(cell))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	lines := []string{renderRow(header, BoldStyle)}
	for _, row := range rows {
		lines = append(lines, renderRow(row, lipgloss.NewStyle()))
	}
	return strings.Join(lines, "\n")
}
