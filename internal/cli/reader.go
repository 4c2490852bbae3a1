package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Veraticus/woodsnap/internal/fallback"
	"github.com/Veraticus/woodsnap/internal/model"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// NonBlockingReader provides context-aware line reading.
type NonBlockingReader struct {
	reader      *bufio.Reader
	readingLock sync.Mutex
}

// NewNonBlockingReader creates a new non-blocking reader.
func NewNonBlockingReader(reader io.Reader) *NonBlockingReader {
	return &NonBlockingReader{reader: bufio.NewReader(reader)}
}

// ReadLine reads one trimmed line, returning ErrInputCancelled if ctx ends first.
// The underlying read keeps running until input arrives.
func (r *NonBlockingReader) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.readingLock.Lock()
		defer r.readingLock.Unlock()

		value, err := r.reader.ReadString('\n')
		if errors.Is(err, io.EOF) && value != "" {
			err = nil
		}
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}

// CorrectionPrompter asks the user which species a scan really was.
type CorrectionPrompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewCorrectionPrompter creates a prompter reading from in and writing to out.
func NewCorrectionPrompter(in io.Reader, out io.Writer) *CorrectionPrompter {
	return &CorrectionPrompter{reader: NewNonBlockingReader(in), writer: out}
}

// Prompt lists the scan's matches and reads either a match number, a
// reference species id or a common name. It returns the chosen correction.
func (p *CorrectionPrompter) Prompt(ctx context.Context, scan *model.ScanRecord) (*model.Correction, error) {
	_, _ = fmt.Fprintln(p.writer, FormatTitle("Correct scan "+scan.ID))
	for i, m := range scan.Matches {
		_, _ = fmt.Fprintf(p.writer, "  %d. %s %s\n", i+1, m.CommonName, SubtleStyle.Render("("+m.ScientificName+")"))
	}
	_, _ = fmt.Fprint(p.writer, FormatPrompt("Match number, species id or common name"))

	answer, err := p.reader.ReadLine(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveCorrection(scan, answer)
}

// ResolveCorrection interprets a user's answer against the scan and the
// reference species table.
func ResolveCorrection(scan *model.ScanRecord, answer string) (*model.Correction, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("no species given")
	}

	c := &model.Correction{ScanID: scan.ID}
	if top := scan.TopMatch(); top != nil {
		c.OriginalSpeciesID = top.SpeciesID
	}

	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(scan.Matches) {
			return nil, fmt.Errorf("match number must be between 1 and %d", len(scan.Matches))
		}
		m := scan.Matches[n-1]
		c.CorrectedSpeciesID = m.SpeciesID
		c.CorrectedCommonName = m.CommonName
		return c, nil
	}

	if s, ok := fallback.LookupSpecies(strings.ToLower(answer)); ok {
		c.CorrectedSpeciesID = s.ID
		c.CorrectedCommonName = s.CommonName
		return c, nil
	}
	for _, s := range fallback.ReferenceSpecies {
		if strings.EqualFold(s.CommonName, answer) {
			c.CorrectedSpeciesID = s.ID
			c.CorrectedCommonName = s.CommonName
			return c, nil
		}
	}

	return nil, fmt.Errorf("unknown species %q", answer)
}
