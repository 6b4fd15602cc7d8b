package window

import (
	"fmt"

	"github.com/kailas-cloud/convscore/internal/domain"
	"github.com/kailas-cloud/convscore/internal/domain/conversation"
	domwin "github.com/kailas-cloud/convscore/internal/domain/window"
)

// Default window parameters.
const (
	DefaultMinLines   = 5
	DefaultMaxLines   = 10
	DefaultOverlap    = 2
	DefaultMinWindows = 2
)

// Split cuts lines into windows of up to size lines, each starting size-overlap
// lines after the previous one. Splitting stops at the first window that reaches
// the last line, so successive windows share exactly overlap lines.
// Returns nil when size <= overlap, overlap < 0 or lines is empty.
func Split(lines []conversation.Line, size, overlap int) []domwin.Window {
	if size <= overlap || overlap < 0 || len(lines) == 0 {
		return nil
	}

	step := size - overlap
	var out []domwin.Window
	for start := 0; ; start += step {
		end := min(start+size, len(lines))
		out = append(out, domwin.Window{
			Index:   len(out),
			Lines:   lines[start:end:end],
			Size:    size,
			Overlap: overlap,
		})
		if end == len(lines) {
			return out
		}
	}
}

// Splitter applies the coarse-then-fine window policy.
type Splitter struct {
	minLines   int
	maxLines   int
	overlap    int
	minWindows int
}

// NewSplitter creates a splitter. Non-positive sizes fall back to defaults.
func NewSplitter(minLines, maxLines, overlap, minWindows int) *Splitter {
	if minLines <= 0 {
		minLines = DefaultMinLines
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if minWindows <= 0 {
		minWindows = DefaultMinWindows
	}
	return &Splitter{minLines: minLines, maxLines: maxLines, overlap: overlap, minWindows: minWindows}
}

// Windows splits with max_lines first and retries with min_lines when that yields
// fewer than two windows. Returns ErrInsufficientWindows if the result is still
// below the configured minimum.
func (s *Splitter) Windows(lines []conversation.Line) ([]domwin.Window, error) {
	windows := Split(lines, s.maxLines, s.overlap)
	if len(windows) < 2 {
		windows = Split(lines, s.minLines, s.overlap)
	}
	if len(windows) < s.minWindows {
		return nil, fmt.Errorf("%d lines gave %d windows, need %d: %w",
			len(lines), len(windows), s.minWindows, domain.ErrInsufficientWindows)
	}
	return windows, nil
}
