package window

import "github.com/kailas-cloud/convscore/internal/domain/conversation"

// Window is a contiguous, possibly overlapping slice of a conversation's lines.
type Window struct {
	Index   int
	Lines   []conversation.Line
	Size    int
	Overlap int
}

// Len returns the number of lines in the window.
func (w Window) Len() int { return len(w.Lines) }
