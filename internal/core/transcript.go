package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TranscriptAccumulator folds cumulative partial recognition results into
// one growing utterance. Recognizers usually resend everything heard so far
// on each partial, and may restart from empty after a pause.
//
// Not safe for concurrent use; the controller serializes access.
type TranscriptAccumulator struct {
	committed       string
	lastRawSnapshot string
}

// NewTranscriptAccumulator creates an empty accumulator.
func NewTranscriptAccumulator() *TranscriptAccumulator {
	return &TranscriptAccumulator{}
}

// OnPartialResult folds one raw recognizer string into the transcript.
// When raw extends the previous snapshot only the new suffix is appended;
// otherwise the recognizer has reset and all of raw is appended. A suffix
// that continues a word mid-way is joined without a space; otherwise the
// trimmed suffix is joined with exactly one space.
func (a *TranscriptAccumulator) OnPartialResult(raw string) {
	delta := raw
	midWord := false
	if strings.HasPrefix(raw, a.lastRawSnapshot) {
		delta = raw[len(a.lastRawSnapshot):]
		midWord = a.lastRawSnapshot != "" && !startsWithSpace(delta) && !endsWithSpace(a.lastRawSnapshot)
	}
	a.lastRawSnapshot = raw

	delta = strings.TrimSpace(delta)
	if delta == "" {
		return
	}
	switch {
	case a.committed == "":
		a.committed = delta
	case midWord:
		a.committed += delta
	default:
		a.committed += " " + delta
	}
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

// Reset clears the accumulator at the start of a capture cycle.
func (a *TranscriptAccumulator) Reset() {
	a.committed = ""
	a.lastRawSnapshot = ""
}

// Commit returns the trimmed transcript; empty means nothing was captured.
func (a *TranscriptAccumulator) Commit() string {
	return strings.TrimSpace(a.committed)
}

// Snapshot returns the live transcript for preview while capturing.
func (a *TranscriptAccumulator) Snapshot() string {
	return a.committed
}
