// Package linediff compares two texts line by line at equal positions.
//
// The comparison is positional, not content-aligned: a single inserted line shifts
// every later index and shows up as differences through the rest of the file.
// Report consumers rely on this shape, so no realignment is attempted.
package linediff

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Line is one side of a compared position. EOF marks an index past the end of the
// file and is distinct from an empty line.
type Line struct {
	Text string
	EOF  bool
}

// EOFMarker is how the end-of-file sentinel is rendered.
const EOFMarker = "<EOF>"

// Present returns a line holding text.
func Present(text string) Line { return Line{Text: text} }

// EndOfFile returns the end-of-file sentinel.
func EndOfFile() Line { return Line{EOF: true} }

func (l Line) String() string {
	if l.EOF {
		return EOFMarker
	}
	return l.Text
}

// MarshalJSON renders the sentinel as null and present lines as strings.
func (l Line) MarshalJSON() ([]byte, error) {
	if l.EOF {
		return []byte("null"), nil
	}
	return json.Marshal(l.Text)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (l *Line) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = EndOfFile()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = Present(s)
	return nil
}

// Entry is a differing position. Line is 1-based.
type Entry struct {
	Line   int  `json:"line"`
	Before Line `json:"before"`
	After  Line `json:"after"`
}

// Diff compares before[i] with after[i] for every index up to the longer length and
// returns the positions where they differ.
func Diff(before, after []string) []Entry {
	maxLen := len(before)
	if len(after) > maxLen {
		maxLen = len(after)
	}

	var entries []Entry
	for i := range maxLen {
		b := at(before, i)
		a := at(after, i)
		if b != a {
			entries = append(entries, Entry{Line: i + 1, Before: b, After: a})
		}
	}
	return entries
}

func at(lines []string, i int) Line {
	if i < len(lines) {
		return Present(lines[i])
	}
	return EndOfFile()
}

// SplitLines splits file content into lines. CRLF is treated as LF and a final
// newline terminates the last line instead of starting an empty one.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
