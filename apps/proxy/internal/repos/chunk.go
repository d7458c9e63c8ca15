package repos

import "strings"

// Done is the cursor value signalling that no further page exists.
const Done = -1

const (
	DefaultChunkFiles = 20
	MaxChunkFiles     = 100
)

// LineWindow describes the 1-based inclusive line range of a file chunk.
type LineWindow struct {
	Start      int
	End        int
	NextStart  int
	TotalLines int
}

// SplitLines splits text into lines that keep their "\n" terminator, so that
// joining any consecutive run of them reproduces the original bytes. A
// trailing newline does not start an extra empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// CheckWindow validates a requested line window without knowing the file.
func CheckWindow(start, end int) error {
	switch {
	case start < 1:
		return InvalidInputError{Field: "start", Reason: "must be >= 1"}
	case end < 0:
		return InvalidInputError{Field: "end", Reason: "must be >= 0"}
	case end != 0 && end < start:
		return InvalidInputError{Field: "end", Reason: "must be 0 or >= start"}
	}
	return nil
}

// ChunkLines selects lines[start-1 : min(end,total)]. end == 0 means no limit.
// A start beyond the last line is a RangeError rather than an empty page,
// except for an empty file requested from line 1.
func ChunkLines(lines []string, start, end int) (LineWindow, string, error) {
	if err := CheckWindow(start, end); err != nil {
		return LineWindow{}, "", err
	}
	total := len(lines)
	if total == 0 && start == 1 {
		return LineWindow{Start: 0, End: 0, NextStart: Done, TotalLines: 0}, "", nil
	}
	if start > total {
		return LineWindow{}, "", RangeError{Start: start, TotalLines: total}
	}

	rangeEnd := total
	if end != 0 && end < total {
		rangeEnd = end
	}
	next := Done
	if rangeEnd < total {
		next = rangeEnd + 1
	}
	body := strings.Join(lines[start-1:rangeEnd], "")
	return LineWindow{Start: start, End: rangeEnd, NextStart: next, TotalLines: total}, body, nil
}

// FilePage is one page of a directory bundle.
type FilePage struct {
	Cursor     int
	ChunkFiles int
	NextCursor int
	TotalFiles int
	Files      []string
}

// ClampChunkFiles bounds a requested page size to [1, MaxChunkFiles].
func ClampChunkFiles(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxChunkFiles:
		return MaxChunkFiles
	}
	return n
}

// PageFiles slices all[cursor : cursor+chunkFiles]. all must already be sorted.
func PageFiles(all []string, cursor, chunkFiles int) FilePage {
	chunkFiles = ClampChunkFiles(chunkFiles)
	if cursor < 0 {
		cursor = 0
	}
	total := len(all)
	page := FilePage{Cursor: cursor, ChunkFiles: chunkFiles, NextCursor: Done, TotalFiles: total}
	if cursor >= total {
		page.Files = []string{}
		return page
	}
	stop := min(cursor+chunkFiles, total)
	page.Files = all[cursor:stop]
	if stop < total {
		page.NextCursor = stop
	}
	return page
}
