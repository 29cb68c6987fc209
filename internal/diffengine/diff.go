// Package diffengine computes unified diffs between line sequences and
// aggregates multi-file comparisons, per spec.md §4.6.
package diffengine

import (
	"strconv"
	"strings"
)

// ChangeType identifies whether a diff line was added or removed.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeDelete ChangeType = "delete"
)

// LineChange is one line inserted or removed between two sequences.
type LineChange struct {
	Type    ChangeType
	OldLine int // 1-indexed, 0 when Type is add
	NewLine int // 1-indexed, 0 when Type is delete
	Content string
}

// Hunk groups nearby changes with surrounding context lines.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Changes  []LineChange
	Context  []string
}

// FileSummary reports the line-level delta between two versions of one
// file.
type FileSummary struct {
	LinesAdded    int
	LinesDeleted  int
	LinesModified int
	IsIdentical   bool
}

// Diff is the full unified-diff result for one file comparison.
type Diff struct {
	Changes []LineChange
	Hunks   []Hunk
	Summary FileSummary
}

// SplitLines splits content into lines without a trailing empty element
// for a final newline, matching how source files are typically diffed.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lcsTable computes the classical dynamic-programming LCS length table for
// a and b, per spec.md §4.6.
func lcsTable(a, b []string) [][]int {
	n, m := len(a), len(b)
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}
	return table
}

// Compute produces the unified change list between oldLines and newLines,
// default contextLines of 3 when contextLines <= 0.
func Compute(oldLines, newLines []string, contextLines int) Diff {
	if contextLines <= 0 {
		contextLines = 3
	}
	changes := diffLines(oldLines, newLines)
	hunks := groupHunks(changes, oldLines, newLines, contextLines)
	summary := summarize(changes, len(oldLines) == len(newLines) && len(changes) == 0)
	return Diff{Changes: changes, Hunks: hunks, Summary: summary}
}

func diffLines(a, b []string) []LineChange {
	table := lcsTable(a, b)
	var changes []LineChange
	i, j := 0, 0
	oldLine, newLine := 1, 1
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
			oldLine++
			newLine++
		case table[i+1][j] >= table[i][j+1]:
			changes = append(changes, LineChange{Type: ChangeDelete, OldLine: oldLine, Content: a[i]})
			i++
			oldLine++
		default:
			changes = append(changes, LineChange{Type: ChangeAdd, NewLine: newLine, Content: b[j]})
			j++
			newLine++
		}
	}
	for ; i < len(a); i++ {
		changes = append(changes, LineChange{Type: ChangeDelete, OldLine: oldLine, Content: a[i]})
		oldLine++
	}
	for ; j < len(b); j++ {
		changes = append(changes, LineChange{Type: ChangeAdd, NewLine: newLine, Content: b[j]})
		newLine++
	}
	return changes
}

// groupHunks groups nearby changes with contextLines of surrounding
// unchanged lines on either side; a new hunk starts when the gap between
// successive changes exceeds 2*contextLines + 1 lines.
func groupHunks(changes []LineChange, oldLines, newLines []string, contextLines int) []Hunk {
	if len(changes) == 0 {
		return nil
	}
	maxGap := 2*contextLines + 1

	var hunks []Hunk
	start := 0
	lineOf := func(c LineChange) int {
		if c.Type == ChangeAdd {
			return c.NewLine
		}
		return c.OldLine
	}
	for i := 1; i <= len(changes); i++ {
		if i < len(changes) && lineOf(changes[i])-lineOf(changes[i-1]) <= maxGap {
			continue
		}
		hunks = append(hunks, buildHunk(changes[start:i], oldLines, newLines, contextLines))
		start = i
	}
	return hunks
}

func buildHunk(changes []LineChange, oldLines, newLines []string, contextLines int) Hunk {
	oldStart, newStart := 0, 0
	for _, c := range changes {
		if c.Type == ChangeDelete && (oldStart == 0 || c.OldLine < oldStart) {
			oldStart = c.OldLine
		}
		if c.Type == ChangeAdd && (newStart == 0 || c.NewLine < newStart) {
			newStart = c.NewLine
		}
	}
	if oldStart == 0 {
		oldStart = changes[0].OldLine
	}
	if newStart == 0 {
		newStart = changes[0].NewLine
	}

	ctxStart := oldStart - contextLines
	if ctxStart < 1 {
		ctxStart = 1
	}
	var context []string
	for l := ctxStart; l < oldStart && l <= len(oldLines); l++ {
		context = append(context, oldLines[l-1])
	}

	return Hunk{
		OldStart: oldStart,
		OldLines: countType(changes, ChangeDelete),
		NewStart: newStart,
		NewLines: countType(changes, ChangeAdd),
		Changes:  changes,
		Context:  context,
	}
}

func countType(changes []LineChange, t ChangeType) int {
	n := 0
	for _, c := range changes {
		if c.Type == t {
			n++
		}
	}
	return n
}

func summarize(changes []LineChange, identical bool) FileSummary {
	added := countType(changes, ChangeAdd)
	deleted := countType(changes, ChangeDelete)
	modified := added
	if deleted < added {
		modified = deleted
	}
	return FileSummary{LinesAdded: added, LinesDeleted: deleted, LinesModified: modified, IsIdentical: identical}
}

// UnifiedText renders d as conventional unified-diff text, file headers
// excluded (callers that need `--- a/path` / `+++ b/path` headers prepend
// them).
func UnifiedText(d Diff) string {
	var b strings.Builder
	for _, h := range d.Hunks {
		b.WriteString("@@ -")
		writeRange(&b, h.OldStart, h.OldLines)
		b.WriteString(" +")
		writeRange(&b, h.NewStart, h.NewLines)
		b.WriteString(" @@\n")
		for _, line := range h.Context {
			b.WriteString(" ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		for _, c := range h.Changes {
			switch c.Type {
			case ChangeAdd:
				b.WriteString("+")
			case ChangeDelete:
				b.WriteString("-")
			}
			b.WriteString(c.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeRange(b *strings.Builder, start, count int) {
	b.WriteString(strconv.Itoa(start))
	b.WriteString(",")
	b.WriteString(strconv.Itoa(count))
}
