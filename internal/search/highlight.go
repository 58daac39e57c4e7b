package search

import "unicode/utf8"

// MatchSpan is the inclusive [Start, End] range of a match in rune indexes.
type MatchSpan struct {
	Start int
	End   int
}

// LineMatches collects the matches that fall on one displayed line.
type LineMatches struct {
	FilePath string
	Line     int64
	Column   int64 // of the first match
	LineText string
	Spans    []MatchSpan
}

// Span returns the match range within LineText, clamped to the text.
func (r Result) Span() MatchSpan {
	n := utf8.RuneCountInString(r.LineText)
	start := min(max(r.MatchStart, 0), n)
	end := min(start+r.Length, n) - 1
	if r.Length == 0 || end < start {
		end = start
	}
	return MatchSpan{Start: start, End: end}
}

// GroupByLine merges consecutive results that share a file, a line and the
// same excerpt into one entry with merged spans.
func GroupByLine(results []Result) []LineMatches {
	var groups []LineMatches
	for _, r := range results {
		if n := len(groups); n > 0 {
			last := &groups[n-1]
			if last.FilePath == r.FilePath && last.Line == r.Line && last.LineText == r.LineText {
				last.Spans = append(last.Spans, r.Span())
				continue
			}
		}
		groups = append(groups, LineMatches{
			FilePath: r.FilePath,
			Line:     r.Line,
			Column:   r.Column,
			LineText: r.LineText,
			Spans:    []MatchSpan{r.Span()},
		})
	}
	for i := range groups {
		groups[i].Spans = MergeMatchSpans(groups[i].Spans)
	}
	return groups
}

// MergeMatchSpans joins overlapping spans. Input must be sorted by Start.
func MergeMatchSpans(spans []MatchSpan) []MatchSpan {
	if len(spans) == 0 {
		return nil
	}
	merged := make([]MatchSpan, 0, len(spans))
	current := spans[0]
	for i := 1; i < len(spans); i++ {
		next := spans[i]
		if next.Start <= current.End {
			if next.End > current.End {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)
	return merged
}
