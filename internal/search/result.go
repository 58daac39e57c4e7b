package search

import (
	"github.com/kk-code-lab/bigtext/internal/textsource"
	"github.com/kk-code-lab/bigtext/internal/textutil"
)

// lineResolver fills in the line fields of results. Sources that know their
// line table answer directly; others are walked from the previous result,
// which is cheap because results arrive in ascending order.
type lineResolver struct {
	src      textsource.Source
	loc      textsource.LineLocator
	tabWidth int

	lastOffset int64
	lastLine   int64
}

func newLineResolver(src textsource.Source, tabWidth int) *lineResolver {
	if tabWidth <= 0 {
		tabWidth = textutil.DefaultTabWidth
	}
	loc, _ := src.(textsource.LineLocator)
	return &lineResolver{src: src, loc: loc, tabWidth: tabWidth}
}

func (r *lineResolver) result(offset int64, n int) (Result, error) {
	line, lineStart, err := r.locate(offset)
	if err != nil {
		return Result{}, err
	}
	matchEnd := offset + int64(n)
	clipStart := max(lineStart, offset-maxContext)
	clipEnd, err := r.lineEnd(line, matchEnd, matchEnd+maxContext)
	if err != nil {
		return Result{}, err
	}
	text, err := r.src.Text(clipStart, clipEnd-clipStart)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Offset:        offset,
		Length:        n,
		Line:          line,
		Column:        offset - lineStart,
		DisplayColumn: int(offset - lineStart),
		LineText:      text,
		MatchStart:    int(offset - clipStart),
	}
	if clipStart == lineStart {
		prefix := []rune(text)[:res.MatchStart]
		res.DisplayColumn = textutil.Column(string(prefix), r.tabWidth)
	}
	return res, nil
}

func (r *lineResolver) locate(offset int64) (line, lineStart int64, err error) {
	if r.loc != nil {
		if line, err = r.loc.LineOf(offset); err != nil {
			return 0, 0, err
		}
		lineStart, err = r.loc.LineStart(line)
		return line, lineStart, err
	}

	if offset < r.lastOffset {
		r.lastOffset, r.lastLine = 0, 0
	}
	feeds, err := r.src.CountLineFeeds(r.lastOffset, offset-r.lastOffset)
	if err != nil {
		return 0, 0, err
	}
	line = r.lastLine + feeds
	r.lastOffset, r.lastLine = offset, line

	lineStart = offset
	for lineStart > 0 {
		ch, err := r.src.At(lineStart - 1)
		if err != nil {
			return 0, 0, err
		}
		if ch == '\n' {
			break
		}
		lineStart--
	}
	return line, lineStart, nil
}

// lineEnd returns where the line containing the match ends, but not before
// matchEnd nor after limit.
func (r *lineResolver) lineEnd(line, matchEnd, limit int64) (int64, error) {
	length := r.src.Len()
	limit = min(limit, length)
	if r.loc != nil {
		end := length
		if line+1 < r.loc.LineCount() {
			start, err := r.loc.LineStart(line + 1)
			if err != nil {
				return 0, err
			}
			end = start - 1
		}
		return max(matchEnd, min(end, limit)), nil
	}

	end := matchEnd
	for end < limit {
		ch, err := r.src.At(end)
		if err != nil {
			return 0, err
		}
		if ch == '\n' {
			break
		}
		end++
	}
	return end, nil
}
