package search

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// GitignoreMatcher matches paths against gitignore-style rules. Later rules
// override earlier ones.
type GitignoreMatcher struct {
	patterns []gitignorePattern
}

type gitignorePattern struct {
	negation bool
	dirOnly  bool
	// basename patterns have no slash and match the last path element.
	basename bool
	basePath string
	original string
	globs    []glob.Glob
}

// NewGitignoreMatcher creates an empty matcher.
func NewGitignoreMatcher() *GitignoreMatcher {
	return &GitignoreMatcher{}
}

// Clone copies the rule list so a subdirectory can extend it without
// touching the parent's.
func (gm *GitignoreMatcher) Clone() *GitignoreMatcher {
	clone := NewGitignoreMatcher()
	if gm != nil && len(gm.patterns) > 0 {
		clone.patterns = make([]gitignorePattern, len(gm.patterns))
		copy(clone.patterns, gm.patterns)
	}
	return clone
}

// AddPatterns parses the content of an ignore file located in basePath.
func (gm *GitignoreMatcher) AddPatterns(content string, basePath string) {
	for _, line := range strings.Split(content, "\n") {
		gm.addPattern(strings.TrimSuffix(line, "\r"), basePath)
	}
}

func (gm *GitignoreMatcher) addPattern(line string, basePath string) {
	original := line
	line = trimTrailingSpaces(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	negation := false
	if strings.HasPrefix(line, "!") {
		negation = true
		line = line[1:]
	}

	dirOnly := false
	if strings.HasSuffix(line, "/") {
		dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	anchored := false
	if strings.HasPrefix(line, "/") {
		anchored = true
		line = line[1:]
	}
	if line == "" {
		return
	}

	candidates := []string{line}
	if rest, ok := strings.CutPrefix(line, "**/"); ok {
		candidates = append(candidates, rest)
	}
	if strings.Contains(line, "/**/") {
		candidates = append(candidates, strings.ReplaceAll(line, "/**/", "/"))
	}

	globs := make([]glob.Glob, 0, len(candidates))
	for _, candidate := range candidates {
		g, err := glob.Compile(candidate, '/')
		if err != nil {
			return
		}
		globs = append(globs, g)
	}

	gm.patterns = append(gm.patterns, gitignorePattern{
		negation: negation,
		dirOnly:  dirOnly,
		basename: !anchored && !strings.Contains(line, "/"),
		basePath: filepath.ToSlash(basePath),
		original: original,
		globs:    globs,
	})
}

// trimTrailingSpaces drops unescaped trailing spaces.
func trimTrailingSpaces(line string) string {
	i := len(line) - 1
	for i >= 0 && line[i] == ' ' {
		backslashes := 0
		for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 1 {
			break
		}
		i--
	}
	return line[:i+1]
}

// Match reports whether the file at path is ignored.
func (gm *GitignoreMatcher) Match(path string) bool {
	return gm.MatchWithType(path, false)
}

// MatchWithType reports whether path is ignored, given whether it is a directory.
func (gm *GitignoreMatcher) MatchWithType(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	ignored := false
	for _, p := range gm.patterns {
		if p.matches(path, isDir) {
			ignored = !p.negation
		}
	}
	return ignored
}

func (p gitignorePattern) matches(path string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}

	checkPath := path
	if p.basePath != "." && p.basePath != "" {
		if !strings.HasPrefix(path, p.basePath) {
			return false
		}
		checkPath = strings.TrimPrefix(path, p.basePath+"/")
		if checkPath == path {
			checkPath = filepath.Base(path)
		}
	}

	if p.basename {
		if idx := strings.LastIndexByte(checkPath, '/'); idx >= 0 {
			checkPath = checkPath[idx+1:]
		}
	}
	for _, g := range p.globs {
		if g.Match(checkPath) {
			return true
		}
	}
	return false
}
