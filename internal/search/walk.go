package search

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
)

// shouldSkipEntryFn mirrors fs.ShouldSkipEntry for test overrides.
var shouldSkipEntryFn = fsutil.ShouldSkipEntry

// walker lists the files under root breadth-first, skipping .git, protected
// entries, hidden entries unless requested, and ignored paths.
type walker struct {
	root          string
	includeHidden bool
	ignores       *ignoreProvider
}

func newWalker(root string, includeHidden, useIgnoreFiles bool) *walker {
	w := &walker{root: root, includeHidden: includeHidden}
	if useIgnoreFiles {
		w.ignores = newIgnoreProvider(root)
	}
	return w
}

func (w *walker) matcherFor(relDir string) *GitignoreMatcher {
	if w.ignores == nil {
		return nil
	}
	return w.ignores.MatcherFor(normalizeDirKey(relDir))
}

func (w *walker) walk(ctx context.Context, handle func(fullPath, relPath string) error) error {
	type dirNode struct {
		absPath string
		relPath string
		matcher *GitignoreMatcher
	}

	queue := []dirNode{{absPath: w.root, relPath: ".", matcher: w.matcherFor(".")}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		node := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(node.absPath)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel := joinRelPath(node.relPath, entry.Name())
			fullPath := filepath.Join(node.absPath, entry.Name())
			if w.shouldSkip(rel, entry, fullPath, node.matcher) {
				continue
			}
			if entry.IsDir() {
				queue = append(queue, dirNode{absPath: fullPath, relPath: rel, matcher: w.matcherFor(rel)})
				continue
			}
			if !entry.Type().IsRegular() {
				continue
			}
			if err := handle(fullPath, rel); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) shouldSkip(relPath string, d fs.DirEntry, absPath string, matcher *GitignoreMatcher) bool {
	if relPath == "" || relPath == "." {
		return false
	}
	if d.IsDir() && d.Name() == ".git" {
		return true
	}
	if shouldSkipEntryFn(absPath, d.Name()) {
		return true
	}
	if !w.includeHidden && fsutil.IsHidden(absPath, d.Name()) {
		return true
	}
	return matcher != nil && matcher.MatchWithType(absPath, d.IsDir())
}

func joinRelPath(parent, child string) string {
	if parent == "." || parent == "" {
		if child == "" {
			return "."
		}
		return child
	}
	return filepath.Join(parent, child)
}
