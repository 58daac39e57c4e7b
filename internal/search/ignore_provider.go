package search

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ignoreFileNames are read in every directory, lowest priority first so that
// later files can re-include with negations.
var ignoreFileNames = []string{".gitignore", ".ignore", ".bigtextignore"}

// ignoreProvider builds one matcher per directory, each extending its
// parent's, and caches them by slash-separated relative path.
type ignoreProvider struct {
	root  string
	cache sync.Map // map[string]*GitignoreMatcher
}

func newIgnoreProvider(root string) *ignoreProvider {
	p := &ignoreProvider{root: root}

	base := NewGitignoreMatcher()
	for _, file := range p.globalIgnoreFiles() {
		p.addFile(base, file, root)
	}
	p.addFile(base, filepath.Join(root, ".git", "info", "exclude"), root)
	p.addDirectory(base, root)
	p.cache.Store(".", base)
	return p
}

// MatcherFor returns the matcher that applies to entries of relDir.
func (p *ignoreProvider) MatcherFor(relDir string) *GitignoreMatcher {
	key := normalizeDirKey(relDir)
	if m, ok := p.cache.Load(key); ok {
		return m.(*GitignoreMatcher)
	}

	child := p.MatcherFor(parentDirKey(key)).Clone()
	p.addDirectory(child, filepath.Join(p.root, filepath.FromSlash(key)))
	actual, _ := p.cache.LoadOrStore(key, child)
	return actual.(*GitignoreMatcher)
}

func (p *ignoreProvider) addDirectory(m *GitignoreMatcher, dir string) {
	for _, name := range ignoreFileNames {
		p.addFile(m, filepath.Join(dir, name), dir)
	}
}

func (p *ignoreProvider) addFile(m *GitignoreMatcher, file, base string) bool {
	if file == "" {
		return false
	}
	data, err := os.ReadFile(file)
	if err != nil || len(data) == 0 {
		return false
	}
	m.AddPatterns(string(data), base)
	return true
}

// globalIgnoreFiles lists core.excludesFile and the usual per-user ignore
// files, without duplicates.
func (p *ignoreProvider) globalIgnoreFiles() []string {
	var files []string
	seen := make(map[string]struct{})
	add := func(file string) {
		if file == "" {
			return
		}
		if _, ok := seen[file]; ok {
			return
		}
		seen[file] = struct{}{}
		files = append(files, file)
	}

	add(p.coreExcludesFile())
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		add(filepath.Join(home, ".gitignore"))
		add(filepath.Join(home, ".gitignore_global"))
		add(filepath.Join(home, ".config", "git", "ignore"))
	}
	return files
}

// coreExcludesFile reads core.excludesFile from the repository config.
func (p *ignoreProvider) coreExcludesFile() string {
	file, err := os.Open(filepath.Join(p.root, ".git", "config"))
	if err != nil {
		return ""
	}
	defer func() {
		_ = file.Close()
	}()

	inCore := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";"):
			continue
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			inCore = strings.HasPrefix(strings.ToLower(line), "[core")
			continue
		case !inCore || !strings.HasPrefix(strings.ToLower(line), "excludesfile"):
			continue
		}

		value := expandUserPath(configValue(line))
		if value == "" {
			continue
		}
		if !filepath.IsAbs(value) {
			value = filepath.Join(p.root, value)
		}
		return value
	}
	return ""
}

func configValue(line string) string {
	if _, value, ok := strings.Cut(line, "="); ok {
		return strings.TrimSpace(value)
	}
	fields := strings.Fields(line)
	if len(fields) <= 1 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

func expandUserPath(value string) string {
	value = strings.TrimSpace(value)
	if value != "~" && !strings.HasPrefix(value, "~/") {
		return value
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return value
	}
	return filepath.Join(home, strings.TrimPrefix(value, "~"))
}

func normalizeDirKey(relDir string) string {
	if relDir == "" {
		return "."
	}
	cleaned := filepath.ToSlash(filepath.Clean(relDir))
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "" || cleaned == "/" {
		return "."
	}
	return cleaned
}

func parentDirKey(relDir string) string {
	if relDir == "." {
		return "."
	}
	parent := path.Dir(relDir)
	if parent == "/" {
		return "."
	}
	return parent
}
