package vault

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is an optional gitignore-style file at the vault root
// whose rules apply on top of the configured exclusion lists.
const IgnoreFileName = ".syncignore"

// defaultIgnoreLines always apply, regardless of configuration.
var defaultIgnoreLines = []string{
	StateDirName + "/",
	".git/",
	IgnoreFileName,
	".DS_Store",
	"Thumbs.db",
	"*.tmp",
	"*.swp",
}

// ExclusionRules decides which vault paths stay out of a snapshot.
// Folder exclusions are prefix matches on normalized folder paths, file
// exclusions are case-sensitive exact or glob matches on the file name.
type ExclusionRules struct {
	folders  []string
	patterns []string
	ignore   *gitignore.GitIgnore
}

// NewExclusionRules builds rules from the configured folder and file
// lists, plus the vault's optional ignore file when vaultRoot is set.
func NewExclusionRules(folders, filePatterns []string, vaultRoot string) *ExclusionRules {
	normalized := make([]string, 0, len(folders))
	for _, f := range folders {
		f = strings.Trim(filepath.ToSlash(f), "/")
		if f != "" {
			normalized = append(normalized, f)
		}
	}

	lines := make([]string, 0, len(defaultIgnoreLines))
	lines = append(lines, defaultIgnoreLines...)
	if vaultRoot != "" {
		if data, err := os.ReadFile(filepath.Join(vaultRoot, IgnoreFileName)); err == nil {
			lines = append(lines, strings.Split(string(data), "\n")...)
		}
	}

	return &ExclusionRules{
		folders:  normalized,
		patterns: filePatterns,
		ignore:   gitignore.CompileIgnoreLines(lines...),
	}
}

// Excludes reports whether the given normalized relative path must not
// appear in a snapshot.
func (r *ExclusionRules) Excludes(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, folder := range r.folders {
		if relPath == folder || strings.HasPrefix(relPath, folder+"/") {
			return true
		}
	}

	name := path.Base(relPath)
	for _, pattern := range r.patterns {
		if name == pattern {
			return true
		}
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}

	return r.ignore.MatchesPath(relPath)
}
