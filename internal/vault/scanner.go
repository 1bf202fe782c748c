package vault

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// StateDirName holds sync state (journal, lock file) inside the vault.
	StateDirName = ".gitsync"

	defaultHashWorkers = 8
	hashCacheSize      = 8192
)

// SkippedEntry records a path the scanner could not capture and why.
type SkippedEntry struct {
	Path   string
	Reason string
}

// ScanReport carries non-fatal findings from one scan run.
type ScanReport struct {
	Skipped []SkippedEntry
}

type cachedHash struct {
	size    int64
	modTime time.Time
	entry   *FileEntry
}

// Scanner walks a vault directory and captures it as a Snapshot. A hash
// cache keyed by path keeps unchanged files from being re-read across runs.
type Scanner struct {
	root    string
	workers int
	cache   *lru.Cache[string, cachedHash]
}

func NewScanner(root string) (*Scanner, error) {
	cache, err := lru.New[string, cachedHash](hashCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create hash cache: %w", err)
	}

	return &Scanner{
		root:    root,
		workers: defaultHashWorkers,
		cache:   cache,
	}, nil
}

func (s *Scanner) Root() string {
	return s.root
}

// AbsPath resolves a vault-relative path to an absolute one.
func (s *Scanner) AbsPath(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

type scanCandidate struct {
	relPath string
	absPath string
	size    int64
	modTime time.Time
}

// Scan walks the vault, applies the exclusion rules and fingerprints every
// remaining file, reading each exactly once. Symlinked or inaccessible
// entries are skipped and reported, never fatal.
func (s *Scanner) Scan(ctx context.Context, rules *ExclusionRules) (Snapshot, *ScanReport, error) {
	report := &ScanReport{}
	var candidates []scanCandidate

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return fmt.Errorf("walk vault: %w", err)
			}
			report.Skipped = append(report.Skipped, SkippedEntry{Path: path, Reason: err.Error()})
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && rules.Excludes(relPath) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			report.Skipped = append(report.Skipped, SkippedEntry{Path: relPath, Reason: "symlink"})
			return nil
		}

		if !d.Type().IsRegular() || rules.Excludes(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedEntry{Path: relPath, Reason: err.Error()})
			return nil
		}

		candidates = append(candidates, scanCandidate{
			relPath: relPath,
			absPath: path,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	}

	if err := filepath.WalkDir(s.root, walkFn); err != nil {
		return nil, nil, err
	}

	snapshot := NewSnapshot()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, cand := range candidates {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			entry, err := s.hashCandidate(cand)
			if err != nil {
				slog.Warn("scan skip", "path", cand.relPath, "error", err)
				mu.Lock()
				report.Skipped = append(report.Skipped, SkippedEntry{Path: cand.relPath, Reason: err.Error()})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			snapshot.Add(entry)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return snapshot, report, nil
}

func (s *Scanner) hashCandidate(cand scanCandidate) (*FileEntry, error) {
	if cached, ok := s.cache.Get(cand.relPath); ok {
		if cached.size == cand.size && cached.modTime.Equal(cand.modTime) {
			return cached.entry, nil
		}
	}

	entry, err := HashFile(cand.absPath, cand.size)
	if err != nil {
		return nil, err
	}
	entry.Path = cand.relPath

	s.cache.Add(cand.relPath, cachedHash{
		size:    cand.size,
		modTime: cand.modTime,
		entry:   entry,
	})
	return entry, nil
}
