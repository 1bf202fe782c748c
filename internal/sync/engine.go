package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/vishal-go/GitSync/internal/config"
	"github.com/vishal-go/GitSync/internal/gitapi"
	"github.com/vishal-go/GitSync/internal/vault"
)

const (
	journalFileName = "journal.db"
	lockFileName    = "sync.lock"

	defaultDownloadWorkers = 4
	maxConflictRetries     = 3

	datePlaceholder = "{{date}}"
	dateFormat      = "2006-01-02 15:04:05"
)

// RemoteAPI is the surface the engine needs from the hosted repository
// client. *gitapi.Client satisfies it.
type RemoteAPI interface {
	VerifyConnection(ctx context.Context) bool
	EnsureRepository(ctx context.Context) error
	ListTree(ctx context.Context, branch string) (vault.Snapshot, error)
	ReadBlob(ctx context.Context, path string) ([]byte, error)
	WriteFiles(ctx context.Context, changes []gitapi.FileChange, message string) (string, error)
}

// Engine drives push, pull and full sync runs against one vault and one
// remote repository. At most one operation is in flight at a time; an
// in-process mutex rejects concurrent calls and a file lock rejects
// concurrent processes.
type Engine struct {
	cfg     *config.Config
	api     RemoteAPI
	scanner *vault.Scanner
	rules   *vault.ExclusionRules
	journal *Journal
	clock   clockwork.Clock
	flock   *flock.Flock
	mu      gosync.Mutex

	downloadWorkers int
}

type Option func(*Engine)

// WithClock injects a clock, used by tests to pin commit timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func NewEngine(cfg *config.Config, api RemoteAPI, opts ...Option) (*Engine, error) {
	scanner, err := vault.NewScanner(cfg.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	stateDir := filepath.Join(cfg.VaultDir, vault.StateDirName)
	journal, err := OpenJournal(filepath.Join(stateDir, journalFileName))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	engine := &Engine{
		cfg:             cfg,
		api:             api,
		scanner:         scanner,
		rules:           vault.NewExclusionRules(cfg.ExcludedFolderList(), cfg.ExcludedFileList(), cfg.VaultDir),
		journal:         journal,
		clock:           clockwork.NewRealClock(),
		flock:           flock.New(filepath.Join(stateDir, lockFileName)),
		downloadWorkers: defaultDownloadWorkers,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

func (e *Engine) Close() error {
	return e.journal.Close()
}

// IsConfigured is a structural check only, no network call.
func (e *Engine) IsConfigured() bool {
	return e.cfg.IsConfigured()
}

// VerifyConnection checks authenticated read access to the repository.
func (e *Engine) VerifyConnection(ctx context.Context) bool {
	if !e.IsConfigured() {
		return false
	}
	return e.api.VerifyConnection(ctx)
}

// Push uploads local changes as one commit. Remote-only changes are left
// untouched; conflicting paths are reported, not applied.
func (e *Engine) Push(ctx context.Context) (*Result, error) {
	return e.run(ctx, "push", func(ctx context.Context, result *Result) error {
		local, remote, last, err := e.gatherSnapshots(ctx)
		if err != nil {
			return err
		}

		actions, err := e.pushPhase(ctx, result, local, remote, last, false)
		if err != nil {
			return err
		}
		e.recordConflicts(result, actions)
		return nil
	})
}

// Pull downloads remote changes into the vault. Local-only changes are
// left untouched; conflicting paths are reported, not applied.
func (e *Engine) Pull(ctx context.Context) (*Result, error) {
	return e.run(ctx, "pull", func(ctx context.Context, result *Result) error {
		local, remote, last, err := e.gatherSnapshots(ctx)
		if err != nil {
			return err
		}

		actions := Reconcile(local, remote, last)
		e.recordConflicts(result, actions)
		return e.applyDownloads(ctx, result, filterActions(actions, ActionType.IsDownload))
	})
}

// Sync runs the full reconciliation: all uploads (including conflict
// re-uploads) land in one commit, then downloads run against the
// post-push remote state. Conflicts are resolved per policy, never by an
// automatic delete, and every conflict is reported.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	return e.run(ctx, "sync", func(ctx context.Context, result *Result) error {
		local, remote, last, err := e.gatherSnapshots(ctx)
		if err != nil {
			return err
		}

		actions, err := e.pushPhase(ctx, result, local, remote, last, true)
		if err != nil {
			return err
		}
		e.recordConflicts(result, actions)

		if err := ctx.Err(); err != nil {
			return err
		}

		downloads := filterActions(actions, ActionType.IsDownload)
		downloads = append(downloads, conflictDownloads(actions)...)
		if err := e.applyDownloads(ctx, result, downloads); err != nil {
			return err
		}

		e.refreshJournal(local, remote, last)
		return nil
	})
}

// run wraps one operation with the single-flight guards, the run id and
// the failure semantics: partial results stay attached to the error.
func (e *Engine) run(ctx context.Context, op string, fn func(context.Context, *Result) error) (*Result, error) {
	if !e.IsConfigured() {
		return nil, ErrNotConfigured
	}

	release, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	result := &Result{RunID: uuid.NewString()}
	tstart := e.clock.Now()

	err = fn(ctx, result)
	result.Timestamp = e.clock.Now()

	if err != nil {
		slog.Error("sync run failed", "op", op, "run", result.RunID, "error", err)
		return result, &FailedError{Partial: result, Err: err}
	}

	slog.Info("sync run done", "op", op, "run", result.RunID,
		"took", e.clock.Since(tstart),
		"pushed", result.Pushed,
		"pulled", result.Pulled,
		"conflicts", len(result.Conflicts),
		"failures", len(result.Failures))
	return result, nil
}

func (e *Engine) acquire() (func(), error) {
	if !e.mu.TryLock() {
		return nil, ErrSyncInProgress
	}

	locked, err := e.flock.TryLock()
	if err != nil || !locked {
		e.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyncInProgress, err)
		}
		return nil, ErrSyncInProgress
	}

	return func() {
		e.flock.Unlock()
		e.mu.Unlock()
	}, nil
}

// gatherSnapshots is the Scanning phase: local scan, remote listing and
// the persisted last-synced state. An absent remote branch is an empty
// remote, not an error.
func (e *Engine) gatherSnapshots(ctx context.Context) (local, remote, last vault.Snapshot, err error) {
	local, report, err := e.scanner.Scan(ctx, e.rules)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("scan vault: %w", err)
	}
	for _, skipped := range report.Skipped {
		slog.Warn("scan skipped", "path", skipped.Path, "reason", skipped.Reason)
	}

	remote, err = e.fetchRemote(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	last, err = e.journal.State()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load journal: %w", err)
	}

	// the scanner already filtered the local side; remote and journal
	// entries are filtered here so an excluded path never reaches the
	// reconciler from any side
	return local, e.dropExcluded(remote), e.dropExcluded(last), nil
}

func (e *Engine) dropExcluded(snap vault.Snapshot) vault.Snapshot {
	out := vault.NewSnapshot()
	for path, entry := range snap {
		if e.rules.Excludes(path) {
			continue
		}
		out.Add(entry)
	}
	return out
}

func (e *Engine) fetchRemote(ctx context.Context) (vault.Snapshot, error) {
	remote, err := e.api.ListTree(ctx, e.cfg.Branch)
	if err != nil {
		if errors.Is(err, gitapi.ErrNotFound) {
			return vault.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("list remote tree: %w", err)
	}
	return remote, nil
}

// recordConflicts notes every conflicting path in the result.
func (e *Engine) recordConflicts(result *Result, actions []*ChangeAction) {
	for _, action := range actions {
		if action.Type != ConflictSkip {
			continue
		}
		slog.Warn("sync conflict", "path", action.Path)
		result.Conflicts = append(result.Conflicts, action.Path)
	}
}

// refreshJournal aligns the journal with paths that already match on both
// sides (converged edits, first run against a matching remote) and prunes
// entries deleted on both sides.
func (e *Engine) refreshJournal(local, remote, last vault.Snapshot) {
	for path, l := range local {
		r, ok := remote.Get(path)
		if !ok || l.Hash != r.Hash {
			continue
		}
		if j, ok := last.Get(path); ok && j.Hash == l.Hash {
			continue
		}
		if err := e.journal.Set(l); err != nil {
			slog.Warn("journal refresh", "path", path, "error", err)
		}
	}

	for path := range last {
		_, localExists := local.Get(path)
		_, remoteExists := remote.Get(path)
		if !localExists && !remoteExists {
			if err := e.journal.Delete(path); err != nil {
				slog.Warn("journal prune", "path", path, "error", err)
			}
		}
	}
}

func filterActions(actions []*ChangeAction, keep func(ActionType) bool) []*ChangeAction {
	var out []*ChangeAction
	for _, action := range actions {
		if keep(action.Type) {
			out = append(out, action)
		}
	}
	return out
}

// conflictUploads returns conflict actions resolved by re-uploading local
// content (local edit vs remote delete).
func conflictUploads(actions []*ChangeAction) []*ChangeAction {
	var out []*ChangeAction
	for _, action := range actions {
		if action.Type == ConflictSkip && action.Local != nil && action.Remote == nil {
			out = append(out, action)
		}
	}
	return out
}

// conflictDownloads returns conflict actions resolved by downloading the
// remote content (local delete vs remote edit).
func conflictDownloads(actions []*ChangeAction) []*ChangeAction {
	var out []*ChangeAction
	for _, action := range actions {
		if action.Type == ConflictSkip && action.Local == nil && action.Remote != nil {
			out = append(out, action)
		}
	}
	return out
}

// renderCommitMessage substitutes the {{date}} placeholder with the local
// timestamp at commit time.
func renderCommitMessage(template string, now time.Time) string {
	return strings.ReplaceAll(template, datePlaceholder, now.Format(dateFormat))
}
