package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/vishal-go/GitSync/internal/gitapi"
	"github.com/vishal-go/GitSync/internal/vault"
)

// pushPhase applies every upload action as a single commit. When the
// remote reference moved underneath us the phase re-reconciles against
// the freshly fetched remote state and retries, up to a fixed ceiling.
// It returns the action set of the attempt that actually landed so the
// caller can derive its download and conflict reporting from it.
func (e *Engine) pushPhase(ctx context.Context, result *Result, local, remote, last vault.Snapshot, full bool) ([]*ChangeAction, error) {
	actions := Reconcile(local, remote, last)
	readFailures := make(map[string]error)

	for attempt := 0; ; attempt++ {
		uploads := filterActions(actions, ActionType.IsUpload)
		if full {
			uploads = append(uploads, conflictUploads(actions)...)
		}

		changes, applied := e.buildChanges(uploads, readFailures)
		if len(changes) == 0 {
			e.recordReadFailures(result, readFailures)
			return actions, nil
		}

		message := renderCommitMessage(e.cfg.CommitMessageTemplate, e.clock.Now())
		commitID, err := e.api.WriteFiles(ctx, changes, message)
		if err == nil {
			result.CommitID = commitID
			e.commitJournal(result, applied)
			e.recordReadFailures(result, readFailures)
			slog.Info("push phase", "commit", commitID, "uploads", len(applied))
			return actions, nil
		}

		if errors.Is(err, gitapi.ErrNotFound) && attempt == 0 {
			// first push against a repository that does not exist yet
			slog.Info("repository missing, creating it")
			if err := e.api.EnsureRepository(ctx); err != nil {
				return actions, err
			}
			continue
		}

		if errors.Is(err, gitapi.ErrConflict) && attempt < maxConflictRetries {
			slog.Warn("remote moved, re-reconciling", "attempt", attempt+1)
			remote, err = e.fetchRemote(ctx)
			if err != nil {
				return actions, err
			}
			actions = Reconcile(local, remote, last)
			continue
		}

		e.recordReadFailures(result, readFailures)
		return actions, fmt.Errorf("write files: %w", err)
	}
}

// buildChanges reads local content for each upload action. A file that
// cannot be read is recorded and skipped, never fatal for the run.
func (e *Engine) buildChanges(uploads []*ChangeAction, readFailures map[string]error) ([]gitapi.FileChange, []*ChangeAction) {
	changes := make([]gitapi.FileChange, 0, len(uploads))
	applied := make([]*ChangeAction, 0, len(uploads))

	for _, action := range uploads {
		if action.Type == UploadDelete {
			changes = append(changes, gitapi.FileChange{Path: action.Path, Delete: true})
			applied = append(applied, action)
			continue
		}

		content, err := os.ReadFile(e.scanner.AbsPath(action.Path))
		if err != nil {
			readFailures[action.Path] = err
			continue
		}

		changes = append(changes, gitapi.FileChange{Path: action.Path, Content: content})
		applied = append(applied, action)
	}

	return changes, applied
}

// commitJournal records the uploaded state once the commit landed.
func (e *Engine) commitJournal(result *Result, applied []*ChangeAction) {
	for _, action := range applied {
		if action.Type == UploadDelete {
			if err := e.journal.Delete(action.Path); err != nil {
				slog.Warn("journal delete", "path", action.Path, "error", err)
			}
		} else {
			if err := e.journal.Set(action.Local); err != nil {
				slog.Warn("journal set", "path", action.Path, "error", err)
			}
			result.Bytes += action.Local.Size
		}
		result.Pushed++
		slog.Info("sync", "op", action.Type, "path", action.Path)
	}
}

func (e *Engine) recordReadFailures(result *Result, readFailures map[string]error) {
	for path, err := range readFailures {
		slog.Warn("sync", "op", "upload", "path", path, "error", err)
		result.Failures = append(result.Failures, PathError{Path: path, Err: err})
	}
}
