package sync

import (
	"context"
	"log/slog"
	"os"
	gosync "sync"

	"github.com/vishal-go/GitSync/internal/utils"
	"golang.org/x/sync/errgroup"
)

// applyDownloads writes remote content into the vault with a bounded
// worker pool, then applies local deletions. Per-path failures are
// recorded and do not abort the phase; only cancellation does.
func (e *Engine) applyDownloads(ctx context.Context, result *Result, downloads []*ChangeAction) error {
	if len(downloads) == 0 {
		return nil
	}

	var writes, deletes []*ChangeAction
	for _, action := range downloads {
		if action.Type == DownloadDelete {
			deletes = append(deletes, action)
		} else {
			writes = append(writes, action)
		}
	}

	var mu gosync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.downloadWorkers)

	for _, action := range writes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			err := e.downloadOne(gctx, action)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("sync", "op", action.Type, "path", action.Path, "error", err)
				result.Failures = append(result.Failures, PathError{Path: action.Path, Err: err})
				return nil
			}

			result.Pulled++
			result.Bytes += action.Remote.Size
			slog.Info("sync", "op", action.Type, "path", action.Path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// deletions last, after every write landed
	for _, action := range deletes {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := os.Remove(e.scanner.AbsPath(action.Path)); err != nil && !os.IsNotExist(err) {
			slog.Warn("sync", "op", action.Type, "path", action.Path, "error", err)
			result.Failures = append(result.Failures, PathError{Path: action.Path, Err: err})
			continue
		}

		if err := e.journal.Delete(action.Path); err != nil {
			slog.Warn("journal delete", "path", action.Path, "error", err)
		}
		result.Pulled++
		slog.Info("sync", "op", action.Type, "path", action.Path)
	}

	return nil
}

// downloadOne fetches one blob and writes it into the vault, recording
// the new state in the journal.
func (e *Engine) downloadOne(ctx context.Context, action *ChangeAction) error {
	content, err := e.api.ReadBlob(ctx, action.Path)
	if err != nil {
		return err
	}

	target := e.scanner.AbsPath(action.Path)
	if err := utils.EnsureParent(target); err != nil {
		return err
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return err
	}

	entry := *action.Remote
	if entry.Size == 0 {
		entry.Size = int64(len(content))
	}
	if err := e.journal.Set(&entry); err != nil {
		slog.Warn("journal set", "path", action.Path, "error", err)
	}
	return nil
}
