package sync

import (
	"sort"

	"github.com/vishal-go/GitSync/internal/vault"
)

// Reconcile is a pure function that classifies every path in the union of
// the three snapshots into a ChangeAction. Hash equality means identical
// content.
//
// Decision policy, with lastSynced as the common ancestor:
//   - changed on one side only: propagate to the other side
//   - missing on one side, unchanged on the other: propagate the delete
//   - changed on both sides to the same content: converged, no action
//   - changed on both sides to different content: ConflictSkip, local kept
//   - deleted on one side, changed on the other: ConflictSkip resolved in
//     favor of the surviving content (never an automatic delete)
//
// The output is deterministic: creations and updates first, deletions
// last, each group ordered by path. Deletes last keeps a rename from ever
// passing through a state where the content exists on neither side.
func Reconcile(local, remote, lastSynced vault.Snapshot) []*ChangeAction {
	var upserts, deletes []*ChangeAction

	for _, path := range vault.UnionPaths(local, remote, lastSynced).ToSlice() {
		l, localExists := local.Get(path)
		r, remoteExists := remote.Get(path)
		j, journalExists := lastSynced.Get(path)

		if !localExists && !remoteExists {
			// deleted on both sides, only the journal remembers it
			continue
		}

		localChanged := localExists && (!journalExists || l.Hash != j.Hash)
		remoteChanged := remoteExists && (!journalExists || r.Hash != j.Hash)
		localDeleted := !localExists && journalExists
		remoteDeleted := !remoteExists && journalExists

		action := &ChangeAction{Path: path, Local: l, Remote: r, LastSynced: j}

		switch {
		case localChanged && remoteChanged:
			if l.Hash == r.Hash {
				// both sides converged on the same content
				continue
			}
			action.Type = ConflictSkip
			upserts = append(upserts, action)

		case localChanged && !remoteExists && !remoteDeleted:
			action.Type = UploadCreate
			upserts = append(upserts, action)

		case localChanged && remoteExists:
			action.Type = UploadUpdate
			upserts = append(upserts, action)

		case localChanged && remoteDeleted:
			// local edit vs remote delete: local wins, re-uploaded
			action.Type = ConflictSkip
			upserts = append(upserts, action)

		case remoteChanged && !localExists && !localDeleted:
			action.Type = DownloadCreate
			upserts = append(upserts, action)

		case remoteChanged && localExists:
			action.Type = DownloadUpdate
			upserts = append(upserts, action)

		case remoteChanged && localDeleted:
			// local delete vs remote edit: remote wins, re-downloaded
			action.Type = ConflictSkip
			upserts = append(upserts, action)

		case localDeleted && remoteExists:
			action.Type = UploadDelete
			deletes = append(deletes, action)

		case remoteDeleted && localExists:
			action.Type = DownloadDelete
			deletes = append(deletes, action)

		default:
			// unchanged on both sides
		}
	}

	sortByPath(upserts)
	sortByPath(deletes)
	return append(upserts, deletes...)
}

func sortByPath(actions []*ChangeAction) {
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].Path < actions[j].Path
	})
}
