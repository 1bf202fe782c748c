package vault

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// FileEntry is the captured state of one file at scan time. Entries are
// immutable once added to a Snapshot.
type FileEntry struct {
	Path     string `db:"path"`      // relative, slash-separated
	Hash     string `db:"hash"`      // git blob sha1 of the content
	Size     int64  `db:"size"`      // bytes
	IsBinary bool   `db:"is_binary"` // content carries NUL bytes
}

// Snapshot maps normalized relative paths to their captured file state.
// One Snapshot represents one full side (local, remote or last-synced) at
// a single instant. A new Snapshot replaces the old, never mutated in place.
type Snapshot map[string]*FileEntry

func NewSnapshot() Snapshot {
	return make(Snapshot)
}

func (s Snapshot) Add(entry *FileEntry) {
	s[entry.Path] = entry
}

func (s Snapshot) Get(path string) (*FileEntry, bool) {
	e, ok := s[path]
	return e, ok
}

// PathSet returns the set of paths in the snapshot.
func (s Snapshot) PathSet() mapset.Set[string] {
	paths := mapset.NewThreadUnsafeSet[string]()
	for path := range s {
		paths.Add(path)
	}
	return paths
}

// UnionPaths returns every path present in at least one of the snapshots.
func UnionPaths(snapshots ...Snapshot) mapset.Set[string] {
	all := mapset.NewThreadUnsafeSet[string]()
	for _, snap := range snapshots {
		all = all.Union(snap.PathSet())
	}
	return all
}
