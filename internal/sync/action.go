package sync

import "github.com/vishal-go/GitSync/internal/vault"

type ActionType uint8

var actionTypeNames = []string{
	"UploadCreate",
	"UploadUpdate",
	"UploadDelete",
	"DownloadCreate",
	"DownloadUpdate",
	"DownloadDelete",
	"ConflictSkip",
}

const (
	UploadCreate ActionType = iota
	UploadUpdate
	UploadDelete
	DownloadCreate
	DownloadUpdate
	DownloadDelete
	ConflictSkip
)

func (a ActionType) String() string {
	return actionTypeNames[a]
}

// IsUpload reports whether the action mutates the remote side.
func (a ActionType) IsUpload() bool {
	return a == UploadCreate || a == UploadUpdate || a == UploadDelete
}

// IsDownload reports whether the action mutates the local side.
func (a ActionType) IsDownload() bool {
	return a == DownloadCreate || a == DownloadUpdate || a == DownloadDelete
}

// ChangeAction is one reconciliation decision for one path. Local, Remote
// and LastSynced carry the states the decision was made from; any of them
// may be nil.
type ChangeAction struct {
	Type       ActionType
	Path       string
	Local      *vault.FileEntry
	Remote     *vault.FileEntry
	LastSynced *vault.FileEntry
}
