package gitapi

// =====================================================================

// RepoResponse is the repository metadata payload.
type RepoResponse struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
}

// CreateRepoParams creates a new repository under the authenticated user.
type CreateRepoParams struct {
	Name     string `json:"name"`
	Private  bool   `json:"private"`
	AutoInit bool   `json:"auto_init"`
}

// =====================================================================

// BranchResponse is the branch head payload.
type BranchResponse struct {
	Name   string `json:"name"`
	Commit struct {
		SHA    string `json:"sha"`
		Commit struct {
			Tree struct {
				SHA string `json:"sha"`
			} `json:"tree"`
		} `json:"commit"`
	} `json:"commit"`
}

// TreeResponse is a full recursive tree listing.
type TreeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

// =====================================================================

// ContentsResponse is the file content payload at a given ref.
type ContentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Size     int64  `json:"size"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
}

// BlobResponse is a raw blob payload by object id.
type BlobResponse struct {
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// =====================================================================

// FileChange is one entry of an atomic multi-file commit. Content is nil
// when Delete is set.
type FileChange struct {
	Path    string
	Content []byte
	Delete  bool
}

type createBlobParams struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type createBlobResponse struct {
	SHA string `json:"sha"`
}

type newTreeEntry struct {
	Path string  `json:"path"`
	Mode string  `json:"mode"`
	Type string  `json:"type"`
	SHA  *string `json:"sha"` // null removes the path from the tree
}

type createTreeParams struct {
	BaseTree string         `json:"base_tree,omitempty"`
	Tree     []newTreeEntry `json:"tree"`
}

type createTreeResponse struct {
	SHA string `json:"sha"`
}

type createCommitParams struct {
	Message string   `json:"message"`
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`
}

type createCommitResponse struct {
	SHA string `json:"sha"`
	Tree struct {
		SHA string `json:"sha"`
	} `json:"tree"`
}

type updateRefParams struct {
	SHA   string `json:"sha"`
	Force bool   `json:"force"`
}

type createRefParams struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

type refResponse struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}
