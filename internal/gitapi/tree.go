package gitapi

import (
	"context"
	"fmt"

	"github.com/vishal-go/GitSync/internal/vault"
)

// ListTree fetches the full recursive file listing of a branch with
// per-entry blob ids. Returns ErrNotFound when the branch (or repository)
// is absent, which callers treat as an empty remote. The fetched head is
// remembered as the expected parent for the next WriteFiles call.
func (c *Client) ListTree(ctx context.Context, branch string) (vault.Snapshot, error) {
	commitSHA, treeSHA, err := c.fetchBranchHead(ctx, branch)
	if err != nil {
		return nil, err
	}

	var tree TreeResponse
	resp, reqErr := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&tree).
		SetErrorResult(&apiErrorBody{}).
		SetQueryParam("recursive", "1").
		Get(c.repoPath("/git/trees/%s", treeSHA))

	if err := mapAPIError(resp, reqErr, "list tree"); err != nil {
		return nil, err
	}
	if tree.Truncated {
		return nil, fmt.Errorf("list tree: %w: listing truncated by server", ErrRemoteUnavailable)
	}

	snapshot := vault.NewSnapshot()
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		snapshot.Add(&vault.FileEntry{
			Path: entry.Path,
			Hash: entry.SHA,
			Size: entry.Size,
		})
	}

	c.setHead(commitSHA, treeSHA)
	return snapshot, nil
}

func (c *Client) fetchBranchHead(ctx context.Context, branch string) (commitSHA, treeSHA string, err error) {
	if branch == "" {
		branch = c.cfg.Branch
	}

	var head BranchResponse
	resp, reqErr := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&head).
		SetErrorResult(&apiErrorBody{}).
		Get(c.repoPath("/branches/%s", escapePath(branch)))

	if err := mapAPIError(resp, reqErr, "get branch"); err != nil {
		return "", "", err
	}

	return head.Commit.SHA, head.Commit.Commit.Tree.SHA, nil
}
