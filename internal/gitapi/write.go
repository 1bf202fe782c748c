package gitapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imroc/req/v3"
)

const blobFileMode = "100644"

// WriteFiles creates one commit containing the whole ordered change set,
// atomically from the API's perspective: blobs, then a tree on top of the
// last known head's tree, then a commit, then the ref update with the last
// known head as expected parent. Returns ErrConflict when the branch moved
// since it was last fetched; the caller must re-reconcile against the
// fresh remote state before retrying.
func (c *Client) WriteFiles(ctx context.Context, changes []FileChange, message string) (string, error) {
	if len(changes) == 0 {
		return "", fmt.Errorf("write files: empty change set")
	}

	parentCommit, baseTree := c.head()
	if parentCommit == "" {
		var err error
		parentCommit, baseTree, err = c.fetchBranchHead(ctx, c.cfg.Branch)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}

	entries := make([]newTreeEntry, 0, len(changes))
	for _, change := range changes {
		if change.Delete {
			entries = append(entries, newTreeEntry{
				Path: change.Path,
				Mode: blobFileMode,
				Type: "blob",
				SHA:  nil,
			})
			continue
		}

		blobSHA, err := c.createBlob(ctx, change.Content)
		if err != nil {
			return "", err
		}
		entries = append(entries, newTreeEntry{
			Path: change.Path,
			Mode: blobFileMode,
			Type: "blob",
			SHA:  &blobSHA,
		})
	}

	treeSHA, err := c.createTree(ctx, baseTree, entries)
	if err != nil {
		return "", err
	}

	var parents []string
	if parentCommit != "" {
		parents = []string{parentCommit}
	}
	commitSHA, err := c.createCommit(ctx, message, treeSHA, parents)
	if err != nil {
		return "", err
	}

	if err := c.updateRef(ctx, commitSHA, parentCommit == ""); err != nil {
		return "", err
	}

	c.setHead(commitSHA, treeSHA)
	slog.Debug("commit created", "commit", commitSHA, "changes", len(changes))
	return commitSHA, nil
}

func (c *Client) createBlob(ctx context.Context, content []byte) (string, error) {
	var blob createBlobResponse
	resp, reqErr := c.client.R().
		SetContext(ctx).
		SetBody(&createBlobParams{
			Content:  base64.StdEncoding.EncodeToString(content),
			Encoding: "base64",
		}).
		SetSuccessResult(&blob).
		SetErrorResult(&apiErrorBody{}).
		Post(c.repoPath("/git/blobs"))

	if err := mapAPIError(resp, reqErr, "create blob"); err != nil {
		return "", err
	}
	return blob.SHA, nil
}

func (c *Client) createTree(ctx context.Context, baseTree string, entries []newTreeEntry) (string, error) {
	var tree createTreeResponse
	resp, reqErr := c.client.R().
		SetContext(ctx).
		SetBody(&createTreeParams{
			BaseTree: baseTree,
			Tree:     entries,
		}).
		SetSuccessResult(&tree).
		SetErrorResult(&apiErrorBody{}).
		Post(c.repoPath("/git/trees"))

	if err := mapAPIError(resp, reqErr, "create tree"); err != nil {
		return "", err
	}
	return tree.SHA, nil
}

func (c *Client) createCommit(ctx context.Context, message, treeSHA string, parents []string) (string, error) {
	if parents == nil {
		parents = []string{}
	}

	var commit createCommitResponse
	resp, reqErr := c.client.R().
		SetContext(ctx).
		SetBody(&createCommitParams{
			Message: message,
			Tree:    treeSHA,
			Parents: parents,
		}).
		SetSuccessResult(&commit).
		SetErrorResult(&apiErrorBody{}).
		Post(c.repoPath("/git/commits"))

	if err := mapAPIError(resp, reqErr, "create commit"); err != nil {
		return "", err
	}
	return commit.SHA, nil
}

// updateRef moves the branch to the new commit. A non-fast-forward
// rejection means the ref moved under us and surfaces as ErrConflict.
func (c *Client) updateRef(ctx context.Context, commitSHA string, createBranch bool) error {
	var ref refResponse
	request := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&ref).
		SetErrorResult(&apiErrorBody{})

	if createBranch {
		res, err := request.
			SetBody(&createRefParams{
				Ref: "refs/heads/" + c.cfg.Branch,
				SHA: commitSHA,
			}).
			Post(c.repoPath("/git/refs"))
		return c.mapRefError(res, err)
	}

	res, err := request.
		SetBody(&updateRefParams{SHA: commitSHA, Force: false}).
		Patch(c.repoPath("/git/refs/heads/%s", escapePath(c.cfg.Branch)))
	return c.mapRefError(res, err)
}

func (c *Client) mapRefError(res *req.Response, reqErr error) error {
	if reqErr == nil && res != nil && res.IsErrorState() {
		status := res.GetStatusCode()
		if status == 409 || status == 422 {
			// next ListTree must refresh the expected parent
			c.setHead("", "")
			return fmt.Errorf("update ref: %w", ErrConflict)
		}
	}
	return mapAPIError(res, reqErr, "update ref")
}
