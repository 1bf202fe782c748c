package gitapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// ReadBlob fetches the content of one file at the branch head. Returns
// ErrNotFound when the path does not exist on the branch.
func (c *Client) ReadBlob(ctx context.Context, path string) ([]byte, error) {
	var contents ContentsResponse
	resp, reqErr := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&contents).
		SetErrorResult(&apiErrorBody{}).
		SetQueryParam("ref", c.cfg.Branch).
		Get(c.repoPath("/contents/%s", escapePath(path)))

	if err := mapAPIError(resp, reqErr, "read blob"); err != nil {
		return nil, err
	}

	// large files come back with an empty content field, fetch the raw
	// blob by object id instead
	if contents.Content == "" && contents.Size > 0 {
		return c.readRawBlob(ctx, contents.SHA)
	}

	return decodeContent(contents.Content, contents.Encoding)
}

func (c *Client) readRawBlob(ctx context.Context, sha string) ([]byte, error) {
	var blob BlobResponse
	resp, reqErr := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&blob).
		SetErrorResult(&apiErrorBody{}).
		Get(c.repoPath("/git/blobs/%s", sha))

	if err := mapAPIError(resp, reqErr, "read raw blob"); err != nil {
		return nil, err
	}

	return decodeContent(blob.Content, blob.Encoding)
}

func decodeContent(content, encoding string) ([]byte, error) {
	switch encoding {
	case "base64":
		// the API wraps base64 payloads with newlines
		data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode blob content: %w", err)
		}
		return data, nil
	case "", "none":
		return []byte(content), nil
	default:
		return nil, fmt.Errorf("unsupported blob encoding %q", encoding)
	}
}
