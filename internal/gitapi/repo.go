package gitapi

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vishal-go/GitSync/internal/utils"
)

// VerifyConnection performs a low-cost authenticated metadata read. It
// never returns an error: false on authentication failure, missing
// repository or network error, true only on confirmed read access.
func (c *Client) VerifyConnection(ctx context.Context) bool {
	var repo RepoResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&repo).
		SetErrorResult(&apiErrorBody{}).
		Get(c.repoPath(""))

	if err := mapAPIError(resp, err, "verify connection"); err != nil {
		slog.Debug("verify connection failed",
			"repo", c.cfg.Repository,
			"user", c.cfg.Username,
			"token", utils.MaskSecret(c.cfg.Token),
			"error", err)
		return false
	}

	return true
}

// EnsureRepository creates the target repository when it does not exist.
// Idempotent: an already existing repository is not an error.
func (c *Client) EnsureRepository(ctx context.Context) error {
	var repo RepoResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&repo).
		SetErrorResult(&apiErrorBody{}).
		Get(c.repoPath(""))

	mapped := mapAPIError(resp, err, "get repository")
	if mapped == nil {
		return nil
	}
	if !errors.Is(mapped, ErrNotFound) {
		return mapped
	}

	slog.Info("creating repository", "repo", c.cfg.Repository)
	resp, err = c.client.R().
		SetContext(ctx).
		SetBody(&CreateRepoParams{
			Name:     c.cfg.Repository,
			Private:  true,
			AutoInit: true,
		}).
		SetErrorResult(&apiErrorBody{}).
		Post("/user/repos")

	if err := mapAPIError(resp, err, "create repository"); err != nil {
		return err
	}
	return nil
}
