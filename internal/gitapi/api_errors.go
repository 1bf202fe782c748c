package gitapi

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// ErrAuthenticationFailed means the token was rejected or lacks access.
	ErrAuthenticationFailed = errors.New("gitapi: authentication failed")

	// ErrNotFound means the repository, branch or path does not exist.
	// Callers treat an absent branch as an empty remote.
	ErrNotFound = errors.New("gitapi: not found")

	// ErrRemoteUnavailable is a transient network or server failure.
	ErrRemoteUnavailable = errors.New("gitapi: remote unavailable")

	// ErrConflict means the branch reference moved since it was last
	// fetched. Callers must re-reconcile against the fresh remote state
	// before retrying, never retry blindly.
	ErrConflict = errors.New("gitapi: remote reference moved")
)

// apiErrorBody is the error payload the hosted API returns.
type apiErrorBody struct {
	Message string `json:"message"`
}

// mapAPIError classifies a response into the typed error surface.
func mapAPIError(resp *req.Response, requestErr error, op string) error {
	if requestErr != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnavailable, requestErr)
	}

	if !resp.IsErrorState() {
		return nil
	}

	msg := ""
	if body, ok := resp.ErrorResult().(*apiErrorBody); ok && body != nil {
		msg = body.Message
	}

	status := resp.GetStatusCode()
	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("%s: %w: %s", op, ErrAuthenticationFailed, msg)
	case status == 404:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status >= 500:
		return fmt.Errorf("%s: %w: http %d %s", op, ErrRemoteUnavailable, status, msg)
	default:
		return fmt.Errorf("%s: api error: http %d %s", op, status, msg)
	}
}
