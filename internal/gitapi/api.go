package gitapi

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/imroc/req/v3"
	"github.com/vishal-go/GitSync/internal/version"
)

const (
	DefaultBaseURL = "https://api.github.com"

	headerAccept     = "Accept"
	headerAPIVersion = "X-GitHub-Api-Version"

	acceptJSON = "application/vnd.github+json"
	apiVersion = "2022-11-28"
)

// Config identifies the hosted repository and the credentials used to
// reach it. The token is only ever sent in the Authorization header.
type Config struct {
	BaseURL    string
	Username   string
	Token      string
	Repository string
	Branch     string
}

// Client is a typed wrapper over the hosted Git repository REST API. It
// performs network calls only and keeps no local state beyond the last
// known branch head, which WriteFiles uses as its expected parent.
type Client struct {
	client *req.Client
	cfg    *Config

	mu         sync.Mutex
	headCommit string
	headTree   string
}

func New(cfg *Config) (*Client, error) {
	if cfg.Repository == "" || cfg.Username == "" {
		return nil, fmt.Errorf("gitapi: repository and username are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}

	client := req.C().
		SetBaseURL(cfg.BaseURL).
		SetCommonRetryCount(3).
		SetCommonRetryBackoffInterval(1*time.Second, 5*time.Second).
		SetCommonRetryCondition(func(resp *req.Response, err error) bool {
			return err != nil || resp.GetStatusCode() >= 500
		}).
		SetTimeout(30*time.Second).
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(headerAccept, acceptJSON).
		SetCommonHeader(headerAPIVersion, apiVersion).
		SetCommonBearerAuthToken(cfg.Token).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &Client{
		client: client,
		cfg:    cfg,
	}, nil
}

// Branch returns the target branch the client operates on.
func (c *Client) Branch() string {
	return c.cfg.Branch
}

func (c *Client) repoPath(suffix string, args ...any) string {
	base := fmt.Sprintf("/repos/%s/%s", c.cfg.Username, c.cfg.Repository)
	if suffix == "" {
		return base
	}
	return base + fmt.Sprintf(suffix, args...)
}

// escapePath escapes every segment of a slash-separated path for use in
// a request URL, keeping the separators. File names may carry characters
// like `#`, `?` or `%` that would otherwise corrupt the request.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func (c *Client) setHead(commitSHA, treeSHA string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headCommit = commitSHA
	c.headTree = treeSHA
}

func (c *Client) head() (commitSHA, treeSHA string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headCommit, c.headTree
}
