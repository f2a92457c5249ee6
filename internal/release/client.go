package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultAPI is the GitHub REST API root.
	DefaultAPI = "https://api.github.com"

	apiVersion = "2022-11-28"
	acceptJSON = "application/vnd.github+json"

	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 4 << 10
)

// ErrNetwork is wrapped by transport failures and non-success responses.
var ErrNetwork = errors.New("network error")

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	URL    string
	Status string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrNetwork }

// Options configures a Client. Zero values pick sensible defaults.
type Options struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
	Token      string
	Logger     *slog.Logger
}

// Client talks to the GitHub releases API and downloads assets.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	token     string
	logger    *slog.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		http:      opts.HTTPClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		token:     opts.Token,
		logger:    opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Minute}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultAPI
	}
	if c.userAgent == "" {
		c.userAgent = "lbt/1.0"
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Releases lists the published releases of owner/repo and classifies every
// asset by platform.
func (c *Client) Releases(ctx context.Context, owner, repo string) ([]Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	c.decorate(req)

	c.logger.Debug("fetching releases", "owner", owner, "repo", repo, "url", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list releases %s/%s: %w: %w", owner, repo, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, endpoint); err != nil {
		return nil, err
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode releases %s/%s: %w: %w", owner, repo, ErrNetwork, err)
	}

	if err := classifyAssets(releases); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched releases", "owner", owner, "repo", repo, "count", len(releases))
	return releases, nil
}

// Download fetches rawURL into dest. The body is written straight to dest,
// so a dropped connection leaves a truncated file behind.
func (c *Client) Download(ctx context.Context, rawURL, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare download destination: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.decorate(req)

	c.logger.Info("downloading asset", "url", rawURL, "dest", dest)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w: %w", rawURL, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, rawURL); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		return fmt.Errorf("download %s: %w: %w", rawURL, ErrNetwork, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	c.logger.Debug("downloaded asset", "dest", dest, "bytes", n)
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" && sameHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) checkStatus(resp *http.Response, endpoint string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.logger.Error("request failed", "url", endpoint, "status", resp.Status, "body", string(body))
	return &StatusError{URL: endpoint, Status: resp.Status, Code: resp.StatusCode, Body: string(body)}
}

func sameHost(u *url.URL, base string) bool {
	parsed, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, parsed.Host)
}

func classifyAssets(releases []Release) error {
	for i := range releases {
		for j := range releases[i].Assets {
			asset := &releases[i].Assets[j]
			kind, err := Classify(asset.Name)
			if err != nil {
				return fmt.Errorf("release %s asset %s: %w", releases[i].Tag, asset.Name, err)
			}
			asset.Type = kind
		}
	}
	return nil
}
