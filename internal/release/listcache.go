package release

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ListCacheTTL is how long a fetched release listing is reused.
const ListCacheTTL = 1 * time.Hour

const listCacheDir = ".releases"

type listCacheFile struct {
	Owner     string    `json:"owner"`
	Repo      string    `json:"repo"`
	FetchedAt time.Time `json:"fetched_at"`
	Releases  []Release `json:"releases"`
}

// CachedClient wraps a Client and keeps release listings on disk under
// <root>/.releases so repeated listings stay under the API rate limit.
// Builds and installs must use the plain Client: a cached listing can miss a
// release published since it was fetched.
type CachedClient struct {
	*Client
	root string
	ttl  time.Duration
	now  func() time.Time

	// Refresh skips fresh cache entries.
	Refresh bool
}

// NewCachedClient returns a CachedClient storing listings under root.
func NewCachedClient(client *Client, root string) *CachedClient {
	return &CachedClient{Client: client, root: root, ttl: ListCacheTTL, now: time.Now}
}

// Path is the listing file for owner/repo.
func (c *CachedClient) Path(owner, repo string) string {
	return filepath.Join(c.root, listCacheDir, owner+"_"+repo+".json")
}

// Releases returns a cached listing younger than the TTL, otherwise fetches
// and stores a new one. Fetch errors are returned as is.
func (c *CachedClient) Releases(ctx context.Context, owner, repo string) ([]Release, error) {
	cached, ok := c.load(owner, repo)
	if ok && !c.Refresh && c.now().Sub(cached.FetchedAt) < c.ttl {
		c.logger.Debug("using cached release listing", "repo", owner+"/"+repo, "fetched_at", cached.FetchedAt)
		return cached.Releases, nil
	}

	releases, err := c.Client.Releases(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	if err := c.save(listCacheFile{Owner: owner, Repo: repo, FetchedAt: c.now(), Releases: releases}); err != nil {
		c.logger.Warn("could not cache release listing", "error", err)
	}
	return releases, nil
}

func (c *CachedClient) load(owner, repo string) (listCacheFile, bool) {
	data, err := os.ReadFile(c.Path(owner, repo))
	if err != nil {
		return listCacheFile{}, false
	}
	var f listCacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Warn("ignoring corrupt release cache", "path", c.Path(owner, repo), "error", err)
		return listCacheFile{}, false
	}
	if err := classifyAssets(f.Releases); err != nil {
		return listCacheFile{}, false
	}
	return f, true
}

func (c *CachedClient) save(f listCacheFile) error {
	path := c.Path(f.Owner, f.Repo)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare release cache: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode release cache: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
