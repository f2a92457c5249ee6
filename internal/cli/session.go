package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"lbt/internal/config"
	"lbt/internal/install"
	"lbt/internal/logx"
	"lbt/internal/paths"
	"lbt/internal/release"
)

// userAgent identifies lbt to the GitHub API.
const userAgent = "lbt"

// newReleaseClient is swapped in tests to point at an httptest server.
var newReleaseClient = func(logger *slog.Logger) *release.Client {
	return release.NewClient(release.Options{
		UserAgent: userAgent,
		Token:     env.Str("LBT_GITHUB_TOKEN", env.Str("GITHUB_TOKEN")),
		Logger:    logger,
	})
}

// session bundles what most commands need: resolved paths, the loaded
// config, a file logger and the install cache.
type session struct {
	paths      paths.ProjectPaths
	cfg        config.Config
	configPath string
	logger     *slog.Logger
	closer     io.Closer
	client     *release.Client
	listings   *release.CachedClient
	cache      *install.Cache
}

func openSession(withProject bool) (*session, error) {
	s := &session{logger: logx.Discard(), closer: io.NopCloser(nil)}

	if withProject {
		pp, err := paths.Resolve(projectDir)
		if err != nil {
			return nil, err
		}
		exists, err := paths.DirExists(pp.Root)
		if err != nil {
			return nil, fmt.Errorf("stat project dir: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("project directory does not exist: %s", pp.Root)
		}
		cfg, cfgPath, err := config.LoadProject(pp.Root)
		if err != nil {
			return nil, err
		}
		logger, closer, err := logx.New(pp, logLevel)
		if err != nil {
			return nil, err
		}
		s.paths, s.cfg, s.configPath = pp, cfg, cfgPath
		s.logger, s.closer = logger, closer
	}

	root, err := paths.CacheRoot(cacheDir)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.client = newReleaseClient(s.logger)
	s.listings = release.NewCachedClient(s.client, root)
	s.cache = install.New(root, s.client, s.logger)
	return s, nil
}

func (s *session) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
