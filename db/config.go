package db

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// Environment fallbacks for connection parameters omitted from the URL.
const (
	EnvSyncURL   = "LIBSQL_URL"
	EnvAuthToken = "LIBSQL_AUTH_TOKEN"
)

var ErrEmptyPath = errors.New("connection URL has no local path")

// Config holds the parsed connection parameters for one engine. It is
// immutable after construction and owned by the engine.
type Config struct {
	// Path is the local SQLite database file, or ":memory:".
	Path string

	// SyncURL is the remote replica endpoint. Empty means local-only.
	SyncURL string

	// AuthToken authenticates against the remote replica.
	AuthToken string

	// Driver is the optional "+<driver>" suffix of the URL scheme. It marks
	// the configuration for the asynchronous facade and is informational.
	Driver string

	// Logger receives structured engine logs. Nil means slog.Default().
	Logger *slog.Logger
}

// ParseURL parses a connection URL of the form
//
//	<scheme>[+<driver>]:///<local-path>?host=<host>:<port>&password=<token>
//
// Plain paths without a scheme are accepted as local-only configurations.
func ParseURL(raw string) (Config, error) {
	if raw == "" {
		return Config{}, ErrEmptyPath
	}

	if !strings.Contains(raw, "://") {
		return Config{Path: raw}, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse connection URL: %w", err)
	}

	scheme := parsed.Scheme
	driver := ""
	if i := strings.Index(scheme, "+"); i >= 0 {
		driver = scheme[i+1:]
		scheme = scheme[:i]
	}
	switch scheme {
	case "libsql", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported connection scheme: %s", parsed.Scheme)
	}

	// Three slashes mean a relative path, four an absolute one, matching
	// common SQLite URL conventions.
	path := strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host != "" {
		return Config{}, fmt.Errorf("connection URL must use an empty authority, got host %q", parsed.Host)
	}
	if path == "" {
		return Config{}, ErrEmptyPath
	}

	query := parsed.Query()
	return Config{
		Path:      path,
		SyncURL:   query.Get("host"),
		AuthToken: query.Get("password"),
		Driver:    driver,
	}, nil
}

// withEnv fills remote parameters from the environment when the URL left
// them out.
func (cfg Config) withEnv() Config {
	if cfg.SyncURL == "" {
		cfg.SyncURL = os.Getenv(EnvSyncURL)
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv(EnvAuthToken)
	}
	return cfg
}
