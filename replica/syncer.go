package replica

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	// ErrNoSnapshot is returned by Pull and Generation when the remote has
	// never received a snapshot.
	ErrNoSnapshot = errors.New("remote has no snapshot")

	// ErrAuthFailed is returned when the remote rejects the auth token.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrTokenExpired is returned before any network I/O when the configured
	// token is a JWT whose expiry has passed.
	ErrTokenExpired = errors.New("auth token is expired")
)

// Snapshot is one committed state of the local database file.
type Snapshot struct {
	Generation string
	CreatedAt  time.Time
	Data       []byte
}

// Syncer pushes and pulls database snapshots against a remote replica.
type Syncer interface {
	// Push uploads a snapshot, making it the remote's current state.
	Push(ctx context.Context, snap *Snapshot) error

	// Pull downloads the remote's current snapshot.
	Pull(ctx context.Context) (*Snapshot, error)

	// Generation returns the remote's current generation ID without
	// transferring snapshot data.
	Generation(ctx context.Context) (string, error)
}

// Scheme identifies the transport encoded in a remote URL.
type Scheme string

const (
	SchemeHTTP    Scheme = "http"
	SchemeHTTPS   Scheme = "https"
	SchemeS3      Scheme = "s3"
	SchemeUnknown Scheme = ""
)

// DetectScheme detects the transport scheme of a remote URL. Bare host:port
// strings are treated as HTTPS.
func DetectScheme(rawURL string) Scheme {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return SchemeS3
	case strings.HasPrefix(lower, "https://"):
		return SchemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return SchemeHTTP
	case strings.Contains(lower, "://"):
		return SchemeUnknown
	default:
		return SchemeHTTPS
	}
}

// New builds a Syncer for the given remote URL, dispatching on its scheme.
// A nil logger falls back to slog.Default().
func New(rawURL, authToken string, logger *slog.Logger) (Syncer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch DetectScheme(rawURL) {
	case SchemeHTTP, SchemeHTTPS:
		if !strings.Contains(rawURL, "://") {
			rawURL = "https://" + rawURL
		}
		return NewHTTPSyncer(rawURL, authToken, logger)
	case SchemeS3:
		return NewS3Syncer(rawURL, nil, logger)
	default:
		return nil, fmt.Errorf("unsupported remote URL scheme: %s", rawURL)
	}
}
