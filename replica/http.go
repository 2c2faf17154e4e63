package replica

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Header names of the snapshot wire protocol. cmd/replicad implements the
// server side.
const (
	HeaderGeneration = "X-Lighter-Generation"
	HeaderCreatedAt  = "X-Lighter-Created-At"
)

// GenerationInfo is the JSON envelope returned by the generation endpoint.
type GenerationInfo struct {
	Generation string    `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
	Size       int64     `json:"size"`
}

// HTTPSyncer syncs snapshots against a replica HTTP endpoint.
type HTTPSyncer struct {
	base   string
	token  string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPSyncer creates a syncer for the given base URL. The token, if any,
// is sent as a bearer credential on every request.
func NewHTTPSyncer(baseURL, token string, logger *slog.Logger) (*HTTPSyncer, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse remote URL: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("remote URL %q has no host", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSyncer{
		base:   strings.TrimSuffix(parsed.String(), "/"),
		token:  token,
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}, nil
}

func (s *HTTPSyncer) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return req, nil
}

func (s *HTTPSyncer) Push(ctx context.Context, snap *Snapshot) error {
	if err := checkToken(s.token); err != nil {
		return err
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/v1/snapshot", bytes.NewReader(snap.Data))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(HeaderGeneration, snap.Generation)
	req.Header.Set(HeaderCreatedAt, snap.CreatedAt.UTC().Format(time.RFC3339Nano))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push snapshot: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	s.logger.Debug("pushed snapshot",
		"remote", s.base,
		"generation", snap.Generation,
		"bytes", len(snap.Data))
	return nil
}

func (s *HTTPSyncer) Pull(ctx context.Context) (*Snapshot, error) {
	if err := checkToken(s.token); err != nil {
		return nil, err
	}

	req, err := s.newRequest(ctx, http.MethodGet, "/v1/snapshot", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build pull request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to pull snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoSnapshot
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}

	snap := &Snapshot{
		Generation: resp.Header.Get(HeaderGeneration),
		Data:       data,
	}
	if at := resp.Header.Get(HeaderCreatedAt); at != "" {
		snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, at)
	}

	s.logger.Debug("pulled snapshot",
		"remote", s.base,
		"generation", snap.Generation,
		"bytes", len(snap.Data))
	return snap, nil
}

func (s *HTTPSyncer) Generation(ctx context.Context) (string, error) {
	if err := checkToken(s.token); err != nil {
		return "", err
	}

	req, err := s.newRequest(ctx, http.MethodGet, "/v1/generation", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNoSnapshot
	}
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var info GenerationInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	return info.Generation, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: remote returned status %d", ErrAuthFailed, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
