package replica

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/goccy/go-json"
)

// S3Config contains S3 authentication configuration. A nil config uses the
// default AWS credential chain.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // Optional: custom S3-compatible endpoint
}

// S3Syncer stores snapshots as a pair of objects: the database bytes at the
// configured key and a JSON metadata sidecar at <key>.meta.
type S3Syncer struct {
	bucket string
	key    string
	cfg    *S3Config
	logger *slog.Logger

	// newClient is swapped in tests.
	newClient func(ctx context.Context) (s3API, error)
}

// s3API is the subset of the S3 client the syncer uses.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Syncer creates a syncer for an s3://bucket/key URL.
func NewS3Syncer(rawURL string, cfg *S3Config, logger *slog.Logger) (*S3Syncer, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	syncer := &S3Syncer{
		bucket: bucket,
		key:    key,
		cfg:    cfg,
		logger: logger,
	}
	syncer.newClient = func(ctx context.Context) (s3API, error) {
		return newS3Client(ctx, cfg)
	}
	return syncer, nil
}

// parseS3URL parses s3://bucket/key into bucket and key parts.
func parseS3URL(rawURL string) (bucket, key string, err error) {
	path := strings.TrimPrefix(rawURL, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", rawURL)
	}
	return parts[0], parts[1], nil
}

// newS3Client creates an S3 client with the given configuration.
func newS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg != nil && cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func (s *S3Syncer) metaKey() string {
	return s.key + ".meta"
}

func (s *S3Syncer) Push(ctx context.Context, snap *Snapshot) error {
	client, err := s.newClient(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(snap.Data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}

	meta, err := json.Marshal(GenerationInfo{
		Generation: snap.Generation,
		CreatedAt:  snap.CreatedAt.UTC(),
		Size:       int64(len(snap.Data)),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot metadata: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey()),
		Body:   bytes.NewReader(meta),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot metadata to S3: %w", err)
	}

	s.logger.Debug("pushed snapshot",
		"bucket", s.bucket,
		"key", s.key,
		"generation", snap.Generation,
		"bytes", len(snap.Data))
	return nil
}

func (s *S3Syncer) Pull(ctx context.Context) (*Snapshot, error) {
	client, err := s.newClient(ctx)
	if err != nil {
		return nil, err
	}

	info, err := s.fetchMeta(ctx, client)
	if err != nil {
		return nil, err
	}

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from S3: %w", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot from S3: %w", err)
	}

	return &Snapshot{
		Generation: info.Generation,
		CreatedAt:  info.CreatedAt,
		Data:       data,
	}, nil
}

func (s *S3Syncer) Generation(ctx context.Context) (string, error) {
	client, err := s.newClient(ctx)
	if err != nil {
		return "", err
	}

	info, err := s.fetchMeta(ctx, client)
	if err != nil {
		return "", err
	}
	return info.Generation, nil
}

func (s *S3Syncer) fetchMeta(ctx context.Context, client s3API) (*GenerationInfo, error) {
	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey()),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to get snapshot metadata from S3: %w", err)
	}
	defer obj.Body.Close()

	var info GenerationInfo
	if err := json.NewDecoder(obj.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot metadata: %w", err)
	}
	return &info, nil
}

var _ Syncer = (*S3Syncer)(nil)
var _ Syncer = (*HTTPSyncer)(nil)
