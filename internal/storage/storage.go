// Package storage persists rendered artifacts, either into a local output
// directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/pkg/util"
)

// ContentType of rendered artifacts
const ContentType = "video/mp4"

// Location is where a stored artifact ended up
type Location struct {
	Path string
	URL  string
}

// Store persists a finished file under an artifact id
type Store interface {
	Save(ctx context.Context, id, localPath string) (Location, error)
}

// LocalStore moves artifacts into a directory
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Save moves localPath to <dir>/<id><ext>
func (s *LocalStore) Save(_ context.Context, id, localPath string) (Location, error) {
	dst := filepath.Join(s.dir, id+filepath.Ext(localPath))
	if err := util.MoveFile(localPath, dst); err != nil {
		return Location{}, fmt.Errorf("failed to move artifact: %w", err)
	}

	abs, err := filepath.Abs(dst)
	if err != nil {
		abs = dst
	}
	return Location{
		Path: abs,
		URL:  (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
	}, nil
}

// S3Config contains minimal configuration for creating an S3 client.
// Values are optional and will fall back to the standard AWS config/credential chain.
type S3Config struct {
	Bucket string
	// Region to use for requests, e.g. "us-east-1". If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile. If empty, default chain applies.
	Profile string
	Prefix  string
	// UsePathStyle forces path-style addressing (useful for some S3-compatible providers).
	UsePathStyle bool
	// PublicBaseURL, when set, is joined with the key to form the returned URL
	PublicBaseURL string
}

// putter is the part of the S3 client the store needs
type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads artifacts to a bucket
type S3Store struct {
	logger zerolog.Logger
	client putter
	cfg    S3Config
}

// NewS3Store creates an S3 store using the default AWS configuration chain,
// with optional overrides from cfg.
func NewS3Store(ctx context.Context, logger zerolog.Logger, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Store(logger, client, cfg), nil
}

func newS3Store(logger zerolog.Logger, client putter, cfg S3Config) *S3Store {
	return &S3Store{
		logger: logger.With().Str("component", "storage").Logger(),
		client: client,
		cfg:    cfg,
	}
}

// Key returns the object key for an artifact
func (s *S3Store) Key(id, localPath string) string {
	return path.Join(s.cfg.Prefix, id+filepath.Ext(localPath))
}

// Save uploads localPath and removes the local copy
func (s *S3Store) Save(ctx context.Context, id, localPath string) (Location, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Location{}, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	key := s.Key(id, localPath)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			s.logger.Error().Str("code", apiErr.ErrorCode()).Str("key", key).Msg("upload rejected")
		}
		return Location{}, fmt.Errorf("failed to upload s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}

	f.Close()
	util.CleanupFiles(localPath)

	s.logger.Info().Str("bucket", s.cfg.Bucket).Str("key", key).Msg("artifact uploaded")
	return Location{URL: s.url(key)}, nil
}

func (s *S3Store) url(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
}
