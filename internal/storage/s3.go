package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/xid"

	"github.com/sakif/voyage/internal/apperror"
)

// s3API is the slice of the S3 client this store actually calls.
// Taking the interface (not *s3.Client) lets tests inject a fake that fails
// on command — there is no other way to exercise the album fan-out's
// failure path without a real bucket.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ PhotoStore = (*S3Store)(nil)

// S3Config configures the photo bucket.
type S3Config struct {
	Bucket string
	Region string // falls back to AWS_REGION, then us-east-1
	Prefix string // key prefix, e.g. "voyage/photos/"
}

// S3Store implements PhotoStore on top of an S3 bucket.
// Objects are keyed by xid, which also timestamps them — listing the bucket
// shows uploads in chronological order for free.
type S3Store struct {
	client s3API
	bucket string
	prefix string
	region string
	logger *slog.Logger
}

// NewS3Store creates an S3Store using the default AWS credential chain
// (env vars, shared config file, instance role — in that order).
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: region,
		logger: logger,
	}, nil
}

// NewS3StoreWithClient wires an explicit client. Tests use it with a fake;
// it also leaves the door open for S3-compatible stores (MinIO et al).
func NewS3StoreWithClient(client s3API, cfg S3Config, logger *slog.Logger) *S3Store {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: region,
		logger: logger,
	}
}

// UploadPhoto validates and stores one image, returning its public URL.
func (s *S3Store) UploadPhoto(ctx context.Context, photo Photo) (string, error) {
	ext, err := validatePhoto(photo)
	if err != nil {
		return "", err
	}

	url, err := s.put(ctx, photo, ext)
	if err != nil {
		return "", err
	}

	s.logger.Info("photo uploaded",
		slog.String("name", photo.Name),
		slog.String("url", url),
		slog.Int("bytes", len(photo.Data)),
	)
	return url, nil
}

// UploadAlbum stores every photo of an album and returns their URLs in the
// order they were supplied. Uploads run concurrently, one goroutine per
// photo; the buffered channel is sized to the photo count so every worker
// can finish its send even after a sibling has failed.
//
// The album is all-or-nothing: if any upload fails the whole call fails and
// no URLs are returned. Objects that landed before the failure are left in
// place; a retry writes under fresh keys and never collides with them.
func (s *S3Store) UploadAlbum(ctx context.Context, photos []Photo) ([]string, error) {
	if len(photos) == 0 {
		return nil, apperror.ValidationFailed("photos", "no files were uploaded")
	}

	// Validate everything before uploading anything: a bad third file should
	// not cost two network round-trips first.
	exts := make([]string, len(photos))
	for i, photo := range photos {
		ext, err := validatePhoto(photo)
		if err != nil {
			return nil, err
		}
		exts[i] = ext
	}

	type result struct {
		index int
		url   string
		err   error
	}

	results := make(chan result, len(photos))
	for i := range photos {
		go func(i int) {
			url, err := s.put(ctx, photos[i], exts[i])
			results <- result{index: i, url: url, err: err}
		}(i)
	}

	urls := make([]string, len(photos))
	var firstErr error
	for range photos {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		urls[r.index] = r.url
	}
	if firstErr != nil {
		return nil, firstErr
	}

	s.logger.Info("album uploaded", slog.Int("photos", len(photos)))
	return urls, nil
}

// put stores one object and builds its public URL.
func (s *S3Store) put(ctx context.Context, photo Photo, ext string) (string, error) {
	key := s.prefix + xid.New().String() + ext

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(photo.Data),
		ContentType: aws.String(photo.ContentType),
	})
	if err != nil {
		return "", apperror.Upstream("object store", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
