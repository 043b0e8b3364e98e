// Package s3storage implements blob storage on MinIO/S3. It satisfies the
// same interface as the local-disk backend; AbsolutePath stages a local copy
// because the conversion pipeline hands paths to external tools.
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Digitalmx/mattibud-web/internal/storage"
)

// Options carries the connection settings for the S3 backend.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	// StageDir holds local copies produced by AbsolutePath. Empty means a
	// fresh temp directory.
	StageDir string
}

// Storage wraps MinIO interactions for every blob the service touches.
type Storage struct {
	client   *minio.Client
	bucket   string
	region   string
	stageDir string
}

// New creates a MinIO client and prepares the staging directory.
func New(opts Options) (*Storage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	stage := opts.StageDir
	if stage == "" {
		stage, err = os.MkdirTemp("", "mattibud-stage-*")
		if err != nil {
			return nil, fmt.Errorf("create stage dir: %w", err)
		}
	} else if err := os.MkdirAll(stage, 0o755); err != nil {
		return nil, fmt.Errorf("create stage dir: %w", err)
	}
	return &Storage{
		client:   client,
		bucket:   opts.Bucket,
		region:   opts.Region,
		stageDir: stage,
	}, nil
}

// EnsureBucket makes sure the bucket exists before first use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *Storage) Write(ctx context.Context, path string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("put object %s: %w", path, err)
	}
	return nil
}

func (s *Storage) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", path, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	return data, nil
}

func (s *Storage) Delete(ctx context.Context, path string) error {
	exists, err := s.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", path, err)
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", path, err)
	}
	return true, nil
}

// AbsolutePath downloads the object into the staging directory and returns
// the local file. The stage copy is read-only scratch; results always go back
// through Write.
func (s *Storage) AbsolutePath(ctx context.Context, path string) (string, error) {
	data, err := s.Read(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	full := filepath.Join(s.stageDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create stage subdir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("stage object %s: %w", path, err)
	}
	return full, nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
