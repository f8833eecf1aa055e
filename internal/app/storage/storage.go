// Package storage publishes transcription reports to an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apperrors "transcribe4all/internal/app/errors"
)

// Uploader publishes a local file and reports where it can be fetched.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) (*UploadResult, error)
	GetFileURL(key string) string
}

// UploadResult contains the result of a file upload
type UploadResult struct {
	URL        string    `json:"url"`
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// ConfigFromEnv reads the MINIO_* variables, falling back to the local
// minio defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    os.Getenv("MINIO_BUCKET"),
		Region:    os.Getenv("MINIO_REGION"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:9000"
	}
	if c.AccessKey == "" {
		c.AccessKey = "minioadmin"
	}
	if c.SecretKey == "" {
		c.SecretKey = "minioadmin"
	}
	if c.Bucket == "" {
		c.Bucket = "t4a-transcriptions"
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Prefix == "" {
		c.Prefix = "transcripts"
	}
	return c
}

// MinioStorage implements Uploader using MinIO
type MinioStorage struct {
	client   *minio.Client
	bucket   string
	endpoint string
	prefix   string
	useSSL   bool
}

// NewMinioStorage connects to the endpoint and creates the bucket when it
// does not exist yet.
func NewMinioStorage(ctx context.Context, cfg Config) (*MinioStorage, error) {
	cfg = cfg.withDefaults()

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrUploadFailed, fmt.Errorf("failed to create MinIO client: %w", err))
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrUploadFailed, fmt.Errorf("failed to check bucket existence: %w", err))
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, apperrors.Kind(apperrors.ErrUploadFailed, fmt.Errorf("failed to create bucket: %w", err))
		}
	}

	return &MinioStorage{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		prefix:   cfg.Prefix,
		useSSL:   cfg.UseSSL,
	}, nil
}

// UploadFile stores the report under <prefix>/<yyyy-mm-dd>/<id>-<file name>.
func (s *MinioStorage) UploadFile(ctx context.Context, localPath string) (*UploadResult, error) {
	now := time.Now()
	key := objectKey(s.prefix, filepath.Base(localPath), now)

	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
		UserMetadata: map[string]string{
			"original-name": filepath.Base(localPath),
			"uploaded-at":   now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrUploadFailed, err)
	}

	return &UploadResult{
		URL:        s.GetFileURL(key),
		Key:        key,
		Size:       info.Size,
		UploadedAt: now,
	}, nil
}

// GetFileURL returns the URL for accessing a file
func (s *MinioStorage) GetFileURL(key string) string {
	protocol := "http"
	if s.useSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.endpoint, s.bucket, key)
}

func objectKey(prefix, name string, at time.Time) string {
	fileID := uuid.New().String()[:8]
	return path.Join(prefix, at.Format("2006-01-02"), fileID+"-"+name)
}

// Reports end in "-json.txt" but hold JSON.
func contentType(localPath string) string {
	if strings.HasSuffix(localPath, ".json") || strings.HasSuffix(localPath, "-json.txt") {
		return "application/json; charset=utf-8"
	}
	return "application/octet-stream"
}

// MockStorage records uploads in memory (for testing and dry runs).
type MockStorage struct {
	mu       sync.Mutex
	Uploaded []string
	Err      error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

func (s *MockStorage) UploadFile(ctx context.Context, localPath string) (*UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, apperrors.Kind(apperrors.ErrUploadFailed, s.Err)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrUploadFailed, err)
	}
	s.Uploaded = append(s.Uploaded, localPath)

	key := objectKey("transcripts", filepath.Base(localPath), time.Now())
	return &UploadResult{
		URL:        s.GetFileURL(key),
		Key:        key,
		Size:       info.Size(),
		UploadedAt: time.Now(),
	}, nil
}

func (s *MockStorage) GetFileURL(key string) string {
	return fmt.Sprintf("/storage/%s", key)
}

var (
	_ Uploader = (*MinioStorage)(nil)
	_ Uploader = (*MockStorage)(nil)
)
