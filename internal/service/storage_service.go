package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectPresigner is the part of *minio.Client used for signing.
type ObjectPresigner interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type StorageConfig struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UseSSL        bool
	TTL           time.Duration
}

// PresignedURL pairs a time-limited signed URL with the object's public URL.
type PresignedURL struct {
	SignedURL string `json:"signedUrl"`
	URL       string `json:"url"`
}

type StorageService struct {
	client        ObjectPresigner
	bucket        string
	publicBaseURL string
	ttl           time.Duration
}

// NewMinioPresigner builds a minio client for cfg. Setting Region keeps
// presigning offline since no bucket-location lookup is needed.
func NewMinioPresigner(cfg StorageConfig) (*minio.Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return client, nil
}

// NewStorageService accepts a nil client; every call then reports
// ErrStorageUnavailable.
func NewStorageService(client ObjectPresigner, cfg StorageConfig) *StorageService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" && cfg.Endpoint != "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + strings.TrimSpace(cfg.Endpoint)
	}
	return &StorageService{
		client:        client,
		bucket:        strings.TrimSpace(cfg.Bucket),
		publicBaseURL: base,
		ttl:           ttl,
	}
}

func (s *StorageService) PresignPut(ctx context.Context, key string) (*PresignedURL, error) {
	key, err := s.check(key)
	if err != nil {
		return nil, err
	}
	signed, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("presign put object: %w", err)
	}
	return &PresignedURL{SignedURL: signed.String(), URL: s.publicURL(key)}, nil
}

func (s *StorageService) PresignGet(ctx context.Context, key string) (*PresignedURL, error) {
	key, err := s.check(key)
	if err != nil {
		return nil, err
	}
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("presign get object: %w", err)
	}
	return &PresignedURL{SignedURL: signed.String(), URL: s.publicURL(key)}, nil
}

func (s *StorageService) check(key string) (string, error) {
	if s == nil || s.client == nil || s.bucket == "" {
		return "", ErrStorageUnavailable
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: key must not contain ..", ErrInvalidInput)
	}
	return key, nil
}

func (s *StorageService) publicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBaseURL + "/" + url.PathEscape(s.bucket) + "/" + strings.Join(segments, "/")
}
