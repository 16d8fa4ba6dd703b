package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"chimeralens/api/internal/config"
	"chimeralens/api/internal/ids"
)

const (
	uploadMarker = "/upload/"
	optimizeHint = "f_auto,q_auto"

	maxFetchBytes = 32 << 20
)

// MediaStore persists image payloads in object storage and hands back
// durable public URLs. Uploads are append-only: a retried upload produces a
// fresh object under a new key, never a conflict.
type MediaStore struct {
	client     *minio.Client
	httpClient *http.Client
	cfg        config.StorageConfig
	log        zerolog.Logger
}

func NewMediaStore(cfg config.StorageConfig, log zerolog.Logger) (*MediaStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &MediaStore{
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *MediaStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// CheckHealth verifies the bucket is reachable.
func (s *MediaStore) CheckHealth(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.cfg.Bucket); err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

// UploadBytes stores a raw payload under the given folder and returns its
// durable URL.
func (s *MediaStore) UploadBytes(ctx context.Context, data []byte, folder string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty payload")
	}

	key := path.Join(folder, ids.New())
	contentType := http.DetectContentType(data)

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	s.log.Debug().Str("key", key).Int("size", len(data)).Msg("media stored")
	return s.publicURL(key), nil
}

// UploadFromURL fetches a remote image and re-stores it durably. Provider
// output URLs expire, so results are always copied in before persistence.
func (s *MediaStore) UploadFromURL(ctx context.Context, remoteURL, folder string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch remote: status %d", resp.StatusCode)
	}

	size := resp.ContentLength
	if size > maxFetchBytes {
		return "", fmt.Errorf("remote payload too large: %d bytes", size)
	}
	var body io.Reader = resp.Body
	if size < 0 {
		body = io.LimitReader(resp.Body, maxFetchBytes)
	}

	key := path.Join(folder, remoteObjectName(remoteURL))
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	s.log.Debug().Str("key", key).Str("source", remoteURL).Msg("remote media stored")
	return s.publicURL(key), nil
}

// Optimize exposes the package-level URL rewrite on the store so consumers
// can treat it as part of the media contract.
func (s *MediaStore) Optimize(u string) string {
	return Optimize(u)
}

// Optimize decorates a stored URL with a delivery-format/quality hint. It is
// a pure string transform: idempotent, and the identity for anything that is
// not a store URL.
func Optimize(u string) string {
	idx := strings.Index(u, uploadMarker)
	if idx < 0 {
		return u
	}
	rest := u[idx+len(uploadMarker):]
	if strings.HasPrefix(rest, optimizeHint+"/") {
		return u
	}
	return u[:idx] + uploadMarker + optimizeHint + "/" + rest
}

func (s *MediaStore) publicURL(key string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, s.cfg.Endpoint, s.cfg.Bucket)
	}
	return base + uploadMarker + key
}

// remoteObjectName derives a stable-ish object name from the remote URL's
// last path segment, falling back to a fresh id when the URL has none.
func remoteObjectName(remoteURL string) string {
	u, err := url.Parse(remoteURL)
	if err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			return strings.TrimSuffix(name, path.Ext(name))
		}
	}
	return ids.New()
}
