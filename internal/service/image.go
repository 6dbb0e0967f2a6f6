package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/logger"
)

const recipeImagePrefix = "recipes/images"

// ImageStore persists image bytes and returns the public URL of the object
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// ImageService turns base64 data URIs into stored images
type ImageService struct {
	store    ImageStore
	maxBytes int64
}

func NewImageService(store ImageStore, maxBytes int64) *ImageService {
	return &ImageService{store: store, maxBytes: maxBytes}
}

// SaveDataURI decodes "data:image/<type>;base64,<payload>", checks the real
// content type and stores it under a fresh key
func (s *ImageService) SaveDataURI(ctx context.Context, dataURI string) (string, error) {
	data, err := decodeDataURI(dataURI)
	if err != nil {
		return "", err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", NewValidationError("image", fmt.Sprintf("image must not exceed %d bytes", s.maxBytes))
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", NewValidationError("image", "payload is not an image")
	}

	key := path.Join(recipeImagePrefix, uuid.NewString()+mtype.Extension())
	publicURL, err := s.store.Save(ctx, key, data, mtype.String())
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return publicURL, nil
}

// Delete removes a stored image. Failures are only logged.
func (s *ImageService) Delete(ctx context.Context, publicURL string) {
	if publicURL == "" {
		return
	}
	if err := s.store.Delete(ctx, publicURL); err != nil {
		logger.L().Warn("failed to delete image", zap.String("url", publicURL), zap.Error(err))
	}
}

func decodeDataURI(dataURI string) ([]byte, error) {
	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, NewValidationError("image", "image must be a base64 encoded data URI")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, NewValidationError("image", "image is not valid base64")
	}
	if len(data) == 0 {
		return nil, NewValidationError("image", "image is empty")
	}
	return data, nil
}

// S3ImageStore keeps images in an S3 (or S3 compatible) bucket
type S3ImageStore struct {
	s3 *config.S3Config
}

func NewS3ImageStore(s3Config *config.S3Config) *S3ImageStore {
	return &S3ImageStore{s3: s3Config}
}

func (s *S3ImageStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.s3.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.s3.PublicURL + "/" + key, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, publicURL string) error {
	key := strings.TrimPrefix(publicURL, s.s3.PublicURL+"/")
	if key == publicURL {
		return fmt.Errorf("url %q is not in bucket %s", publicURL, s.s3.BucketName)
	}
	_, err := s.s3.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3.BucketName),
		Key:    aws.String(key),
	})
	return err
}

// LocalImageStore writes images under root and serves them from baseURL
type LocalImageStore struct {
	root    string
	baseURL string
}

func NewLocalImageStore(root, baseURL string) *LocalImageStore {
	return &LocalImageStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalImageStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalImageStore) Delete(_ context.Context, publicURL string) error {
	key := strings.TrimPrefix(publicURL, s.baseURL+"/")
	if key == publicURL {
		if u, err := url.Parse(publicURL); err == nil {
			key = strings.TrimPrefix(u.Path, s.baseURL+"/")
		}
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("refusing to delete %q", publicURL)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
