package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"produce-market/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewS3StorageValidatesConfig(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.StorageConfig{AccessKey: "a", SecretKey: "b"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewS3Storage(context.Background(), config.StorageConfig{Bucket: "images"}, zap.NewNop())
	assert.Error(t, err)
}

func TestS3StoragePresignsPut(t *testing.T) {
	s, err := NewS3Storage(context.Background(), config.StorageConfig{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		Bucket:       "produce",
		AccessKey:    "minio",
		SecretKey:    "minio-secret",
		UsePathStyle: true,
	}, zap.NewNop())
	require.NoError(t, err)

	raw, expiresAt, err := s.GenerateUploadURL(context.Background(), "images/product/abc.jpg", "image/jpeg", 10*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/produce/images/product/abc.jpg", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	assert.Equal(t, "http://localhost:9000/produce/images/product/abc.jpg", s.PublicURL("images/product/abc.jpg"))

	_, _, err = s.GenerateUploadURL(context.Background(), "", "image/jpeg", 0)
	assert.ErrorIs(t, err, ErrKeyRequired)
}

func TestS3StoragePublicBaseOverride(t *testing.T) {
	s, err := NewS3Storage(context.Background(), config.StorageConfig{
		Bucket:        "produce",
		AccessKey:     "a",
		SecretKey:     "b",
		PublicBaseURL: "https://cdn.shop.test/",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.shop.test/images/x.png", s.PublicURL("images/x.png"))
}

func TestStubStorage(t *testing.T) {
	s := NewStubStorage("")
	fixed := time.Date(2026, 1, 9, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	raw, expiresAt, err := s.GenerateUploadURL(context.Background(), "images/banner/b.webp", "image/webp", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Minute), expiresAt)
	assert.True(t, strings.HasPrefix(raw, "http://localhost:8080/uploads/upload/images/banner/b.webp?expires="))
	assert.Equal(t, "http://localhost:8080/uploads/images/banner/b.webp", s.PublicURL("images/banner/b.webp"))
}
