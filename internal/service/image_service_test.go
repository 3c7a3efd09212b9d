package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"produce-market/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignUpload(t *testing.T) {
	svc := NewImageService(storage.NewStubStorage("https://cdn.example/assets"), 5*time.Minute)

	ticket, err := svc.PresignUpload(context.Background(), "product", "image/webp")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket.Key, "images/product/"))
	assert.True(t, strings.HasSuffix(ticket.Key, ".webp"))
	assert.Equal(t, "https://cdn.example/assets/"+ticket.Key, ticket.PublicURL)
	assert.Contains(t, ticket.UploadURL, ticket.Key)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), ticket.ExpiresAt, 5*time.Second)
}

func TestPresignUploadRejects(t *testing.T) {
	svc := NewImageService(storage.NewStubStorage(""), time.Minute)

	_, err := svc.PresignUpload(context.Background(), "avatar", "image/png")
	assert.ErrorIs(t, err, ErrUnknownImageKind)

	_, err = svc.PresignUpload(context.Background(), "banner", "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedImageType)
}
