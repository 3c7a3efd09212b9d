package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"produce-market/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedImageType = errors.New("image must be jpeg, png or webp")
	ErrUnknownImageKind     = errors.New("image kind must be product, banner or category")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var imageKinds = map[string]bool{"product": true, "banner": true, "category": true}

// UploadTicket tells the admin client where to PUT an image and what URL
// to store afterwards
type UploadTicket struct {
	Key         string    `json:"key"`
	UploadURL   string    `json:"upload_url"`
	PublicURL   string    `json:"public_url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ImageService interface {
	PresignUpload(ctx context.Context, kind, contentType string) (*UploadTicket, error)
}

type imageService struct {
	storage storage.ObjectStorage
	ttl     time.Duration
}

func NewImageService(store storage.ObjectStorage, ttl time.Duration) ImageService {
	return &imageService{storage: store, ttl: ttl}
}

func (s *imageService) PresignUpload(ctx context.Context, kind, contentType string) (*UploadTicket, error) {
	if !imageKinds[kind] {
		return nil, ErrUnknownImageKind
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedImageType
	}

	key := fmt.Sprintf("images/%s/%s%s", kind, uuid.New(), ext)
	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadTicket{
		Key:         key,
		UploadURL:   uploadURL,
		PublicURL:   s.storage.PublicURL(key),
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}
