package media

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sflix/server/internal/utils/sanitize"
	"go.uber.org/zap"
)

// FileInput is an uploaded file handed to the service.
type FileInput struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Metadata holds the editable text fields of a video.
type Metadata struct {
	Title       string
	Description string
	Status      string
	Category    string
}

// UploadInput represents a new video with its files.
type UploadInput struct {
	Metadata
	File      *FileInput
	Thumbnail *FileInput
	Trailer   *FileInput // optional
}

// UpdateInput replaces a video's metadata and optionally its thumbnail.
type UpdateInput struct {
	Metadata
	Thumbnail *FileInput
}

// Service provides video catalogue operations.
type Service struct {
	repo   Repository
	store  ObjectStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new media service. A nil store rejects uploads.
func NewService(repo Repository, store ObjectStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, store: store, logger: logger, now: time.Now}
}

// Upload stores the files and records the video. Files already uploaded are
// left in the bucket if a later step fails.
func (s *Service) Upload(ctx context.Context, in *UploadInput) (*Video, error) {
	meta, err := normalizeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}
	if in.File == nil || in.Thumbnail == nil {
		return nil, fmt.Errorf("%w: video file and thumbnail are required", ErrInvalidVideo)
	}

	fileURL, err := s.put(ctx, in.File)
	if err != nil {
		return nil, err
	}
	thumbURL, err := s.put(ctx, in.Thumbnail)
	if err != nil {
		return nil, err
	}

	var trailerURL *string
	if in.Trailer != nil {
		u, err := s.put(ctx, in.Trailer)
		if err != nil {
			return nil, err
		}
		trailerURL = &u
	}

	v := &Video{
		ID:           uuid.New(),
		Title:        meta.Title,
		Description:  meta.Description,
		Category:     meta.Category,
		Status:       meta.Status,
		FileURL:      fileURL,
		ThumbnailURL: thumbURL,
		TrailerURL:   trailerURL,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		s.logger.Error("video uploaded but not recorded",
			zap.String("file_url", fileURL),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("video uploaded", zap.String("video_id", v.ID.String()), zap.String("title", v.Title))
	return v, nil
}

// List returns every video, newest first.
func (s *Service) List(ctx context.Context) ([]*Video, error) {
	return s.repo.List(ctx)
}

// Update replaces the metadata of a video.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in *UpdateInput) error {
	meta, err := normalizeMetadata(in.Metadata)
	if err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	fields := map[string]any{
		"title":       meta.Title,
		"description": meta.Description,
		"status":      meta.Status,
		"category":    meta.Category,
	}
	if in.Thumbnail != nil {
		thumbURL, err := s.put(ctx, in.Thumbnail)
		if err != nil {
			return err
		}
		fields["thumbnail_url"] = thumbURL
	}
	return s.repo.Update(ctx, id, fields)
}

// SetStatus changes only the status of a video.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	status = sanitize.Text(status)
	if status == "" {
		return fmt.Errorf("%w: status is required", ErrInvalidVideo)
	}
	return s.repo.Update(ctx, id, map[string]any{"status": status})
}

// Delete removes the video record. Stored files are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) put(ctx context.Context, f *FileInput) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("%w: object storage is not configured", ErrUpload)
	}
	return s.store.Put(ctx, f.Name, f.Body, f.Size, f.ContentType)
}

func normalizeMetadata(m Metadata) (Metadata, error) {
	out := Metadata{
		Title:       sanitize.Text(m.Title),
		Description: sanitize.Text(m.Description),
		Status:      sanitize.Text(m.Status),
		Category:    sanitize.Text(m.Category),
	}
	if out.Title == "" || out.Description == "" || out.Status == "" || out.Category == "" {
		return Metadata{}, fmt.Errorf("%w: title, description, status and category are required", ErrInvalidVideo)
	}
	return out, nil
}
