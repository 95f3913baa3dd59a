package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	dErrors "alphabase/pkg/domain-errors"
)

// Service stores blobs on disk and records their metadata. Private uploads go
// under users/<owner>/, public ones under public/; access control on download
// is owner-or-public.
type Service struct {
	store   Store
	rootDir string
	logger  *slog.Logger
	clock   func() time.Time
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator sets the file ID generator for testability.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewService(store Store, rootDir string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		rootDir: rootDir,
		logger:  logger,
		clock:   time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Upload stores a blob and its metadata. The reader is consumed up to the
// size cap; anything larger is rejected without being kept on disk.
func (s *Service) Upload(ctx context.Context, owner, originalFilename, mimeType string, public bool, content io.Reader) (File, error) {
	if originalFilename == "" {
		return File{}, dErrors.New(dErrors.CodeBadRequest, "filename must not be empty")
	}

	id := s.newID()
	storedFilename := id + filepath.Ext(originalFilename)

	dir := filepath.Join(s.rootDir, "public")
	if !public {
		dir = filepath.Join(s.rootDir, "users", owner)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return File{}, fmt.Errorf("create storage dir: %w", err)
	}
	path := filepath.Join(dir, storedFilename)

	out, err := os.Create(path)
	if err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}

	// Read one byte past the cap so oversized uploads are detectable.
	size, err := io.Copy(out, io.LimitReader(content, MaxUploadSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return File{}, fmt.Errorf("write file: %w", err)
	}
	if size > MaxUploadSize {
		_ = os.Remove(path)
		return File{}, dErrors.New(dErrors.CodeBadRequest, "file too large, maximum size is 10MB")
	}

	file := File{
		ID:               id,
		StoredFilename:   storedFilename,
		OriginalFilename: originalFilename,
		Path:             path,
		Size:             size,
		MimeType:         mimeType,
		Owner:            owner,
		Public:           public,
		CreatedAt:        s.clock().UTC(),
	}
	if err := s.store.Create(ctx, file); err != nil {
		_ = os.Remove(path)
		return File{}, err
	}

	s.logger.InfoContext(ctx, "file uploaded",
		"file_id", id,
		"owner", owner,
		"size", size,
		"public", public,
	)
	return file, nil
}

// Open returns the metadata and an open reader for a file the principal may
// access: public files are readable by anyone authenticated, private files
// only by their owner.
func (s *Service) Open(ctx context.Context, principal, id string) (File, io.ReadCloser, error) {
	file, err := s.store.Get(ctx, id)
	if err != nil {
		return File{}, nil, err
	}
	if !file.Public && file.Owner != principal {
		return File{}, nil, dErrors.New(dErrors.CodeForbidden, "not authorized to access this file")
	}

	blob, err := os.Open(file.Path)
	if errors.Is(err, os.ErrNotExist) {
		return File{}, nil, dErrors.New(dErrors.CodeNotFound, "file missing from storage")
	}
	if err != nil {
		return File{}, nil, fmt.Errorf("open file %s: %w", id, err)
	}
	return file, blob, nil
}

// List returns the principal's own files.
func (s *Service) List(ctx context.Context, owner string) ([]File, error) {
	return s.store.ListByOwner(ctx, owner)
}

// Delete removes a file's blob and metadata. Only the owner may delete,
// public or not.
func (s *Service) Delete(ctx context.Context, principal, id string) error {
	file, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if file.Owner != principal {
		return dErrors.New(dErrors.CodeForbidden, "not authorized to delete this file")
	}

	if err := os.Remove(file.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file %s: %w", id, err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "file deleted", "file_id", id, "owner", principal)
	return nil
}
