package files

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "alphabase/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	service *Service
	rootDir string
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.rootDir = s.T().TempDir()
	s.service = NewService(NewInMemoryStore(), s.rootDir, slog.New(slog.DiscardHandler))
}

func (s *ServiceSuite) assertCode(err error, code dErrors.Code) {
	var domainErr *dErrors.Error
	s.Require().ErrorAs(err, &domainErr)
	s.Equal(code, domainErr.Code)
}

func (s *ServiceSuite) TestUploadThenOpen() {
	file, err := s.service.Upload(s.ctx, "alice", "report.txt", "text/plain", false, strings.NewReader("hello"))
	s.Require().NoError(err)
	s.Equal("alice", file.Owner)
	s.Equal(int64(5), file.Size)
	s.Equal(".txt", file.StoredFilename[len(file.StoredFilename)-4:])

	meta, blob, err := s.service.Open(s.ctx, "alice", file.ID)
	s.Require().NoError(err)
	defer blob.Close()

	content, err := io.ReadAll(blob)
	s.Require().NoError(err)
	s.Equal("hello", string(content))
	s.Equal("report.txt", meta.OriginalFilename)
}

func (s *ServiceSuite) TestPrivateFileHiddenFromOthers() {
	file, err := s.service.Upload(s.ctx, "alice", "secret.txt", "text/plain", false, strings.NewReader("x"))
	s.Require().NoError(err)

	_, _, err = s.service.Open(s.ctx, "bob", file.ID)
	s.assertCode(err, dErrors.CodeForbidden)
}

func (s *ServiceSuite) TestPublicFileReadableByAnyone() {
	file, err := s.service.Upload(s.ctx, "alice", "shared.txt", "text/plain", true, strings.NewReader("x"))
	s.Require().NoError(err)

	_, blob, err := s.service.Open(s.ctx, "bob", file.ID)
	s.Require().NoError(err)
	blob.Close()
}

func (s *ServiceSuite) TestOversizedUploadRejected() {
	// One byte over the cap.
	oversized := io.MultiReader(
		io.LimitReader(zeroReader{}, MaxUploadSize),
		strings.NewReader("x"),
	)
	_, err := s.service.Upload(s.ctx, "alice", "big.bin", "application/octet-stream", false, oversized)
	s.assertCode(err, dErrors.CodeBadRequest)

	// Nothing left behind on disk.
	entries, err := os.ReadDir(s.rootDir + "/users/alice")
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ServiceSuite) TestListReturnsOwnFilesOnly() {
	_, err := s.service.Upload(s.ctx, "alice", "a.txt", "text/plain", false, strings.NewReader("a"))
	s.Require().NoError(err)
	_, err = s.service.Upload(s.ctx, "bob", "b.txt", "text/plain", false, strings.NewReader("b"))
	s.Require().NoError(err)

	list, err := s.service.List(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("a.txt", list[0].OriginalFilename)
}

func (s *ServiceSuite) TestDeleteRemovesBlobAndMetadata() {
	file, err := s.service.Upload(s.ctx, "alice", "a.txt", "text/plain", false, strings.NewReader("a"))
	s.Require().NoError(err)

	s.assertCode(s.service.Delete(s.ctx, "bob", file.ID), dErrors.CodeForbidden)
	s.Require().NoError(s.service.Delete(s.ctx, "alice", file.ID))

	_, statErr := os.Stat(file.Path)
	s.True(os.IsNotExist(statErr))
	_, _, err = s.service.Open(s.ctx, "alice", file.ID)
	s.ErrorIs(err, ErrFileNotFound)
}

func (s *ServiceSuite) TestOpenUnknownFile() {
	_, _, err := s.service.Open(s.ctx, "alice", "no-such-id")
	s.ErrorIs(err, ErrFileNotFound)
}

// zeroReader yields an endless stream of zero bytes.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
