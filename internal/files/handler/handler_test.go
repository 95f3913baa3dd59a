package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"alphabase/internal/files"
)

type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("invalid token")
	}
	return token, nil
}

type HandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	service := files.NewService(files.NewInMemoryStore(), s.T().TempDir(), logger)
	s.router = chi.NewRouter()
	New(service, staticValidator{}, logger).Register(s.router)
}

func (s *HandlerSuite) upload(user, filename, content, isPublic string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	s.Require().NoError(err)
	_, err = io.WriteString(part, content)
	s.Require().NoError(err)
	s.Require().NoError(writer.WriteField("is_public", isPublic))
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/storage/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+user)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) get(method, target, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestUploadAndDownload() {
	rec := s.upload("alice", "notes.txt", "file content", "false")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Success     bool   `json:"success"`
		FileID      string `json:"file_id"`
		Filename    string `json:"filename"`
		FileSize    int64  `json:"file_size"`
		DownloadURL string `json:"download_url"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.True(body.Success)
	s.Equal("notes.txt", body.Filename)
	s.Equal(int64(len("file content")), body.FileSize)

	download := s.get(http.MethodGet, body.DownloadURL, "alice")
	s.Require().Equal(http.StatusOK, download.Code)
	s.Equal("file content", download.Body.String())
	s.Contains(download.Header().Get("Content-Disposition"), "notes.txt")
}

func (s *HandlerSuite) TestPrivateDownloadForbiddenForOthers() {
	rec := s.upload("alice", "secret.txt", "x", "false")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		FileID string `json:"file_id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))

	s.Equal(http.StatusForbidden, s.get(http.MethodGet, "/storage/download/"+body.FileID, "bob").Code)
}

func (s *HandlerSuite) TestPublicDownload() {
	rec := s.upload("alice", "shared.txt", "x", "true")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		FileID string `json:"file_id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))

	s.Equal(http.StatusOK, s.get(http.MethodGet, "/storage/download/"+body.FileID, "bob").Code)
}

func (s *HandlerSuite) TestListAndDelete() {
	rec := s.upload("alice", "a.txt", "a", "false")
	s.Require().Equal(http.StatusOK, rec.Code)

	var uploaded struct {
		FileID string `json:"file_id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &uploaded))

	list := s.get(http.MethodGet, "/storage/files", "alice")
	s.Require().Equal(http.StatusOK, list.Code)

	var listing struct {
		Count int `json:"count"`
	}
	s.Require().NoError(json.Unmarshal(list.Body.Bytes(), &listing))
	s.Equal(1, listing.Count)

	del := s.get(http.MethodDelete, "/storage/delete/"+uploaded.FileID, "alice")
	s.Require().Equal(http.StatusOK, del.Code)

	s.Equal(http.StatusNotFound, s.get(http.MethodGet, "/storage/download/"+uploaded.FileID, "alice").Code)
}

func (s *HandlerSuite) TestUnauthenticatedRejected() {
	s.Equal(http.StatusUnauthorized, s.get(http.MethodGet, "/storage/files", "").Code)
}

func (s *HandlerSuite) TestUploadWithoutFileField() {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	s.Require().NoError(writer.WriteField("is_public", "false"))
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/storage/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer alice")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}
