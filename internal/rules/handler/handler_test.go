package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"alphabase/internal/rules"
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
	engine *rules.Engine
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.engine = rules.NewEngine()
	s.router = chi.NewRouter()
	New(s.engine, staticValidator{}, slog.New(slog.DiscardHandler)).Register(s.router)
}

func (s *HandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer admin")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestGetRulesReturnsTable() {
	rec := s.do(http.MethodGet, "/security/rules", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var table map[string]rules.RuleText
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &table))
	s.Equal("true", table["sensors"].Read)
	s.Equal("resource.owner == auth.uid", table["sensors"].Write)
	s.Contains(table, "admin")
}

func (s *HandlerSuite) TestUpdateRule() {
	rec := s.do(http.MethodPost, "/security/rules/notes", `{"read":"auth != null"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"success":true,"message":"Rules updated for notes"}`, rec.Body.String())

	var table map[string]rules.RuleText
	get := s.do(http.MethodGet, "/security/rules", "")
	s.Require().NoError(json.Unmarshal(get.Body.Bytes(), &table))
	s.Equal("auth != null", table["notes"].Read)
	s.Equal("false", table["notes"].Write, "unspecified side of a new collection fails closed")
}

func (s *HandlerSuite) TestInvalidExpressionRejected() {
	rec := s.do(http.MethodPost, "/security/rules/sensors", `{"write":"1 == 1; DROP TABLE"}`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var table map[string]rules.RuleText
	get := s.do(http.MethodGet, "/security/rules", "")
	s.Require().NoError(json.Unmarshal(get.Body.Bytes(), &table))
	s.Equal("resource.owner == auth.uid", table["sensors"].Write, "table untouched on rejection")
}

func (s *HandlerSuite) TestUnauthenticatedRejected() {
	req := httptest.NewRequest(http.MethodGet, "/security/rules", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
