package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/internal/store"
)

// reportStore stubs only the report lookups the handlers under test touch.
type reportStore struct {
	store.Store
	reports  map[string]*model.Report // keyed by access token
	verified map[string]*model.Report // keyed by verification token
}

func (s *reportStore) GetReportByToken(ctx context.Context, token string) (*model.Report, error) {
	return s.reports[token], nil
}

func (s *reportStore) VerifyReport(ctx context.Context, verificationToken string) (*model.Report, error) {
	report := s.verified[verificationToken]
	if report != nil {
		now := time.Now().UTC()
		report.VerifiedAt = &now
	}
	return report, nil
}

func (s *reportStore) GetScanRun(ctx context.Context, id string) (*model.ScanRun, error) {
	return &model.ScanRun{ID: id, Status: model.ScanStatusComplete}, nil
}

func (s *reportStore) ListBrandAwareness(ctx context.Context, runID string) ([]model.BrandAwarenessResult, error) {
	return nil, nil
}

func (s *reportStore) GetActionPlan(ctx context.Context, runID string) (*model.ActionPlan, []model.ActionItem, error) {
	return nil, nil, nil
}

func (s *reportStore) GetPrd(ctx context.Context, runID string) (*model.PrdDocument, []model.PrdTask, error) {
	return nil, nil, nil
}

func reportRouter(st store.Store) http.Handler {
	api := &apiServer{env: &appEnv{Store: st}}
	r := chi.NewRouter()
	r.Get("/api/reports/{token}", api.getReport)
	r.Post("/api/verify/{token}", api.verifyReport)
	return r
}

func TestGetReportBlocksUnverifiedEmail(t *testing.T) {
	router := reportRouter(&reportStore{
		reports: map[string]*model.Report{
			"tok-1": {ID: "report-1", ScanRunID: "run-1", AccessToken: "tok-1", VerificationToken: "vt-1"},
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/tok-1", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "email not verified")
}

func TestGetReportAllowsVerifiedEmail(t *testing.T) {
	now := time.Now().UTC()
	router := reportRouter(&reportStore{
		reports: map[string]*model.Report{
			"tok-1": {ID: "report-1", ScanRunID: "run-1", AccessToken: "tok-1", VerificationToken: "vt-1", VerifiedAt: &now},
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/tok-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var view reportView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.Report)
	assert.Equal(t, "report-1", view.Report.ID)
}

func TestVerifyReportReturnsAccessToken(t *testing.T) {
	router := reportRouter(&reportStore{
		verified: map[string]*model.Report{
			"vt-1": {ID: "report-1", AccessToken: "tok-1", VerificationToken: "vt-1"},
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/verify/vt-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tok-1", body["access_token"])
}

func TestVerifyReportUnknownToken(t *testing.T) {
	router := reportRouter(&reportStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/verify/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyReportExpiredLink(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	router := reportRouter(&reportStore{
		verified: map[string]*model.Report{
			"vt-1": {ID: "report-1", AccessToken: "tok-1", VerificationToken: "vt-1", ExpiresAt: &past},
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/verify/vt-1", nil))

	assert.Equal(t, http.StatusGone, rec.Code)
}
