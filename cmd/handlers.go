package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/internal/store"
)

type apiServer struct {
	env *appEnv
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *apiServer) health(w http.ResponseWriter, r *http.Request) {
	if err := s.env.Store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) startScan(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Domain == "" && req.DomainSubscriptionID == "" {
		respondError(w, http.StatusBadRequest, "domain is required")
		return
	}
	if req.LeadID == "" && req.Email == "" {
		respondError(w, http.StatusBadRequest, "lead_id or email is required")
		return
	}

	runID, err := s.env.Starter.StartScan(r.Context(), req)
	if err != nil {
		zap.L().Error("start scan failed", zap.String("domain", req.Domain), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not start scan")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *apiServer) getScan(w http.ResponseWriter, r *http.Request) {
	run, err := s.env.Store.GetScanRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "scan not found")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *apiServer) listScans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	runs, err := s.env.Store.ListScanRuns(r.Context(), store.RunFilter{
		Status: model.ScanStatus(q.Get("status")),
		Domain: q.Get("domain"),
		LeadID: q.Get("lead_id"),
	})
	if err != nil {
		zap.L().Error("list scans failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not list scans")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *apiServer) startEnrich(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	run, err := s.env.Store.GetScanRun(r.Context(), runID)
	if err != nil {
		respondError(w, http.StatusNotFound, "scan not found")
		return
	}
	if run.EnrichmentStatus == model.EnrichmentNotApplicable {
		respondError(w, http.StatusConflict, "tier does not include enrichment")
		return
	}
	if err := s.env.Starter.StartEnrich(r.Context(), runID); err != nil {
		zap.L().Error("start enrichment failed", zap.String("run_id", runID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not start enrichment")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// reportView is the full token-gated report payload, enrichment artifacts
// included when they exist.
type reportView struct {
	Report         *model.Report                `json:"report"`
	Run            *model.ScanRun               `json:"run"`
	BrandAwareness []model.BrandAwarenessResult `json:"brand_awareness,omitempty"`
	ActionPlan     *model.ActionPlan            `json:"action_plan,omitempty"`
	ActionItems    []model.ActionItem           `json:"action_items,omitempty"`
	Prd            *model.PrdDocument           `json:"prd,omitempty"`
	PrdTasks       []model.PrdTask              `json:"prd_tasks,omitempty"`
}

func (s *apiServer) getReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := s.env.Store.GetReportByToken(ctx, chi.URLParam(r, "token"))
	if err != nil {
		zap.L().Error("get report failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not load report")
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "report not found")
		return
	}
	if report.ExpiresAt != nil && report.ExpiresAt.Before(time.Now()) {
		respondError(w, http.StatusGone, "report link has expired")
		return
	}
	if report.VerificationToken != "" && report.VerifiedAt == nil {
		respondError(w, http.StatusForbidden, "email not verified")
		return
	}

	view := reportView{Report: report}
	if run, err := s.env.Store.GetScanRun(ctx, report.ScanRunID); err == nil {
		view.Run = run
	}
	if brand, err := s.env.Store.ListBrandAwareness(ctx, report.ScanRunID); err == nil {
		view.BrandAwareness = brand
	}
	if plan, items, err := s.env.Store.GetActionPlan(ctx, report.ScanRunID); err == nil && plan != nil {
		view.ActionPlan = plan
		view.ActionItems = items
	}
	if prd, tasks, err := s.env.Store.GetPrd(ctx, report.ScanRunID); err == nil && prd != nil {
		view.Prd = prd
		view.PrdTasks = tasks
	}
	respondJSON(w, http.StatusOK, view)
}

// verifyReport consumes a verification token and returns the report access
// token so the caller can redirect to the report.
func (s *apiServer) verifyReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.env.Store.VerifyReport(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		zap.L().Error("verify report failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not verify email")
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "verification link is invalid")
		return
	}
	if report.ExpiresAt != nil && report.ExpiresAt.Before(time.Now()) {
		respondError(w, http.StatusGone, "report link has expired")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"access_token": report.AccessToken})
}

func (s *apiServer) listQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	leadID := q.Get("lead_id")
	if leadID == "" {
		respondError(w, http.StatusBadRequest, "lead_id is required")
		return
	}
	questions, err := s.env.Store.ListActiveQuestions(r.Context(), leadID, q.Get("domain_subscription_id"))
	if err != nil {
		zap.L().Error("list questions failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not list questions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *apiServer) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err := s.env.Store.UpdateQuestion(r.Context(), chi.URLParam(r, "id"), req.Text, req.Category); err != nil {
		respondError(w, http.StatusNotFound, "question not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *apiServer) archiveQuestion(w http.ResponseWriter, r *http.Request) {
	if err := s.env.Store.ArchiveQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, http.StatusNotFound, "question not found or already archived")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

func (s *apiServer) restoreQuestion(w http.ResponseWriter, r *http.Request) {
	if err := s.env.Store.RestoreQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, http.StatusNotFound, "question not found or not archived")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (s *apiServer) setActionItemStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.ActionItemStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Status {
	case model.ActionItemOpen, model.ActionItemCompleted, model.ActionItemDismissed:
	default:
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if err := s.env.Store.SetActionItemStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		respondError(w, http.StatusNotFound, "action item not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
