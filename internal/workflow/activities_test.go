package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionscope/scanner/internal/config"
	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/internal/store"
	"github.com/mentionscope/scanner/pkg/sendgrid"
)

// emailStore stubs the store surface the report email and finalize steps
// touch. Anything else panics through the embedded nil interface.
type emailStore struct {
	store.Store
	run       *model.ScanRun
	lead      *model.Lead
	report    *model.Report
	responses []model.PlatformResponse
	snapshot  *model.ScoreSnapshot
	saved     *model.Report
}

func (s *emailStore) GetScanRun(ctx context.Context, runID string) (*model.ScanRun, error) {
	return s.run, nil
}

func (s *emailStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	return s.lead, nil
}

func (s *emailStore) GetReportByRun(ctx context.Context, runID string) (*model.Report, error) {
	return s.report, nil
}

func (s *emailStore) ListPlatformResponses(ctx context.Context, runID string) ([]model.PlatformResponse, error) {
	return s.responses, nil
}

func (s *emailStore) SaveReport(ctx context.Context, report *model.Report) error {
	s.saved = report
	return nil
}

func (s *emailStore) UpsertScoreSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error {
	return nil
}

func (s *emailStore) PreviousSnapshot(ctx context.Context, leadID, domainSubscriptionID, excludeRunID string) (*model.ScoreSnapshot, error) {
	return s.snapshot, nil
}

// captureEmail records the last mail instead of sending it.
type captureEmail struct {
	sent []sendgrid.Mail
}

func (c *captureEmail) Send(ctx context.Context, mail sendgrid.Mail) (*sendgrid.SendResult, error) {
	c.sent = append(c.sent, mail)
	return &sendgrid.SendResult{StatusCode: 202, MessageID: "msg-1"}, nil
}

func emailTestConfig() *config.Config {
	return &config.Config{
		Report: config.ReportConfig{BaseURL: "https://app.example", ExpiryDays: 7},
	}
}

func TestSendReportEmail_UnverifiedReportGetsVerificationEmail(t *testing.T) {
	st := &emailStore{
		run:  &model.ScanRun{ID: "run-1", LeadID: "lead-1", Domain: "acme.example"},
		lead: &model.Lead{ID: "lead-1", Email: "owner@acme.example", Tier: model.TierFree},
		report: &model.Report{
			ScanRunID:         "run-1",
			OverallScore:      42.5,
			AccessToken:       "tok123",
			VerificationToken: "vt-1",
		},
	}
	email := &captureEmail{}
	a := &Activities{Store: st, Email: email, Cfg: emailTestConfig()}

	require.NoError(t, a.SendReportEmail(context.Background(), "run-1"))

	require.Len(t, email.sent, 1)
	mail := email.sent[0]
	assert.Contains(t, mail.Subject, "Confirm your email")
	assert.Contains(t, mail.Text, "https://app.example/verify/vt-1")
	assert.NotContains(t, mail.Text, "tok123", "the report link stays out of the body until verified")
	assert.NotContains(t, mail.Text, "score", "the score stays out of the body until verified")
}

func TestSendReportEmail_PayingTierGetsReportLink(t *testing.T) {
	st := &emailStore{
		run:  &model.ScanRun{ID: "run-1", LeadID: "lead-1", Domain: "acme.example"},
		lead: &model.Lead{ID: "lead-1", Email: "owner@acme.example", Tier: model.TierGrowth},
		report: &model.Report{
			ScanRunID:    "run-1",
			OverallScore: 42.5,
			AccessToken:  "tok123",
		},
		snapshot: &model.ScoreSnapshot{ScanRunID: "run-0", OverallScore: 30},
	}
	email := &captureEmail{}
	a := &Activities{Store: st, Email: email, Cfg: emailTestConfig()}

	require.NoError(t, a.SendReportEmail(context.Background(), "run-1"))

	require.Len(t, email.sent, 1)
	mail := email.sent[0]
	assert.Contains(t, mail.Text, "https://app.example/reports/tok123")
	assert.Contains(t, mail.Text, "+12.5 points")
	assert.NotContains(t, mail.Text, "/verify/")
}

func TestSendReportEmail_VerifiedFreeTierGetsReportLink(t *testing.T) {
	verified := time.Now().UTC()
	st := &emailStore{
		run:  &model.ScanRun{ID: "run-1", LeadID: "lead-1", Domain: "acme.example"},
		lead: &model.Lead{ID: "lead-1", Email: "owner@acme.example", Tier: model.TierFree},
		report: &model.Report{
			ScanRunID:         "run-1",
			AccessToken:       "tok123",
			VerificationToken: "vt-1",
			VerifiedAt:        &verified,
		},
	}
	email := &captureEmail{}
	a := &Activities{Store: st, Email: email, Cfg: emailTestConfig()}

	require.NoError(t, a.SendReportEmail(context.Background(), "run-1"))

	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0].Text, "https://app.example/reports/tok123")
}

func TestFinalizeReport_FreeTierGetsVerificationToken(t *testing.T) {
	st := &emailStore{
		run:  &model.ScanRun{ID: "run-1", LeadID: "lead-1", Domain: "acme.example"},
		lead: &model.Lead{ID: "lead-1", Tier: model.TierFree},
	}
	a := &Activities{Store: st, Cfg: emailTestConfig()}

	_, err := a.FinalizeReport(context.Background(), FinalizeInput{RunID: "run-1"})
	require.NoError(t, err)
	require.NotNil(t, st.saved)
	assert.NotEmpty(t, st.saved.VerificationToken, "free tier reports are gated")
	assert.NotNil(t, st.saved.ExpiresAt)
}

func TestFinalizeReport_CarriesInboundVerificationToken(t *testing.T) {
	st := &emailStore{
		run:  &model.ScanRun{ID: "run-1", LeadID: "lead-1", Domain: "acme.example"},
		lead: &model.Lead{ID: "lead-1", Tier: model.TierFree},
	}
	a := &Activities{Store: st, Cfg: emailTestConfig()}

	_, err := a.FinalizeReport(context.Background(), FinalizeInput{RunID: "run-1", VerificationToken: "vt-from-request"})
	require.NoError(t, err)
	require.NotNil(t, st.saved)
	assert.Equal(t, "vt-from-request", st.saved.VerificationToken)
}

func TestFinalizeReport_PayingTierIsNotGated(t *testing.T) {
	st := &emailStore{
		run:  &model.ScanRun{ID: "run-1", LeadID: "lead-1", Domain: "acme.example"},
		lead: &model.Lead{ID: "lead-1", Tier: model.TierStart},
	}
	a := &Activities{Store: st, Cfg: emailTestConfig()}

	_, err := a.FinalizeReport(context.Background(), FinalizeInput{RunID: "run-1", VerificationToken: "vt-ignored"})
	require.NoError(t, err)
	require.NotNil(t, st.saved)
	assert.Empty(t, st.saved.VerificationToken)
	assert.Nil(t, st.saved.ExpiresAt)
}
