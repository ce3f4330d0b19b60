package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/mentionscope/scanner/internal/config"
	"github.com/mentionscope/scanner/internal/model"
)

// zapAdapter bridges the global zap logger into the Temporal SDK's logger
// interface.
type zapAdapter struct {
	s *zap.SugaredLogger
}

func newZapAdapter() zapAdapter {
	return zapAdapter{s: zap.L().Sugar()}
}

func (z zapAdapter) Debug(msg string, keyvals ...interface{}) { z.s.Debugw(msg, keyvals...) }
func (z zapAdapter) Info(msg string, keyvals ...interface{})  { z.s.Infow(msg, keyvals...) }
func (z zapAdapter) Warn(msg string, keyvals ...interface{})  { z.s.Warnw(msg, keyvals...) }
func (z zapAdapter) Error(msg string, keyvals ...interface{}) { z.s.Errorw(msg, keyvals...) }

// Dial connects to the Temporal frontend, retrying with backoff so the
// process can start before the cluster is ready.
func Dial(ctx context.Context, cfg config.TemporalConfig) (client.Client, error) {
	opts := client.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    newZapAdapter(),
	}

	backoff := 250 * time.Millisecond
	const maxBackoff = 5 * time.Second
	deadline := time.Now().Add(60 * time.Second)

	for attempt := 1; ; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		c, err := client.DialContext(dialCtx, opts)
		cancel()
		if err == nil {
			if attempt > 1 {
				zap.L().Info("connected to temporal",
					zap.String("address", cfg.Address),
					zap.Int("attempts", attempt))
			}
			return c, nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "temporal dial canceled")
		}
		if time.Now().After(deadline) {
			return nil, eris.Wrapf(err, "temporal dial failed (address=%s namespace=%s)", cfg.Address, cfg.Namespace)
		}
		zap.L().Warn("temporal not reachable, retrying",
			zap.String("address", cfg.Address),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(backoff)
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Starter launches workflows for the HTTP layer and CLI.
type Starter struct {
	tc        client.Client
	taskQueue string
	cfg       *config.Config
}

func NewStarter(tc client.Client, cfg *config.Config) *Starter {
	return &Starter{tc: tc, taskQueue: cfg.Temporal.TaskQueue, cfg: cfg}
}

func stepConfigFrom(cfg *config.Config) StepConfig {
	return StepConfig{
		PromptCount:          cfg.Scan.PromptCount,
		PerQueryPlatforms:    cfg.Scan.PerQueryPlatforms,
		StepMaxAttempts:      cfg.Scan.StepMaxAttempts,
		QueryTimeoutSecs:     cfg.Scan.QueryTimeoutSecs,
		AnalysisWaitAttempts: cfg.Scan.AnalysisWaitAttempts,
		AnalysisWaitDelayMs:  cfg.Scan.AnalysisWaitDelayMs,
	}
}

// StartScan launches a scan workflow for the request. The workflow ID is the
// lead/domain pair; a second start for the same pair terminates the running
// scan and replaces it, which is how cancellation works here.
func (s *Starter) StartScan(ctx context.Context, req model.ScanRequest) (string, error) {
	leadKey := req.LeadID
	if req.DomainSubscriptionID != "" {
		leadKey = req.DomainSubscriptionID
	}
	if leadKey == "" {
		leadKey = req.Email
	}

	in := ScanInput{
		RunID:   uuid.New().String(),
		Request: req,
		Config:  stepConfigFrom(s.cfg),
	}

	opts := client.StartWorkflowOptions{
		ID:                       ScanWorkflowID(leadKey, req.Domain),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: time.Duration(s.cfg.Scan.ScanTimeoutMins) * time.Minute,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
	}
	if _, err := s.tc.ExecuteWorkflow(ctx, opts, ScanWorkflowName, in); err != nil {
		return "", eris.Wrapf(err, "start scan workflow %s", opts.ID)
	}
	return in.RunID, nil
}

// StartEnrich launches enrichment standalone, used when re-running
// enrichment for an already-finished scan.
func (s *Starter) StartEnrich(ctx context.Context, runID string) error {
	in := EnrichInput{RunID: runID, Config: stepConfigFrom(s.cfg)}
	opts := client.StartWorkflowOptions{
		ID:                       EnrichWorkflowID(runID),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: time.Duration(s.cfg.Scan.EnrichTimeoutMins) * time.Minute,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
	}
	if _, err := s.tc.ExecuteWorkflow(ctx, opts, EnrichWorkflowName, in); err != nil {
		return eris.Wrapf(err, "start enrich workflow %s", opts.ID)
	}
	return nil
}
