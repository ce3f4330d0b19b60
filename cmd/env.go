package main

import (
	"context"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/mentionscope/scanner/internal/crawler"
	"github.com/mentionscope/scanner/internal/intel"
	"github.com/mentionscope/scanner/internal/store"
	"github.com/mentionscope/scanner/internal/workflow"
	"github.com/mentionscope/scanner/pkg/anthropic"
	"github.com/mentionscope/scanner/pkg/gemini"
	"github.com/mentionscope/scanner/pkg/openai"
	"github.com/mentionscope/scanner/pkg/perplexity"
	"github.com/mentionscope/scanner/pkg/sendgrid"
)

// appEnv wires the shared dependencies for the serve and worker commands.
type appEnv struct {
	Store   store.Store
	TC      temporalclient.Client
	Starter *workflow.Starter
}

func (e *appEnv) Close() {
	if e.TC != nil {
		e.TC.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (*store.PostgresStore, error) {
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	tc, err := workflow.Dial(ctx, cfg.Temporal)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &appEnv{
		Store:   st,
		TC:      tc,
		Starter: workflow.NewStarter(tc, cfg),
	}, nil
}

// initActivities builds the activity set a worker serves. Kept separate from
// initEnv because only workers pay for the AI client setup.
func initActivities(st store.Store) *workflow.Activities {
	ai := intel.Clients{
		Anthropic:      anthropic.NewClient(cfg.Anthropic.Key),
		AnthropicModel: cfg.Anthropic.Model,
		OpenAI: openai.NewClient(cfg.OpenAI.Key,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model)),
		Perplexity: perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model)),
		Gemini: gemini.NewClient(cfg.Gemini.Key,
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model)),
	}

	email := sendgrid.NewClient(cfg.SendGrid.Key,
		sendgrid.WithBaseURL(cfg.SendGrid.BaseURL),
		sendgrid.WithFrom(cfg.SendGrid.FromEmail, cfg.SendGrid.FromName))

	return workflow.NewActivities(
		st,
		crawler.New(cfg.Crawl),
		intel.NewContentAnalyzer(ai.Anthropic, cfg.Anthropic.Model),
		intel.NewResearcher(ai, cfg.Scan.PromptCount),
		intel.NewQuerier(ai),
		intel.NewBrandProber(ai),
		intel.NewGenerators(ai.Anthropic, cfg.Anthropic.SonnetModel),
		email,
		cfg,
	)
}
