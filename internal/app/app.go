// Package app wires the nutrient pipeline, journal, profile store,
// reports and recommendations into the operations behind the chat
// surfaces. The REPL, the one-shot CLI commands and the HTTP server all
// talk to an App; nothing below this package knows which surface called
// it.
package app

import (
	"context"
	"fmt"
	"time"

	"nutricoach/internal/config"
	"nutricoach/internal/fatsecret"
	"nutricoach/internal/journal"
	"nutricoach/internal/llm"
	"nutricoach/internal/logging"
	"nutricoach/internal/pipeline"
	"nutricoach/internal/profile"
	"nutricoach/internal/recommend"
	"nutricoach/internal/report"
	"nutricoach/internal/router"
	"nutricoach/internal/store"
	"nutricoach/internal/tavily"
)

// App owns every component and exposes the user-facing operations.
type App struct {
	cfg *config.Config

	llmClient llm.Client
	extractor *pipeline.Extractor
	resolver  *pipeline.Resolver
	journal   *journal.Journal
	profiles  *profile.Store
	reports   *report.Generator
	advisor   *recommend.Advisor
	router    *router.Router
	cache     *store.LookupCache

	// now anchors "today" for reports and recommendations.
	now func() time.Time
}

// New builds the full component graph from configuration. The LLM key
// and the FatSecret consumer credentials are required here; the Tavily
// key is checked lazily when a recommendation is actually requested.
func New(cfg *config.Config) (*App, error) {
	llmClient, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	if cfg.FatSecret.ConsumerKey == "" || cfg.FatSecret.ConsumerSecret == "" {
		return nil, fatsecret.ErrNoCredentials
	}
	fsClient := fatsecret.NewClientWithConfig(fatsecret.Config{
		ConsumerKey:    cfg.FatSecret.ConsumerKey,
		ConsumerSecret: cfg.FatSecret.ConsumerSecret,
		BaseURL:        cfg.FatSecret.BaseURL,
		Timeout:        cfg.GetFatSecretTimeout(),
	})

	var source pipeline.CompositionSource = fsClient
	var cache *store.LookupCache
	if cfg.Cache.Path != "" {
		cache, err = store.NewLookupCache(fsClient, cfg.Cache.Path, cfg.GetCacheTTL())
		if err != nil {
			logging.StoreWarn("Lookup cache disabled: %v", err)
			cache = nil
		} else {
			source = cache
		}
	}

	estimator := pipeline.NewEstimator(llmClient)
	j := journal.New(cfg.JournalPath())
	profiles := profile.NewStore(cfg.DataDir)

	tavilyCfg := tavily.DefaultConfig(cfg.Tavily.APIKey)
	tavilyCfg.Timeout = cfg.GetTavilyTimeout()
	tavilyClient := tavily.NewClientWithConfig(tavilyCfg)

	a := &App{
		cfg:       cfg,
		llmClient: llmClient,
		extractor: pipeline.NewExtractor(llmClient),
		resolver:  pipeline.NewResolver(source, estimator, cfg.Pipeline.Concurrency),
		journal:   j,
		profiles:  profiles,
		reports:   report.NewGenerator(j, profiles, report.NewCoach(llmClient), cfg.DataDir),
		advisor:   recommend.NewAdvisor(tavilyClient, llmClient),
		cache:     cache,
		now:       time.Now,
	}
	a.router = router.New(router.NewClassifier(llmClient), a)

	logging.Session("App ready (model %s, data dir %s)", llmClient.Model(), cfg.DataDir)
	return a, nil
}

// Close releases held resources. Safe on a partially built App.
func (a *App) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

// Chat routes one free-text message through intent classification and
// returns the reply text.
func (a *App) Chat(ctx context.Context, message string) (string, error) {
	return a.router.Route(ctx, message)
}
