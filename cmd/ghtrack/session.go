package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/ghtrack/internal/app"
	"github.com/steveyegge/ghtrack/internal/cache"
	"github.com/steveyegge/ghtrack/internal/config"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/github"
	"github.com/steveyegge/ghtrack/internal/sanitize"
	"github.com/steveyegge/ghtrack/internal/telemetry"
)

var (
	appCtx   *app.Context
	appCache *cache.Cache
)

// newClient builds the GitHub client from config.
func newClient() (*github.Client, error) {
	token := config.GetString("github.token")
	if token == "" {
		return nil, errors.New("no GitHub token; set GHTRACK_GITHUB_TOKEN or GITHUB_TOKEN")
	}
	owner := config.GetString("project.owner")
	number := config.GetInt("project.number")
	if owner == "" || number <= 0 {
		return nil, errors.New("no project configured; set project.owner and project.number")
	}

	transport := github.NewTransport(token)
	transport.HTTPClient.Timeout = config.GetTimeout()
	if endpoint := config.GetString("github.endpoint"); endpoint != "" {
		transport = transport.WithEndpoint(endpoint)
	}

	client := github.NewClient(telemetry.WrapTransport(transport), github.Project{
		Owner:     owner,
		OwnerType: github.OwnerType(config.GetProjectOwnerType()),
		Number:    number,
	})
	return client.WithPageSize(config.GetPageSize()).WithLogger(debug.Logger()), nil
}

// openApp opens the cache and creates the app context. When load is set
// the project is loaded, from the cache if possible.
func openApp(ctx context.Context, load bool) (*app.Context, error) {
	if appCtx != nil {
		return appCtx, nil
	}
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	rules, err := sanitize.LoadRules(config.GetRulesPath())
	if err != nil {
		return nil, fmt.Errorf("load sanitize rules: %w", err)
	}
	appCtx = app.New(ctx, app.Options{
		Remote:         client,
		Store:          openStore(ctx, config.GetCachePath()),
		Log:            debug.Logger(),
		Rules:          rules,
		MaxConcurrency: config.GetMaxConcurrency(),
	})
	appCtx.SetFilters(app.Filters{HideClosed: config.GetBool("view.hide-closed")})
	appCtx.SetPreview(config.GetBool("view.preview"))
	if load {
		if err := appCtx.Refresh(ctx, false); err != nil {
			return nil, err
		}
	}
	return appCtx, nil
}

// openStore opens the cache. When it cannot be opened at all the app runs
// without one and every refresh goes to GitHub.
func openStore(ctx context.Context, path string) app.Store {
	c, err := cache.OpenOrReset(ctx, path, debug.Logger())
	if err != nil {
		debug.Logger().Warn("cache unavailable, continuing without it", "path", path, "error", err)
		return nil
	}
	appCache = c
	return c
}

// mustApp is openApp for commands that cannot continue without it.
func mustApp(load bool) *app.Context {
	a, err := openApp(rootCtx, load)
	if err != nil {
		fatal(err)
	}
	return a
}

func closeApp() {
	if appCache != nil {
		_ = appCache.Close()
		appCache = nil
	}
	appCtx = nil
}
