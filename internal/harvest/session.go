// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/proceedings-harvester/internal/container"
	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/internal/retry"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// containerReady bounds how long a freshly started browser container gets
// to accept its first session.
var containerReady = retry.Policy{MaxAttempts: 10, Delay: time.Second}

// Sessions returns the session factory for cfg.Browser and a shutdown
// function for what the sessions share. With a container image configured,
// the container is started here and stopped by shutdown.
func Sessions(ctx context.Context, cfg types.HarvestConfig, logger *slog.Logger) (SessionFactory, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Browser.Driver {
	case types.DriverHTTP:
		return func(context.Context, types.ProceedingsSource) (docsource.Source, error) {
			return docsource.NewHTTPSource(&http.Client{Timeout: cfg.Timeout}, cfg.HTTPConfig), nil
		}, noop, nil

	case types.DriverRod, "":
		opts := docsource.RodOptions{
			Headless:    cfg.Browser.Headless,
			Bin:         cfg.Browser.Bin,
			ControlURL:  cfg.Browser.RemoteURL,
			UserAgent:   cfg.UserAgent,
			PageTimeout: cfg.Browser.PageTimeout,
		}
		if cfg.Browser.ContainerImage == "" {
			return func(ctx context.Context, _ types.ProceedingsSource) (docsource.Source, error) {
				return openRod(ctx, opts)
			}, noop, nil
		}

		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, nil, err
		}
		b, err := container.StartBrowser(ctx, rt, cfg.Browser.ContainerImage, cfg.Browser.ControlPort)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("browser container started", "runtime", rt.Name(), "id", b.ID(), "url", b.ControlURL())
		opts.ManagedURL = b.ControlURL()
		factory := func(ctx context.Context, _ types.ProceedingsSource) (docsource.Source, error) {
			return retry.Call(ctx, containerReady, func(ctx context.Context) (docsource.Source, error) {
				return openRod(ctx, opts)
			})
		}
		return factory, b.Stop, nil

	default:
		return nil, nil, fmt.Errorf("unknown browser driver %q (want %s or %s)", cfg.Browser.Driver, types.DriverRod, types.DriverHTTP)
	}
}

// openRod keeps a failed launch from surfacing as a non-nil Source.
func openRod(ctx context.Context, opts docsource.RodOptions) (docsource.Source, error) {
	s, err := docsource.NewRodSource(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
