// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule runs job on the cron expression spec until ctx is cancelled. A
// run still in progress when the next one is due makes that one skip.
// Schedule waits for a running job before it returns.
func Schedule(ctx context.Context, spec string, logger *slog.Logger, job func(context.Context)) error {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	c.Schedule(sched, cron.FuncJob(func() {
		logger.Info("scheduled harvest triggered")
		job(ctx)
	}))
	c.Start()
	logger.Info("harvest scheduled", "cron", spec, "next", sched.Next(time.Now()))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// ValidateSchedule reports whether spec is a usable cron expression.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return nil
}
