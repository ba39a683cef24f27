// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives source adapters across the selected years, gates
// each candidate on its title and hands admitted papers to the artifact
// store. One source's failure never stops another's; within a source, a
// failed year or paper is recorded and the walk moves on.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/proceedings-harvester/internal/adapter"
	"github.com/pdiddy/proceedings-harvester/internal/artifact"
	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/internal/gate"
	"github.com/pdiddy/proceedings-harvester/internal/retry"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// ErrPanic wraps a panic recovered from a source's worker.
var ErrPanic = errors.New("adapter panicked")

// SessionFactory opens the document-source session a source runs in.
type SessionFactory func(ctx context.Context, source types.ProceedingsSource) (docsource.Source, error)

// AdapterFactory returns the adapter for a variant.
type AdapterFactory func(variant types.Variant) (adapter.Adapter, error)

// Acquirer stores one paper. *artifact.Store implements it.
type Acquirer interface {
	Acquire(ctx context.Context, src docsource.Source, loc types.Locator, title string, year int, set types.KeywordSet) types.AcquisitionResult
}

// Plan is what to harvest from each source.
type Plan struct {
	Years types.YearSet
	// Keywords gates candidates; nil admits everything.
	Keywords    types.KeywordSet
	Credentials *types.Credentials
}

// Orchestrator runs plans.
type Orchestrator struct {
	sessions    SessionFactory
	adapters    AdapterFactory
	store       Acquirer
	retry       types.RetryConfig
	minGroups   int
	concurrency int
	logger      *slog.Logger
	out         io.Writer
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithAdapters replaces the adapter factory.
func WithAdapters(f AdapterFactory) Option {
	return func(o *Orchestrator) { o.adapters = f }
}

// WithOutput sets where the run summary is printed.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// New builds an orchestrator from cfg. By default adapters come from
// adapter.New, with detail hops bounded by the paper budget.
func New(cfg types.HarvestConfig, sessions SessionFactory, store Acquirer, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		sessions:    sessions,
		store:       store,
		retry:       cfg.Retry,
		minGroups:   cfg.MinGroups,
		concurrency: cfg.Concurrency,
		logger:      logger,
		out:         io.Discard,
	}
	if o.concurrency <= 0 {
		o.concurrency = 1
	}
	detail := retry.FromBudget(cfg.Retry.Paper)
	o.adapters = func(v types.Variant) (adapter.Adapter, error) {
		return adapter.New(v, adapter.Config{
			DetailRetry: detail,
			Logger:      logger.With("variant", string(v)),
		})
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run harvests every source, at most concurrency at a time, and returns the
// report. It returns once every worker has finished, also after ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context, sources []types.ProceedingsSource, plan Plan) *Report {
	rep := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Sources: make([]SourceReport, len(sources)),
	}
	logger := o.logger.With("run_id", rep.RunID)
	logger.Info("harvest started", "sources", len(sources), "years", plan.Years.Sorted(), "filtered", plan.Keywords != nil)

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, s := range sources {
		g.Go(func() error {
			rep.Sources[i] = o.runSource(ctx, s, plan, logger.With("source", s.Acronym))
			return nil
		})
	}
	_ = g.Wait()

	rep.Finished = time.Now()
	t := rep.Totals()
	logger.Info("harvest finished", "saved", t.Saved, "duplicates", t.Duplicates,
		"rejected", t.Rejected, "failed", t.Failed, "elapsed", rep.Finished.Sub(rep.Started).Round(time.Second))
	rep.WriteSummary(o.out)
	return rep
}

// runSource walks one source. The session is closed exactly once, after any
// panic has been recovered.
func (o *Orchestrator) runSource(ctx context.Context, source types.ProceedingsSource, plan Plan, logger *slog.Logger) (rep SourceReport) {
	rep = SourceReport{Source: source.Acronym, Variant: string(source.Variant)}

	ad, err := o.adapters(source.Variant)
	if err != nil {
		rep.fail(err)
		logger.Error("no adapter", "variant", source.Variant, "error", err)
		return rep
	}

	sess, err := o.sessions(ctx, source)
	if err != nil {
		rep.fail(fmt.Errorf("opening session: %w", err))
		logger.Error("opening session", "error", err)
		return rep
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("closing session", "error", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			rep.fail(fmt.Errorf("%w: %v", ErrPanic, r))
			logger.Error("source aborted", "panic", r)
		}
	}()

	listing := o.policy(o.retry.Listing, logger, "listing")
	paper := o.policy(o.retry.Paper, logger, "paper")
	if b, ok := ad.(adapter.Budgeted); ok {
		l, p := b.Budgets()
		listing = listing.WithAttempts(l)
		paper = paper.WithAttempts(p)
	}

	rep.Authenticated = o.authenticate(ctx, ad, sess, source, plan.Credentials, logger)

	idx, err := retry.Call(ctx, listing, func(ctx context.Context) (types.YearIndex, error) {
		return ad.ResolveYearIndex(ctx, sess, source.URL)
	})
	if err != nil {
		rep.fail(fmt.Errorf("resolving year index: %w", err))
		logger.Error("resolving year index", "error", err)
		return rep
	}
	for _, e := range idx.Entries() {
		if !plan.Years.Has(e.Year) {
			logger.Debug("year not selected", "year", e.Year)
		}
	}
	selected := idx.Select(plan.Years)
	logger.Info("year index resolved", "years", len(idx), "selected", len(selected))

	for _, e := range selected {
		if err := ctx.Err(); err != nil {
			rep.fail(err)
			return rep
		}
		yr := o.runYear(ctx, ad, sess, source, e, plan, listing, paper, logger.With("year", e.Year))
		rep.Years = append(rep.Years, yr)
		if yr.Err != nil && (errors.Is(yr.Err, types.ErrFilesystem) || ctx.Err() != nil) {
			rep.fail(yr.Err)
			return rep
		}
	}
	return rep
}

// authenticate logs in when the adapter supports it and credentials are
// usable. Failure degrades to an anonymous session.
func (o *Orchestrator) authenticate(ctx context.Context, ad adapter.Adapter, sess docsource.Source, source types.ProceedingsSource, creds *types.Credentials, logger *slog.Logger) bool {
	auth, ok := ad.(adapter.Authenticator)
	if !ok {
		return false
	}
	if !creds.Usable() {
		logger.Info("no credentials, continuing without login")
		return false
	}
	err := retry.Do(ctx, o.policy(o.retry.Login, logger, "login"), func(ctx context.Context) error {
		return auth.Authenticate(ctx, sess, source.URL, creds)
	})
	if err != nil {
		logger.Warn("login failed, continuing without login", "error", err)
		return false
	}
	logger.Info("logged in")
	return true
}

func (o *Orchestrator) runYear(ctx context.Context, ad adapter.Adapter, sess docsource.Source, source types.ProceedingsSource, e types.YearEntry, plan Plan, listing, paper retry.Policy, logger *slog.Logger) YearReport {
	yr := YearReport{Year: e.Year, URL: e.URL}

	candidates, err := retry.Call(ctx, listing, func(ctx context.Context) ([]types.PaperCandidate, error) {
		return ad.ResolvePapers(ctx, sess, e.URL, e.Year)
	})
	if err != nil {
		yr.fail(fmt.Errorf("resolving listing: %w", err))
		logger.Error("resolving listing", "url", e.URL, "error", err)
		return yr
	}
	yr.Candidates = len(candidates)
	logger.Info("listing resolved", "candidates", len(candidates))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			yr.fail(err)
			return yr
		}
		res, noFile := o.acquire(ctx, ad, sess, c, plan, paper, logger)
		if noFile {
			yr.NoFile++
			continue
		}
		yr.record(source.Acronym, res)
		switch res.Outcome {
		case types.Saved:
			logger.Info("saved", "title", res.Title, "path", res.Path)
		case types.Failed:
			logger.Warn("paper failed", "title", res.Title, "error", res.Err)
			if errors.Is(res.Err, types.ErrFilesystem) {
				yr.fail(res.Err)
				return yr
			}
		default:
			logger.Debug(res.Outcome.String(), "title", res.Title)
		}
	}
	return yr
}

// acquire takes one candidate to a result. A candidate whose title is known
// from the listing is gated before the detail hop so rejected papers cost no
// navigation. noFile reports a detail page that offers nothing to download.
func (o *Orchestrator) acquire(ctx context.Context, ad adapter.Adapter, sess docsource.Source, c types.PaperCandidate, plan Plan, paper retry.Policy, logger *slog.Logger) (res types.AcquisitionResult, noFile bool) {
	if c.Title != "" && plan.Keywords != nil {
		if !gate.Admit(artifact.CleanTitle(c.Title), plan.Keywords, o.minGroups) {
			return types.AcquisitionResult{Outcome: types.SkippedKeywordMismatch, Title: artifact.Sanitize(c.Title)}, false
		}
	}

	var last types.AcquisitionResult
	_, err := retry.Call(ctx, paper, func(ctx context.Context) (types.AcquisitionResult, error) {
		if c.NeedsDetail() {
			dr, ok := ad.(adapter.DetailResolver)
			if !ok {
				return last, retry.Permanent(fmt.Errorf("%s cannot resolve detail page %s", ad.Name(), c.Locator.URL))
			}
			// The adapter already retried the hop under its own budget.
			resolved, err := dr.ResolveDetail(ctx, sess, c)
			if err != nil {
				return last, retry.Permanent(err)
			}
			c = resolved
		}
		if artifact.Sanitize(c.Title) == "" {
			return last, retry.Permanent(fmt.Errorf("candidate at %s has no usable title", c.Locator.URL))
		}

		last = o.store.Acquire(ctx, sess, c.Locator, c.Title, c.Year, plan.Keywords)
		if last.Outcome != types.Failed {
			return last, nil
		}
		if errors.Is(last.Err, types.ErrFilesystem) {
			return last, retry.Permanent(last.Err)
		}
		return last, last.Err
	})
	if err == nil {
		return last, false
	}
	if errors.Is(err, adapter.ErrNoFile) {
		logger.Info("no file to download", "url", c.Locator.URL, "reason", err)
		return types.AcquisitionResult{}, true
	}
	title := last.Title
	if title == "" {
		title = artifact.Sanitize(c.Title)
	}
	if title == "" {
		title = c.Locator.URL
	}
	return types.FailedResult(title, err), false
}

func (o *Orchestrator) policy(b types.RetryBudget, logger *slog.Logger, what string) retry.Policy {
	p := retry.FromBudget(b)
	p.OnRetry = func(attempt int, err error) {
		logger.Warn("retrying", "call", what, "attempt", attempt, "error", err)
	}
	return p
}
