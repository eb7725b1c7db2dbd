package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// State of an orchestrator run.
type State int

const (
	StateIdle State = iota
	StateCheckingCache
	StateSubmitting
	StateAwaitingPartial
	StatePartialReady
	StateAwaitingFinal
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateCheckingCache:   "checking_cache",
	StateSubmitting:      "submitting",
	StateAwaitingPartial: "awaiting_partial",
	StatePartialReady:    "partial_ready",
	StateAwaitingFinal:   "awaiting_final",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// InProgress reports whether a run holding this state is still active.
func (s State) InProgress() bool {
	switch s {
	case StateIdle, StateDone, StateFailed:
		return false
	}
	return true
}

// Default per-source timeouts.
const (
	DefaultSEOTimeout      = 3 * time.Minute
	DefaultAIOTimeout      = 90 * time.Second
	DefaultPresenceTimeout = 60 * time.Second
)

// Timeouts bounds each source independently.
type Timeouts struct {
	SEO      time.Duration
	AIO      time.Duration
	Presence time.Duration
}

// Deps wires an Orchestrator. Presence and Cache are optional.
type Deps struct {
	SEO      domain.SEOSource
	AIO      domain.AIOSource
	Presence domain.PresenceSource
	Cache    *Cache
	Timeouts Timeouts
	Logger   *slog.Logger
}

// Orchestrator runs one analysis at a time for a session: cache lookup,
// concurrent sources, one partial emission, one final emission.
type Orchestrator struct {
	seo      domain.SEOSource
	aio      domain.AIOSource
	presence domain.PresenceSource
	cache    *Cache
	timeouts Timeouts
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	runID  uint64
	cancel context.CancelFunc
}

// NewOrchestrator returns an idle orchestrator.
func NewOrchestrator(d Deps) *Orchestrator {
	t := d.Timeouts
	if t.SEO <= 0 {
		t.SEO = DefaultSEOTimeout
	}
	if t.AIO <= 0 {
		t.AIO = DefaultAIOTimeout
	}
	if t.Presence <= 0 {
		t.Presence = DefaultPresenceTimeout
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		seo:      d.SEO,
		aio:      d.AIO,
		presence: d.Presence,
		cache:    d.Cache,
		timeouts: t,
		logger:   logger,
	}
}

// State returns the state of the current (or last) run.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Cancel abandons the current run, if any. No further updates are
// emitted for it and nothing is cached.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// ClearCache drops the cached result without touching a running analysis.
func (o *Orchestrator) ClearCache(ctx context.Context) {
	if o.cache != nil {
		o.cache.Clear(ctx)
	}
}

// Analyze runs an analysis of rawURL, calling onUpdate with the partial
// and final results. It returns ErrRunInProgress without doing anything
// when a run is already active on this orchestrator.
func (o *Orchestrator) Analyze(ctx context.Context, rawURL string, onUpdate func(domain.Update)) (*domain.AnalysisResult, error) {
	runCtx, id, err := o.begin(ctx, false)
	if err != nil {
		return nil, err
	}
	return o.execute(runCtx, id, rawURL, onUpdate)
}

// Reanalyze clears the cache and always starts a new run, cancelling the
// active one if needed.
func (o *Orchestrator) Reanalyze(ctx context.Context, rawURL string, onUpdate func(domain.Update)) (*domain.AnalysisResult, error) {
	runCtx, id, err := o.begin(ctx, true)
	if err != nil {
		return nil, err
	}
	// the replaced run can no longer write, see save
	if o.cache != nil {
		o.cache.Clear(ctx)
	}
	return o.execute(runCtx, id, rawURL, onUpdate)
}

func (o *Orchestrator) begin(ctx context.Context, force bool) (context.Context, uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.InProgress() {
		if !force {
			return nil, 0, domain.ErrRunInProgress
		}
		if o.cancel != nil {
			o.cancel()
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.runID++
	o.cancel = cancel
	o.state = StateCheckingCache
	return runCtx, o.runID, nil
}

func (o *Orchestrator) setState(id uint64, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID == id {
		o.state = s
	}
}

func (o *Orchestrator) finish(id uint64, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != id {
		return
	}
	o.state = s
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// save caches result only while id is still the current, uncancelled run.
func (o *Orchestrator) save(ctx context.Context, id uint64, key string, result domain.AnalysisResult) bool {
	if o.cache == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != id || ctx.Err() != nil {
		return false
	}
	o.cache.Save(ctx, key, result)
	return true
}

func (o *Orchestrator) emit(ctx context.Context, id uint64, onUpdate func(domain.Update), u domain.Update) {
	if onUpdate == nil || ctx.Err() != nil {
		return
	}
	o.mu.Lock()
	current := o.runID == id
	o.mu.Unlock()
	if current {
		onUpdate(u)
	}
}

type outcome[T any] struct {
	report *T
	err    error
}

const (
	sourceSEO      = "seo"
	sourceAIO      = "aio"
	sourcePresence = "presence"
)

func (o *Orchestrator) execute(ctx context.Context, id uint64, rawURL string, onUpdate func(domain.Update)) (*domain.AnalysisResult, error) {
	logger := o.logger.With("url", rawURL, "run", id)

	if o.cache != nil {
		if hit := o.cache.Load(ctx, rawURL); hit.Valid {
			logger.Info("analysis served from cache")
			o.emit(ctx, id, onUpdate, domain.Update{Result: *hit.Result, Final: true, FromCache: true})
			o.finish(id, StateDone)
			return hit.Result, nil
		}
	}

	target, err := tasks.NormalizeURL(rawURL)
	if err != nil {
		o.finish(id, StateFailed)
		return nil, err
	}

	o.setState(id, StateSubmitting)
	seoCh := make(chan outcome[domain.SEOReport], 1)
	aioCh := make(chan outcome[domain.AIOReport], 1)
	var presenceCh chan outcome[domain.PresenceReport]

	go func() {
		r, err := runSource(ctx, sourceSEO, o.timeouts.SEO, func(ctx context.Context) (*domain.SEOReport, error) {
			return o.seo.AnalyzeSEO(ctx, target)
		})
		seoCh <- outcome[domain.SEOReport]{r, err}
	}()
	go func() {
		r, err := runSource(ctx, sourceAIO, o.timeouts.AIO, func(ctx context.Context) (*domain.AIOReport, error) {
			return o.aio.AnalyzeAIO(ctx, target)
		})
		aioCh <- outcome[domain.AIOReport]{r, err}
	}()
	pending := 2
	if o.presence != nil {
		presenceCh = make(chan outcome[domain.PresenceReport], 1)
		pending++
		go func() {
			r, err := runSource(ctx, sourcePresence, o.timeouts.Presence, func(ctx context.Context) (*domain.PresenceReport, error) {
				return o.presence.LookupPresence(ctx, target)
			})
			presenceCh <- outcome[domain.PresenceReport]{r, err}
		}()
	}
	o.setState(id, StateAwaitingPartial)

	var (
		seoRep      *domain.SEOReport
		aioRep      *domain.AIOReport
		presenceRep *domain.PresenceReport

		seoErr, aioErr, presenceErr error

		primaryLeft = 2
		partialSent bool
	)

	for pending > 0 {
		primarySucceeded := false
		select {
		case <-ctx.Done():
			logger.Info("analysis cancelled")
			o.finish(id, StateFailed)
			return nil, ctx.Err()
		case out := <-seoCh:
			seoRep, seoErr = out.report, out.err
			pending--
			primaryLeft--
			primarySucceeded = out.err == nil
		case out := <-aioCh:
			aioRep, aioErr = out.report, out.err
			pending--
			primaryLeft--
			primarySucceeded = out.err == nil
		case out := <-presenceCh:
			presenceRep, presenceErr = out.report, out.err
			pending--
		}

		if primarySucceeded && !partialSent && primaryLeft > 0 {
			partial := withErrors(Assemble(target, seoRep, aioRep, presenceRep), seoErr, aioErr, presenceErr)
			partial.Partial = true
			o.setState(id, StatePartialReady)
			o.emit(ctx, id, onUpdate, domain.Update{Result: partial})
			partialSent = true
			o.setState(id, StateAwaitingFinal)
		}
	}

	if ctx.Err() != nil {
		o.finish(id, StateFailed)
		return nil, ctx.Err()
	}

	final := withErrors(Assemble(target, seoRep, aioRep, presenceRep), seoErr, aioErr, presenceErr)
	if !usable(seoRep != nil, final.SEO.Score) && !usable(aioRep != nil, final.AIO.Score) {
		err := runFailure(seoErr, aioErr)
		logger.Error("analysis failed", "error", err)
		o.finish(id, StateFailed)
		return nil, err
	}

	if o.cache != nil && !o.save(ctx, id, rawURL, final) {
		logger.Info("analysis superseded, result not cached")
		o.finish(id, StateFailed)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, context.Canceled
	}
	logger.Info("analysis complete",
		"overall_score", final.OverallScore,
		"overall_status", final.OverallStatus,
		"seo_error", final.SEOError,
		"aio_error", final.AIOError,
	)
	o.emit(ctx, id, onUpdate, domain.Update{Result: final, Final: true})
	o.finish(id, StateDone)
	return &final, nil
}

// runSource races fn against its own timeout and wraps any failure in a
// *SourceError.
func runSource[T any](ctx context.Context, name string, timeout time.Duration, fn func(context.Context) (*T, error)) (*T, error) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		r, err := fn(sctx)
		done <- outcome[T]{r, err}
	}()

	var err error
	select {
	case out := <-done:
		if out.err == nil && out.report == nil {
			out.err = errors.New("empty result")
		}
		if out.err == nil {
			return out.report, nil
		}
		err = out.err
		if errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %w", domain.ErrSourceTimeout, timeout, err)
		}
	case <-sctx.Done():
		if ctx.Err() != nil {
			err = ctx.Err()
		} else {
			err = fmt.Errorf("%w after %s", domain.ErrSourceTimeout, timeout)
		}
	}
	return nil, &domain.SourceError{Source: name, Err: err}
}

func withErrors(r domain.AnalysisResult, seoErr, aioErr, presenceErr error) domain.AnalysisResult {
	if seoErr != nil {
		r.SEOError = seoErr.Error()
	}
	if aioErr != nil {
		r.AIOError = aioErr.Error()
	}
	if presenceErr != nil {
		r.PresenceError = presenceErr.Error()
	}
	return r
}

func usable(present bool, score int) bool {
	return present && score > 0
}

// runFailure picks the run-level error once no source produced data.
// Task creation and polling transport failures keep their identity.
func runFailure(seoErr, aioErr error) error {
	for _, err := range []error{seoErr, aioErr} {
		var ce *tasks.CreationError
		if errors.As(err, &ce) {
			return ce
		}
	}
	for _, err := range []error{seoErr, aioErr} {
		var pe *tasks.PollingTransportError
		if errors.As(err, &pe) {
			return pe
		}
	}
	nd := &domain.NoUsableDataError{SEOError: "no usable score", AIOError: "no usable score"}
	if seoErr != nil {
		nd.SEOError = seoErr.Error()
	}
	if aioErr != nil {
		nd.AIOError = aioErr.Error()
	}
	return nd
}
