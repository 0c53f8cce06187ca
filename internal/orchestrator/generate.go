package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/prompt"
	"github.com/dusk-indust/profilegen/internal/retry"
)

// OutcomeObserver is told about every outcome an Orchestrator returns.
type OutcomeObserver interface {
	ObserveOutcome(mode string, o Outcome)
}

// Modes passed to OutcomeObserver.
const (
	ModeParallel   = "parallel"
	ModeSequential = "sequential"
	ModeSingle     = "single"
)

// Orchestrator is the entry point for generating a profile. It never
// panics and never returns an error: every failure becomes a Failure
// outcome.
type Orchestrator struct {
	catalog    prompt.Catalog
	task       *SectionTask
	retry      *retry.Executor
	maxThreads int
	onRetry    RetryHook
	publisher  Publisher
	observer   OutcomeObserver
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRetry sets the retry policy shared by all sections.
func WithRetry(e *retry.Executor) Option {
	return func(o *Orchestrator) { o.retry = e }
}

// WithMaxThreads bounds the parallel worker pool.
func WithMaxThreads(n int) Option {
	return func(o *Orchestrator) { o.maxThreads = n }
}

// WithRetryHook observes section retries.
func WithRetryHook(h RetryHook) Option {
	return func(o *Orchestrator) { o.onRetry = h }
}

// WithDefaultPublisher receives the events of every call in addition to
// any per-call publisher.
func WithDefaultPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithObserver registers an OutcomeObserver.
func WithObserver(obs OutcomeObserver) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides time.Now for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator over a prompt catalog and an LLM client
// source.
func New(catalog prompt.Catalog, clients ClientSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:    catalog,
		maxThreads: DefaultMaxThreads,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.retry == nil {
		o.retry = retry.NewExecutor(retry.DefaultMaxRetries, nil)
	}
	o.task = &SectionTask{
		Catalog: catalog,
		Clients: clients,
		Logger:  o.logger,
		Now:     o.now,
	}
	return o
}

// Catalog returns the prompt catalog the orchestrator reads from.
func (o *Orchestrator) Catalog() prompt.Catalog { return o.catalog }

// CallOption adjusts a single Call.
type CallOption func(*callConfig)

type callConfig struct {
	sequential bool
	publisher  Publisher
}

// Sequential runs the sections one at a time instead of in parallel.
func Sequential() CallOption {
	return func(c *callConfig) { c.sequential = true }
}

// WithPublisher receives this call's progress events.
func WithPublisher(p Publisher) CallOption {
	return func(c *callConfig) { c.publisher = p }
}

// Scheduler returns the scheduler used for the given mode.
func (o *Orchestrator) Scheduler(sequential bool) Scheduler {
	u := unit{task: o.task, retry: o.retry, onRetry: o.onRetry, logger: o.logger}
	if sequential {
		return &SequentialScheduler{u: u}
	}
	return &ParallelScheduler{MaxThreads: o.maxThreads, u: u}
}

// Call generates the named sections for subject. An empty names list means
// every section the catalog knows. Sections that fail are omitted from the
// profile; the outcome is still a Success.
func (o *Orchestrator) Call(ctx context.Context, subject *profile.Subject, names []string, opts ...CallOption) (out Outcome) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	mode := ModeParallel
	if cfg.sequential {
		mode = ModeSequential
	}

	defer func() {
		if r := recover(); r != nil {
			out = failureOutcome(newPanicError("", r))
		}
		o.finish(mode, out)
	}()

	if !subject.Valid() {
		return failureOutcome(InvalidSubjectError{})
	}

	if len(names) == 0 {
		all, err := o.catalog.Available()
		if err != nil {
			return failureOutcome(err)
		}
		names = all
	}

	start := o.now()
	o.logger.Info("generation started",
		zap.String("subject", subject.Name()),
		zap.String("mode", mode),
		zap.Int("sections", len(names)))

	pub := MultiPublisher{o.publisher, cfg.publisher}
	sections, err := o.Scheduler(cfg.sequential).Run(ctx, subject, names, pub)
	if err != nil {
		return failureOutcome(err)
	}

	end := o.now()
	return Outcome{Success: &Success{
		Profile: &profile.Profile{
			Subject:     subject,
			Sections:    sections,
			GeneratedAt: end,
		},
		SectionsGenerated: len(sections),
		SectionsRequested: len(names),
		Duration:          end.Sub(start),
	}}
}

// GenerateSection generates a single section with its own retry loop,
// starting the attempt count at retryAttempt. Unlike Call, a section
// failure is a Failure outcome carrying the attempts made.
func (o *Orchestrator) GenerateSection(ctx context.Context, subject *profile.Subject, name string, retryAttempt int, opts ...CallOption) (out Outcome) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	pub := MultiPublisher{o.publisher, cfg.publisher}

	defer func() {
		if r := recover(); r != nil {
			out = failureOutcome(newPanicError(name, r))
		}
		o.finish(ModeSingle, out)
	}()

	if !subject.Valid() {
		return failureOutcome(InvalidSubjectError{})
	}
	if !o.catalog.Exists(name) {
		return failureOutcome(&prompt.NotFoundError{Name: name})
	}
	if retryAttempt < 0 {
		retryAttempt = 0
	}

	classify := o.retry.IsRetryable
	if classify == nil {
		classify = retry.IsRetryable
	}
	sleep := o.retry.Sleep
	if sleep == nil {
		sleep = retry.SleepContext
	}
	backoff := o.retry.Backoff
	if backoff == nil {
		backoff = retry.DefaultBackoff()
	}

	start := o.now()
	announce(pub, []string{name})
	publish(pub, ProgressEvent{SectionName: name, Status: StatusInProgress})

	attempt := retryAttempt
	for {
		sec, err := o.task.Call(ctx, subject, name)
		if err == nil {
			publish(pub, ProgressEvent{SectionName: name, Status: StatusCompleted, Section: &sec})
			end := o.now()
			return Outcome{Success: &Success{
				Profile: &profile.Profile{
					Subject:     subject,
					Sections:    []profile.Section{sec},
					GeneratedAt: end,
				},
				SectionsGenerated: 1,
				SectionsRequested: 1,
				Duration:          end.Sub(start),
			}}
		}

		if attempt >= o.retry.MaxRetries || !classify(err) {
			publish(pub, ProgressEvent{SectionName: name, Status: StatusFailed, Err: err})
			fail := failureOutcome(err)
			fail.Failure.RetryAttempts = attempt
			return fail
		}

		delay := backoff.Delay(attempt)
		o.logger.Info("retrying section",
			zap.String("section", name),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		if o.onRetry != nil {
			o.onRetry(name, attempt, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			publish(pub, ProgressEvent{SectionName: name, Status: StatusFailed, Err: err})
			fail := failureOutcome(err)
			fail.Failure.RetryAttempts = attempt
			return fail
		}
		attempt++
	}
}

func (o *Orchestrator) finish(mode string, out Outcome) {
	if out.Success != nil {
		o.logger.Info("generation finished",
			zap.String("mode", mode),
			zap.Int("generated", out.Success.SectionsGenerated),
			zap.Int("requested", out.Success.SectionsRequested),
			zap.Duration("duration", out.Success.Duration))
	} else if out.Failure != nil {
		o.logger.Warn("generation failed",
			zap.String("mode", mode),
			zap.String("kind", out.Failure.ErrorKind),
			zap.String("error", out.Failure.ErrorMessage))
	}
	if o.observer != nil {
		o.observer.ObserveOutcome(mode, out)
	}
}
