package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/retry"
)

// Scheduler runs one SectionTask per name and collects the sections that
// completed. Section failures are reported through pub and never returned.
// The only error Run returns is a *PanicError, after all work has drained.
type Scheduler interface {
	Run(ctx context.Context, subject *profile.Subject, names []string, pub Publisher) ([]profile.Section, error)
}

// RetryHook observes each retry of a section before the backoff sleep.
type RetryHook func(section string, attempt int, err error, delay time.Duration)

// unit holds what every scheduler needs to run a single section.
type unit struct {
	task    *SectionTask
	retry   *retry.Executor
	onRetry RetryHook
	logger  *zap.Logger
}

func (u *unit) log() *zap.Logger {
	if u.logger == nil {
		return zap.NewNop()
	}
	return u.logger
}

// announce emits pending for every section.
func announce(pub Publisher, names []string) {
	now := time.Now()
	for _, name := range names {
		publish(pub, ProgressEvent{SectionName: name, Status: StatusPending, Timestamp: now})
	}
}

// run drives one section through in_progress to completed or failed.
// ok reports whether sec is valid. A panic before the section reaches a
// terminal state, including inside pub, is recovered into perr and the
// section is reported failed. A panic while publishing the terminal event
// is logged and leaves the outcome as it was.
func (u *unit) run(ctx context.Context, subject *profile.Subject, name string, pub Publisher) (sec profile.Section, ok bool, perr *PanicError) {
	terminal := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if terminal {
			u.log().Warn("publisher panicked on terminal event", zap.String("section", name), zap.Any("panic", r))
			return
		}
		ok = false
		perr = newPanicError(name, r)
		u.log().Error("section panicked", zap.String("section", name), zap.Any("panic", r))
		safePublish(pub, ProgressEvent{SectionName: name, Status: StatusFailed, Err: perr})
	}()

	if ctx.Err() != nil {
		terminal = true
		publish(pub, ProgressEvent{SectionName: name, Status: StatusSkipped})
		return profile.Section{}, false, nil
	}

	publish(pub, ProgressEvent{SectionName: name, Status: StatusInProgress})

	exec := u.executor(name)
	sec, err := retry.Do(ctx, exec, func(ctx context.Context) (profile.Section, error) {
		return u.task.Call(ctx, subject, name)
	})
	if err != nil {
		u.log().Warn("section failed", zap.String("section", name), zap.Error(err))
		terminal = true
		publish(pub, ProgressEvent{SectionName: name, Status: StatusFailed, Err: err})
		return profile.Section{}, false, nil
	}

	terminal, ok = true, true
	publish(pub, ProgressEvent{SectionName: name, Status: StatusCompleted, Section: &sec})
	return sec, true, nil
}

// executor returns a copy of the shared executor whose retry hook knows
// the section name.
func (u *unit) executor(name string) *retry.Executor {
	exec := retry.NewExecutor(retry.DefaultMaxRetries, nil)
	if u.retry != nil {
		cp := *u.retry
		exec = &cp
	}
	inner := exec.OnRetry
	exec.OnRetry = func(attempt int, err error, delay time.Duration) {
		u.log().Info("retrying section",
			zap.String("section", name),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		if inner != nil {
			inner(attempt, err, delay)
		}
		if u.onRetry != nil {
			u.onRetry(name, attempt, err, delay)
		}
	}
	return exec
}

// safePublish publishes ev, swallowing a panic from pub.
func safePublish(pub Publisher, ev ProgressEvent) {
	defer func() { _ = recover() }()
	publish(pub, ev)
}
