package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/retry"
)

// Compile-time check.
var _ Scheduler = (*SequentialScheduler)(nil)

// SequentialScheduler runs sections one at a time in request order. The
// returned sections are in request order, failures omitted.
type SequentialScheduler struct {
	u unit
}

// NewSequentialScheduler creates a SequentialScheduler. A nil exec uses
// the default retry policy.
func NewSequentialScheduler(task *SectionTask, exec *retry.Executor, logger *zap.Logger) *SequentialScheduler {
	return &SequentialScheduler{u: unit{task: task, retry: exec, logger: logger}}
}

// Run implements Scheduler.
func (s *SequentialScheduler) Run(ctx context.Context, subject *profile.Subject, names []string, pub Publisher) ([]profile.Section, error) {
	announce(pub, names)

	sections := make([]profile.Section, 0, len(names))
	var firstPanic *PanicError
	for _, name := range names {
		sec, ok, perr := s.u.run(ctx, subject, name, pub)
		if ok {
			sections = append(sections, sec)
		}
		if perr != nil && firstPanic == nil {
			firstPanic = perr
		}
	}

	if firstPanic != nil {
		return sections, firstPanic
	}
	return sections, nil
}
