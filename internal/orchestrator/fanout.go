package orchestrator

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/retry"
)

// DefaultMaxThreads bounds the parallel worker pool when unset.
const DefaultMaxThreads = 5

// Compile-time check.
var _ Scheduler = (*ParallelScheduler)(nil)

// ParallelScheduler dispatches sections onto a worker pool of at most
// MaxThreads goroutines. The returned sections are in completion order;
// use SortSections for a stable order.
type ParallelScheduler struct {
	MaxThreads int

	u unit
}

// NewParallelScheduler creates a ParallelScheduler. maxThreads <= 0 means
// DefaultMaxThreads; a nil exec uses the default retry policy.
func NewParallelScheduler(task *SectionTask, exec *retry.Executor, maxThreads int, logger *zap.Logger) *ParallelScheduler {
	if maxThreads <= 0 {
		maxThreads = DefaultMaxThreads
	}
	return &ParallelScheduler{
		MaxThreads: maxThreads,
		u:          unit{task: task, retry: exec, logger: logger},
	}
}

// Run implements Scheduler. Every worker is joined before Run returns,
// whether sections failed or a worker panicked. Unlike errgroup.WithContext
// a failed section does not cancel its siblings.
func (p *ParallelScheduler) Run(ctx context.Context, subject *profile.Subject, names []string, pub Publisher) ([]profile.Section, error) {
	announce(pub, names)

	var (
		mu         sync.Mutex
		sections   = make([]profile.Section, 0, len(names))
		firstPanic *PanicError
	)

	limit := p.MaxThreads
	if limit <= 0 {
		limit = DefaultMaxThreads
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)

	for _, name := range names {
		g.Go(func() error {
			sec, ok, perr := p.u.run(ctx, subject, name, pub)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				sections = append(sections, sec)
			}
			if perr != nil && firstPanic == nil {
				firstPanic = perr
			}
			return nil
		})
	}

	_ = g.Wait() // workers never return an error

	if firstPanic != nil {
		return sections, firstPanic
	}
	return sections, nil
}
