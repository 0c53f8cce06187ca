package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
)

const (
	// DefaultTTL is how long an untouched session is kept. The streaming
	// transport normally deletes sessions much sooner; the TTL reaps those
	// nobody streamed.
	DefaultTTL = time.Hour

	defaultCleanupInterval = 10 * time.Minute
)

// Store is a concurrency-safe registry of sessions. Every operation holds
// one mutex for its duration. Operations on an unknown id are no-ops, so
// late updates after a delete are harmless.
type Store struct {
	mu    sync.Mutex
	items *cache.Cache
	now   func() time.Time
	newID func() string
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	ttl   time.Duration
	now   func() time.Time
	newID func() string
}

// WithTTL sets how long an untouched session survives.
func WithTTL(d time.Duration) StoreOption {
	return func(c *storeConfig) { c.ttl = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) { c.now = now }
}

// WithIDGenerator overrides the uuid generator.
func WithIDGenerator(f func() string) StoreOption {
	return func(c *storeConfig) { c.newID = f }
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	cfg := storeConfig{ttl: DefaultTTL, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&cfg)
	}
	cleanup := defaultCleanupInterval
	if cfg.ttl < cleanup {
		cleanup = cfg.ttl
	}
	return &Store{
		items: cache.New(cfg.ttl, cleanup),
		now:   cfg.now,
		newID: cfg.newID,
	}
}

// Create registers a new session for subject in the starting state and
// returns its id.
func (s *Store) Create(subject *profile.Subject) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.items.Set(id, &Session{
		ID:        id,
		Subject:   subject,
		Status:    StatusStarting,
		Sections:  make(map[string]SectionSnapshot),
		StartedAt: s.now(),
	}, cache.DefaultExpiration)
	return id
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.get(id)
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}

// UpdateSection upserts the snapshot for section name and moves the
// session to generating. A finished session keeps its terminal status.
func (s *Store) UpdateSection(id, name string, snap SectionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.get(id)
	if !ok {
		return
	}
	sess.Sections[name] = snap
	if !sess.Status.Terminal() {
		sess.Status = StatusGenerating
	}
	s.items.Set(id, sess, cache.DefaultExpiration)
}

// Complete records the outcome of the run and stamps CompletedAt.
func (s *Store) Complete(id string, out orchestrator.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.get(id)
	if !ok {
		return
	}
	switch {
	case out.Success != nil:
		sess.Status = StatusCompleted
		sess.Profile = out.Success.Profile
		sess.Summary = &Summary{
			SectionsGenerated: out.Success.SectionsGenerated,
			SectionsRequested: out.Success.SectionsRequested,
			DurationSeconds:   out.Success.DurationSeconds(),
		}
	case out.Failure != nil:
		sess.Status = StatusFailed
		sess.Error = out.Failure.ErrorMessage
		sess.ErrorKind = out.Failure.ErrorKind
	default:
		sess.Status = StatusFailed
		sess.Error = "empty outcome"
	}
	s.stamp(sess)
	s.items.Set(id, sess, cache.DefaultExpiration)
}

// Fail forces the session into the failed state. It is used when the
// background run crashed before it could report an outcome.
func (s *Store) Fail(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.get(id)
	if !ok {
		return
	}
	sess.Status = StatusFailed
	sess.Error = message
	s.stamp(sess)
	s.items.Set(id, sess, cache.DefaultExpiration)
}

// Delete removes the session. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Delete(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.ItemCount()
}

func (s *Store) get(id string) (*Session, bool) {
	x, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	return x.(*Session), true
}

func (s *Store) stamp(sess *Session) {
	at := s.now()
	sess.CompletedAt = &at
}
