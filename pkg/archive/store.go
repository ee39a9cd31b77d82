// Package archive loads the recorder's local cache file into immutable
// snapshots and publishes the current one to concurrent readers.
//
// Decoding happens in two steps with distinct error kinds: the outer
// envelope (ErrArchiveUnreadable) and the JSON document embedded in its
// cache field (ErrArchiveCorrupt). Reloads are serialized; readers take the
// current snapshot without locking.
package archive

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
	"github.com/otherjamesbrown/granola-mcp/pkg/observability"
)

// Store owns the current archive snapshot.
type Store struct {
	path    string
	logger  logging.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
	now     func() time.Time
	loc     *time.Location

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Store) {
		s.tracer = t
	}
}

// WithClock sets the clock used for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLocation sets the zone for all-day calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.loc = loc
	}
}

// NewStore returns a store for the archive at path. Nothing is read until
// Load or Refresh is called.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: logging.NewNopLogger(),
		tracer: observability.NewTracer(),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the archive path.
func (s *Store) Path() string {
	return s.path
}

// Current returns the current snapshot, or nil if none has been loaded.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Load returns the current snapshot, reading the archive first if there is none.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have loaded while we waited.
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return s.reload(ctx)
}

// Refresh re-reads the archive and publishes a new snapshot. On failure the
// previous snapshot stays current and the error is returned.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

// reload must be called with mu held.
func (s *Store) reload(ctx context.Context) (*Snapshot, error) {
	ctx, span := s.tracer.StartArchiveLoad(ctx, s.path)
	defer span.End()
	helper := observability.NewSpanHelper(span)
	log := s.logger.WithContext(ctx).With(logging.F("path", s.path))

	started := time.Now()
	snap, err := s.read()
	elapsed := time.Since(started)

	if err != nil {
		result := observability.ResultUnreadable
		if grerrors.IsArchiveCorrupt(err) {
			result = observability.ResultCorrupt
		}
		s.metrics.RecordLoad(result, elapsed, 0)
		helper.SetError(err, string(grerrors.KindOf(err)))
		log.Warn("archive load failed, keeping previous snapshot",
			logging.Err(err),
			logging.F("has_previous", s.current.Load() != nil),
		)
		return nil, err
	}

	snap.Path = s.path
	snap.LoadedAt = s.now()
	s.current.Store(snap)

	s.metrics.RecordLoad(observability.ResultOK, elapsed, snap.Len())
	s.metrics.RecordDropped(observability.ReasonMalformed, snap.Stats.Malformed)
	s.metrics.RecordDropped(observability.ReasonNoStart, snap.Stats.Dropped-snap.Stats.Malformed)
	s.metrics.RecordDropped(observability.ReasonDeleted, snap.Stats.Deleted)
	helper.SetLoadStats(snap.Stats.Records, snap.Stats.Loaded, snap.Stats.Dropped)
	helper.SetSuccess()

	log.Info("archive loaded",
		logging.F("records", snap.Stats.Records),
		logging.F("meetings", snap.Stats.Loaded),
		logging.F("dropped", snap.Stats.Dropped),
		logging.F("deleted", snap.Stats.Deleted),
		logging.F("duration", elapsed),
	)
	return snap, nil
}

func (s *Store) read() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %v: %w", s.path, err, grerrors.ErrArchiveUnreadable)
	}
	snap, err := DecodeIn(data, s.loc)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", s.path, err)
	}
	return snap, nil
}
