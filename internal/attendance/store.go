package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendly/internal/dates"
	"attendly/internal/metrics"
	"attendly/internal/store"
)

var (
	// ErrNotLoaded rejects mutations until the loader has hydrated the store.
	ErrNotLoaded = errors.New("attendance data not loaded yet")
	// ErrSubjectNotFound reports an id with no matching subject.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrInvalidDate reports a date that is not a YYYY-MM-DD key.
	ErrInvalidDate = errors.New("invalid date key")
	// ErrInvalidStatus reports a status outside the cycle.
	ErrInvalidStatus = errors.New("invalid attendance status")
)

// DeletePrompt is the question shown before a subject is removed.
const DeletePrompt = "Delete this subject and all its records?"

// Confirmer gates destructive actions.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Store owns subjects and profile and is the only writer of the canonical slot.
// Every successful mutation writes the whole envelope once before returning.
type Store struct {
	kv      store.KV
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu       sync.Mutex
	loaded   bool
	subjects []Subject // newest first
	profile  Profile
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics records persistence and status changes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithIDGenerator overrides subject id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates an empty, not yet loaded store writing to kv.
func NewStore(kv store.KV, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
		profile: DefaultProfile(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Hydrate replaces the state with loaded data and marks the store ready for writes.
func (s *Store) Hydrate(subjects []Subject, profile Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = make([]Subject, 0, len(subjects))
	for _, sub := range subjects {
		s.subjects = append(s.subjects, sub.clone())
	}
	s.profile = profile
	s.loaded = true
}

// Loaded reports whether startup hydration finished.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Snapshot returns copies of the subjects (newest first) and the profile.
func (s *Store) Snapshot() ([]Subject, Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Subject, len(s.subjects))
	for i, sub := range s.subjects {
		out[i] = sub.clone()
	}
	return out, s.profile
}

// Subject returns a copy of the subject with id.
func (s *Store) Subject(id string) (Subject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.subjects[i].clone(), true
	}
	return Subject{}, false
}

// AddSubject creates a subject with an empty history and puts it first.
func (s *Store) AddSubject(ctx context.Context, name string, target float64) (Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Subject{}, ErrNotLoaded
	}

	sub := Subject{
		ID:          s.newID(),
		Name:        name,
		Target:      target,
		History:     map[string]Status{},
		LastUpdated: s.now(),
	}
	s.subjects = append([]Subject{sub}, s.subjects...)
	s.log.Info("subject added", zap.String("id", sub.ID), zap.String("name", name))
	return sub.clone(), s.persistLocked(ctx)
}

// UpdateAttendance sets or clears (StatusNone) the status of one day.
// An empty date means today. lastUpdated is refreshed even when history is unchanged.
func (s *Store) UpdateAttendance(ctx context.Context, id string, status Status, date string) (Subject, error) {
	if !status.Valid() {
		return Subject{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if date == "" {
		date = dates.Today(s.now)
	} else if !dates.Valid(date) {
		return Subject{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Subject{}, ErrNotLoaded
	}
	i := s.indexLocked(id)
	if i < 0 {
		return Subject{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}

	// replace the record instead of editing it so holders of the old value keep it
	next := s.subjects[i].clone()
	if status == StatusNone {
		delete(next.History, date)
	} else {
		next.History[date] = status
	}
	next.LastUpdated = s.now()
	s.subjects[i] = next

	s.metrics.StatusChanged(string(status))
	s.log.Debug("attendance updated",
		zap.String("id", id), zap.String("date", date), zap.String("status", string(status)))
	return next.clone(), s.persistLocked(ctx)
}

// DeleteSubject removes a subject and its history once c confirms.
// It reports whether a subject was removed. A nil Confirmer declines.
func (s *Store) DeleteSubject(ctx context.Context, id string, c Confirmer) (bool, error) {
	if c == nil || !c.Confirm(DeletePrompt) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false, ErrNotLoaded
	}
	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	s.subjects = append(s.subjects[:i:i], s.subjects[i+1:]...)
	s.log.Info("subject deleted", zap.String("id", id))
	return true, s.persistLocked(ctx)
}

// SetProfile replaces the profile. Unknown themes collapse to modern.
func (s *Store) SetProfile(ctx context.Context, p Profile) (Profile, error) {
	p.Theme = NormalizeTheme(p.Theme)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Profile{}, ErrNotLoaded
	}
	s.profile = p
	return p, s.persistLocked(ctx)
}

// Flush writes the current state to the canonical slot.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	return s.persistLocked(ctx)
}

func (s *Store) indexLocked(id string) int {
	for i, sub := range s.subjects {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked keeps the in-memory change even when the write fails.
func (s *Store) persistLocked(ctx context.Context) error {
	subjects := s.subjects
	if subjects == nil {
		subjects = []Subject{}
	}
	blob, err := json.Marshal(Envelope{Subjects: subjects, Profile: s.profile})
	if err == nil {
		err = s.kv.Set(ctx, store.SlotData, string(blob))
	}
	s.metrics.PersistResult(err)
	if err != nil {
		s.log.Error("persist failed", zap.String("slot", string(store.SlotData)), zap.Error(err))
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}
