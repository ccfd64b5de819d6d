// Package store is the in-memory project store. It owns every entity
// collection, persists a snapshot through an Adapter after each change and
// notifies subscribers.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devdeck/models"
)

var (
	// ErrNotReady is returned by mutations before Hydrate has finished.
	ErrNotReady = errors.New("store not ready")
	// ErrUnknownProject is returned when a child entity names a project
	// that does not exist.
	ErrUnknownProject = errors.New("unknown project")
)

// Adapter reads and writes the serialized store. Load returns (nil, nil)
// when nothing has been saved yet.
type Adapter interface {
	Load() (*models.Snapshot, error)
	Save(*models.Snapshot) error
}

// Store is safe for concurrent use. Every mutation holds the lock through
// the adapter write, so saves never interleave.
type Store struct {
	mu      sync.Mutex
	adapter Adapter
	log     *zap.Logger
	clock   func() time.Time
	newID   func() string

	state       State
	ready       chan struct{}
	hydrateOnce sync.Once
	dirty       bool
	loadErr     error
	lastStamp   time.Time

	projects  *Collection[models.Project, *models.Project]
	tasks     *Collection[models.Task, *models.Task]
	issues    *Collection[models.Issue, *models.Issue]
	secrets   *Collection[models.Secret, *models.Secret]
	members   *Collection[models.TeamMember, *models.TeamMember]
	goals     *Collection[models.Goal, *models.Goal]
	resources *Collection[models.ResourceItem, *models.ResourceItem]
	backups   *Collection[models.Backup, *models.Backup]
	notes     *Collection[models.DevNote, *models.DevNote]

	cascade []cascadeRule

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now for timestamping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = now }
}

// WithIDGenerator replaces the UUIDv4 generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New returns an uninitialized store. Call Hydrate before mutating it.
func New(adapter Adapter, opts ...Option) *Store {
	s := &Store{
		adapter:   adapter,
		log:       zap.NewNop(),
		clock:     time.Now,
		newID:     uuid.NewString,
		ready:     make(chan struct{}),
		projects:  newCollection[models.Project](),
		tasks:     newCollection[models.Task](),
		issues:    newCollection[models.Issue](),
		secrets:   newCollection[models.Secret](),
		members:   newCollection[models.TeamMember](),
		goals:     newCollection[models.Goal](),
		resources: newCollection[models.ResourceItem](),
		backups:   newCollection[models.Backup](),
		notes:     newCollection[models.DevNote](),
		subs:      map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cascade = s.cascadeRules()
	return s
}

// Dirty reports whether the last save failed and memory is ahead of disk.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush saves the current state, e.g. to retry after a failed write. It
// also replaces stored data that failed to load.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotReady
	}
	s.loadErr = nil
	if err := s.adapter.Save(s.snapshotLocked()); err != nil {
		s.dirty = true
		return err
	}
	s.dirty = false
	return nil
}

// mutate runs fn under the lock, persists when fn reports changes, then
// notifies subscribers outside the lock.
func (s *Store) mutate(fn func(now time.Time) ([]Event, error)) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	events, err := fn(s.clock())
	if err == nil && len(events) > 0 {
		s.persistLocked()
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(events)
	return nil
}

// persistLocked writes a snapshot. A failure, or stored data that never
// loaded, leaves the store dirty; memory stays authoritative.
func (s *Store) persistLocked() {
	if s.loadErr != nil {
		s.dirty = true
		s.log.Error("not saving over stored data that failed to load", zap.Error(s.loadErr))
		return
	}
	if err := s.adapter.Save(s.snapshotLocked()); err != nil {
		s.dirty = true
		s.log.Warn("failed to persist store", zap.Error(err))
		return
	}
	if s.dirty {
		s.log.Info("store persisted after earlier failure")
	}
	s.dirty = false
}

// stamp returns a UTC timestamp strictly after every earlier stamp.
func (s *Store) stamp(now time.Time) time.Time {
	now = normalizeTime(now)
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = now
	return now
}

func (s *Store) snapshotLocked() *models.Snapshot {
	return &models.Snapshot{
		SavedAt:     s.clock().UTC(),
		Projects:    s.projects.All(),
		Tasks:       s.tasks.All(),
		Issues:      s.issues.All(),
		Secrets:     s.secrets.All(),
		TeamMembers: s.members.All(),
		Goals:       s.goals.All(),
		Resources:   s.resources.All(),
		Backups:     s.backups.All(),
		Notes:       s.notes.All(),
	}
}

// Snapshot returns a copy of the whole store.
func (s *Store) Snapshot() *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ProjectSnapshot returns the project and everything that belongs to it.
// ok is false for an unknown project.
func (s *Store) ProjectSnapshot(projectID string) (*models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects.Get(projectID)
	if !ok {
		return nil, false
	}
	return &models.Snapshot{
		SavedAt:     s.clock().UTC(),
		Projects:    []models.Project{p},
		Tasks:       childrenOf(s.tasks, projectID),
		Issues:      childrenOf(s.issues, projectID),
		Secrets:     childrenOf(s.secrets, projectID),
		TeamMembers: childrenOf(s.members, projectID),
		Goals:       childrenOf(s.goals, projectID),
		Resources:   childrenOf(s.resources, projectID),
		Backups:     childrenOf(s.backups, projectID),
		Notes:       childrenOf(s.notes, projectID),
	}, true
}

// Counts returns the number of entities per kind.
func (s *Store) Counts() map[Kind]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[Kind]int{
		KindProject:    s.projects.Len(),
		KindTask:       s.tasks.Len(),
		KindIssue:      s.issues.Len(),
		KindSecret:     s.secrets.Len(),
		KindTeamMember: s.members.Len(),
		KindGoal:       s.goals.Len(),
		KindResource:   s.resources.Len(),
		KindBackup:     s.backups.Len(),
		KindNote:       s.notes.Len(),
	}
}

// insert stamps item, checks its parent project and appends it. An empty
// parent means the item is a root entity.
func insert[T any, P entity[T]](s *Store, c *Collection[T, P], kind Kind, item T, parent func(P) string) (T, error) {
	var out T
	err := s.mutate(func(now time.Time) ([]Event, error) {
		p := P(&item)
		if parent != nil && !s.projects.Has(parent(p)) {
			return nil, ErrUnknownProject
		}
		ts := s.stamp(now)
		*p.Meta() = models.Base{ID: s.newID(), CreatedAt: ts, UpdatedAt: ts}
		c.Append(p.Clone())
		out = p.Clone()
		return []Event{{Kind: kind, Op: OpAdd, ID: p.Meta().ID}}, nil
	})
	return out, err
}

// modify applies fn to the item with id and refreshes UpdatedAt. Unknown
// ids are a silent no-op.
func modify[T any, P entity[T]](s *Store, c *Collection[T, P], kind Kind, id string, fn func(p P, now time.Time)) error {
	return s.mutate(func(now time.Time) ([]Event, error) {
		found := c.Update(id, func(p P) {
			ts := s.stamp(now)
			fn(p, ts)
			p.Meta().UpdatedAt = ts
		})
		if !found {
			return nil, nil
		}
		return []Event{{Kind: kind, Op: OpUpdate, ID: id}}, nil
	})
}

func remove[T any, P entity[T]](s *Store, c *Collection[T, P], kind Kind, id string) error {
	return s.mutate(func(time.Time) ([]Event, error) {
		if !c.Remove(id) {
			return nil, nil
		}
		return []Event{{Kind: kind, Op: OpDelete, ID: id}}, nil
	})
}

func insertChild[T any, P child[T]](s *Store, c *Collection[T, P], kind Kind, item T) (T, error) {
	return insert(s, c, kind, item, func(p P) string { return p.ProjectRef() })
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
