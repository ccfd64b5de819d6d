package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"devdeck/models"
)

// State is the hydration state of a Store.
type State int

const (
	StateUninitialized State = iota
	StateHydrating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready is closed once hydration has finished.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Hydrate loads the persisted snapshot once. Later calls return at once.
// A missing snapshot, a load error or a cancelled ctx all leave the store
// empty; the store becomes ready either way. After a load error or a
// cancelled ctx, saves are held back so stored data that was never read is
// not overwritten; see LoadError and Flush.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() {
		s.mu.Lock()
		s.state = StateHydrating
		s.mu.Unlock()

		snap, err := s.load(ctx)

		s.mu.Lock()
		s.apply(snap)
		s.loadErr = err
		s.state = StateReady
		s.mu.Unlock()
		close(s.ready)

		if snap != nil {
			s.log.Info("store hydrated", zap.Int("projects", len(snap.Projects)), zap.Int("entities", snap.Len()))
		}
	})
}

func (s *Store) load(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		s.log.Warn("hydration cancelled, starting empty", zap.Error(err))
		return nil, err
	}
	snap, err := s.adapter.Load()
	if err != nil {
		s.log.Error("failed to load store, starting empty", zap.Error(err))
		return nil, err
	}
	if snap == nil {
		s.log.Info("no saved store, starting empty")
	}
	return snap, nil
}

// LoadError returns why hydration started empty, nil when the saved
// snapshot was read or none existed. While it is non-nil, changes stay in
// memory until Flush is called.
func (s *Store) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// WaitReady blocks until the store is ready or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// apply replaces every collection with the snapshot's content. A nil
// snapshot empties them.
func (s *Store) apply(snap *models.Snapshot) {
	if snap == nil {
		snap = &models.Snapshot{}
	}
	s.projects.Reset(snap.Projects)
	s.tasks.Reset(snap.Tasks)
	s.issues.Reset(snap.Issues)
	s.secrets.Reset(snap.Secrets)
	s.members.Reset(snap.TeamMembers)
	s.goals.Reset(snap.Goals)
	s.resources.Reset(snap.Resources)
	s.backups.Reset(snap.Backups)
	s.notes.Reset(snap.Notes)
	s.dropOrphans()

	var latest time.Time
	bump := func(b *models.Base) {
		if b.UpdatedAt.After(latest) {
			latest = b.UpdatedAt
		}
		if b.CreatedAt.After(latest) {
			latest = b.CreatedAt
		}
	}
	for i := range snap.Projects {
		bump(&snap.Projects[i].Base)
	}
	for i := range snap.Tasks {
		bump(&snap.Tasks[i].Base)
	}
	for i := range snap.Issues {
		bump(&snap.Issues[i].Base)
	}
	for i := range snap.Secrets {
		bump(&snap.Secrets[i].Base)
	}
	for i := range snap.TeamMembers {
		bump(&snap.TeamMembers[i].Base)
	}
	for i := range snap.Goals {
		bump(&snap.Goals[i].Base)
	}
	for i := range snap.Resources {
		bump(&snap.Resources[i].Base)
	}
	for i := range snap.Backups {
		bump(&snap.Backups[i].Base)
	}
	for i := range snap.Notes {
		bump(&snap.Notes[i].Base)
	}
	s.lastStamp = latest.UTC()
}

// dropOrphans removes loaded children whose project is missing, so every
// remaining row can be reached by the cascade.
func (s *Store) dropOrphans() {
	for _, rule := range s.cascade {
		if n := len(rule.orphans(s.projects.Has)); n > 0 {
			s.log.Warn("dropped rows of missing projects", zap.String("kind", string(rule.Kind)), zap.Int("count", n))
		}
	}
}
