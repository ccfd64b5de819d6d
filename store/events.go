package store

import "slices"

// Kind names an entity collection.
type Kind string

const (
	KindProject    Kind = "project"
	KindTask       Kind = "task"
	KindIssue      Kind = "issue"
	KindSecret     Kind = "secret"
	KindTeamMember Kind = "teamMember"
	KindGoal       Kind = "goal"
	KindResource   Kind = "resource"
	KindBackup     Kind = "backup"
	KindNote       Kind = "note"
)

// Op is the kind of change an Event reports.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event describes one committed change.
type Event struct {
	Kind Kind
	Op   Op
	ID   string
}

// Subscribe registers fn to be called after every committed change. fn runs
// on the mutating goroutine after the store lock is released, so it may
// read from the store. The returned func unregisters fn and is safe to call
// more than once.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subsMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	// registration order
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subsMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
