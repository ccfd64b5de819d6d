package store

import (
	"time"

	"devdeck/models"
)

// cascadeRule names a child collection and the foreign key that ties it to
// a project. purge removes every child of a project and returns their ids;
// orphans removes children whose project exists reports as missing.
type cascadeRule struct {
	Kind       Kind
	ForeignKey string
	purge      func(projectID string) []string
	orphans    func(exists func(string) bool) []string
}

func (s *Store) cascadeRules() []cascadeRule {
	return []cascadeRule{
		childRule(KindTask, s.tasks),
		childRule(KindIssue, s.issues),
		childRule(KindSecret, s.secrets),
		childRule(KindTeamMember, s.members),
		childRule(KindGoal, s.goals),
		childRule(KindResource, s.resources),
		childRule(KindBackup, s.backups),
		childRule(KindNote, s.notes),
	}
}

func childRule[T any, P child[T]](kind Kind, c *Collection[T, P]) cascadeRule {
	return cascadeRule{
		Kind:       kind,
		ForeignKey: "projectId",
		purge:      func(id string) []string { return removeChildren(c, id) },
		orphans: func(exists func(string) bool) []string {
			return c.RemoveWhere(func(p P) bool { return !exists(p.ProjectRef()) })
		},
	}
}

// AddProject stores a new project. ID and timestamps on in are ignored.
func (s *Store) AddProject(in models.Project) (models.Project, error) {
	in = in.Clone()
	in.TechStack = nonNil(in.TechStack)
	return insert(s, s.projects, KindProject, in, nil)
}

func (s *Store) UpdateProject(id string, patch ProjectPatch) error {
	return modify(s, s.projects, KindProject, id, func(p *models.Project, _ time.Time) {
		patch.apply(p)
	})
}

// ToggleFavorite flips IsFavorite on the project.
func (s *Store) ToggleFavorite(projectID string) error {
	return modify(s, s.projects, KindProject, projectID, func(p *models.Project, _ time.Time) {
		p.IsFavorite = !p.IsFavorite
	})
}

// DeleteProject removes the project and every entity that belongs to it as
// one change: a single save, then one event per removed entity.
func (s *Store) DeleteProject(id string) error {
	return s.mutate(func(time.Time) ([]Event, error) {
		if !s.projects.Remove(id) {
			return nil, nil
		}
		var events []Event
		for _, rule := range s.cascade {
			for _, childID := range rule.purge(id) {
				events = append(events, Event{Kind: rule.Kind, Op: OpDelete, ID: childID})
			}
		}
		return append(events, Event{Kind: KindProject, Op: OpDelete, ID: id}), nil
	})
}

// Projects returns every project in insertion order.
func (s *Store) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.All()
}

func (s *Store) Project(id string) (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.Get(id)
}
