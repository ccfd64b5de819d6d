package store

import (
	"time"

	"devdeck/models"
)

// Child entities. Caller-supplied dates are stored in UTC. Add rejects a
// ProjectID that names no project with ErrUnknownProject; Update and Delete
// on an unknown id do nothing.

func (s *Store) AddTask(in models.Task) (models.Task, error) {
	in = in.Clone()
	in.Tags = nonNil(in.Tags)
	in.DueDate = normalizeDate(in.DueDate)
	return insertChild(s, s.tasks, KindTask, in)
}

func (s *Store) UpdateTask(id string, patch TaskPatch) error {
	return modify(s, s.tasks, KindTask, id, func(t *models.Task, _ time.Time) { patch.apply(t) })
}

func (s *Store) DeleteTask(id string) error { return remove(s, s.tasks, KindTask, id) }

func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Get(id)
}

// TasksFor returns the project's tasks in insertion order.
func (s *Store) TasksFor(projectID string) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return childrenOf(s.tasks, projectID)
}

func (s *Store) AddIssue(in models.Issue) (models.Issue, error) {
	in.ClosedAt = normalizeDate(in.ClosedAt)
	return insertChild(s, s.issues, KindIssue, in)
}

func (s *Store) UpdateIssue(id string, patch IssuePatch) error {
	return modify(s, s.issues, KindIssue, id, func(i *models.Issue, now time.Time) { patch.apply(i, now) })
}

func (s *Store) DeleteIssue(id string) error { return remove(s, s.issues, KindIssue, id) }

func (s *Store) Issue(id string) (models.Issue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issues.Get(id)
}

func (s *Store) IssuesFor(projectID string) []models.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return childrenOf(s.issues, projectID)
}

func (s *Store) AddSecret(in models.Secret) (models.Secret, error) {
	return insertChild(s, s.secrets, KindSecret, in)
}

func (s *Store) UpdateSecret(id string, patch SecretPatch) error {
	return modify(s, s.secrets, KindSecret, id, func(v *models.Secret, _ time.Time) { patch.apply(v) })
}

func (s *Store) DeleteSecret(id string) error { return remove(s, s.secrets, KindSecret, id) }

func (s *Store) Secret(id string) (models.Secret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secrets.Get(id)
}

func (s *Store) SecretsFor(projectID string) []models.Secret {
	s.mu.Lock()
	defer s.mu.Unlock()
	return childrenOf(s.secrets, projectID)
}

func (s *Store) AddTeamMember(in models.TeamMember) (models.TeamMember, error) {
	return insertChild(s, s.members, KindTeamMember, in)
}

func (s *Store) UpdateTeamMember(id string, patch TeamMemberPatch) error {
	return modify(s, s.members, KindTeamMember, id, func(m *models.TeamMember, _ time.Time) { patch.apply(m) })
}

func (s *Store) DeleteTeamMember(id string) error { return remove(s, s.members, KindTeamMember, id) }

func (s *Store) TeamMember(id string) (models.TeamMember, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members.Get(id)
}

func (s *Store) TeamMembersFor(projectID string) []models.TeamMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	return childrenOf(s.members, projectID)
}

func (s *Store) AddGoal(in models.Goal) (models.Goal, error) {
	in.TargetDate = normalizeDate(in.TargetDate)
	return insertChild(s, s.goals, KindGoal, in)
}

func (s *Store) UpdateGoal(id string, patch GoalPatch) error {
	return modify(s, s.goals, KindGoal, id, func(g *models.Goal, _ time.Time) { patch.apply(g) })
}

func (s *Store) DeleteGoal(id string) error { return remove(s, s.goals, KindGoal, id) }

func (s *Store) Goal(id string) (models.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goals.Get(id)
}

func (s *Store) GoalsFor(projectID string) []models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return childrenOf(s.goals, projectID)
}

func (s *Store) AddResource(in models.ResourceItem) (models.ResourceItem, error) {
	return insertChild(s, s.resources, KindResource, in)
}

func (s *Store) UpdateResource(id string, patch ResourcePatch) error {
	return modify(s, s.resources, KindResource, id, func(r *models.ResourceItem, _ time.Time) { patch.apply(r) })
}

func (s *Store) DeleteResource(id string) error { return remove(s, s.resources, KindResource, id) }

func (s *Store) Resource(id string) (models.ResourceItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resources.Get(id)
}

func (s *Store) ResourcesFor(projectID string) []models.ResourceItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return childrenOf(s.resources, projectID)
}

// AddBackup records a finished upload. A zero UploadedAt defaults to now.
func (s *Store) AddBackup(in models.Backup) (models.Backup, error) {
	if in.UploadedAt.IsZero() {
		in.UploadedAt = s.clock()
	}
	in.UploadedAt = normalizeTime(in.UploadedAt)
	return insertChild(s, s.backups, KindBackup, in)
}

func (s *Store) UpdateBackup(id string, patch BackupPatch) error {
	return modify(s, s.backups, KindBackup, id, func(b *models.Backup, _ time.Time) { patch.apply(b) })
}

func (s *Store) DeleteBackup(id string) error { return remove(s, s.backups, KindBackup, id) }

func (s *Store) Backup(id string) (models.Backup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backups.Get(id)
}

func (s *Store) BackupsFor(projectID string) []models.Backup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return childrenOf(s.backups, projectID)
}

func (s *Store) AddNote(in models.DevNote) (models.DevNote, error) {
	in = in.Clone()
	in.Tags = nonNil(in.Tags)
	return insertChild(s, s.notes, KindNote, in)
}

func (s *Store) UpdateNote(id string, patch NotePatch) error {
	return modify(s, s.notes, KindNote, id, func(n *models.DevNote, _ time.Time) { patch.apply(n) })
}

func (s *Store) DeleteNote(id string) error { return remove(s, s.notes, KindNote, id) }

func (s *Store) Note(id string) (models.DevNote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes.Get(id)
}

func (s *Store) NotesFor(projectID string) []models.DevNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return childrenOf(s.notes, projectID)
}
