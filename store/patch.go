package store

import (
	"time"

	"devdeck/models"
)

// Patches carry pointer fields; only non-nil fields are merged. Optional
// dates have a Clear flag because a nil pointer already means "unchanged".

type ProjectPatch struct {
	Name        *string
	Description *string
	GithubURL   *string
	LiveURL     *string
	TechStack   *[]string
	Phase       *models.ProjectPhase
	IsFavorite  *bool
}

func (p ProjectPatch) apply(dst *models.Project) {
	set(&dst.Name, p.Name)
	set(&dst.Description, p.Description)
	set(&dst.GithubURL, p.GithubURL)
	set(&dst.LiveURL, p.LiveURL)
	setSlice(&dst.TechStack, p.TechStack)
	set(&dst.Phase, p.Phase)
	set(&dst.IsFavorite, p.IsFavorite)
}

type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	Assignee     *string
	DueDate      *time.Time
	ClearDueDate bool
	Tags         *[]string
}

func (p TaskPatch) apply(dst *models.Task) {
	set(&dst.Title, p.Title)
	set(&dst.Description, p.Description)
	set(&dst.Status, p.Status)
	set(&dst.Priority, p.Priority)
	set(&dst.Assignee, p.Assignee)
	setDate(&dst.DueDate, p.DueDate, p.ClearDueDate)
	setSlice(&dst.Tags, p.Tags)
}

type IssuePatch struct {
	Title            *string
	Description      *string
	StepsToReproduce *string
	ExpectedBehavior *string
	ActualBehavior   *string
	Environment      *models.IssueEnvironment
	Severity         *models.IssueSeverity
	Status           *models.IssueStatus
	RelatedTaskID    *string
	ClosedAt         *time.Time
}

// apply stamps ClosedAt when the issue enters a terminal status without an
// explicit ClosedAt and clears it when the issue is reopened.
func (p IssuePatch) apply(dst *models.Issue, now time.Time) {
	set(&dst.Title, p.Title)
	set(&dst.Description, p.Description)
	set(&dst.StepsToReproduce, p.StepsToReproduce)
	set(&dst.ExpectedBehavior, p.ExpectedBehavior)
	set(&dst.ActualBehavior, p.ActualBehavior)
	set(&dst.Environment, p.Environment)
	set(&dst.Severity, p.Severity)
	set(&dst.RelatedTaskID, p.RelatedTaskID)

	if p.Status != nil {
		wasTerminal := dst.Status.Terminal()
		dst.Status = *p.Status
		switch {
		case !dst.Status.Terminal():
			dst.ClosedAt = nil
		case !wasTerminal || dst.ClosedAt == nil:
			t := now
			dst.ClosedAt = &t
		}
	}
	setDate(&dst.ClosedAt, p.ClosedAt, false)
}

type SecretPatch struct {
	Name        *string
	Value       *string
	Type        *models.SecretType
	Description *string
}

func (p SecretPatch) apply(dst *models.Secret) {
	set(&dst.Name, p.Name)
	set(&dst.Value, p.Value)
	set(&dst.Type, p.Type)
	set(&dst.Description, p.Description)
}

type TeamMemberPatch struct {
	Name        *string
	Role        *string
	Email       *string
	Phone       *string
	GithubURL   *string
	LinkedinURL *string
	IsActive    *bool
}

func (p TeamMemberPatch) apply(dst *models.TeamMember) {
	set(&dst.Name, p.Name)
	set(&dst.Role, p.Role)
	set(&dst.Email, p.Email)
	set(&dst.Phone, p.Phone)
	set(&dst.GithubURL, p.GithubURL)
	set(&dst.LinkedinURL, p.LinkedinURL)
	set(&dst.IsActive, p.IsActive)
}

type GoalPatch struct {
	Title           *string
	Description     *string
	Status          *models.GoalStatus
	Priority        *models.GoalPriority
	TargetDate      *time.Time
	ClearTargetDate bool
}

func (p GoalPatch) apply(dst *models.Goal) {
	set(&dst.Title, p.Title)
	set(&dst.Description, p.Description)
	set(&dst.Status, p.Status)
	set(&dst.Priority, p.Priority)
	setDate(&dst.TargetDate, p.TargetDate, p.ClearTargetDate)
}

type ResourcePatch struct {
	Type        *models.ResourceType
	Name        *string
	Value       *string
	Description *string
}

func (p ResourcePatch) apply(dst *models.ResourceItem) {
	set(&dst.Type, p.Type)
	set(&dst.Name, p.Name)
	set(&dst.Value, p.Value)
	set(&dst.Description, p.Description)
}

type BackupPatch struct {
	Description    *string
	RemoteViewLink *string
}

func (p BackupPatch) apply(dst *models.Backup) {
	set(&dst.Description, p.Description)
	set(&dst.RemoteViewLink, p.RemoteViewLink)
}

type NotePatch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

func (p NotePatch) apply(dst *models.DevNote) {
	set(&dst.Title, p.Title)
	set(&dst.Content, p.Content)
	setSlice(&dst.Tags, p.Tags)
}

func set[V any](dst *V, v *V) {
	if v != nil {
		*dst = *v
	}
}

func setSlice(dst *[]string, v *[]string) {
	if v == nil {
		return
	}
	out := make([]string, len(*v))
	copy(out, *v)
	*dst = out
}

func setDate(dst **time.Time, v *time.Time, unset bool) {
	switch {
	case v != nil:
		*dst = normalizeDate(v)
	case unset:
		*dst = nil
	}
}

// normalizeTime converts t to the form the codec reads back: UTC without a
// monotonic reading.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// normalizeDate returns a normalized copy of t, nil for nil.
func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := normalizeTime(*t)
	return &n
}

// Ptr returns a pointer to v, for building patches.
func Ptr[V any](v V) *V { return &v }
