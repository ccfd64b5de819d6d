package db

import (
	"encoding/json"
	"fmt"
	"time"

	"devdeck/models"
)

// FormatVersion is written into every blob.
const FormatVersion = 1

// Sealer seals secret values at the persistence boundary.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

// Codec converts a snapshot to and from the on-disk JSON document. Dates
// become ISO-8601 strings on the way out and time.Time on the way in, one
// explicit pair per entity kind.
type Codec struct {
	sealer Sealer
}

// NewCodec returns a codec. A nil sealer stores secret values as given.
func NewCodec(sealer Sealer) *Codec {
	return &Codec{sealer: sealer}
}

// Sealed reports whether secret values are encrypted on encode.
func (c *Codec) Sealed() bool { return c.sealer != nil }

type document struct {
	Version     int              `json:"version"`
	SavedAt     string           `json:"savedAt"`
	Projects    []projectRecord  `json:"projects"`
	Tasks       []taskRecord     `json:"tasks"`
	Issues      []issueRecord    `json:"issues"`
	Secrets     []secretRecord   `json:"secrets"`
	TeamMembers []memberRecord   `json:"teamMembers"`
	Goals       []goalRecord     `json:"goals"`
	Resources   []resourceRecord `json:"resources"`
	Backups     []backupRecord   `json:"backups"`
	Notes       []noteRecord     `json:"notes"`
}

type baseRecord struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type projectRecord struct {
	baseRecord
	Name        string   `json:"name"`
	Description string   `json:"description"`
	GithubURL   string   `json:"githubUrl,omitempty"`
	LiveURL     string   `json:"liveUrl,omitempty"`
	TechStack   []string `json:"techStack"`
	Phase       string   `json:"phase"`
	IsFavorite  bool     `json:"isFavorite"`
}

type taskRecord struct {
	baseRecord
	ProjectID   string   `json:"projectId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Assignee    string   `json:"assignee,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	Tags        []string `json:"tags"`
}

type issueRecord struct {
	baseRecord
	ProjectID        string `json:"projectId"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	StepsToReproduce string `json:"stepsToReproduce"`
	ExpectedBehavior string `json:"expectedBehavior,omitempty"`
	ActualBehavior   string `json:"actualBehavior,omitempty"`
	Environment      string `json:"environment"`
	Severity         string `json:"severity"`
	Status           string `json:"status"`
	RelatedTaskID    string `json:"relatedTaskId,omitempty"`
	ClosedAt         string `json:"closedAt,omitempty"`
}

type secretRecord struct {
	baseRecord
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type memberRecord struct {
	baseRecord
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	GithubURL   string `json:"githubUrl,omitempty"`
	LinkedinURL string `json:"linkedinUrl,omitempty"`
	IsActive    bool   `json:"isActive"`
}

type goalRecord struct {
	baseRecord
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	TargetDate  string `json:"targetDate,omitempty"`
}

type resourceRecord struct {
	baseRecord
	ProjectID   string `json:"projectId"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

type backupRecord struct {
	baseRecord
	ProjectID      string `json:"projectId"`
	FileName       string `json:"fileName"`
	FileSize       int64  `json:"fileSize"`
	Description    string `json:"description,omitempty"`
	RemoteFileID   string `json:"driveFileId,omitempty"`
	RemoteViewLink string `json:"driveViewLink,omitempty"`
	UploadedAt     string `json:"uploadedAt"`
}

type noteRecord struct {
	baseRecord
	ProjectID string   `json:"projectId"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
}

// Encode serializes snap. Secret values are sealed when the codec has a
// sealer.
func (c *Codec) Encode(snap *models.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = &models.Snapshot{}
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	doc := document{
		Version:     FormatVersion,
		SavedAt:     formatTime(savedAt),
		Projects:    make([]projectRecord, 0, len(snap.Projects)),
		Tasks:       make([]taskRecord, 0, len(snap.Tasks)),
		Issues:      make([]issueRecord, 0, len(snap.Issues)),
		Secrets:     make([]secretRecord, 0, len(snap.Secrets)),
		TeamMembers: make([]memberRecord, 0, len(snap.TeamMembers)),
		Goals:       make([]goalRecord, 0, len(snap.Goals)),
		Resources:   make([]resourceRecord, 0, len(snap.Resources)),
		Backups:     make([]backupRecord, 0, len(snap.Backups)),
		Notes:       make([]noteRecord, 0, len(snap.Notes)),
	}

	for _, p := range snap.Projects {
		doc.Projects = append(doc.Projects, encodeProject(p))
	}
	for _, t := range snap.Tasks {
		doc.Tasks = append(doc.Tasks, encodeTask(t))
	}
	for _, i := range snap.Issues {
		doc.Issues = append(doc.Issues, encodeIssue(i))
	}
	for _, s := range snap.Secrets {
		rec, err := c.encodeSecret(s)
		if err != nil {
			return nil, err
		}
		doc.Secrets = append(doc.Secrets, rec)
	}
	for _, m := range snap.TeamMembers {
		doc.TeamMembers = append(doc.TeamMembers, encodeMember(m))
	}
	for _, g := range snap.Goals {
		doc.Goals = append(doc.Goals, encodeGoal(g))
	}
	for _, r := range snap.Resources {
		doc.Resources = append(doc.Resources, encodeResource(r))
	}
	for _, b := range snap.Backups {
		doc.Backups = append(doc.Backups, encodeBackup(b))
	}
	for _, n := range snap.Notes {
		doc.Notes = append(doc.Notes, encodeNote(n))
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a document produced by Encode (or by an older writer that
// used date-only strings). Missing arrays decode to empty slices.
func (c *Codec) Decode(data []byte) (*models.Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}

	snap := &models.Snapshot{
		Projects:    make([]models.Project, 0, len(doc.Projects)),
		Tasks:       make([]models.Task, 0, len(doc.Tasks)),
		Issues:      make([]models.Issue, 0, len(doc.Issues)),
		Secrets:     make([]models.Secret, 0, len(doc.Secrets)),
		TeamMembers: make([]models.TeamMember, 0, len(doc.TeamMembers)),
		Goals:       make([]models.Goal, 0, len(doc.Goals)),
		Resources:   make([]models.ResourceItem, 0, len(doc.Resources)),
		Backups:     make([]models.Backup, 0, len(doc.Backups)),
		Notes:       make([]models.DevNote, 0, len(doc.Notes)),
	}
	var err error
	if doc.SavedAt != "" {
		if snap.SavedAt, err = parseTime(doc.SavedAt); err != nil {
			return nil, fmt.Errorf("savedAt: %w", err)
		}
	}

	for _, r := range doc.Projects {
		p, err := decodeProject(r)
		if err != nil {
			return nil, err
		}
		snap.Projects = append(snap.Projects, p)
	}
	for _, r := range doc.Tasks {
		t, err := decodeTask(r)
		if err != nil {
			return nil, err
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	for _, r := range doc.Issues {
		i, err := decodeIssue(r)
		if err != nil {
			return nil, err
		}
		snap.Issues = append(snap.Issues, i)
	}
	for _, r := range doc.Secrets {
		s, err := c.decodeSecret(r)
		if err != nil {
			return nil, err
		}
		snap.Secrets = append(snap.Secrets, s)
	}
	for _, r := range doc.TeamMembers {
		m, err := decodeMember(r)
		if err != nil {
			return nil, err
		}
		snap.TeamMembers = append(snap.TeamMembers, m)
	}
	for _, r := range doc.Goals {
		g, err := decodeGoal(r)
		if err != nil {
			return nil, err
		}
		snap.Goals = append(snap.Goals, g)
	}
	for _, r := range doc.Resources {
		res, err := decodeResource(r)
		if err != nil {
			return nil, err
		}
		snap.Resources = append(snap.Resources, res)
	}
	for _, r := range doc.Backups {
		b, err := decodeBackup(r)
		if err != nil {
			return nil, err
		}
		snap.Backups = append(snap.Backups, b)
	}
	for _, r := range doc.Notes {
		n, err := decodeNote(r)
		if err != nil {
			return nil, err
		}
		snap.Notes = append(snap.Notes, n)
	}
	return snap, nil
}

func encodeBase(b models.Base) baseRecord {
	return baseRecord{ID: b.ID, CreatedAt: formatTime(b.CreatedAt), UpdatedAt: formatTime(b.UpdatedAt)}
}

// decodeBase tolerates missing timestamps; they come back as zero times.
func decodeBase(kind string, r baseRecord) (models.Base, error) {
	b := models.Base{ID: r.ID}
	created, err := parseOptional(r.CreatedAt)
	if err != nil {
		return b, fmt.Errorf("%s %s createdAt: %w", kind, r.ID, err)
	}
	updated, err := parseOptional(r.UpdatedAt)
	if err != nil {
		return b, fmt.Errorf("%s %s updatedAt: %w", kind, r.ID, err)
	}
	if created != nil {
		b.CreatedAt = *created
	}
	if updated != nil {
		b.UpdatedAt = *updated
	}
	return b, nil
}

func encodeProject(p models.Project) projectRecord {
	return projectRecord{
		baseRecord:  encodeBase(p.Base),
		Name:        p.Name,
		Description: p.Description,
		GithubURL:   p.GithubURL,
		LiveURL:     p.LiveURL,
		TechStack:   nonNil(p.TechStack),
		Phase:       string(p.Phase),
		IsFavorite:  p.IsFavorite,
	}
}

func decodeProject(r projectRecord) (models.Project, error) {
	base, err := decodeBase("project", r.baseRecord)
	if err != nil {
		return models.Project{}, err
	}
	return models.Project{
		Base:        base,
		Name:        r.Name,
		Description: r.Description,
		GithubURL:   r.GithubURL,
		LiveURL:     r.LiveURL,
		TechStack:   nonNil(r.TechStack),
		Phase:       models.ProjectPhase(r.Phase),
		IsFavorite:  r.IsFavorite,
	}, nil
}

func encodeTask(t models.Task) taskRecord {
	return taskRecord{
		baseRecord:  encodeBase(t.Base),
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Assignee:    t.Assignee,
		DueDate:     formatOptional(t.DueDate),
		Tags:        nonNil(t.Tags),
	}
}

func decodeTask(r taskRecord) (models.Task, error) {
	base, err := decodeBase("task", r.baseRecord)
	if err != nil {
		return models.Task{}, err
	}
	due, err := parseOptional(r.DueDate)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s dueDate: %w", r.ID, err)
	}
	return models.Task{
		Base:        base,
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		Status:      models.TaskStatus(r.Status),
		Priority:    models.TaskPriority(r.Priority),
		Assignee:    r.Assignee,
		DueDate:     due,
		Tags:        nonNil(r.Tags),
	}, nil
}

func encodeIssue(i models.Issue) issueRecord {
	return issueRecord{
		baseRecord:       encodeBase(i.Base),
		ProjectID:        i.ProjectID,
		Title:            i.Title,
		Description:      i.Description,
		StepsToReproduce: i.StepsToReproduce,
		ExpectedBehavior: i.ExpectedBehavior,
		ActualBehavior:   i.ActualBehavior,
		Environment:      string(i.Environment),
		Severity:         string(i.Severity),
		Status:           string(i.Status),
		RelatedTaskID:    i.RelatedTaskID,
		ClosedAt:         formatOptional(i.ClosedAt),
	}
}

func decodeIssue(r issueRecord) (models.Issue, error) {
	base, err := decodeBase("issue", r.baseRecord)
	if err != nil {
		return models.Issue{}, err
	}
	closed, err := parseOptional(r.ClosedAt)
	if err != nil {
		return models.Issue{}, fmt.Errorf("issue %s closedAt: %w", r.ID, err)
	}
	return models.Issue{
		Base:             base,
		ProjectID:        r.ProjectID,
		Title:            r.Title,
		Description:      r.Description,
		StepsToReproduce: r.StepsToReproduce,
		ExpectedBehavior: r.ExpectedBehavior,
		ActualBehavior:   r.ActualBehavior,
		Environment:      models.IssueEnvironment(r.Environment),
		Severity:         models.IssueSeverity(r.Severity),
		Status:           models.IssueStatus(r.Status),
		RelatedTaskID:    r.RelatedTaskID,
		ClosedAt:         closed,
	}, nil
}

func (c *Codec) encodeSecret(s models.Secret) (secretRecord, error) {
	value := s.Value
	if c.sealer != nil {
		sealed, err := c.sealer.Seal(value)
		if err != nil {
			return secretRecord{}, fmt.Errorf("failed to seal secret %s: %w", s.ID, err)
		}
		value = sealed
	}
	return secretRecord{
		baseRecord:  encodeBase(s.Base),
		ProjectID:   s.ProjectID,
		Name:        s.Name,
		Value:       value,
		Type:        string(s.Type),
		Description: s.Description,
	}, nil
}

func (c *Codec) decodeSecret(r secretRecord) (models.Secret, error) {
	base, err := decodeBase("secret", r.baseRecord)
	if err != nil {
		return models.Secret{}, err
	}
	value := r.Value
	if c.sealer != nil {
		if value, err = c.sealer.Open(r.Value); err != nil {
			return models.Secret{}, fmt.Errorf("failed to open secret %s: %w", r.ID, err)
		}
	}
	return models.Secret{
		Base:        base,
		ProjectID:   r.ProjectID,
		Name:        r.Name,
		Value:       value,
		Type:        models.SecretType(r.Type),
		Description: r.Description,
	}, nil
}

func encodeMember(m models.TeamMember) memberRecord {
	return memberRecord{
		baseRecord:  encodeBase(m.Base),
		ProjectID:   m.ProjectID,
		Name:        m.Name,
		Role:        m.Role,
		Email:       m.Email,
		Phone:       m.Phone,
		GithubURL:   m.GithubURL,
		LinkedinURL: m.LinkedinURL,
		IsActive:    m.IsActive,
	}
}

func decodeMember(r memberRecord) (models.TeamMember, error) {
	base, err := decodeBase("team member", r.baseRecord)
	if err != nil {
		return models.TeamMember{}, err
	}
	return models.TeamMember{
		Base:        base,
		ProjectID:   r.ProjectID,
		Name:        r.Name,
		Role:        r.Role,
		Email:       r.Email,
		Phone:       r.Phone,
		GithubURL:   r.GithubURL,
		LinkedinURL: r.LinkedinURL,
		IsActive:    r.IsActive,
	}, nil
}

func encodeGoal(g models.Goal) goalRecord {
	return goalRecord{
		baseRecord:  encodeBase(g.Base),
		ProjectID:   g.ProjectID,
		Title:       g.Title,
		Description: g.Description,
		Status:      string(g.Status),
		Priority:    string(g.Priority),
		TargetDate:  formatOptional(g.TargetDate),
	}
}

func decodeGoal(r goalRecord) (models.Goal, error) {
	base, err := decodeBase("goal", r.baseRecord)
	if err != nil {
		return models.Goal{}, err
	}
	target, err := parseOptional(r.TargetDate)
	if err != nil {
		return models.Goal{}, fmt.Errorf("goal %s targetDate: %w", r.ID, err)
	}
	return models.Goal{
		Base:        base,
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		Status:      models.GoalStatus(r.Status),
		Priority:    models.GoalPriority(r.Priority),
		TargetDate:  target,
	}, nil
}

func encodeResource(r models.ResourceItem) resourceRecord {
	return resourceRecord{
		baseRecord:  encodeBase(r.Base),
		ProjectID:   r.ProjectID,
		Type:        string(r.Type),
		Name:        r.Name,
		Value:       r.Value,
		Description: r.Description,
	}
}

func decodeResource(r resourceRecord) (models.ResourceItem, error) {
	base, err := decodeBase("resource", r.baseRecord)
	if err != nil {
		return models.ResourceItem{}, err
	}
	return models.ResourceItem{
		Base:        base,
		ProjectID:   r.ProjectID,
		Type:        models.ResourceType(r.Type),
		Name:        r.Name,
		Value:       r.Value,
		Description: r.Description,
	}, nil
}

func encodeBackup(b models.Backup) backupRecord {
	return backupRecord{
		baseRecord:     encodeBase(b.Base),
		ProjectID:      b.ProjectID,
		FileName:       b.FileName,
		FileSize:       b.FileSize,
		Description:    b.Description,
		RemoteFileID:   b.RemoteFileID,
		RemoteViewLink: b.RemoteViewLink,
		UploadedAt:     formatTime(b.UploadedAt),
	}
}

func decodeBackup(r backupRecord) (models.Backup, error) {
	base, err := decodeBase("backup", r.baseRecord)
	if err != nil {
		return models.Backup{}, err
	}
	uploaded, err := parseOptional(r.UploadedAt)
	if err != nil {
		return models.Backup{}, fmt.Errorf("backup %s uploadedAt: %w", r.ID, err)
	}
	if uploaded == nil {
		uploaded = &base.CreatedAt
	}
	return models.Backup{
		Base:           base,
		ProjectID:      r.ProjectID,
		FileName:       r.FileName,
		FileSize:       r.FileSize,
		Description:    r.Description,
		RemoteFileID:   r.RemoteFileID,
		RemoteViewLink: r.RemoteViewLink,
		UploadedAt:     *uploaded,
	}, nil
}

func encodeNote(n models.DevNote) noteRecord {
	return noteRecord{
		baseRecord: encodeBase(n.Base),
		ProjectID:  n.ProjectID,
		Title:      n.Title,
		Content:    n.Content,
		Tags:       nonNil(n.Tags),
	}
}

func decodeNote(r noteRecord) (models.DevNote, error) {
	base, err := decodeBase("note", r.baseRecord)
	if err != nil {
		return models.DevNote{}, err
	}
	return models.DevNote{
		Base:      base,
		ProjectID: r.ProjectID,
		Title:     r.Title,
		Content:   r.Content,
		Tags:      nonNil(r.Tags),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
