package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"devdeck/models"
	"devdeck/store"
)

// projectItem wraps a Project and implements the list.Item interface
type projectItem struct {
	project    models.Project
	openTasks  int
	openIssues int
	isLoading  bool
}

func (i projectItem) FilterValue() string {
	return i.project.Name + " " + strings.Join(i.project.TechStack, " ")
}

func (i projectItem) Title() string {
	title := i.project.Name
	if i.project.IsFavorite {
		title = "★ " + title
	}
	if i.project.GithubURL != "" {
		title += " 🔗"
	}
	if i.isLoading {
		return title + " [Processing...]"
	}
	return title
}

func (i projectItem) Description() string {
	parts := []string{string(i.project.Phase)}
	if len(i.project.TechStack) > 0 {
		parts = append(parts, strings.Join(i.project.TechStack, ", "))
	}
	parts = append(parts, fmt.Sprintf("%d open tasks", i.openTasks))
	if i.openIssues > 0 {
		parts = append(parts, fmt.Sprintf("%d open issues", i.openIssues))
	}
	return strings.Join(parts, " • ")
}

// taskItem is one row of the task screen.
type taskItem struct {
	task models.Task
}

func (i taskItem) FilterValue() string { return i.task.Title }

func (i taskItem) Title() string {
	return fmt.Sprintf("%s %s", statusGlyph(i.task.Status), i.task.Title)
}

func (i taskItem) Description() string {
	desc := string(i.task.Status) + " • " + string(i.task.Priority)
	if i.task.Assignee != "" {
		desc += " • @" + i.task.Assignee
	}
	if i.task.DueDate != nil {
		desc += " • due " + i.task.DueDate.Format("2006-01-02")
	}
	return desc
}

func statusGlyph(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusDone:
		return "✓"
	case models.TaskStatusInProgress:
		return "▶"
	case models.TaskStatusBlocked:
		return "✗"
	default:
		return "○"
	}
}

// sortProjects orders favorites first, then most recently updated.
func sortProjects(ps []models.Project) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].IsFavorite != ps[j].IsFavorite {
			return ps[i].IsFavorite
		}
		return ps[i].UpdatedAt.After(ps[j].UpdatedAt)
	})
}

// projectItems reads the store and builds the sorted list rows.
func projectItems(s *store.Store) []list.Item {
	projects := s.Projects()
	sortProjects(projects)

	items := make([]list.Item, len(projects))
	for i, p := range projects {
		item := projectItem{project: p}
		for _, t := range s.TasksFor(p.ID) {
			if t.Status != models.TaskStatusDone {
				item.openTasks++
			}
		}
		for _, is := range s.IssuesFor(p.ID) {
			if !is.Status.Terminal() {
				item.openIssues++
			}
		}
		items[i] = item
	}
	return items
}

func taskItems(s *store.Store, projectID string) []list.Item {
	tasks := s.TasksFor(projectID)
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = taskItem{task: t}
	}
	return items
}
