package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"devdeck/engine"
	"devdeck/models"
	"devdeck/store"
)

// Custom message types for optimistic UI updates

// readyMsg is sent once the store finished hydrating
type readyMsg struct {
	err error
}

// storeChangedMsg is sent by the store subscription after every mutation
type storeChangedMsg struct{}

// favoriteMsg is sent when a favorite toggle completes
type favoriteMsg struct {
	err error
	// Store original item for rollback on failure
	originalItem projectItem
	originalIdx  int
}

// deleteMsg is sent when a project delete completes
type deleteMsg struct {
	err          error
	originalItem projectItem
	originalIdx  int
}

type addedMsg struct {
	name string
	err  error
}

type backupMsg struct {
	project string
	backup  models.Backup
	err     error
}

type scanCompleteMsg struct {
	found int
	added int
	err   error
}

// errorMsg displays an error message to the user
type errorMsg struct {
	err error
}

func waitReadyCmd(ctx context.Context, s *store.Store) tea.Cmd {
	return func() tea.Msg {
		return readyMsg{err: s.WaitReady(ctx)}
	}
}

func toggleFavoriteCmd(s *store.Store, originalItem projectItem, originalIdx int) tea.Cmd {
	return func() tea.Msg {
		return favoriteMsg{
			err:          s.ToggleFavorite(originalItem.project.ID),
			originalItem: originalItem,
			originalIdx:  originalIdx,
		}
	}
}

func deleteProjectCmd(s *store.Store, originalItem projectItem, originalIdx int) tea.Cmd {
	return func() tea.Msg {
		return deleteMsg{
			err:          s.DeleteProject(originalItem.project.ID),
			originalItem: originalItem,
			originalIdx:  originalIdx,
		}
	}
}

func addProjectCmd(s *store.Store, name string) tea.Cmd {
	return func() tea.Msg {
		_, err := s.AddProject(models.Project{Name: name, Phase: models.PhaseInDevelopment})
		return addedMsg{name: name, err: err}
	}
}

func addTaskCmd(s *store.Store, projectID, title string) tea.Cmd {
	return func() tea.Msg {
		_, err := s.AddTask(models.Task{
			ProjectID: projectID,
			Title:     title,
			Status:    models.TaskStatusTodo,
			Priority:  models.TaskPriorityMedium,
		})
		return addedMsg{name: title, err: err}
	}
}

func cycleTaskCmd(s *store.Store, t models.Task) tea.Cmd {
	return func() tea.Msg {
		next := t.Status.Next()
		if err := s.UpdateTask(t.ID, store.TaskPatch{Status: &next}); err != nil {
			return errorMsg{err: err}
		}
		return nil
	}
}

func backupCmd(ctx context.Context, b *engine.Backups, p models.Project) tea.Cmd {
	return func() tea.Msg {
		backup, err := b.Run(ctx, p.ID, "")
		return backupMsg{project: p.Name, backup: backup, err: err}
	}
}

func scanCmd(ctx context.Context, s *store.Store, root string) tea.Cmd {
	return func() tea.Msg {
		found, err := engine.ScanDirectory(ctx, root)
		if err != nil {
			return scanCompleteMsg{err: err}
		}
		res, err := engine.ImportDiscovered(s, found)
		return scanCompleteMsg{found: len(found), added: len(res.Added), err: err}
	}
}
