package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"devdeck/engine"
	"devdeck/errs"
	"devdeck/models"
	"devdeck/store"
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)

var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FF0000")).
	Bold(true)

var statusStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#00AA00"))

var busyStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#00FF00")).
	Bold(true)

var helpStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#888888"))

var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FFAA00"))

// screenState represents the current screen being displayed
type screenState int

const (
	screenLoading screenState = iota
	screenList
	screenTasks
)

// inputMode says what the shared text input is collecting
type inputMode int

const (
	inputNone inputMode = iota
	inputProject
	inputTask
)

// Options wires optional engines into the TUI.
type Options struct {
	// Backups runs the b key. Nil disables backups.
	Backups *engine.Backups
	// ScanRoot is the directory the s key scans. Empty disables scanning.
	ScanRoot string
}

// model represents the Bubble Tea application model
type model struct {
	ctx     context.Context
	store   *store.Store
	backups *engine.Backups
	scanDir string

	screen  screenState
	list    list.Model
	tasks   list.Model
	project models.Project

	input     textinput.Model
	inputMode inputMode

	confirmDelete      bool
	deleteConfirmInput textinput.Model
	deleteProject      *projectItem
	deleteIdx          int

	errorMessage  string
	statusMessage string
	busy          string
	width         int
	height        int
	ready         bool
}

// NewModel creates the model. The store may still be hydrating; the list
// fills once it is ready.
func NewModel(ctx context.Context, s *store.Store, opts Options) model {
	delegate := list.NewDefaultDelegate()

	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "DevDeck - Projects"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	tl := list.New([]list.Item{}, delegate, 80, 20)
	tl.SetShowStatusBar(true)
	tl.SetFilteringEnabled(true)
	tl.SetShowHelp(false)

	return model{
		ctx:     ctx,
		store:   s,
		backups: opts.Backups,
		scanDir: opts.ScanRoot,
		screen:  screenLoading,
		list:    l,
		tasks:   tl,
		input:   textinput.New(),
		width:   80,
		height:  24,
	}
}

// Init waits for the store to become ready
func (m model) Init() tea.Cmd {
	return waitReadyCmd(m.ctx, m.store)
}

// Update handles messages and updates the model
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		listHeight := msg.Height - 8
		if listHeight < 10 {
			listHeight = 10
		}
		m.list.SetSize(msg.Width-4, listHeight)
		m.tasks.SetSize(msg.Width-4, listHeight)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case readyMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Store not ready: %v", msg.err)
			return m, nil
		}
		m.screen = screenList
		m.list.SetItems(projectItems(m.store))
		if m.store.LoadError() != nil {
			m.errorMessage = "Saved data could not be read, changes will not be saved: run 'devdeck doctor'"
		}
		return m, nil

	case storeChangedMsg:
		m.reload()
		return m, nil

	case favoriteMsg:
		if msg.err != nil {
			// ROLLBACK: toggle failed, revert the change
			m.list.SetItem(msg.originalIdx, msg.originalItem)
			m.errorMessage = fmt.Sprintf("Favorite failed: %v", msg.err)
		}
		return m, nil

	case deleteMsg:
		if msg.err != nil {
			m.list.InsertItem(msg.originalIdx, msg.originalItem)
			m.errorMessage = fmt.Sprintf("Delete failed: %v", msg.err)
			return m, nil
		}
		m.statusMessage = fmt.Sprintf("Deleted %s", msg.originalItem.project.Name)
		return m, nil

	case addedMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Add failed: %v", msg.err)
			return m, nil
		}
		m.statusMessage = fmt.Sprintf("Added %s", msg.name)
		return m, nil

	case backupMsg:
		m.busy = ""
		switch {
		case errs.IsCode(msg.err, errs.CodeNotConnected):
			m.errorMessage = "Backup host not connected: run 'devdeck backup login'"
		case msg.err != nil:
			m.errorMessage = fmt.Sprintf("Backup failed: %v", msg.err)
		default:
			m.statusMessage = fmt.Sprintf("Backed up %s as %s", msg.project, msg.backup.FileName)
		}
		return m, nil

	case scanCompleteMsg:
		m.busy = ""
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Scan failed: %v", msg.err)
			return m, nil
		}
		m.statusMessage = fmt.Sprintf("Scan complete: found %d projects, added %d new", msg.found, msg.added)
		return m, nil

	case errorMsg:
		m.errorMessage = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	if m.screen == screenTasks {
		m.tasks, cmd = m.tasks.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

// reload rebuilds the rows from the store after a change.
func (m *model) reload() {
	if m.screen == screenLoading {
		return
	}
	m.list.SetItems(projectItems(m.store))
	if m.screen != screenTasks {
		return
	}
	if _, ok := m.store.Project(m.project.ID); !ok {
		m.screen = screenList
		return
	}
	m.tasks.SetItems(taskItems(m.store, m.project.ID))
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.screen == screenLoading {
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.confirmDelete {
		return m.updateConfirmDelete(msg)
	}
	if m.inputMode != inputNone {
		return m.updateInput(msg)
	}
	if m.screen == screenTasks {
		return m.updateTasks(msg)
	}

	// If list is filtering, let it handle all keys
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "f":
		item, idx, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		originalItem := item

		// OPTIMISTIC: flip the star before the store confirms
		item.project.IsFavorite = !item.project.IsFavorite
		m.list.SetItem(idx, item)
		m.errorMessage = ""
		return m, toggleFavoriteCmd(m.store, originalItem, idx)

	case "d":
		item, idx, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		m.confirmDelete = true
		m.deleteProject = &item
		m.deleteIdx = idx
		m.errorMessage = ""
		m.statusMessage = ""

		confirmInput := textinput.New()
		confirmInput.Placeholder = "Type DELETE to confirm"
		confirmInput.Focus()
		confirmInput.CharLimit = 10
		confirmInput.Width = 30
		m.deleteConfirmInput = confirmInput
		return m, textinput.Blink

	case "a":
		return m.startInput(inputProject, "Project name")

	case "enter":
		item, _, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		m.project = item.project
		m.screen = screenTasks
		m.tasks.Title = "Tasks: " + item.project.Name
		m.tasks.SetItems(taskItems(m.store, item.project.ID))
		m.errorMessage = ""
		m.statusMessage = ""
		return m, nil

	case "b":
		if m.backups == nil {
			m.errorMessage = "Backups are not configured"
			return m, nil
		}
		if m.busy != "" {
			return m, nil
		}
		item, _, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		m.busy = "Uploading backup..."
		m.errorMessage = ""
		return m, backupCmd(m.ctx, m.backups, item.project)

	case "s":
		if m.scanDir == "" || m.busy != "" {
			return m, nil
		}
		m.busy = "Scanning directories..."
		m.errorMessage = ""
		return m, scanCmd(m.ctx, m.store, m.scanDir)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.deleteConfirmInput.Value() != "DELETE" {
			m.errorMessage = "You must type 'DELETE' exactly to confirm"
			return m, nil
		}
		originalItem := *m.deleteProject
		originalIdx := m.deleteIdx

		// OPTIMISTIC: drop the row now, reinsert it if the store refuses
		m.list.RemoveItem(originalIdx)
		m.confirmDelete = false
		m.deleteProject = nil
		m.errorMessage = ""
		return m, deleteProjectCmd(m.store, originalItem, originalIdx)
	case "esc":
		m.confirmDelete = false
		m.deleteProject = nil
		m.statusMessage = "Delete cancelled"
		m.errorMessage = ""
		return m, nil
	default:
		var cmd tea.Cmd
		m.deleteConfirmInput, cmd = m.deleteConfirmInput.Update(msg)
		return m, cmd
	}
}

func (m model) startInput(mode inputMode, placeholder string) (tea.Model, tea.Cmd) {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = 120
	ti.Width = 50
	m.input = ti
	m.inputMode = mode
	m.errorMessage = ""
	m.statusMessage = ""
	return m, textinput.Blink
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			m.errorMessage = "Name cannot be empty"
			return m, nil
		}
		mode := m.inputMode
		m.inputMode = inputNone
		if mode == inputTask {
			return m, addTaskCmd(m.store, m.project.ID, value)
		}
		return m, addProjectCmd(m.store, value)
	case "esc":
		m.inputMode = inputNone
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m model) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tasks.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.tasks, cmd = m.tasks.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = screenList
		return m, nil
	case "a":
		return m.startInput(inputTask, "Task title")
	case "x", " ":
		sel, ok := m.tasks.SelectedItem().(taskItem)
		if !ok {
			return m, nil
		}
		return m, cycleTaskCmd(m.store, sel.task)
	}

	var cmd tea.Cmd
	m.tasks, cmd = m.tasks.Update(msg)
	return m, cmd
}

func (m model) selectedProject() (projectItem, int, bool) {
	item, ok := m.list.SelectedItem().(projectItem)
	if !ok {
		return projectItem{}, 0, false
	}
	return item, m.list.Index(), true
}

// View renders the UI
func (m model) View() string {
	if m.screen == screenLoading {
		view := "Loading projects..."
		if m.errorMessage != "" {
			view += "\n" + errorStyle.Render("⚠ "+m.errorMessage)
		}
		return docStyle.Render(view)
	}
	if !m.ready {
		return "Loading..."
	}

	var view string
	var help string
	if m.screen == screenTasks {
		view = m.tasks.View()
		help = "\n\nKeys: x=next status  a=add task  /=filter  esc=back  q=quit"
	} else {
		view = m.list.View()
		help = "\n\nKeys: enter=tasks  f=favorite  a=add  d=delete  b=backup  s=scan  /=filter  q=quit"
	}

	if m.errorMessage != "" {
		view += errorStyle.Render("\n⚠ " + m.errorMessage)
	}
	if m.busy != "" {
		view += busyStyle.Render("\n\n⟳ " + m.busy)
	}
	if m.statusMessage != "" {
		view += statusStyle.Render("\n\n✓ " + m.statusMessage)
	}
	if m.inputMode != inputNone {
		view += "\n\n" + m.input.View() + "\n" + helpStyle.Render("Enter to save | ESC to cancel")
	}
	if m.confirmDelete && m.deleteProject != nil {
		view += m.deletePrompt()
	}
	return view + helpStyle.Render(help)
}

// deletePrompt lists what the cascade will remove alongside the project.
func (m model) deletePrompt() string {
	p := m.deleteProject.project
	prompt := "\n\n" + errorStyle.Render("⚠ WARNING: DELETE PROJECT") + "\n\n" +
		fmt.Sprintf("Project: %s\n", p.Name)

	if snap, ok := m.store.ProjectSnapshot(p.ID); ok {
		if n := snap.Len() - 1; n > 0 {
			prompt += warnStyle.Render(fmt.Sprintf("This also deletes %d related records (tasks, issues, secrets, notes...).\n", n))
		}
	}
	if p.GithubURL == "" {
		prompt += warnStyle.Render("No repository URL is recorded for this project.\n")
	}

	return prompt + "\n" +
		errorStyle.Render("Type 'DELETE' to confirm: ") + "\n" +
		m.deleteConfirmInput.View() + "\n\n" +
		helpStyle.Render("Press Enter to confirm | ESC to cancel")
}
