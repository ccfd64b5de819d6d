package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"devdeck/models"
	"devdeck/store"
)

func newTaskCommand() *cli.Command {
	return &cli.Command{
		Name:    "task",
		Aliases: []string{"t"},
		Usage:   "Manage a project's tasks",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List a project's tasks",
				ArgsUsage: "<project>",
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					tasks := a.store.TasksFor(p.ID)
					if len(tasks) == 0 {
						fmt.Printf("No tasks for '%s'.\n", p.Name)
						return nil
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE")
					for _, t := range tasks {
						due := ""
						if t.DueDate != nil {
							due = t.DueDate.Local().Format("2006-01-02")
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shortID(t.ID), t.Status, t.Priority, due, truncateString(t.Title, 50))
					}
					return w.Flush()
				}),
			},
			{
				Name:      "add",
				Usage:     "Add a task",
				ArgsUsage: "<project> <title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Value: string(models.TaskPriorityMedium), Usage: "low, medium, high, critical"},
					&cli.StringFlag{Name: "assignee"},
					&cli.StringFlag{Name: "due", Usage: "YYYY-MM-DD"},
					&cli.StringFlag{Name: "tags", Usage: "comma separated"},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					title := strings.Join(c.Args().Tail(), " ")
					if title == "" {
						return fmt.Errorf("task title is required")
					}
					due, err := parseDate(c.String("due"))
					if err != nil {
						return err
					}
					t, err := a.store.AddTask(models.Task{
						ProjectID:   p.ID,
						Title:       title,
						Description: c.String("description"),
						Status:      models.TaskStatusTodo,
						Priority:    models.TaskPriority(c.String("priority")),
						Assignee:    c.String("assignee"),
						DueDate:     due,
						Tags:        splitList(c.String("tags")),
					})
					if err != nil {
						return err
					}
					fmt.Printf("✅ Task created: %s\n", shortID(t.ID))
					return nil
				}),
			},
			{
				Name:      "status",
				Usage:     "Set a task's status, or advance it when none is given",
				ArgsUsage: "<task-id> [todo|in-progress|done|blocked]",
				Action: withApp(func(c *cli.Context, a *app) error {
					t, err := findTask(a.store, c.Args().First())
					if err != nil {
						return err
					}
					next := t.Status.Next()
					if s := c.Args().Get(1); s != "" {
						next = models.TaskStatus(s)
					}
					if err := a.store.UpdateTask(t.ID, store.TaskPatch{Status: &next}); err != nil {
						return err
					}
					fmt.Printf("Task '%s': %s → %s\n", t.Title, t.Status, next)
					return nil
				}),
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a task",
				ArgsUsage: "<task-id>",
				Action: withApp(func(c *cli.Context, a *app) error {
					t, err := findTask(a.store, c.Args().First())
					if err != nil {
						return err
					}
					if err := a.store.DeleteTask(t.ID); err != nil {
						return err
					}
					fmt.Printf("🗑  Task '%s' deleted\n", t.Title)
					return nil
				}),
			},
		},
	}
}

// allTasks gathers every task across projects for id lookups.
func allTasks(s *store.Store) []models.Task {
	var out []models.Task
	for _, p := range s.Projects() {
		out = append(out, s.TasksFor(p.ID)...)
	}
	return out
}

func findTask(s *store.Store, ref string) (models.Task, error) {
	tasks := allTasks(s)
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	id, err := resolveID("task", ref, ids)
	if err != nil {
		return models.Task{}, err
	}
	t, _ := s.Task(id)
	return t, nil
}

func newIssueCommand() *cli.Command {
	return &cli.Command{
		Name:  "issue",
		Usage: "Track a project's issues",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List a project's issues",
				ArgsUsage: "<project>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "include resolved and closed issues"},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tSTATUS\tSEVERITY\tENV\tTITLE")
					for _, is := range a.store.IssuesFor(p.ID) {
						if is.Status.Terminal() && !c.Bool("all") {
							continue
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shortID(is.ID), is.Status, is.Severity, is.Environment, truncateString(is.Title, 50))
					}
					return w.Flush()
				}),
			},
			{
				Name:      "add",
				Usage:     "Report an issue",
				ArgsUsage: "<project> <title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringFlag{Name: "steps", Usage: "steps to reproduce"},
					&cli.StringFlag{Name: "severity", Value: string(models.SeverityMinor), Usage: "minor, major, critical"},
					&cli.StringFlag{Name: "env", Value: string(models.EnvLocal), Usage: "production, staging, local"},
					&cli.StringFlag{Name: "task", Usage: "related task id"},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					title := strings.Join(c.Args().Tail(), " ")
					if title == "" {
						return fmt.Errorf("issue title is required")
					}
					is, err := a.store.AddIssue(models.Issue{
						ProjectID:        p.ID,
						Title:            title,
						Description:      c.String("description"),
						StepsToReproduce: c.String("steps"),
						Environment:      models.IssueEnvironment(c.String("env")),
						Severity:         models.IssueSeverity(c.String("severity")),
						Status:           models.IssueStatusOpen,
						RelatedTaskID:    c.String("task"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("✅ Issue created: %s\n", shortID(is.ID))
					return nil
				}),
			},
			{
				Name:      "close",
				Usage:     "Close an issue",
				ArgsUsage: "<issue-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "resolved", Usage: "mark resolved instead of closed"},
					&cli.BoolFlag{Name: "reopen", Usage: "reopen the issue"},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					var ids []string
					for _, p := range a.store.Projects() {
						for _, is := range a.store.IssuesFor(p.ID) {
							ids = append(ids, is.ID)
						}
					}
					id, err := resolveID("issue", c.Args().First(), ids)
					if err != nil {
						return err
					}

					status := models.IssueStatusClosed
					switch {
					case c.Bool("reopen"):
						status = models.IssueStatusOpen
					case c.Bool("resolved"):
						status = models.IssueStatusResolved
					}
					if err := a.store.UpdateIssue(id, store.IssuePatch{Status: &status}); err != nil {
						return err
					}
					fmt.Printf("Issue %s is now %s\n", shortID(id), status)
					return nil
				}),
			},
		},
	}
}

func newNoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "note",
		Usage: "Keep development notes",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a note",
				ArgsUsage: "<project> <title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "content", Aliases: []string{"c"}},
					&cli.StringFlag{Name: "tags"},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					title := strings.Join(c.Args().Tail(), " ")
					if title == "" {
						return fmt.Errorf("note title is required")
					}
					n, err := a.store.AddNote(models.DevNote{
						ProjectID: p.ID,
						Title:     title,
						Content:   c.String("content"),
						Tags:      splitList(c.String("tags")),
					})
					if err != nil {
						return err
					}
					fmt.Printf("✅ Note created: %s\n", shortID(n.ID))
					return nil
				}),
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List a project's notes",
				ArgsUsage: "<project>",
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					for _, n := range a.store.NotesFor(p.ID) {
						fmt.Printf("%s  %s\n", shortID(n.ID), n.Title)
						if n.Content != "" {
							fmt.Printf("    %s\n", truncateString(strings.ReplaceAll(n.Content, "\n", " "), 70))
						}
					}
					return nil
				}),
			},
		},
	}
}

func newSecretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Store a project's credentials",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a secret",
				ArgsUsage: "<project> <name> <value>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: string(models.SecretAPIKey), Usage: "api-key, password, token, config"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					if c.NArg() < 3 {
						return fmt.Errorf("secret name and value are required")
					}
					sec, err := a.store.AddSecret(models.Secret{
						ProjectID:   p.ID,
						Name:        c.Args().Get(1),
						Value:       c.Args().Get(2),
						Type:        models.SecretType(c.String("type")),
						Description: c.String("description"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("✅ Secret '%s' stored: %s\n", sec.Name, shortID(sec.ID))
					if !a.codec.Sealed() {
						fmt.Println("⚠ Secrets are stored in plaintext. Run 'devdeck vault init' to encrypt them.")
					}
					return nil
				}),
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List a project's secrets with values masked",
				ArgsUsage: "<project>",
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tNAME\tTYPE\tVALUE")
					for _, sec := range a.store.SecretsFor(p.ID) {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(sec.ID), sec.Name, sec.Type, mask(sec.Value))
					}
					return w.Flush()
				}),
			},
			{
				Name:      "reveal",
				Usage:     "Print a secret's value",
				ArgsUsage: "<secret-id>",
				Action: withApp(func(c *cli.Context, a *app) error {
					var ids []string
					for _, p := range a.store.Projects() {
						for _, sec := range a.store.SecretsFor(p.ID) {
							ids = append(ids, sec.ID)
						}
					}
					id, err := resolveID("secret", c.Args().First(), ids)
					if err != nil {
						return err
					}
					sec, _ := a.store.Secret(id)
					fmt.Println(sec.Value)
					return nil
				}),
			},
		},
	}
}

// mask keeps the last four characters of long values.
func mask(v string) string {
	if len(v) <= 8 {
		return "********"
	}
	return "****" + v[len(v)-4:]
}

func newMemberCommand() *cli.Command {
	return &cli.Command{
		Name:  "member",
		Usage: "Manage a project's team",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a team member",
				ArgsUsage: "<project> <name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role"},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "github"},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					name := strings.Join(c.Args().Tail(), " ")
					if name == "" {
						return fmt.Errorf("member name is required")
					}
					m, err := a.store.AddTeamMember(models.TeamMember{
						ProjectID: p.ID,
						Name:      name,
						Role:      c.String("role"),
						Email:     c.String("email"),
						GithubURL: c.String("github"),
						IsActive:  true,
					})
					if err != nil {
						return err
					}
					fmt.Printf("✅ %s joined '%s'\n", m.Name, p.Name)
					return nil
				}),
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				ArgsUsage: "<project>",
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tNAME\tROLE\tEMAIL\tACTIVE")
					for _, m := range a.store.TeamMembersFor(p.ID) {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", shortID(m.ID), m.Name, m.Role, m.Email, m.IsActive)
					}
					return w.Flush()
				}),
			},
		},
	}
}

func newGoalCommand() *cli.Command {
	return &cli.Command{
		Name:  "goal",
		Usage: "Plan a project's goals",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a goal",
				ArgsUsage: "<project> <title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "priority", Value: string(models.GoalPriorityMedium)},
					&cli.StringFlag{Name: "target", Usage: "target date YYYY-MM-DD"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					title := strings.Join(c.Args().Tail(), " ")
					if title == "" {
						return fmt.Errorf("goal title is required")
					}
					target, err := parseDate(c.String("target"))
					if err != nil {
						return err
					}
					g, err := a.store.AddGoal(models.Goal{
						ProjectID:   p.ID,
						Title:       title,
						Description: c.String("description"),
						Status:      models.GoalPlanned,
						Priority:    models.GoalPriority(c.String("priority")),
						TargetDate:  target,
					})
					if err != nil {
						return err
					}
					fmt.Printf("✅ Goal created: %s\n", shortID(g.ID))
					return nil
				}),
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				ArgsUsage: "<project>",
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tTARGET\tTITLE")
					for _, g := range a.store.GoalsFor(p.ID) {
						target := ""
						if g.TargetDate != nil {
							target = g.TargetDate.Local().Format("2006-01-02")
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shortID(g.ID), g.Status, g.Priority, target, g.Title)
					}
					return w.Flush()
				}),
			},
		},
	}
}

func newResourceCommand() *cli.Command {
	return &cli.Command{
		Name:  "resource",
		Usage: "Keep colors, fonts, links and snippets for a project",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a resource",
				ArgsUsage: "<project> <name> <value>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: string(models.ResourceLink), Usage: "color, font, link, image, code"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					if c.NArg() < 3 {
						return fmt.Errorf("resource name and value are required")
					}
					r, err := a.store.AddResource(models.ResourceItem{
						ProjectID:   p.ID,
						Type:        models.ResourceType(c.String("type")),
						Name:        c.Args().Get(1),
						Value:       c.Args().Get(2),
						Description: c.String("description"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("✅ Resource '%s' added\n", r.Name)
					return nil
				}),
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				ArgsUsage: "<project>",
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tTYPE\tNAME\tVALUE")
					for _, r := range a.store.ResourcesFor(p.ID) {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(r.ID), r.Type, r.Name, truncateString(r.Value, 50))
					}
					return w.Flush()
				}),
			},
		},
	}
}
