package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"devdeck/engine"
	"devdeck/models"
	"devdeck/store"
)

// newProjectCommand creates all subcommands for the 'project' command group.
func newProjectCommand() *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"p"},
		Usage:   "Manage projects",
		Subcommands: []*cli.Command{
			projectListCmd(),
			projectAddCmd(),
			projectShowCmd(),
			projectUpdateCmd(),
			projectDeleteCmd(),
			projectFavoriteCmd(),
			projectCloneCmd(),
		},
	}
}

func projectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "project description"},
		&cli.StringFlag{Name: "github", Usage: "repository URL"},
		&cli.StringFlag{Name: "live", Usage: "live site URL"},
		&cli.StringFlag{Name: "stack", Usage: "comma separated tech stack"},
		&cli.StringFlag{Name: "phase", Usage: "one of " + phaseList()},
	}
}

func phaseList() string {
	names := make([]string, len(models.ProjectPhases))
	for i, p := range models.ProjectPhases {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func parsePhase(s string) (models.ProjectPhase, error) {
	p := models.ProjectPhase(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid phase %q, want one of %s", s, phaseList())
	}
	return p, nil
}

func projectListCmd() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List all projects",
		Action: withApp(func(c *cli.Context, a *app) error {
			projects := a.store.Projects()
			if len(projects) == 0 {
				fmt.Println("No projects found. Use 'devdeck project add' or 'devdeck scan' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPHASE\tSTACK\tFAV")
			fmt.Fprintln(w, "--\t----\t-----\t-----\t---")
			for _, p := range projects {
				fav := ""
				if p.IsFavorite {
					fav = "★"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					shortID(p.ID), p.Name, p.Phase,
					truncateString(strings.Join(p.TechStack, ","), 30), fav)
			}
			return w.Flush()
		}),
	}
}

func projectAddCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a project",
		ArgsUsage: "<name>",
		Flags:     projectFlags(),
		Action: withApp(func(c *cli.Context, a *app) error {
			if c.NArg() == 0 {
				return fmt.Errorf("project name is required")
			}
			in := models.Project{
				Name:        c.Args().First(),
				Description: c.String("description"),
				GithubURL:   c.String("github"),
				LiveURL:     c.String("live"),
				TechStack:   splitList(c.String("stack")),
				Phase:       models.PhaseInDevelopment,
			}
			if c.IsSet("phase") {
				phase, err := parsePhase(c.String("phase"))
				if err != nil {
					return err
				}
				in.Phase = phase
			}

			p, err := a.store.AddProject(in)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Project '%s' created successfully!\n", p.Name)
			fmt.Printf("ID: %s\n", p.ID)
			return nil
		}),
	}
}

func projectShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show details for a project",
		ArgsUsage: "<project>",
		Action: withApp(func(c *cli.Context, a *app) error {
			p, err := lookupProject(a.store, c.Args().First())
			if err != nil {
				return err
			}

			fmt.Printf("Project Details for '%s':\n", p.Name)
			fmt.Printf("----------------------------------\n")
			fmt.Printf("ID:          %s\n", p.ID)
			fmt.Printf("Phase:       %s\n", p.Phase)
			fmt.Printf("Description: %s\n", p.Description)
			fmt.Printf("Stack:       %s\n", strings.Join(p.TechStack, ", "))
			if p.GithubURL != "" {
				fmt.Printf("GitHub:      %s\n", p.GithubURL)
			}
			if p.LiveURL != "" {
				fmt.Printf("Live:        %s\n", p.LiveURL)
			}
			fmt.Printf("Favorite:    %t\n", p.IsFavorite)
			fmt.Printf("Created At:  %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Updated At:  %s\n", p.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

			snap, _ := a.store.ProjectSnapshot(p.ID)
			fmt.Printf("\nTasks: %d  Issues: %d  Notes: %d  Secrets: %d  Members: %d  Goals: %d  Resources: %d  Backups: %d\n",
				len(snap.Tasks), len(snap.Issues), len(snap.Notes), len(snap.Secrets),
				len(snap.TeamMembers), len(snap.Goals), len(snap.Resources), len(snap.Backups))
			return nil
		}),
	}
}

func projectUpdateCmd() *cli.Command {
	flags := append(projectFlags(), &cli.StringFlag{Name: "name", Usage: "new project name"})
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a project's fields",
		ArgsUsage: "<project>",
		Flags:     flags,
		Action: withApp(func(c *cli.Context, a *app) error {
			p, err := lookupProject(a.store, c.Args().First())
			if err != nil {
				return err
			}

			var patch store.ProjectPatch
			if c.IsSet("name") {
				patch.Name = store.Ptr(c.String("name"))
			}
			if c.IsSet("description") {
				patch.Description = store.Ptr(c.String("description"))
			}
			if c.IsSet("github") {
				patch.GithubURL = store.Ptr(c.String("github"))
			}
			if c.IsSet("live") {
				patch.LiveURL = store.Ptr(c.String("live"))
			}
			if c.IsSet("stack") {
				patch.TechStack = store.Ptr(splitList(c.String("stack")))
			}
			if c.IsSet("phase") {
				phase, err := parsePhase(c.String("phase"))
				if err != nil {
					return err
				}
				patch.Phase = &phase
			}

			if err := a.store.UpdateProject(p.ID, patch); err != nil {
				return err
			}
			fmt.Printf("✅ Project '%s' updated\n", p.Name)
			return nil
		}),
	}
}

func projectDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a project and everything that belongs to it",
		ArgsUsage: "<project>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip confirmation"},
		},
		Action: withApp(func(c *cli.Context, a *app) error {
			p, err := lookupProject(a.store, c.Args().First())
			if err != nil {
				return err
			}

			if !c.Bool("yes") {
				snap, _ := a.store.ProjectSnapshot(p.ID)
				fmt.Printf("This deletes '%s' and %d related records.\n", p.Name, snap.Len()-1)
				fmt.Print("Type DELETE to confirm: ")
				var answer string
				_, _ = fmt.Scanln(&answer)
				if answer != "DELETE" {
					fmt.Println("Delete cancelled")
					return nil
				}
			}

			if err := a.store.DeleteProject(p.ID); err != nil {
				return err
			}
			fmt.Printf("🗑  Project '%s' deleted\n", p.Name)
			return nil
		}),
	}
}

func projectFavoriteCmd() *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Aliases:   []string{"fav"},
		Usage:     "Toggle a project's favorite flag",
		ArgsUsage: "<project>",
		Action: withApp(func(c *cli.Context, a *app) error {
			p, err := lookupProject(a.store, c.Args().First())
			if err != nil {
				return err
			}
			if err := a.store.ToggleFavorite(p.ID); err != nil {
				return err
			}
			if p.IsFavorite {
				fmt.Printf("'%s' removed from favorites\n", p.Name)
			} else {
				fmt.Printf("★ '%s' added to favorites\n", p.Name)
			}
			return nil
		}),
	}
}

func projectCloneCmd() *cli.Command {
	return &cli.Command{
		Name:      "clone",
		Usage:     "Clone a project's repository",
		ArgsUsage: "<project> [dest]",
		Action: withApp(func(c *cli.Context, a *app) error {
			p, err := lookupProject(a.store, c.Args().First())
			if err != nil {
				return err
			}
			dest := c.Args().Get(1)
			if dest == "" {
				dest = filepath.Join(".", filepath.Base(p.GithubURL))
			}

			fmt.Printf("Cloning %s into %s...\n", p.GithubURL, dest)
			if err := engine.CloneProject(c.Context, p, dest); err != nil {
				return err
			}
			head, err := engine.HeadCommit(dest)
			if err == nil {
				fmt.Printf("✅ Cloned at %s\n", shortID(head))
			}
			return nil
		}),
	}
}
