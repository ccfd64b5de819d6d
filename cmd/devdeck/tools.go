package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"devdeck/config"
	"devdeck/db"
	"devdeck/engine"
	"devdeck/logger"
	"devdeck/models"
	"devdeck/store"
	"devdeck/vault"
)

func newScanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan a directory for project checkouts and import them",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "only print what would be imported"},
		},
		Action: withApp(func(c *cli.Context, a *app) error {
			root := c.Args().First()
			if root == "" {
				root = "."
			}

			start := time.Now()
			found, err := engine.ScanDirectory(c.Context, root)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			fmt.Printf("Found %d projects in %v\n", len(found), time.Since(start).Round(time.Millisecond))

			if c.Bool("dry-run") {
				for _, d := range found {
					fmt.Printf("  %s  [%s]  %s\n", d.Project.Name, strings.Join(d.Project.TechStack, ","), d.Path)
				}
				return nil
			}

			res, err := engine.ImportDiscovered(a.store, found)
			if err != nil {
				return err
			}
			for _, p := range res.Added {
				fmt.Printf("  + %s\n", p.Name)
			}
			fmt.Printf("✅ Added %d new, skipped %d already tracked\n", len(res.Added), len(res.Skipped))
			return nil
		}),
	}
}

func newBudgetCommand() *cli.Command {
	return &cli.Command{
		Name:  "budget",
		Usage: "Check budgets against a finance export",
		Subcommands: []*cli.Command{
			{
				Name:      "alerts",
				Usage:     "Print budgets that crossed their alert threshold",
				ArgsUsage: "<export.json>",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return fmt.Errorf("export file is required")
					}
					f, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("failed to open export: %w", err)
					}
					defer f.Close()

					budgets, txns, err := engine.ReadFinanceExport(f, time.Local)
					if err != nil {
						return err
					}
					alerts := engine.BudgetAlerts(budgets, txns, time.Now())
					if len(alerts) == 0 {
						fmt.Println("✅ All budgets are within their thresholds")
						return nil
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "BUDGET\tLEVEL\tSPENT\tLIMIT\tUSED\tPERIOD")
					for _, al := range alerts {
						fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.0f%%\t%s..%s\n",
							al.Budget.ID, al.Level, al.Spent, al.Budget.Amount, al.Percent,
							al.PeriodStart.Format("2006-01-02"), al.PeriodEnd.AddDate(0, 0, -1).Format("2006-01-02"))
					}
					return w.Flush()
				},
			},
		},
	}
}

func newVaultCommand() *cli.Command {
	return &cli.Command{
		Name:  "vault",
		Usage: "Encrypt stored secrets with a passphrase",
		Subcommands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the vault and encrypt existing secrets",
				Action: vaultInit,
			},
			{
				Name:  "unlock",
				Usage: "Unlock the vault for this session",
				Action: func(c *cli.Context) error {
					cfg, kr, err := loadVaultEnv()
					if err != nil {
						return err
					}
					pass, err := readPassphrase("Vault passphrase: ")
					if err != nil {
						return err
					}
					sealer, err := vault.Unlock(cfg.VaultPath(), pass)
					if err != nil {
						return err
					}
					defer sealer.Lock()
					if err := vault.Remember(kr, sealer); err != nil {
						return err
					}
					fmt.Println("🔓 Vault unlocked")
					return nil
				},
			},
			{
				Name:  "lock",
				Usage: "Forget the session key",
				Action: func(c *cli.Context) error {
					_, kr, err := loadVaultEnv()
					if err != nil {
						return err
					}
					if err := vault.Forget(kr); err != nil && !errors.Is(err, vault.ErrKeyNotFound) {
						return err
					}
					fmt.Println("🔒 Vault locked")
					return nil
				},
			},
		},
	}
}

func loadVaultEnv() (*config.Config, *vault.Keyring, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, vault.NewKeyring("devdeck", cfg.DataDir()), nil
}

// vaultInit creates the vault and rewrites the snapshot with every secret
// sealed.
func vaultInit(c *cli.Context) error {
	cfg, kr, err := loadVaultEnv()
	if err != nil {
		return err
	}
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pass, err := readPassphrase("New vault passphrase: ")
	if err != nil {
		return err
	}
	confirm, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		return err
	}
	if pass != confirm {
		return errors.New("passphrases do not match")
	}
	if len(pass) < 8 {
		return errors.New("passphrase must be at least 8 characters")
	}

	sealer, err := vault.Init(cfg.VaultPath(), pass)
	if err != nil {
		return err
	}
	defer sealer.Lock()

	d, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer d.Close()

	snap, err := db.NewBlobAdapter(d, db.NewCodec(nil), log).Load()
	if err != nil {
		return err
	}
	if snap != nil {
		if err := db.NewBlobAdapter(d, db.NewCodec(sealer), log).Save(snap); err != nil {
			return fmt.Errorf("failed to re-encrypt secrets: %w", err)
		}
		fmt.Printf("Encrypted %d secrets\n", len(snap.Secrets))
	}

	if err := vault.Remember(kr, sealer); err != nil {
		return err
	}
	fmt.Println("🔐 Vault created and unlocked (" + kr.Mode() + ")")
	if !cfg.SecretsEncrypt {
		fmt.Println("Set DEVDECK_SECRETS_ENCRYPT=true so devdeck keeps secrets sealed.")
	}
	return nil
}

var stdin = bufio.NewReader(os.Stdin)

// readPassphrase reads without echo from a terminal, or a line from stdin
// when piped.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(b), nil
}

func newDoctorCommand() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check configuration, storage and connectivity",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "replace-unreadable", Usage: "overwrite a snapshot that failed to load with the current (empty) store"},
		},
		Action: withApp(func(c *cli.Context, a *app) error {
			ok := func(msg string, args ...any) { fmt.Printf("✅ "+msg+"\n", args...) }
			warn := func(msg string, args ...any) { fmt.Printf("⚠  "+msg+"\n", args...) }

			ok("database: %s", a.cfg.DBPath)
			if raw, found, err := a.db.GetBlob(db.SnapshotKey); err == nil && found {
				ok("snapshot: %d bytes", len(raw))
			} else {
				warn("no snapshot saved yet")
			}
			if err := a.store.LoadError(); err != nil {
				warn("snapshot unreadable: %v", err)
				if c.Bool("replace-unreadable") {
					if err := a.store.Flush(); err != nil {
						return err
					}
					ok("snapshot replaced")
				} else {
					fmt.Println("   changes are not saved until you run 'devdeck doctor --replace-unreadable'")
				}
			}
			if kept, err := a.db.BlobKeys(db.UnreadablePrefix); err == nil {
				for _, k := range kept {
					warn("kept copy of an unreadable snapshot: %s", k)
				}
			}

			counts := a.store.Counts()
			fmt.Printf("   projects=%d tasks=%d issues=%d notes=%d secrets=%d members=%d goals=%d resources=%d backups=%d\n",
				counts[store.KindProject], counts[store.KindTask], counts[store.KindIssue], counts[store.KindNote],
				counts[store.KindSecret], counts[store.KindTeamMember], counts[store.KindGoal],
				counts[store.KindResource], counts[store.KindBackup])

			ok("credential storage: %s", a.keyring.Mode())
			switch {
			case a.codec.Sealed():
				ok("secrets: encrypted")
			case counts[store.KindSecret] > 0:
				warn("secrets: %d stored in PLAINTEXT, run 'devdeck vault init'", counts[store.KindSecret])
			default:
				warn("secrets: encryption disabled")
			}

			ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
			defer cancel()
			host, err := a.backupHost(ctx)
			if err == nil {
				err = host.Connected(ctx)
			}
			if err != nil {
				warn("backups (%s): %v", a.cfg.BackupProvider, notConnectedHint(err))
			} else {
				ok("backups (%s): connected, folder %q", a.cfg.BackupProvider, a.cfg.BackupFolder)
			}
			return nil
		}),
	}
}

func newSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Add sample projects to an empty store",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "seed even when projects exist"},
		},
		Action: withApp(func(c *cli.Context, a *app) error {
			if len(a.store.Projects()) > 0 && !c.Bool("force") {
				fmt.Println("Store is not empty. Use --force to add sample data anyway.")
				return nil
			}
			n, err := seedSampleData(a.store)
			if err != nil {
				return err
			}
			fmt.Printf("Sample data added! (%d projects)\n", n)
			return nil
		}),
	}
}

func seedSampleData(s *store.Store) (int, error) {
	sampleProjects := []models.Project{
		{
			Name:      "DevDeck",
			GithubURL: "https://github.com/example/devdeck",
			TechStack: []string{"go", "cli", "sqlite"},
			Phase:     models.PhaseInDevelopment,
		},
		{
			Name:      "WebApp",
			GithubURL: "https://github.com/example/webapp",
			LiveURL:   "https://webapp.example.com",
			TechStack: []string{"react", "typescript", "frontend"},
			Phase:     models.PhaseRunning,
		},
		{
			Name:      "MobileApp",
			GithubURL: "https://github.com/example/mobile",
			TechStack: []string{"flutter", "mobile"},
			Phase:     models.PhaseOnHold,
		},
		{
			Name:      "APIService",
			GithubURL: "https://github.com/company/api",
			TechStack: []string{"go", "api", "backend"},
			Phase:     models.PhaseMaintenance,
		},
	}

	for i, in := range sampleProjects {
		p, err := s.AddProject(in)
		if err != nil {
			return i, err
		}
		if _, err := s.AddTask(models.Task{ProjectID: p.ID, Title: "Write README", Status: models.TaskStatusTodo, Priority: models.TaskPriorityLow}); err != nil {
			return i, err
		}
		if _, err := s.AddTask(models.Task{ProjectID: p.ID, Title: "Set up CI", Status: models.TaskStatusInProgress, Priority: models.TaskPriorityHigh}); err != nil {
			return i, err
		}
		if _, err := s.AddNote(models.DevNote{ProjectID: p.ID, Title: "Architecture", Content: "Stack: " + strings.Join(in.TechStack, ", ")}); err != nil {
			return i, err
		}
	}
	return len(sampleProjects), nil
}
