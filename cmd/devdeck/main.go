package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"devdeck/ui"
)

// Version will be set during build with ldflags
var Version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "devdeck",
		Usage:   "Track your projects, tasks, issues and secrets from the terminal",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "scan-root",
				Usage: "directory the TUI scans when pressing s",
			},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			// Projects and their records
			newProjectCommand(),
			newTaskCommand(),
			newIssueCommand(),
			newNoteCommand(),
			newSecretCommand(),
			newMemberCommand(),
			newGoalCommand(),
			newResourceCommand(),

			// Remote backups
			newBackupCommand(),

			// Tools
			newScanCommand(),
			newBudgetCommand(),
			newVaultCommand(),
			newDoctorCommand(),
			newSeedCommand(),
		},
	}
}

// runTUI is the default action: the interactive project list.
func runTUI(c *cli.Context) error {
	a, err := openApp(c, true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := ui.Options{ScanRoot: c.String("scan-root")}
	if opts.ScanRoot == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.ScanRoot = home
		}
	}

	if host, err := a.backupHost(c.Context); err == nil {
		opts.Backups = a.backups(host)
	} else {
		a.log.Info("backups disabled in TUI", zap.Error(err))
	}

	return ui.Run(c.Context, a.store, opts)
}
