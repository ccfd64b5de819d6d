package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"devdeck/engine"
)

func (a *app) oauthClient() *engine.OAuthClient {
	return engine.NewOAuthClient(a.cfg.DriveClientID, a.cfg.DriveClientSecret, a.keyring).WithLogger(a.log)
}

// backupHost builds the configured remote file host.
func (a *app) backupHost(ctx context.Context) (engine.FileHost, error) {
	switch a.cfg.BackupProvider {
	case "s3":
		return engine.NewS3Host(ctx, a.cfg.S3Bucket, a.cfg.S3Region)
	default:
		hc, err := a.oauthClient().HTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		return engine.NewDriveClient(hc), nil
	}
}

func (a *app) backups(host engine.FileHost) *engine.Backups {
	return engine.NewBackups(a.store, host, a.codec, a.cfg.BackupFolder,
		engine.WithSettings(a.db, a.cfg.BackupProvider),
		engine.WithBackupLogger(a.log),
	)
}

func (a *app) openBackups(ctx context.Context) (*engine.Backups, error) {
	host, err := a.backupHost(ctx)
	if err != nil {
		return nil, notConnectedHint(err)
	}
	return a.backups(host), nil
}

func notConnectedHint(err error) error {
	if errors.Is(err, engine.ErrNotConnected) {
		return fmt.Errorf("%w: run 'devdeck backup login' first", err)
	}
	return err
}

func newBackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Back projects up to Google Drive or S3",
		Subcommands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Connect Google Drive with the device flow",
				Action: withApp(func(c *cli.Context, a *app) error {
					if err := a.cfg.RequireDrive(); err != nil {
						return err
					}
					_, err := a.oauthClient().Login(c.Context, func(da *oauth2.DeviceAuthResponse) {
						fmt.Printf("\n📱 Open %s and enter the code:\n\n    %s\n\nWaiting for authorization...\n", da.VerificationURI, da.UserCode)
					})
					if err != nil {
						return err
					}
					fmt.Printf("✅ Google Drive connected (token stored: %s)\n", a.keyring.Mode())
					return nil
				}),
			},
			{
				Name:  "logout",
				Usage: "Forget the stored Drive token",
				Action: withApp(func(c *cli.Context, a *app) error {
					if err := a.oauthClient().Logout(); err != nil {
						return err
					}
					fmt.Println("Google Drive disconnected")
					return nil
				}),
			},
			{
				Name:      "run",
				Usage:     "Upload a project backup",
				ArgsUsage: "<project>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
				},
				Action: withApp(func(c *cli.Context, a *app) error {
					p, err := lookupProject(a.store, c.Args().First())
					if err != nil {
						return err
					}
					b, err := a.openBackups(c.Context)
					if err != nil {
						return err
					}
					backup, err := b.Run(c.Context, p.ID, c.String("description"))
					if err != nil {
						return notConnectedHint(err)
					}
					fmt.Printf("✅ Backed up '%s' as %s (%d bytes)\n", p.Name, backup.FileName, backup.FileSize)
					if backup.RemoteViewLink != "" {
						fmt.Printf("   %s\n", backup.RemoteViewLink)
					}
					return nil
				}),
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List files in the backup folder",
				Action: withApp(func(c *cli.Context, a *app) error {
					b, err := a.openBackups(c.Context)
					if err != nil {
						return err
					}
					files, err := b.List(c.Context)
					if err != nil {
						return notConnectedHint(err)
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "NAME\tSIZE\tCREATED\tID")
					for _, f := range files {
						fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", f.Name, f.Size, f.CreatedAt.Local().Format("2006-01-02 15:04"), f.ID)
					}
					return w.Flush()
				}),
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Delete a backup remotely and locally",
				ArgsUsage: "<backup-id>",
				Action: withApp(func(c *cli.Context, a *app) error {
					var ids []string
					for _, p := range a.store.Projects() {
						for _, bk := range a.store.BackupsFor(p.ID) {
							ids = append(ids, bk.ID)
						}
					}
					id, err := resolveID("backup", c.Args().First(), ids)
					if err != nil {
						return err
					}
					b, err := a.openBackups(c.Context)
					if err != nil {
						return err
					}
					if err := b.Remove(c.Context, id); err != nil {
						return err
					}
					fmt.Printf("🗑  Backup %s removed\n", shortID(id))
					return nil
				}),
			},
		},
	}
}
