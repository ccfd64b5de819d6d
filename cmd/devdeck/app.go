package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"devdeck/config"
	"devdeck/db"
	"devdeck/logger"
	"devdeck/models"
	"devdeck/store"
	"devdeck/vault"
)

// app is everything a command needs, opened once per invocation.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *db.DB
	keyring *vault.Keyring
	codec   *db.Codec
	store   *store.Store
	logFile *os.File
}

// openApp loads config, opens the database and builds the store. In TUI
// mode logs go to a file so they don't corrupt the screen; otherwise the
// store is hydrated before returning.
func openApp(c *cli.Context, tui bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if err := a.initLogger(tui); err != nil {
		return nil, err
	}

	a.db, err = db.Open(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.keyring = vault.NewKeyring("devdeck", cfg.DataDir())

	a.codec, err = a.openCodec()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store = store.New(db.NewBlobAdapter(a.db, a.codec, a.log), store.WithLogger(a.log))
	if !tui {
		a.store.Hydrate(c.Context)
	}
	return a, nil
}

func (a *app) initLogger(tui bool) error {
	if !tui {
		l, err := logger.Init(a.cfg.LogLevel, a.cfg.LogFormat)
		if err != nil {
			return err
		}
		a.log = l
		return nil
	}

	if err := os.MkdirAll(a.cfg.DataDir(), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := os.OpenFile(a.cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l, err := logger.InitWithWriter(a.cfg.LogLevel, "json", f)
	if err != nil {
		f.Close()
		return err
	}
	a.log = l
	a.logFile = f
	return nil
}

// openCodec returns a sealing codec when secret encryption is enabled. A
// locked vault is an error rather than a silent plaintext fallback.
func (a *app) openCodec() (*db.Codec, error) {
	if !a.cfg.SecretsEncrypt {
		return db.NewCodec(nil), nil
	}
	sealer, err := vault.Resume(a.keyring, a.cfg.VaultPath())
	if errors.Is(err, vault.ErrKeyNotFound) {
		return nil, errors.New("vault is locked: run 'devdeck vault unlock'")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	return db.NewCodec(sealer), nil
}

// Close flushes pending writes and releases the database. Stored data that
// failed to load is left in place; only doctor --replace-unreadable
// overwrites it.
func (a *app) Close() {
	if a.store != nil && a.store.Dirty() {
		if err := a.store.LoadError(); err != nil {
			a.log.Error("changes were not saved: stored data could not be read, see 'devdeck doctor'", zap.Error(err))
		} else if err := a.store.Flush(); err != nil {
			a.log.Error("unsaved changes could not be written", zap.Error(err))
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	logger.Sync()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// withApp wraps a command action with openApp/Close.
func withApp(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := openApp(c, false)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}

// lookupProject resolves ref as an id, a unique id prefix or a
// case-insensitive name.
func lookupProject(s *store.Store, ref string) (models.Project, error) {
	if ref == "" {
		return models.Project{}, errors.New("project is required")
	}
	if p, ok := s.Project(ref); ok {
		return p, nil
	}

	var byPrefix, byName []models.Project
	for _, p := range s.Projects() {
		if strings.HasPrefix(p.ID, ref) {
			byPrefix = append(byPrefix, p)
		}
		if strings.EqualFold(p.Name, ref) {
			byName = append(byName, p)
		}
	}
	switch {
	case len(byName) == 1:
		return byName[0], nil
	case len(byPrefix) == 1:
		return byPrefix[0], nil
	case len(byName)+len(byPrefix) > 1:
		return models.Project{}, fmt.Errorf("project %q is ambiguous", ref)
	}
	return models.Project{}, fmt.Errorf("project %q not found", ref)
}

// resolveID expands a unique id prefix among ids.
func resolveID(kind, ref string, ids []string) (string, error) {
	var match string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", fmt.Errorf("%s id %q is ambiguous", kind, ref)
			}
			match = id
		}
	}
	if match == "" || ref == "" {
		return "", fmt.Errorf("%s %q not found", kind, ref)
	}
	return match, nil
}

// parseDate reads YYYY-MM-DD in local time. An empty string is nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	t = t.UTC()
	return &t, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncateString shortens s to at most n runes, ending in "..." when there
// is room for it.
func truncateString(s string, n int) string {
	r := []rune(s)
	switch {
	case len(r) <= n:
		return s
	case n <= 0:
		return ""
	case n <= 3:
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
