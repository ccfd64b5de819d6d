package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	want := filepath.Join(home, ".devdeck", "devdeck.db")
	if c.DBPath != want {
		t.Fatalf("expected db path %s, got %s", want, c.DBPath)
	}
	if c.BackupProvider != "drive" {
		t.Errorf("expected drive provider, got %s", c.BackupProvider)
	}
	if c.BackupFolder != "DevDeck Backups" {
		t.Errorf("unexpected backup folder %q", c.BackupFolder)
	}
	if c.SecretsEncrypt {
		t.Error("secrets encryption should be off by default")
	}
	if c.LogPath() != filepath.Join(home, ".devdeck", "devdeck.log") {
		t.Errorf("unexpected log path %s", c.LogPath())
	}
}

func TestLoadFromEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DEVDECK_DB_PATH", "~/data/deck.db")
	t.Setenv("DEVDECK_LOG_FORMAT", "json")
	t.Setenv("DEVDECK_SECRETS_ENCRYPT", "true")

	c, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if c.DBPath != filepath.Join(home, "data", "deck.db") {
		t.Errorf("home not expanded: %s", c.DBPath)
	}
	if c.LogFormat != "json" {
		t.Errorf("expected json format, got %s", c.LogFormat)
	}
	if !c.SecretsEncrypt {
		t.Error("expected secrets encryption enabled")
	}
}

func TestS3RequiresBucket(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DEVDECK_BACKUP_PROVIDER", "s3")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error without S3_BUCKET")
	}

	t.Setenv("DEVDECK_S3_BUCKET", "deck-backups")
	t.Setenv("DEVDECK_S3_REGION", "eu-west-1")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRejectsUnknownProvider(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DEVDECK_BACKUP_PROVIDER", "dropbox")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid provider to fail validation")
	}
}

func TestRequireDrive(t *testing.T) {
	c := &Config{}
	if err := c.RequireDrive(); err == nil {
		t.Fatal("expected error without drive credentials")
	}
	c.DriveClientID, c.DriveClientSecret = "id", "secret"
	if err := c.RequireDrive(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
