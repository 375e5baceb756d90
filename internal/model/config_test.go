package model

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.Email.EmailIn {
		t.Error("default email_in = false, want true")
	}
	if cfg.IMAP.Mailbox != "INBOX" {
		t.Errorf("default mailbox = %q, want INBOX", cfg.IMAP.Mailbox)
	}
	if cfg.Email.EmailInMinTrust != TrustLevelBasic {
		t.Errorf("default min trust = %d, want %d", cfg.Email.EmailInMinTrust, TrustLevelBasic)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.Email.SiteName = "Example Forum"
	cfg.Email.ReplyByEmailAddress = "replies+%{reply_key}@forum.example.com"
	cfg.IMAP.Host = "imap.example.com"
	cfg.Storage.DBPath = "/var/lib/forum/forum.db"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Email.SiteName != "Example Forum" {
		t.Errorf("SiteName = %q, want %q", loaded.Email.SiteName, "Example Forum")
	}
	if loaded.Email.ReplyByEmailAddress != cfg.Email.ReplyByEmailAddress {
		t.Errorf("ReplyByEmailAddress = %q, want %q",
			loaded.Email.ReplyByEmailAddress, cfg.Email.ReplyByEmailAddress)
	}
	if loaded.IMAP.Host != "imap.example.com" {
		t.Errorf("IMAP host = %q, want %q", loaded.IMAP.Host, "imap.example.com")
	}
	if loaded.Storage.DBPath != "/var/lib/forum/forum.db" {
		t.Errorf("DBPath = %q, want %q", loaded.Storage.DBPath, "/var/lib/forum/forum.db")
	}
}

func TestHasTrustLevel(t *testing.T) {
	u := &User{TrustLevel: TrustLevelMember}
	if !u.HasTrustLevel(TrustLevelBasic) {
		t.Error("member should satisfy basic")
	}
	if !u.HasTrustLevel(TrustLevelMember) {
		t.Error("member should satisfy member")
	}
	if u.HasTrustLevel(TrustLevelRegular) {
		t.Error("member should not satisfy regular")
	}
}
