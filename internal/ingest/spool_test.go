package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeSpoolFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestSpoolScanExisting(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProcessor{rejectOn: "reject-me"}
	w := NewSpoolWatcher(dir, p, testLogger())

	good := writeSpoolFile(t, dir, "one.eml", "From: a@b.example\nTo: support@forum.example.com\n\nhi\n")
	bad := writeSpoolFile(t, dir, "two.eml", "From: a@b.example\nTo: reject-me@forum.example.com\n\nhi\n")
	writeSpoolFile(t, dir, "partial.eml.tmp", "incomplete")
	writeSpoolFile(t, dir, "notes.txt", "not mail")

	if err := w.ScanExisting(context.Background()); err != nil {
		t.Fatalf("ScanExisting() error = %v", err)
	}

	if len(p.raws) != 2 {
		t.Fatalf("processor saw %d files, want 2", len(p.raws))
	}
	if _, err := os.Stat(good); !os.IsNotExist(err) {
		t.Errorf("handled file %s was not removed", good)
	}
	if _, err := os.Stat(bad + ".rejected"); err != nil {
		t.Errorf("rejected file was not renamed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("non-eml file was touched: %v", err)
	}
}

func TestSpoolScanExistingMissingDir(t *testing.T) {
	w := NewSpoolWatcher(filepath.Join(t.TempDir(), "does-not-exist"), &fakeProcessor{}, testLogger())
	if err := w.ScanExisting(context.Background()); err != nil {
		t.Errorf("ScanExisting() error = %v, want nil for a missing directory", err)
	}
}

func TestIsSpoolFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"inbox/message.eml", true},
		{"inbox/message.eml.tmp", false},
		{"inbox/message.eml.rejected", false},
		{"inbox/readme.md", false},
	}
	for _, tt := range tests {
		if got := isSpoolFile(tt.path); got != tt.want {
			t.Errorf("isSpoolFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
