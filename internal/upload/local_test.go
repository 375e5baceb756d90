package upload

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSourceFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing source file: %v", err)
	}
	return path
}

func TestStorePlainFile(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir, "/uploads/")

	src := writeSourceFile(t, []byte("log contents"))
	u, err := l.Store(context.Background(), 4, "crash.log", "text/x-log", src)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if u.OriginalFilename != "crash.log" {
		t.Errorf("OriginalFilename = %q, want %q", u.OriginalFilename, "crash.log")
	}
	if u.Filesize != int64(len("log contents")) {
		t.Errorf("Filesize = %d, want %d", u.Filesize, len("log contents"))
	}
	if !strings.HasPrefix(u.URL, "/uploads/") || !strings.HasSuffix(u.URL, ".log") {
		t.Errorf("URL = %q, want /uploads/<name>.log", u.URL)
	}
	if u.Width != 0 || u.Height != 0 {
		t.Errorf("dimensions = %dx%d, want none for a non-image", u.Width, u.Height)
	}

	stored := filepath.Join(dir, filepath.Base(u.URL))
	content, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(content) != "log contents" {
		t.Errorf("stored content = %q, want the source bytes", content)
	}
}

func TestStoreImageProbesDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating image file: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing image file: %v", err)
	}

	l := NewLocal(t.TempDir(), "/uploads")
	u, err := l.Store(context.Background(), 4, "screenshot.png", "image/png", path)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if u.Width != 3 || u.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 3x2", u.Width, u.Height)
	}
	if !u.IsImage() {
		t.Error("IsImage() = false for image/png")
	}
}

func TestStoreUndecodableImage(t *testing.T) {
	l := NewLocal(t.TempDir(), "/uploads")

	// Declared as an image but the bytes are not decodable; the file
	// is stored anyway, without dimensions.
	src := writeSourceFile(t, []byte("not really a png"))
	u, err := l.Store(context.Background(), 4, "fake.png", "image/png", src)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if u.Width != 0 || u.Height != 0 {
		t.Errorf("dimensions = %dx%d, want none", u.Width, u.Height)
	}
}

func TestStoreMissingSource(t *testing.T) {
	l := NewLocal(t.TempDir(), "/uploads")
	if _, err := l.Store(context.Background(), 4, "gone.txt", "text/plain", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Store() error = nil, want failure for a missing source file")
	}
}

func TestStoredNamesAreUnique(t *testing.T) {
	a := storedName("photo.JPG")
	b := storedName("photo.JPG")
	if a == b {
		t.Errorf("storedName() produced the same name twice: %q", a)
	}
	if !strings.HasSuffix(a, ".jpg") {
		t.Errorf("storedName() = %q, want lowercased .jpg extension", a)
	}
}
