package files

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStoreUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "files"), "http://localhost:8080/files/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	u, err := s.Upload(ctx, "../../invoice 1.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(u, "http://localhost:8080/files/") || !strings.HasSuffix(u, "-invoice_1.pdf") {
		t.Fatalf("unexpected url %q", u)
	}
	entries, _ := os.ReadDir(s.Dir)
	if len(entries) != 1 {
		t.Fatalf("expected one stored file, got %d", len(entries))
	}

	if err := s.Delete(ctx, u); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries, _ = os.ReadDir(s.Dir)
	if len(entries) != 0 {
		t.Fatalf("file not removed")
	}
	if err := s.Delete(ctx, "https://elsewhere.test/x.pdf"); err != nil {
		t.Fatalf("foreign urls should be ignored: %v", err)
	}
}

func TestNopStore(t *testing.T) {
	if _, err := (Nop{}).Upload(context.Background(), "a.pdf", "application/pdf", strings.NewReader("")); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestDriveFileID(t *testing.T) {
	id, ok := DriveFileID("https://drive.google.com/file/d/1AbC_d-9/view?usp=drivesdk")
	if !ok || id != "1AbC_d-9" {
		t.Fatalf("got %q %v", id, ok)
	}
	if _, ok := DriveFileID("https://example.com/x.pdf"); ok {
		t.Fatal("expected no id")
	}
}
