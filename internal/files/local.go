package files

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps files in a directory and serves them under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create files directory: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes r to a new file named after name with a unique prefix.
func (s *LocalStore) Upload(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored := uuid.NewString() + "-" + sanitizeName(name)
	f, err := os.Create(filepath.Join(s.Dir, stored))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", stored, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", stored, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", stored, err)
	}
	return s.BaseURL + "/" + url.PathEscape(stored), nil
}

// Delete removes the file behind u. Unknown URLs are ignored.
func (s *LocalStore) Delete(_ context.Context, u string) error {
	if !strings.HasPrefix(u, s.BaseURL+"/") {
		return nil
	}
	name, err := url.PathUnescape(strings.TrimPrefix(u, s.BaseURL+"/"))
	if err != nil {
		return fmt.Errorf("parse file url: %w", err)
	}
	if name != path.Base(name) {
		return fmt.Errorf("invalid file name %q", name)
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 || name == "." || name == "/" {
		return "file.pdf"
	}
	return b.String()
}
