package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
)

// DriveStore uploads files into a Google Drive folder and shares them by link.
type DriveStore struct {
	svc      *drive.Service
	folderID string
}

// NewDriveStore creates a Drive client from service account credentials.
func NewDriveStore(ctx context.Context, credentialsJSON []byte, folderID string) (*DriveStore, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials for Drive")
	}
	svc, err := drive.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(drive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	slog.InfoContext(ctx, "Google Drive service created", "folder_id", folderID)
	return &DriveStore{svc: svc, folderID: folderID}, nil
}

func (s *DriveStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	meta := &drive.File{Name: name, MimeType: contentType}
	if s.folderID != "" {
		meta.Parents = []string{s.folderID}
	}
	f, err := s.svc.Files.Create(meta).Media(r).Fields("id", "webViewLink").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload %s to drive: %w", name, err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := s.svc.Permissions.Create(f.Id, perm).Context(ctx).Do(); err != nil {
		slog.WarnContext(ctx, "Failed to share uploaded file", "file_id", f.Id, "error", err)
	}

	slog.InfoContext(ctx, "File uploaded to Drive", "file_id", f.Id, "name", name)
	return f.WebViewLink, nil
}

var driveFileIDRe = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

// DriveFileID extracts the file id from a Drive view link.
func DriveFileID(link string) (string, bool) {
	m := driveFileIDRe.FindStringSubmatch(link)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func (s *DriveStore) Delete(ctx context.Context, link string) error {
	id, ok := DriveFileID(link)
	if !ok {
		return fmt.Errorf("not a drive file link: %q", link)
	}
	if err := s.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete drive file %s: %w", id, err)
	}
	return nil
}
