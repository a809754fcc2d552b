package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/driveflow/driveflow/internal/errs"
	"github.com/driveflow/driveflow/internal/google"
	"github.com/driveflow/driveflow/internal/logging"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders.
	FolderMimeType = "application/vnd.google-apps.folder"

	// DefaultFolderPageSize bounds ListFolders. Callers needing more would
	// have to paginate; pagination is not implemented.
	DefaultFolderPageSize = 5
)

// Client wraps the Google Drive API service.
type Client struct {
	service     *drive.Service
	downloadDir string
	logger      *slog.Logger
}

// NewClient creates a Drive client authenticated through the credential
// store. Downloads are written into downloadDir.
func NewClient(ctx context.Context, store *google.Store, downloadDir string, logger *slog.Logger) (*Client, error) {
	service, err := drive.NewService(ctx, option.WithHTTPClient(store.HTTPClient(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return New(service, downloadDir, logger), nil
}

// New creates a Drive client around an existing service. Tests use this to
// point the SDK at a fake endpoint.
func New(service *drive.Service, downloadDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		service:     service,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// DownloadDir returns the directory downloads are written into.
func (c *Client) DownloadDir() string {
	return c.downloadDir
}

// ResolveFileID resolves a file name to its Drive file ID.
//
// Zero matches fail with errs.ErrNotFound. When several files share the
// name, the first entry of the provider's listing wins; Drive does not
// document an ordering for that listing, so the choice is nondeterministic
// across uploads with duplicate names.
func (c *Client) ResolveFileID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}

	query := fmt.Sprintf("name='%s' and trashed=false", escapeQueryTerm(name))
	result, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		PageSize(1).
		Fields("files(id, name)").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search for %q: %w", name, err)
	}

	if len(result.Files) == 0 {
		return "", fmt.Errorf("%w: no file named %q", errs.ErrNotFound, name)
	}
	return result.Files[0].Id, nil
}

// Download streams the file's content into the download directory under the
// given name, overwriting any existing file of the same name. It returns the
// local path of the written file.
func (c *Client) Download(ctx context.Context, fileID, name string) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("fileID is required")
	}

	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("%w: downloading %s: %v", errs.ErrTransfer, fileID, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(c.downloadDir, 0755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	localPath := filepath.Join(c.downloadDir, filepath.Base(name))
	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", errs.ErrTransfer, localPath, err)
	}

	c.logger.Info("file downloaded",
		logging.Operation("drive.download"), logging.File(filepath.Base(name)))
	return localPath, nil
}

// Upload uploads a local file into the given folder and returns the created
// file's ID. A missing local path fails with errs.ErrNotFound.
func (c *Client) Upload(ctx context.Context, localPath, folderID string) (string, error) {
	if folderID == "" {
		return "", fmt.Errorf("folderID is required")
	}

	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: local file %s", errs.ErrNotFound, localPath)
		}
		return "", fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	name := filepath.Base(localPath)
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	file := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}

	created, err := c.service.Files.Create(file).
		Context(ctx).
		Media(f, googleapi.ContentType(mimeType)).
		Fields("id, name, parents").
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: uploading %s: %v", errs.ErrTransfer, name, err)
	}

	c.logger.Info("file uploaded",
		logging.Operation("drive.upload"), logging.File(name),
		slog.String("folder_id", folderID))
	return created.Id, nil
}

// ListFolders lists folders as classification candidates, bounded to a
// fixed page size. A limit of zero or less applies DefaultFolderPageSize.
func (c *Client) ListFolders(ctx context.Context, limit int) ([]FolderCandidate, error) {
	if limit <= 0 {
		limit = DefaultFolderPageSize
	}

	result, err := c.service.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("mimeType='%s' and trashed=false", FolderMimeType)).
		PageSize(int64(limit)).
		Fields("files(id, name)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	folders := make([]FolderCandidate, len(result.Files))
	for i, f := range result.Files {
		folders[i] = FolderCandidate{Name: f.Name, ID: f.Id}
	}
	return folders, nil
}

// escapeQueryTerm escapes quotes and backslashes for use inside a Drive
// query string literal.
func escapeQueryTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
