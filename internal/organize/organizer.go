package organize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/driveflow/driveflow/internal/classify"
	"github.com/driveflow/driveflow/internal/drive"
	"github.com/driveflow/driveflow/internal/errs"
	"github.com/driveflow/driveflow/internal/logging"
)

// folderLister enumerates Drive folder candidates.
type folderLister interface {
	ListFolders(ctx context.Context, limit int) ([]drive.FolderCandidate, error)
}

// fileUploader places a local file into a Drive folder.
type fileUploader interface {
	Upload(ctx context.Context, localPath, folderID string) (string, error)
}

// folderSelector picks the best folder for a document.
type folderSelector interface {
	SelectFolder(ctx context.Context, document string, candidates []drive.FolderCandidate) (classify.Decision, error)
}

// Outcome reports where an organized file ended up.
type Outcome struct {
	FolderName string `json:"folder_name"`
	FolderID   string `json:"folder_id"`
	FileID     string `json:"file_id"`
}

// Organizer files an uploaded PDF into the best-matching Drive folder:
// extract text, list candidate folders, classify, upload. Nothing is
// uploaded unless classification produced a valid folder.
type Organizer struct {
	drive    folderLister
	uploader fileUploader
	selector folderSelector
	extract  func(path string) (string, error)
	logger   *slog.Logger
}

// New builds an Organizer on the Drive gateway and classifier.
func New(gateway *drive.Client, selector *classify.Classifier, logger *slog.Logger) *Organizer {
	return newOrganizer(gateway, gateway, selector, logger)
}

func newOrganizer(lister folderLister, uploader fileUploader, selector folderSelector, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Organizer{
		drive:    lister,
		uploader: uploader,
		selector: selector,
		extract:  classify.ExtractPDFText,
		logger:   logger,
	}
}

// Organize classifies the PDF at localPath and uploads it into the chosen
// Drive folder. Extraction and classification failures surface before any
// upload is attempted.
func (o *Organizer) Organize(ctx context.Context, localPath string) (Outcome, error) {
	start := time.Now()

	document, err := o.extract(localPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: reading %s: %v", errs.ErrClassification, localPath, err)
	}

	candidates, err := o.drive.ListFolders(ctx, drive.DefaultFolderPageSize)
	if err != nil {
		return Outcome{}, fmt.Errorf("listing folders: %w", err)
	}

	decision, err := o.selector.SelectFolder(ctx, document, candidates)
	if err != nil {
		return Outcome{}, err
	}

	fileID, err := o.uploader.Upload(ctx, localPath, decision.FolderID)
	if err != nil {
		return Outcome{}, err
	}

	o.logger.Info("document organized",
		logging.Operation("organize"),
		logging.Status(logging.StatusSuccess),
		logging.File(localPath),
		logging.Folder(decision.FolderName),
		logging.Duration(time.Since(start)))
	return Outcome{
		FolderName: decision.FolderName,
		FolderID:   decision.FolderID,
		FileID:     fileID,
	}, nil
}
