package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/driveflow/driveflow/internal/errs"
	"github.com/driveflow/driveflow/internal/google"
	"github.com/driveflow/driveflow/internal/logging"
)

// Fixed subject and body for capability-initiated transfers.
const (
	transferSubject = "File Transfer Through Drive AI"
	transferBody    = "The file was sent using Google OAuth via Drive AI."
)

// Client wraps the Gmail API service.
type Client struct {
	service *gmail.Service
	logger  *slog.Logger
}

// NewClient creates a Gmail client authenticated through the credential
// store.
func NewClient(ctx context.Context, store *google.Store, logger *slog.Logger) (*Client, error) {
	service, err := gmail.NewService(ctx, option.WithHTTPClient(store.HTTPClient(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return New(service, logger), nil
}

// New creates a Gmail client around an existing service. Tests use this to
// point the SDK at a fake endpoint.
func New(service *gmail.Service, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{service: service, logger: logger}
}

// SendFile sends the local file as a single attachment to the recipient and
// returns the Gmail message ID. A missing local path fails with
// errs.ErrNotFound. There is no retry and no delivery confirmation beyond
// acceptance by the Gmail API.
func (c *Client) SendFile(ctx context.Context, localPath, recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient is required")
	}
	if _, err := mail.ParseAddress(recipient); err != nil {
		return "", fmt.Errorf("invalid recipient address %q: %w", recipient, err)
	}

	attachment, err := os.ReadFile(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: local file %s", errs.ErrNotFound, localPath)
		}
		return "", fmt.Errorf("reading %s: %w", localPath, err)
	}

	raw, err := buildMessage(recipient, transferSubject, transferBody,
		filepath.Base(localPath), attachment)
	if err != nil {
		return "", fmt.Errorf("building message: %w", err)
	}

	sent, err := c.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Info("email sent",
		logging.Operation("gmail.send"),
		logging.File(filepath.Base(localPath)),
		logging.Recipient(recipient))
	return sent.Id, nil
}

// urlSafeEncode encodes a finished RFC 2822 message in the base64url form
// the Gmail API expects in Message.Raw.
func urlSafeEncode(msg []byte) string {
	return base64.URLEncoding.EncodeToString(msg)
}
