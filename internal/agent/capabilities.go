package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/driveflow/driveflow/internal/instrumentation"
	"github.com/driveflow/driveflow/internal/logging"
)

// Capability names form the fixed enumerated set exposed to the agent.
const (
	CapabilityDownload = "file_download"
	CapabilitySend     = "send_email_gmail"
)

// Reply fragments for capability results. The download and send phrases
// are stable: clients key off them in the agent's final reply.
const (
	downloadSuccessMessage = "File downloaded successfully"
	sendSuccessMessage     = "Email sent successfully via Gmail API"
)

// Result is the structured outcome of one capability invocation. The
// orchestrator threads the flags back to the caller instead of parsing the
// prose in Message.
type Result struct {
	// Message is the reply fragment shown to the model (and ultimately the
	// user) for this invocation.
	Message string

	// Downloaded is true when a file landed in the download directory.
	Downloaded bool

	// Sent is true when an email dispatch was accepted.
	Sent bool

	// Filename is the file the capability acted on.
	Filename string
}

// Capability is one named, typed operation invocable by the agent through
// the uniform Invoke interface.
type Capability struct {
	// Name identifies the capability in tool calls.
	Name string

	// Description tells the model when to use the capability.
	Description string

	// Parameters is the JSON schema of the arguments object.
	Parameters map[string]any

	// Invoke executes the capability. An error is shown to the model as an
	// error observation; it does not abort the agent run.
	Invoke func(ctx context.Context, args map[string]any) (Result, error)
}

// Registry is an ordered, fixed set of capabilities.
type Registry struct {
	ordered []Capability
	byName  map[string]Capability
}

// NewRegistry builds a registry from the given capabilities.
func NewRegistry(caps ...Capability) *Registry {
	r := &Registry{byName: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		r.ordered = append(r.ordered, c)
		r.byName[c.Name] = c
	}
	return r
}

// All returns the capabilities in registration order.
func (r *Registry) All() []Capability {
	return r.ordered
}

// Get looks a capability up by name.
func (r *Registry) Get(name string) (Capability, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Downloader is the slice of the Drive gateway the download capability
// needs.
type Downloader interface {
	ResolveFileID(ctx context.Context, name string) (string, error)
	Download(ctx context.Context, fileID, name string) (string, error)
}

// Sender is the slice of the mail gateway the send capability needs.
type Sender interface {
	SendFile(ctx context.Context, localPath, recipient string) (string, error)
}

// NewCapabilities builds the fixed two-capability set: download a Drive
// file by name, and email a previously downloaded file to a recipient.
// metrics may be nil.
func NewCapabilities(downloader Downloader, sender Sender, downloadDir string, metrics *instrumentation.Metrics, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	download := Capability{
		Name:        CapabilityDownload,
		Description: "Download a file from Google Drive by providing the file name.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_name": map[string]any{
					"type":        "string",
					"description": "Name of the file to download from Google Drive",
				},
			},
			"required": []string{"file_name"},
		},
		Invoke: func(ctx context.Context, args map[string]any) (Result, error) {
			name, ok := args["file_name"].(string)
			if !ok || name == "" {
				return Result{}, fmt.Errorf("file_name is required")
			}

			fileID, err := downloader.ResolveFileID(ctx, name)
			if err != nil {
				return Result{}, fmt.Errorf("downloading %s: %w", name, err)
			}
			if _, err := downloader.Download(ctx, fileID, name); err != nil {
				return Result{}, fmt.Errorf("downloading %s: %w", name, err)
			}

			logger.Info("capability completed",
				logging.Capability(CapabilityDownload), logging.File(name))
			return Result{
				Message:    downloadSuccessMessage,
				Downloaded: true,
				Filename:   filepath.Base(name),
			}, nil
		},
	}

	send := Capability{
		Name:        CapabilitySend,
		Description: "Send a previously downloaded file via Gmail by providing the filename and the receiver's email address.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filename": map[string]any{
					"type":        "string",
					"description": "Name of the file to be sent",
				},
				"receiver_email": map[string]any{
					"type":        "string",
					"description": "Email address of the receiver",
				},
			},
			"required": []string{"filename", "receiver_email"},
		},
		Invoke: func(ctx context.Context, args map[string]any) (Result, error) {
			filename, ok := args["filename"].(string)
			if !ok || filename == "" {
				return Result{}, fmt.Errorf("filename is required")
			}
			recipient, ok := args["receiver_email"].(string)
			if !ok || recipient == "" {
				return Result{}, fmt.Errorf("receiver_email is required")
			}

			localPath := filepath.Join(downloadDir, filepath.Base(filename))
			if _, err := sender.SendFile(ctx, localPath, recipient); err != nil {
				return Result{}, fmt.Errorf("sending %s: %w", filename, err)
			}

			logger.Info("capability completed",
				logging.Capability(CapabilitySend),
				logging.File(filename), logging.Recipient(recipient))
			return Result{
				Message:  sendSuccessMessage,
				Sent:     true,
				Filename: filepath.Base(filename),
			}, nil
		},
	}

	return NewRegistry(withMetrics(download, metrics), withMetrics(send, metrics))
}

// withMetrics wraps a capability so every invocation is recorded with its
// status and duration.
func withMetrics(c Capability, metrics *instrumentation.Metrics) Capability {
	invoke := c.Invoke
	c.Invoke = func(ctx context.Context, args map[string]any) (Result, error) {
		start := time.Now()
		result, err := invoke(ctx, args)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		metrics.RecordCapability(ctx, c.Name, status, time.Since(start))
		return result, err
	}
	return c
}
