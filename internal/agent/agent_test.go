package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCaller replays a fixed sequence of model turns and records the
// transcript it was handed on each call.
type scriptedCaller struct {
	turns       []Turn
	err         error
	calls       int
	transcripts [][]Message
}

func (s *scriptedCaller) Call(_ context.Context, transcript []Message, _ []Capability) (Turn, error) {
	s.calls++
	s.transcripts = append(s.transcripts, append([]Message(nil), transcript...))
	if s.err != nil {
		return Turn{}, s.err
	}
	if len(s.turns) == 0 {
		return Turn{}, fmt.Errorf("scripted caller exhausted")
	}
	turn := s.turns[0]
	s.turns = s.turns[1:]
	return turn, nil
}

// testRegistry exposes download/send capabilities backed by canned results
// so runs are fully deterministic.
func testRegistry(t *testing.T, downloadErr, sendErr error) (*Registry, *int, *int) {
	t.Helper()
	downloads, sends := 0, 0
	download := Capability{
		Name: CapabilityDownload,
		Invoke: func(_ context.Context, args map[string]any) (Result, error) {
			downloads++
			if downloadErr != nil {
				return Result{}, downloadErr
			}
			name, _ := args["file_name"].(string)
			return Result{Message: downloadSuccessMessage, Downloaded: true, Filename: name}, nil
		},
	}
	send := Capability{
		Name: CapabilitySend,
		Invoke: func(_ context.Context, _ map[string]any) (Result, error) {
			sends++
			if sendErr != nil {
				return Result{}, sendErr
			}
			return Result{Message: sendSuccessMessage, Sent: true, Filename: "report.pdf"}, nil
		},
	}
	return NewRegistry(download, send), &downloads, &sends
}

func TestRunDirectAnswer(t *testing.T) {
	caps, downloads, sends := testRegistry(t, nil, nil)
	caller := &scriptedCaller{turns: []Turn{{Content: "Nothing to do."}}}
	a := newAgent(caller, caps, 0, nil)

	outcome, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to do.", outcome.Reply)
	assert.False(t, outcome.Downloaded)
	assert.Equal(t, 0, *downloads)
	assert.Equal(t, 0, *sends)

	// First transcript carries the system instruction and the user query.
	require.Len(t, caller.transcripts, 1)
	require.Len(t, caller.transcripts[0], 2)
	assert.Equal(t, roleSystem, caller.transcripts[0][0].Role)
	assert.Equal(t, "hello", caller.transcripts[0][1].Content)
}

func TestRunDownloadLeavesFileAvailable(t *testing.T) {
	caps, downloads, _ := testRegistry(t, nil, nil)
	caller := &scriptedCaller{turns: []Turn{
		{ToolCalls: []ToolCall{{ID: "c1", Name: CapabilityDownload, Args: map[string]any{"file_name": "report.pdf"}}}},
		{Content: "File downloaded successfully."},
	}}
	a := newAgent(caller, caps, 0, nil)

	outcome, err := a.Run(context.Background(), "download report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, *downloads)
	assert.True(t, outcome.Downloaded)
	assert.Equal(t, "report.pdf", outcome.Filename)

	// The second round trip must include the assistant tool request and
	// the tool observation keyed by call ID.
	require.Len(t, caller.transcripts, 2)
	second := caller.transcripts[1]
	require.Len(t, second, 4)
	assert.Equal(t, roleAssistant, second[2].Role)
	assert.Equal(t, roleTool, second[3].Role)
	assert.Equal(t, "c1", second[3].ToolCallID)
	assert.Equal(t, downloadSuccessMessage, second[3].Content)
}

func TestRunDownloadThenSendConsumesFile(t *testing.T) {
	caps, downloads, sends := testRegistry(t, nil, nil)
	caller := &scriptedCaller{turns: []Turn{
		{ToolCalls: []ToolCall{{ID: "c1", Name: CapabilityDownload, Args: map[string]any{"file_name": "report.pdf"}}}},
		{ToolCalls: []ToolCall{{ID: "c2", Name: CapabilitySend, Args: map[string]any{"filename": "report.pdf", "receiver_email": "a@b.com"}}}},
		{Content: "Email sent successfully."},
	}}
	a := newAgent(caller, caps, 0, nil)

	outcome, err := a.Run(context.Background(), "send report.pdf to a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 1, *downloads)
	assert.Equal(t, 1, *sends)

	// The send consumed the download, so nothing is waiting for the caller.
	assert.False(t, outcome.Downloaded)
	assert.Equal(t, "Email sent successfully.", outcome.Reply)
}

func TestRunCapabilityErrorObservedNotFatal(t *testing.T) {
	caps, downloads, _ := testRegistry(t, errors.New("file not found in Drive"), nil)
	caller := &scriptedCaller{turns: []Turn{
		{ToolCalls: []ToolCall{{ID: "c1", Name: CapabilityDownload, Args: map[string]any{"file_name": "ghost.pdf"}}}},
		{Content: "I could not find that file."},
	}}
	a := newAgent(caller, caps, 0, nil)

	outcome, err := a.Run(context.Background(), "download ghost.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, *downloads)
	assert.False(t, outcome.Downloaded)
	assert.Equal(t, "I could not find that file.", outcome.Reply)

	second := caller.transcripts[1]
	assert.Contains(t, second[3].Content, "Error:")
	assert.Contains(t, second[3].Content, "file not found in Drive")
}

func TestRunUnknownCapability(t *testing.T) {
	caps, _, _ := testRegistry(t, nil, nil)
	caller := &scriptedCaller{turns: []Turn{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "format_disk"}}},
		{Content: "That tool does not exist."},
	}}
	a := newAgent(caller, caps, 0, nil)

	_, err := a.Run(context.Background(), "do something odd")
	require.NoError(t, err)
	assert.Contains(t, caller.transcripts[1][3].Content, `unknown capability "format_disk"`)
}

func TestRunModelError(t *testing.T) {
	caps, _, _ := testRegistry(t, nil, nil)
	caller := &scriptedCaller{err: errors.New("upstream unavailable")}
	a := newAgent(caller, caps, 0, nil)

	_, err := a.Run(context.Background(), "download report.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestRunTurnLimit(t *testing.T) {
	caps, _, _ := testRegistry(t, nil, nil)
	caller := &scriptedCaller{}
	for i := 0; i < maxTurns+1; i++ {
		caller.turns = append(caller.turns, Turn{
			ToolCalls: []ToolCall{{ID: "c", Name: CapabilityDownload, Args: map[string]any{"file_name": "x"}}},
		})
	}
	a := newAgent(caller, caps, 0, nil)

	_, err := a.Run(context.Background(), "loop forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no final reply")
	assert.Equal(t, maxTurns, caller.calls)
}

// blockingCaller waits for the run deadline instead of answering.
type blockingCaller struct{}

func (blockingCaller) Call(ctx context.Context, _ []Message, _ []Capability) (Turn, error) {
	<-ctx.Done()
	return Turn{}, ctx.Err()
}

func TestRunTimeout(t *testing.T) {
	caps, _, _ := testRegistry(t, nil, nil)
	a := newAgent(blockingCaller{}, caps, 50*time.Millisecond, nil)

	start := time.Now()
	_, err := a.Run(context.Background(), "hang")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
