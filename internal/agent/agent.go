package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/driveflow/driveflow/internal/logging"
)

// Conversation roles used in the transcript.
const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
	roleTool      = "tool"
)

// DefaultTimeout bounds one agent run end to end, model calls and
// capability invocations included.
const DefaultTimeout = 30 * time.Second

// maxTurns caps the tool-calling loop so a misbehaving model cannot spin
// forever inside the timeout.
const maxTurns = 8

const systemInstruction = "You are an assistant that automates file tasks " +
	"with Google Drive and Gmail. You can download a file from Drive by " +
	"name, and you can email a previously downloaded file to a recipient. " +
	"Use the provided tools to fulfil the user's request, then summarise " +
	"what was done. If the request needs no tool, answer directly."

// ToolCall is one capability invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is one entry of the conversation transcript.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// Turn is the model's reply to one round: tool calls to execute, or a
// final answer when ToolCalls is empty.
type Turn struct {
	Content   string
	ToolCalls []ToolCall
}

// toolCaller performs one chat round trip against the model with the
// capability set attached as tools.
type toolCaller interface {
	Call(ctx context.Context, transcript []Message, caps []Capability) (Turn, error)
}

// Outcome is the structured result of an agent run. Downloaded reports
// whether a downloaded file is still waiting for the caller; it is cleared
// when a later send consumed the file.
type Outcome struct {
	Reply      string
	Downloaded bool
	Filename   string
}

// Agent runs natural-language requests through a model-driven tool loop
// over the capability registry.
type Agent struct {
	caller  toolCaller
	caps    *Registry
	timeout time.Duration
	logger  *slog.Logger
}

// New builds an agent that talks to the configured OpenAI-compatible
// endpoint. A non-positive timeout falls back to DefaultTimeout.
func New(apiKey, baseURL, model string, caps *Registry, timeout time.Duration, logger *slog.Logger) *Agent {
	return newAgent(newOpenAICaller(apiKey, baseURL, model), caps, timeout, logger)
}

func newAgent(caller toolCaller, caps *Registry, timeout time.Duration, logger *slog.Logger) *Agent {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{caller: caller, caps: caps, timeout: timeout, logger: logger}
}

// Run executes one request. Capability failures are reported back to the
// model as observations rather than aborting the run; only model-call
// failures and the deadline end it early.
func (a *Agent) Run(ctx context.Context, query string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	transcript := []Message{
		{Role: roleSystem, Content: systemInstruction},
		{Role: roleUser, Content: query},
	}

	var outcome Outcome
	for turnNo := 0; turnNo < maxTurns; turnNo++ {
		turn, err := a.caller.Call(ctx, transcript, a.caps.All())
		if err != nil {
			return Outcome{}, fmt.Errorf("agent model call: %w", err)
		}

		if len(turn.ToolCalls) == 0 {
			outcome.Reply = turn.Content
			a.logger.Info("agent run completed",
				logging.Operation("agent_run"),
				logging.Status(logging.StatusSuccess),
				logging.Duration(time.Since(start)))
			return outcome, nil
		}

		transcript = append(transcript, Message{
			Role:      roleAssistant,
			Content:   turn.Content,
			ToolCalls: turn.ToolCalls,
		})

		for _, call := range turn.ToolCalls {
			observation := a.invoke(ctx, call, &outcome)
			transcript = append(transcript, Message{
				Role:       roleTool,
				Content:    observation,
				ToolCallID: call.ID,
			})
		}
	}

	return Outcome{}, fmt.Errorf("agent gave no final reply after %d turns", maxTurns)
}

// invoke runs one tool call and folds its result into the outcome. The
// returned string is the observation fed back to the model.
func (a *Agent) invoke(ctx context.Context, call ToolCall, outcome *Outcome) string {
	capability, ok := a.caps.Get(call.Name)
	if !ok {
		a.logger.Warn("agent requested unknown capability",
			logging.Capability(call.Name))
		return fmt.Sprintf("Error: unknown capability %q", call.Name)
	}

	result, err := capability.Invoke(ctx, call.Args)
	if err != nil {
		a.logger.Warn("capability failed",
			logging.Capability(call.Name),
			logging.Status(logging.StatusError),
			logging.Err(err))
		return "Error: " + err.Error()
	}

	if result.Downloaded {
		outcome.Downloaded = true
		outcome.Filename = result.Filename
	}
	if result.Sent {
		// The downloaded file was consumed by the send; nothing is left
		// waiting for the caller.
		outcome.Downloaded = false
	}
	return result.Message
}
