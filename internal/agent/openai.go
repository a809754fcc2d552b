package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAICaller implements toolCaller against an OpenAI-compatible chat
// completions endpoint.
type openAICaller struct {
	client openai.Client
	model  string
}

func newOpenAICaller(apiKey, baseURL, model string) *openAICaller {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAICaller{client: openai.NewClient(opts...), model: model}
}

func (c *openAICaller) Call(ctx context.Context, transcript []Message, caps []Capability) (Turn, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toChatMessages(transcript),
		Tools:    toChatTools(caps),
	})
	if err != nil {
		return Turn{}, err
	}
	if len(completion.Choices) == 0 {
		return Turn{}, fmt.Errorf("model returned no choices")
	}

	choice := completion.Choices[0].Message
	turn := Turn{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return Turn{}, fmt.Errorf("decoding arguments for %s: %w", tc.Function.Name, err)
			}
		}
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return turn, nil
}

func toChatMessages(transcript []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript))
	for _, m := range transcript {
		switch m.Role {
		case roleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case roleUser:
			out = append(out, openai.UserMessage(m.Content))
		case roleAssistant:
			out = append(out, assistantMessage(m))
		case roleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func assistantMessage(m Message) openai.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return openai.AssistantMessage(m.Content)
	}

	assistant := openai.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		assistant.Content.OfString = openai.String(m.Content)
	}
	for _, tc := range m.ToolCalls {
		args, err := json.Marshal(tc.Args)
		if err != nil {
			args = []byte("{}")
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: string(args),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func toChatTools(caps []Capability) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(caps))
	for _, c := range caps {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        c.Name,
				Description: openai.String(c.Description),
				Parameters:  openai.FunctionParameters(c.Parameters),
			},
		})
	}
	return tools
}
