package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/driveflow/driveflow/internal/drive"
	"github.com/driveflow/driveflow/internal/errs"
	"github.com/driveflow/driveflow/internal/logging"
)

// maxDocumentChars bounds the document prefix submitted to the language
// model. Documents whose decisive content lies beyond this prefix will
// misroute; that is an accepted limitation traded for latency and cost.
const maxDocumentChars = 4000

const selectInstruction = `You are an assistant that selects the most appropriate Google Drive folder
based on the content of a document.

Rules:
- Analyze the document text
- Compare it with the folder names
- Choose the BEST matching folder
- Respond ONLY with a JSON object of the form {"folder_name": "...", "folder_id": "..."}`

// Decision names the folder chosen for a document. The ID always refers to
// one of the candidates supplied to SelectFolder.
type Decision struct {
	FolderName string `json:"folder_name"`
	FolderID   string `json:"folder_id"`
}

// completer is the narrow slice of the chat-completion API the classifier
// needs. Tests substitute a stub.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Classifier chooses a destination folder for a document by asking a
// language model to compare the document text against candidate folder
// names.
type Classifier struct {
	llm    completer
	logger *slog.Logger
}

// NewClassifier creates a classifier backed by an OpenAI-compatible
// chat-completion endpoint. baseURL may be empty for the default endpoint.
func NewClassifier(apiKey, baseURL, model string, logger *slog.Logger) *Classifier {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return newClassifier(&openAICompleter{client: client, model: model}, logger)
}

func newClassifier(llm completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{llm: llm, logger: logger}
}

// SelectFolder issues one classification request and returns the parsed
// decision. The document text is truncated to its first maxDocumentChars
// characters. Empty text is not an error: classification degenerates to
// folder-name-only matching.
//
// Any transport failure, unparsable reply, or decision naming a folder
// outside the candidate set fails with errs.ErrClassification. There is no
// retry.
func (c *Classifier) SelectFolder(ctx context.Context, documentText string, candidates []drive.FolderCandidate) (Decision, error) {
	if len(candidates) == 0 {
		return Decision{}, fmt.Errorf("%w: no candidate folders", errs.ErrClassification)
	}

	documentText = truncateRunes(documentText, maxDocumentChars)

	serialized, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return Decision{}, fmt.Errorf("%w: serializing candidates: %v", errs.ErrClassification, err)
	}

	prompt := fmt.Sprintf(`DOCUMENT CONTENT:
----------------
%s

AVAILABLE FOLDERS:
------------------
%s

Select the best folder.`, documentText, serialized)

	reply, err := c.llm.Complete(ctx, selectInstruction, prompt)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", errs.ErrClassification, err)
	}

	decision, err := parseDecision(reply)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", errs.ErrClassification, err)
	}

	// The model is not trusted to stay inside the candidate set; membership
	// is enforced here. The canonical name comes from the matched
	// candidate, not from the reply.
	for _, cand := range candidates {
		if cand.ID == decision.FolderID {
			decision.FolderName = cand.Name
			c.logger.Info("folder selected",
				logging.Operation("classify"), logging.Folder(cand.Name))
			return decision, nil
		}
	}
	return Decision{}, fmt.Errorf("%w: model chose folder id %q outside the candidate set",
		errs.ErrClassification, decision.FolderID)
}

// truncateRunes returns the first max runes of s, never splitting a
// multibyte character.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// parseDecision extracts the decision JSON from a model reply, tolerating
// markdown code fences and surrounding prose.
func parseDecision(reply string) (Decision, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return Decision{}, fmt.Errorf("no JSON object in model reply")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(reply[start:end+1]), &decision); err != nil {
		return Decision{}, fmt.Errorf("decoding model reply: %w", err)
	}
	if decision.FolderID == "" {
		return Decision{}, fmt.Errorf("model reply is missing folder_id")
	}
	return decision, nil
}

// openAICompleter implements completer against the OpenAI chat API.
type openAICompleter struct {
	client openai.Client
	model  string
}

func (o *openAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
