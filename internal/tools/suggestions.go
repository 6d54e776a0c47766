package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"datacopilot/internal/ai"
	"datacopilot/internal/model"
)

type requestSuggestionsArgs struct {
	DocumentID string `json:"documentId"`
}

type generatedSuggestion struct {
	OriginalSentence  string `json:"originalSentence"`
	SuggestedSentence string `json:"suggestedSentence"`
	Description       string `json:"description"`
}

func (r *Registry) requestSuggestionsTool(userID uint) ai.Tool {
	return ai.Tool{
		Definition: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "requestSuggestions",
				Description: "Request suggestions for a document",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"documentId": {Type: jsonschema.String, Description: "The id of the document to request edits for"},
					},
					Required: []string{"documentId"},
				},
			},
		},
		Execute: func(ctx context.Context, arguments string) (string, error) {
			var args requestSuggestionsArgs
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return "", fmt.Errorf("decode suggestion arguments failed: %w", err)
			}

			doc, err := r.documents.GetByID(args.DocumentID)
			if err != nil {
				return "", err
			}
			if doc == nil {
				return "", fmt.Errorf("document %s not found", args.DocumentID)
			}

			raw, err := r.generator.GenerateText(ctx, r.model,
				"You are a helpful writing assistant. Given a piece of writing, offer at most five improvement suggestions. "+
					`Respond with a JSON array of objects shaped like {"originalSentence","suggestedSentence","description"} and nothing else.`,
				doc.Content,
			)
			if err != nil {
				return "", err
			}

			var generated []generatedSuggestion
			if err := json.Unmarshal([]byte(stripCodeFence(raw)), &generated); err != nil {
				return "", fmt.Errorf("decode generated suggestions failed: %w", err)
			}

			suggestions := make([]model.Suggestion, 0, len(generated))
			for _, g := range generated {
				suggestions = append(suggestions, model.Suggestion{
					ID:            uuid.NewString(),
					DocumentID:    doc.ID,
					OriginalText:  g.OriginalSentence,
					SuggestedText: g.SuggestedSentence,
					Description:   g.Description,
					UserID:        userID,
					CreatedAt:     time.Now(),
				})
			}
			if err := r.suggestions.SaveBatch(suggestions); err != nil {
				return "", err
			}

			return toolJSON(map[string]string{
				"id":      doc.ID,
				"title":   doc.Title,
				"message": "Suggestions have been added to the document",
			})
		},
	}
}

// stripCodeFence unwraps a ```json fenced block if the model added one.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
