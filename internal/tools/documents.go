package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"datacopilot/internal/ai"
	"datacopilot/internal/model"
)

type createDocumentArgs struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

type updateDocumentArgs struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

func (r *Registry) createDocumentTool(userID uint) ai.Tool {
	return ai.Tool{
		Definition: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "createDocument",
				Description: "Create a document for a writing activity",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"title": {Type: jsonschema.String},
						"kind":  {Type: jsonschema.String, Enum: []string{"text", "code"}},
					},
					Required: []string{"title", "kind"},
				},
			},
		},
		Execute: func(ctx context.Context, arguments string) (string, error) {
			var args createDocumentArgs
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return "", fmt.Errorf("decode create document arguments failed: %w", err)
			}

			content, err := r.generator.GenerateText(ctx, r.model,
				"Write about the given topic. Markdown is supported. Use headings wherever appropriate.",
				args.Title,
			)
			if err != nil {
				return "", err
			}

			doc := &model.Document{
				ID:        uuid.NewString(),
				Title:     args.Title,
				Content:   content,
				Kind:      args.Kind,
				UserID:    userID,
				CreatedAt: time.Now(),
			}
			if err := r.documents.Create(doc); err != nil {
				return "", err
			}

			return toolJSON(map[string]string{
				"id":      doc.ID,
				"title":   doc.Title,
				"kind":    doc.Kind,
				"content": "A document was created and is now visible to the user.",
			})
		},
	}
}

func (r *Registry) updateDocumentTool() ai.Tool {
	return ai.Tool{
		Definition: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "updateDocument",
				Description: "Update a document with the given description",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"id":          {Type: jsonschema.String, Description: "The id of the document to update"},
						"description": {Type: jsonschema.String, Description: "The description of changes that need to be made"},
					},
					Required: []string{"id", "description"},
				},
			},
		},
		Execute: func(ctx context.Context, arguments string) (string, error) {
			var args updateDocumentArgs
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return "", fmt.Errorf("decode update document arguments failed: %w", err)
			}

			doc, err := r.documents.GetByID(args.ID)
			if err != nil {
				return "", err
			}
			if doc == nil {
				return "", fmt.Errorf("document %s not found", args.ID)
			}

			updated, err := r.generator.GenerateText(ctx, r.model,
				"You are a helpful writing assistant. Based on the description, update the piece of writing. Output only the updated document.",
				fmt.Sprintf("Description: %s\n\nCurrent document:\n%s", args.Description, doc.Content),
			)
			if err != nil {
				return "", err
			}

			if err := r.documents.UpdateContent(doc.ID, updated); err != nil {
				return "", err
			}

			return toolJSON(map[string]string{
				"id":      doc.ID,
				"title":   doc.Title,
				"kind":    doc.Kind,
				"content": "The document has been updated successfully.",
			})
		},
	}
}

func toolJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result failed: %w", err)
	}
	return string(raw), nil
}
