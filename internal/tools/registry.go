package tools

import (
	"context"
	"net/http"
	"time"

	"datacopilot/internal/ai"
	"datacopilot/internal/repository"
)

// TextGenerator is the generation capability the document and suggestion
// tools lean on for their content.
type TextGenerator interface {
	GenerateText(ctx context.Context, model ai.Model, system, prompt string) (string, error)
}

// Registry builds the enumerated set of tool capabilities a chat turn may
// use. Tools that write rows need the calling user, so the per-request set is
// produced by ForUser.
type Registry struct {
	documents   *repository.DocumentRepository
	suggestions *repository.SuggestionRepository
	generator   TextGenerator
	model       ai.Model
	httpClient  *http.Client
}

func NewRegistry(
	documents *repository.DocumentRepository,
	suggestions *repository.SuggestionRepository,
	generator TextGenerator,
	model ai.Model,
) *Registry {
	return &Registry{
		documents:   documents,
		suggestions: suggestions,
		generator:   generator,
		model:       model,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ForUser returns the full permitted tool set bound to the caller.
func (r *Registry) ForUser(userID uint) []ai.Tool {
	return []ai.Tool{
		r.weatherTool(),
		r.createDocumentTool(userID),
		r.updateDocumentTool(),
		r.requestSuggestionsTool(userID),
	}
}
