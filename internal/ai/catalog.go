package ai

import (
	"errors"
	"fmt"

	"datacopilot/internal/config"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Model is one catalog entry. The provider tag and the provider-side
// identifier are fixed when the catalog is built, so nothing downstream ever
// inspects the model id to guess where it lives.
type Model struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Provider      Provider `json:"provider"`
	APIIdentifier string   `json:"api_identifier"`
	Description   string   `json:"description"`
}

type Catalog struct {
	models    []Model
	byID      map[string]Model
	defaultID string
}

var ErrEmptyCatalog = errors.New("model catalog is empty")

func NewCatalog(entries []config.ModelEntry, defaultID string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	byID := make(map[string]Model, len(entries))
	models := make([]Model, 0, len(entries))
	for _, entry := range entries {
		provider := Provider(entry.Provider)
		if provider != ProviderOpenAI && provider != ProviderAnthropic {
			return nil, fmt.Errorf("model %q has unknown provider %q", entry.ID, entry.Provider)
		}
		if _, exists := byID[entry.ID]; exists {
			return nil, fmt.Errorf("duplicate model id %q in catalog", entry.ID)
		}
		m := Model{
			ID:            entry.ID,
			Label:         entry.Label,
			Provider:      provider,
			APIIdentifier: entry.APIIdentifier,
			Description:   entry.Description,
		}
		byID[entry.ID] = m
		models = append(models, m)
	}

	if _, ok := byID[defaultID]; !ok {
		return nil, fmt.Errorf("default model %q is not in the catalog", defaultID)
	}

	return &Catalog{models: models, byID: byID, defaultID: defaultID}, nil
}

func (c *Catalog) Resolve(id string) (Model, bool) {
	m, ok := c.byID[id]
	return m, ok
}

func (c *Catalog) Default() Model {
	return c.byID[c.defaultID]
}

func (c *Catalog) List() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}
