package ai

import (
	"testing"

	"datacopilot/internal/config"
)

func entries() []config.ModelEntry {
	return []config.ModelEntry{
		{ID: "gpt-4o-mini", Label: "GPT 4o mini", Provider: "openai", APIIdentifier: "gpt-4o-mini"},
		{ID: "claude-3-sonnet", Label: "Claude 3 sonnet", Provider: "anthropic", APIIdentifier: "claude-3-5-sonnet-20241022"},
	}
}

func TestCatalogResolve(t *testing.T) {
	catalog, err := NewCatalog(entries(), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	m, ok := catalog.Resolve("claude-3-sonnet")
	if !ok {
		t.Fatal("known model not resolved")
	}
	if m.Provider != ProviderAnthropic {
		t.Fatalf("provider = %q", m.Provider)
	}
	if m.APIIdentifier != "claude-3-5-sonnet-20241022" {
		t.Fatalf("api identifier = %q", m.APIIdentifier)
	}

	if _, ok := catalog.Resolve("unknown-model"); ok {
		t.Fatal("unknown model resolved")
	}
}

func TestCatalogDefault(t *testing.T) {
	catalog, err := NewCatalog(entries(), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if catalog.Default().ID != "gpt-4o-mini" {
		t.Fatalf("default = %q", catalog.Default().ID)
	}
}

func TestCatalogRejectsUnknownProvider(t *testing.T) {
	bad := []config.ModelEntry{{ID: "m", Provider: "mystery", APIIdentifier: "m"}}
	if _, err := NewCatalog(bad, "m"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCatalogRejectsDuplicateID(t *testing.T) {
	dup := append(entries(), config.ModelEntry{ID: "gpt-4o-mini", Provider: "openai", APIIdentifier: "x"})
	if _, err := NewCatalog(dup, "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for duplicate model id")
	}
}

func TestCatalogRejectsMissingDefault(t *testing.T) {
	if _, err := NewCatalog(entries(), "nope"); err == nil {
		t.Fatal("expected error for default outside catalog")
	}
}

func TestCatalogRejectsEmpty(t *testing.T) {
	if _, err := NewCatalog(nil, ""); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
