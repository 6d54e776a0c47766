package dataset

import (
	"context"
	"fmt"
	"log"

	"datacopilot/internal/ai"
)

// TextGenerator is the one-shot generation capability used for compression.
type TextGenerator interface {
	GenerateText(ctx context.Context, model ai.Model, system, prompt string) (string, error)
}

// CompressedCache stores the compressed schema per model so the one-shot
// compression call is not repeated on every turn.
type CompressedCache interface {
	Get(ctx context.Context, modelID string) (string, bool, error)
	Set(ctx context.Context, modelID, compressed string) error
}

type Compressor struct {
	generator TextGenerator
	cache     CompressedCache
	schema    *Schema
}

func NewCompressor(generator TextGenerator, cache CompressedCache, schema *Schema) *Compressor {
	return &Compressor{generator: generator, cache: cache, schema: schema}
}

const compressionSystem = "You are a schema compression expert. Be as concise as possible."

// Compressed returns the model-compressed form of the dataset schema. The
// compressed text only needs to be reconstructable by the same model, so it is
// cached per model id. Cache failures fall back to recomputing.
func (c *Compressor) Compressed(ctx context.Context, model ai.Model) (string, error) {
	if c.cache != nil {
		cached, hit, err := c.cache.Get(ctx, model.ID)
		if err != nil {
			log.Printf("read compressed schema cache failed: %v", err)
		} else if hit {
			return cached, nil
		}
	}

	schemaJSON, err := c.schema.JSON()
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Compress the following schema in a way that you (AI assistant) can later reconstruct it perfectly. "+
			"Use any symbols, abbreviations, or encodings that make sense to you. Make it as compact as possible:\n%s",
		schemaJSON,
	)

	compressed, err := c.generator.GenerateText(ctx, model, compressionSystem, prompt)
	if err != nil {
		return "", fmt.Errorf("compress schema failed: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, model.ID, compressed); err != nil {
			log.Printf("write compressed schema cache failed: %v", err)
		}
	}
	return compressed, nil
}
