package image

import (
	"context"
	"log"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Generator is the txt2img surface the bot uses.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

// CachedGenerator memoizes prompt -> file path. Template replies reuse
// a small set of prompts, so repeats skip the expensive render.
type CachedGenerator struct {
	generator Generator
	cache     *lru.Cache[string, string]
}

func NewCachedGenerator(generator Generator, cacheSize int) *CachedGenerator {
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		// This should only happen if cacheSize <= 0
		log.Printf("Error creating LRU cache: %v. Using size 128.", err)
		cache, _ = lru.New[string, string](128)
	}
	return &CachedGenerator{
		generator: generator,
		cache:     cache,
	}
}

func (c *CachedGenerator) Generate(ctx context.Context, prompt string) (Result, error) {
	if path, ok := c.cache.Get(prompt); ok {
		// The file may have been cleaned up since it was cached
		if _, err := os.Stat(path); err == nil {
			return Result{Path: path}, nil
		}
		c.cache.Remove(prompt)
	}

	result, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	c.cache.Add(prompt, result.Path)
	return result, nil
}
