package bot

import (
	"context"

	"alicebot/pkg/ollama"
)

// OllamaModels adapts the Ollama client to the ModelManager surface.
type OllamaModels struct {
	Client *ollama.Client
}

func (o OllamaModels) ListModels(ctx context.Context) ([]ModelEntry, error) {
	models, err := o.Client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]ModelEntry, len(models))
	for i, m := range models {
		entries[i] = ModelEntry{Name: m.Name, Size: m.Size}
	}
	return entries, nil
}

func (o OllamaModels) SwitchModel(ctx context.Context, name string) error {
	return o.Client.SetModel(ctx, name)
}

func (o OllamaModels) ModelName() string {
	return o.Client.ModelName()
}
