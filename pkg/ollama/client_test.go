package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alicebot/pkg/llm"
)

func newTagsHandler(names ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models := make([]map[string]any, len(names))
		for i, n := range names {
			models[i] = map[string]any{"name": n, "size": 1000}
		}
		json.NewEncoder(w).Encode(map[string]any{"models": models})
	}
}

func TestChat_Success(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "  Привет! Как дела? 😊  "},
			"done":    true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "llama3:latest")
	reply, err := client.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "ты Алиса"},
		{Role: llm.RoleUser, Content: "привет"},
	}, llm.Params{Temperature: 0.7, TopP: 0.9, MaxTokens: 500})

	require.NoError(t, err)
	assert.Equal(t, "Привет! Как дела? 😊", reply)
	assert.Equal(t, "llama3:latest", gotReq.Model)
	assert.False(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, 0.7, gotReq.Options.Temperature)
	assert.Equal(t, 500, gotReq.Options.NumPredict)
}

func TestChat_NoModelSelected(t *testing.T) {
	client := NewClient("http://localhost:11434", "")
	_, err := client.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.Params{})
	assert.ErrorIs(t, err, llm.ErrNoModel)
}

func TestChat_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "llama3:latest")
	_, err := client.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.Params{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "model overloaded")
}

func TestChat_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, "llama3:latest")
	_, err := client.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.Params{})
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestChat_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "llama3:latest")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.Params{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEnsureModel_KeepsConfigured(t *testing.T) {
	server := httptest.NewServer(newTagsHandler("mistral:7b", "llama3:latest"))
	defer server.Close()

	client := NewClient(server.URL, "llama3:latest")
	require.NoError(t, client.EnsureModel(context.Background()))
	assert.Equal(t, "llama3:latest", client.ModelName())
}

func TestEnsureModel_PrefersKnownVariant(t *testing.T) {
	server := httptest.NewServer(newTagsHandler("nomic-embed-text:latest", "dolphin3:latest"))
	defer server.Close()

	client := NewClient(server.URL, "missing:model")
	require.NoError(t, client.EnsureModel(context.Background()))
	assert.Equal(t, "dolphin3:latest", client.ModelName())
}

func TestEnsureModel_FallsBackToFirst(t *testing.T) {
	server := httptest.NewServer(newTagsHandler("nomic-embed-text:latest", "starcoder:3b"))
	defer server.Close()

	client := NewClient(server.URL, "")
	require.NoError(t, client.EnsureModel(context.Background()))
	assert.Equal(t, "nomic-embed-text:latest", client.ModelName())
}

func TestEnsureModel_NoModels(t *testing.T) {
	server := httptest.NewServer(newTagsHandler())
	defer server.Close()

	client := NewClient(server.URL, "")
	err := client.EnsureModel(context.Background())
	assert.ErrorIs(t, err, llm.ErrNoModel)
}

func TestSetModel(t *testing.T) {
	server := httptest.NewServer(newTagsHandler("llama3:latest", "qwen2:7b"))
	defer server.Close()

	client := NewClient(server.URL, "llama3:latest")
	require.NoError(t, client.SetModel(context.Background(), "qwen2:7b"))
	assert.Equal(t, "qwen2:7b", client.ModelName())

	err := client.SetModel(context.Background(), "gpt-5")
	assert.Error(t, err)
	assert.Equal(t, "qwen2:7b", client.ModelName())
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(newTagsHandler("llama3:latest", "qwen2:7b"))
	defer server.Close()

	client := NewClient(server.URL, "")
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3:latest", models[0].Name)
}
