package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Provide a path that definitely doesn't exist
	config, err := LoadConfig("non_existent_config.yml")
	require.NoError(t, err)

	// Verify default values
	assert.Equal(t, 0.7, config.ModelSettings.Temperature)
	assert.Equal(t, 0.9, config.ModelSettings.TopP)
	assert.Equal(t, 500, config.ModelSettings.MaxTokens)
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, 50, config.LLM.MaxHistory)
	assert.Equal(t, 8, config.LLM.ContextMessages)
	assert.Equal(t, 30, config.LLM.TimeoutSeconds)
	assert.Equal(t, 4000, config.Limits.MaxMessageLength)
	assert.Equal(t, 1000, config.Storage.MaxConversations)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	// Create a temporary config file
	content := []byte(`
model_settings:
  temperature: 0.4
  top_p: 0.8
  max_tokens: 300
llm:
  provider: openai
  model: gpt-4o-mini
  max_history: 20
  context_messages: 6
  timeout_seconds: 15
image:
  enabled: true
  width: 640
  height: 640
limits:
  max_message_length: 2000
storage:
  max_conversations: 50
`)
	tmpfile, err := os.CreateTemp("", "config_test_*.yml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name()) // clean up

	if _, err := tmpfile.Write(content); err != nil {
		tmpfile.Close()
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load the config
	config, err := LoadConfig(tmpfile.Name())
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, 0.4, config.ModelSettings.Temperature)
	assert.Equal(t, 0.8, config.ModelSettings.TopP)
	assert.Equal(t, 300, config.ModelSettings.MaxTokens)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, 20, config.LLM.MaxHistory)
	assert.Equal(t, 6, config.LLM.ContextMessages)
	assert.Equal(t, 15, config.LLM.TimeoutSeconds)
	assert.True(t, config.Image.Enabled)
	assert.Equal(t, 640, config.Image.Width)
	assert.Equal(t, 2000, config.Limits.MaxMessageLength)
	assert.Equal(t, 50, config.Storage.MaxConversations)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	content := []byte(`
llm:
  provider: ollama
  max_history: 10
`)
	tmpfile, err := os.CreateTemp("", "config_partial_*.yml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write(content); err != nil {
		tmpfile.Close()
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, 10, config.LLM.MaxHistory)
	// Unset fields fall back to defaults
	assert.Equal(t, 0.7, config.ModelSettings.Temperature)
	assert.Equal(t, 8, config.LLM.ContextMessages)
	assert.Equal(t, 512, config.Image.Width)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	// Create a temporary file with invalid YAML
	content := []byte(`
model_settings:
  temperature: "not a number"
  broken_yaml: [ unclosed bracket
`)
	tmpfile, err := os.CreateTemp("", "config_invalid_*.yml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write(content); err != nil {
		tmpfile.Close()
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Attempt to load the config
	config, err := LoadConfig(tmpfile.Name())

	// Should return an error
	assert.Error(t, err)
	assert.Nil(t, config)
}
