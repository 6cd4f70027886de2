package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ModelSettings struct {
		Temperature float64 `yaml:"temperature"`
		TopP        float64 `yaml:"top_p"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"model_settings"`
	LLM struct {
		Provider        string `yaml:"provider"` // "ollama" or "openai"
		Model           string `yaml:"model"`    // empty = auto-select
		MaxHistory      int    `yaml:"max_history"`
		ContextMessages int    `yaml:"context_messages"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Image struct {
		Enabled        bool    `yaml:"enabled"`
		OutputDir      string  `yaml:"output_dir"`
		Width          int     `yaml:"width"`
		Height         int     `yaml:"height"`
		Steps          int     `yaml:"steps"`
		CFGScale       float64 `yaml:"cfg_scale"`
		NegativePrompt string  `yaml:"negative_prompt"`
		CacheSize      int     `yaml:"cache_size"`
	} `yaml:"image"`
	Limits struct {
		MaxMessageLength int `yaml:"max_message_length"`
	} `yaml:"limits"`
	Storage struct {
		MaxConversations int `yaml:"max_conversations"`
	} `yaml:"storage"`
}

func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		// Set default values
		setDefaults(config)
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	fillZeroes(config)

	return config, nil
}

func setDefaults(config *Config) {
	config.ModelSettings.Temperature = 0.7
	config.ModelSettings.TopP = 0.9
	config.ModelSettings.MaxTokens = 500
	config.LLM.Provider = "ollama"
	config.LLM.MaxHistory = 50
	config.LLM.ContextMessages = 8
	config.LLM.TimeoutSeconds = 30
	config.Image.OutputDir = "generated_images"
	config.Image.Width = 512
	config.Image.Height = 768
	config.Image.Steps = 25
	config.Image.CFGScale = 7.5
	config.Image.NegativePrompt = "lowres, bad anatomy, bad hands, text, error, extra digit, blurry"
	config.Image.CacheSize = 128
	config.Limits.MaxMessageLength = 4000
	config.Storage.MaxConversations = 1000
}

// fillZeroes keeps a partial config file usable: anything the file does
// not set falls back to the default.
func fillZeroes(config *Config) {
	defaults := &Config{}
	setDefaults(defaults)

	if config.ModelSettings.Temperature == 0 {
		config.ModelSettings.Temperature = defaults.ModelSettings.Temperature
	}
	if config.ModelSettings.TopP == 0 {
		config.ModelSettings.TopP = defaults.ModelSettings.TopP
	}
	if config.ModelSettings.MaxTokens == 0 {
		config.ModelSettings.MaxTokens = defaults.ModelSettings.MaxTokens
	}
	if config.LLM.Provider == "" {
		config.LLM.Provider = defaults.LLM.Provider
	}
	if config.LLM.MaxHistory == 0 {
		config.LLM.MaxHistory = defaults.LLM.MaxHistory
	}
	if config.LLM.ContextMessages == 0 {
		config.LLM.ContextMessages = defaults.LLM.ContextMessages
	}
	if config.LLM.TimeoutSeconds == 0 {
		config.LLM.TimeoutSeconds = defaults.LLM.TimeoutSeconds
	}
	if config.Image.OutputDir == "" {
		config.Image.OutputDir = defaults.Image.OutputDir
	}
	if config.Image.Width == 0 {
		config.Image.Width = defaults.Image.Width
	}
	if config.Image.Height == 0 {
		config.Image.Height = defaults.Image.Height
	}
	if config.Image.Steps == 0 {
		config.Image.Steps = defaults.Image.Steps
	}
	if config.Image.CFGScale == 0 {
		config.Image.CFGScale = defaults.Image.CFGScale
	}
	if config.Image.NegativePrompt == "" {
		config.Image.NegativePrompt = defaults.Image.NegativePrompt
	}
	if config.Image.CacheSize == 0 {
		config.Image.CacheSize = defaults.Image.CacheSize
	}
	if config.Limits.MaxMessageLength == 0 {
		config.Limits.MaxMessageLength = defaults.Limits.MaxMessageLength
	}
	if config.Storage.MaxConversations == 0 {
		config.Storage.MaxConversations = defaults.Storage.MaxConversations
	}
}
