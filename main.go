package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/joho/godotenv"

	"alicebot/pkg/bot"
	"alicebot/pkg/cache"
	"alicebot/pkg/config"
	"alicebot/pkg/history"
	"alicebot/pkg/image"
	"alicebot/pkg/llm"
	"alicebot/pkg/ollama"
	"alicebot/pkg/openaicompat"
	"alicebot/pkg/roleplay"
)

func main() {
	// Load config.yml
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load .env for secrets
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("Missing required environment variable: TELEGRAM_BOT_TOKEN")
	}

	params := llm.Params{
		Temperature: cfg.ModelSettings.Temperature,
		TopP:        cfg.ModelSettings.TopP,
		MaxTokens:   cfg.ModelSettings.MaxTokens,
	}

	// Initialize the generative backend
	var backendClient llm.Client
	var modelManager bot.ModelManager
	switch cfg.LLM.Provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			log.Fatal("Missing required environment variable: OPENAI_API_KEY")
		}
		backendClient = openaicompat.NewClient(os.Getenv("OPENAI_BASE_URL"), apiKey, cfg.LLM.Model)
		log.Printf("Using OpenAI-compatible backend (model: %s)", cfg.LLM.Model)
	case "ollama", "":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		ollamaClient := ollama.NewClient(host, cfg.LLM.Model)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ollamaClient.EnsureModel(ctx); err != nil {
			log.Printf("Ollama not ready (%v), starting in template mode", err)
		} else {
			log.Printf("Using Ollama backend at %s (model: %s)", host, ollamaClient.ModelName())
		}
		cancel()
		backendClient = ollamaClient
		modelManager = bot.OllamaModels{Client: ollamaClient}
	default:
		log.Fatalf("Unknown llm provider: %q", cfg.LLM.Provider)
	}

	// Initialize the conversation store, with an optional Redis mirror
	var store history.Store = history.NewMemoryStore(cfg.LLM.MaxHistory, cfg.Storage.MaxConversations)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisCache, err := cache.NewRedisCache(redisURL, "alice")
		if err != nil {
			log.Printf("Redis unavailable (%v), running without history mirror", err)
		} else {
			defer redisCache.Close()
			store = history.NewCachedStore(store, redisCache, cfg.LLM.MaxHistory)
			log.Println("Redis history mirror enabled")
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	backend := roleplay.NewBackendResponder(backendClient, params, cfg.LLM.ContextMessages)
	orchestrator := roleplay.NewOrchestrator(
		store,
		backend,
		roleplay.NewTemplateResponder(rng),
		roleplay.NewPostProcessor(rng),
		time.Duration(cfg.LLM.TimeoutSeconds)*time.Second,
		cfg.Limits.MaxMessageLength,
		cfg.LLM.ContextMessages,
	)

	// Optional image generation through a Stable Diffusion WebUI
	var generator image.Generator
	if cfg.Image.Enabled {
		sdURL := os.Getenv("SD_WEBUI_URL")
		if sdURL == "" {
			sdURL = "http://localhost:7860"
		}
		sdClient := image.NewClient(sdURL, cfg.Image.OutputDir, image.Options{
			Width:          cfg.Image.Width,
			Height:         cfg.Image.Height,
			Steps:          cfg.Image.Steps,
			CFGScale:       cfg.Image.CFGScale,
			NegativePrompt: cfg.Image.NegativePrompt,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sdClient.Ping(ctx); err != nil {
			log.Printf("SD WebUI unavailable (%v), image generation disabled", err)
		} else {
			generator = image.NewCachedGenerator(sdClient, cfg.Image.CacheSize)
			log.Printf("Image generation enabled via %s", sdURL)
		}
		cancel()
	}

	handler := bot.NewHandler(orchestrator, store, modelManager, generator, rng)

	b, err := tgbot.New(token, tgbot.WithDefaultHandler(handler.HandleUpdate))
	if err != nil {
		log.Fatalf("Error creating Telegram bot: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("Alice is now running. Press CTRL-C to exit.")
	b.Start(ctx)

	log.Println("Shutting down")
}
