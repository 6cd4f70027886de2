// Package bot wires the response pipeline to Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"alicebot/pkg/history"
	"alicebot/pkg/image"
	"alicebot/pkg/persona"
	"alicebot/pkg/roleplay"
)

// Sender is the slice of the Telegram API the handler uses. *bot.Bot
// satisfies it; tests substitute a mock.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

// ModelManager exposes backend model administration for /models and
// /switch. Nil when the backend does not support it.
type ModelManager interface {
	ListModels(ctx context.Context) ([]ModelEntry, error)
	SwitchModel(ctx context.Context, name string) error
	ModelName() string
}

// ModelEntry is one installed model.
type ModelEntry struct {
	Name string
	Size int64
}

// Handler routes Telegram updates into the orchestrator.
type Handler struct {
	orchestrator *roleplay.Orchestrator
	store        history.Store
	models       ModelManager
	images       image.Generator
	rng          *rand.Rand
	imageTimeout time.Duration
}

func NewHandler(orchestrator *roleplay.Orchestrator, store history.Store, models ModelManager, images image.Generator, rng *rand.Rand) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        store,
		models:       models,
		images:       images,
		rng:          rng,
		imageTimeout: 2 * time.Minute,
	}
}

// HandleUpdate is the default handler passed to bot.New.
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.process(ctx, b, update)
}

func (h *Handler) process(ctx context.Context, sender Sender, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if msg.Text != "" && strings.HasPrefix(msg.Text, "/") {
		h.handleCommand(ctx, sender, msg)
		return
	}

	if msg.Text != "" {
		h.handleText(ctx, sender, msg, msg.Text)
		return
	}

	// Media gets a roleplay reaction instead of silence
	if synthetic := describeMedia(msg); synthetic != "" {
		h.handleText(ctx, sender, msg, synthetic)
	}
}

func describeMedia(msg *models.Message) string {
	switch {
	case msg.Sticker != nil:
		return "*отправляет стикер*"
	case len(msg.Photo) > 0:
		return "*отправляет фотографию*"
	case msg.Voice != nil:
		return "*отправляет голосовое сообщение*"
	case msg.Video != nil:
		return "*отправляет видео*"
	default:
		return ""
	}
}

func (h *Handler) handleText(ctx context.Context, sender Sender, msg *models.Message, text string) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	userName := msg.From.FirstName

	sender.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: "typing",
	})

	reply, err := h.orchestrator.Respond(ctx, userID, userName, text)
	if err != nil {
		if errors.Is(err, roleplay.ErrInvalidInput) {
			sender.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "Хм, я не смогла прочитать это сообщение 🙈 Напиши мне текстом?",
			})
			return
		}
		log.Printf("Respond failed for user %d: %v", userID, err)
		return
	}

	if _, err := sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply.Text,
	}); err != nil {
		log.Printf("SendMessage failed for chat %d: %v", chatID, err)
		return
	}

	h.sendImageAsync(sender, chatID, reply.ImagePrompt)
}

// sendImageAsync renders and delivers the portrait without blocking the
// text reply. Failures are logged and swallowed.
func (h *Handler) sendImageAsync(sender Sender, chatID int64, prompt string) {
	if h.images == nil || prompt == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.imageTimeout)
		defer cancel()

		result, err := h.images.Generate(ctx, prompt)
		if err != nil {
			log.Printf("Image generation failed for chat %d: %v", chatID, err)
			return
		}

		f, err := os.Open(result.Path)
		if err != nil {
			log.Printf("Image open failed: %v", err)
			return
		}
		defer f.Close()

		if _, err := sender.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &models.InputFileUpload{Filename: filepath.Base(result.Path), Data: f},
		}); err != nil {
			log.Printf("SendPhoto failed for chat %d: %v", chatID, err)
		}
	}()
}

func (h *Handler) handleCommand(ctx context.Context, sender Sender, msg *models.Message) {
	parts := strings.Fields(msg.Text)
	command := strings.TrimPrefix(parts[0], "/")
	// Strip the @botname suffix used in groups
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	arg := ""
	if len(parts) > 1 {
		arg = strings.Join(parts[1:], " ")
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch command {
	case "start":
		h.cmdStart(ctx, sender, chatID, userID, msg.From.FirstName)
	case "help":
		h.reply(ctx, sender, chatID, helpText())
	case "info":
		h.cmdInfo(ctx, sender, chatID, userID)
	case "question":
		h.cmdQuestion(ctx, sender, chatID, userID)
	case "clear":
		h.cmdClear(ctx, sender, chatID, userID)
	case "mode":
		h.cmdMode(ctx, sender, chatID)
	case "stats":
		h.cmdStats(ctx, sender, chatID)
	case "models":
		h.cmdModels(ctx, sender, chatID)
	case "switch":
		h.cmdSwitch(ctx, sender, chatID, userID, arg)
	case "image":
		h.cmdImage(ctx, sender, chatID, arg)
	case "mood":
		h.cmdMood(ctx, sender, chatID, userID, arg)
	case "scene":
		h.cmdScene(ctx, sender, chatID, userID, arg)
	default:
		h.reply(ctx, sender, chatID, "Не знаю такой команды 🙈 Попробуй /help!")
	}
}

func (h *Handler) reply(ctx context.Context, sender Sender, chatID int64, text string) {
	if _, err := sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.Printf("SendMessage failed for chat %d: %v", chatID, err)
	}
}

func (h *Handler) cmdStart(ctx context.Context, sender Sender, chatID, userID int64, userName string) {
	st := h.store.Persona(userID)
	st.Scene = persona.SceneFirstMeeting
	st.Tier = persona.TierStrangers
	if err := h.store.SetPersona(userID, st); err != nil {
		log.Printf("Persona save failed for user %d: %v", userID, err)
	}

	text, prompt := roleplay.ExtractDirective(persona.WelcomeMessage(userName))
	h.reply(ctx, sender, chatID, text)
	h.sendImageAsync(sender, chatID, prompt)
}

func helpText() string {
	return strings.Join([]string{
		"Я Алиса, давай общаться! 😊 Просто напиши мне что-нибудь!",
		"",
		"Команды:",
		"/start - начать знакомство заново",
		"/question - я задам тебе вопрос",
		"/info - кто я и как у нас дела",
		"/clear - очистить историю беседы",
		"/mode - переключить режим ответов (LLM/шаблоны)",
		"/stats - статистика бота",
		"/models - доступные модели",
		"/switch <имя> - сменить модель",
		"/image <описание> - нарисовать картинку по твоему запросу",
		"/mood <значение> - поменять мое настроение",
		"/scene <значение> - сменить сцену",
	}, "\n")
}

func (h *Handler) cmdInfo(ctx context.Context, sender Sender, chatID, userID int64) {
	st := h.store.Persona(userID)
	model := "—"
	if h.models != nil {
		model = h.models.ModelName()
	}
	h.reply(ctx, sender, chatID, fmt.Sprintf(
		"Я %s, %s!\n\nНастроение: %s\nСцена: %s\nНаши отношения: %s\nСообщений в беседе: %d\nМодель: %s",
		persona.Name, persona.Personality, st.Mood, st.Scene, st.Tier,
		h.store.TotalMessages(userID), model))
}

func (h *Handler) cmdQuestion(ctx context.Context, sender Sender, chatID, userID int64) {
	starter := persona.RandomStarter(h.rng)
	h.reply(ctx, sender, chatID, starter.Text)

	st := h.store.Persona(userID)
	meta := map[string]string{
		"image_prompt": starter.ImagePrompt,
		"mood":         st.Mood,
		"scene":        st.Scene,
	}
	if _, err := h.store.Append(userID, history.RoleAssistant, starter.Text, meta); err != nil {
		log.Printf("History append failed for user %d: %v", userID, err)
	}
	h.sendImageAsync(sender, chatID, starter.ImagePrompt)
}

func (h *Handler) cmdClear(ctx context.Context, sender Sender, chatID, userID int64) {
	if err := h.store.Clear(userID); err != nil {
		log.Printf("History clear failed for user %d: %v", userID, err)
		h.reply(ctx, sender, chatID, "Ой, что-то пошло не так 🙈 Попробуй еще раз?")
		return
	}
	h.reply(ctx, sender, chatID, "🧹 Готово, начнем с чистого листа! О чем поговорим?")
}

func (h *Handler) cmdMode(ctx context.Context, sender Sender, chatID int64) {
	h.orchestrator.SetLLMEnabled(!h.orchestrator.LLMEnabled())
	if h.orchestrator.LLMEnabled() {
		h.reply(ctx, sender, chatID, "🤖 Теперь отвечаю через нейросеть!")
	} else {
		h.reply(ctx, sender, chatID, "📝 Теперь отвечаю по шаблонам!")
	}
}

func (h *Handler) cmdStats(ctx context.Context, sender Sender, chatID int64) {
	stats := h.store.Stats()
	mode := "шаблоны"
	if h.orchestrator.LLMEnabled() {
		mode = "нейросеть"
	}
	model := "—"
	if h.models != nil {
		model = h.models.ModelName()
	}
	h.reply(ctx, sender, chatID, fmt.Sprintf(
		"📊 Статистика:\nБесед: %d\nСообщений в истории: %d\nВсего сообщений: %d\nРежим: %s\nМодель: %s",
		stats.Conversations, stats.Messages, stats.TotalMessages, mode, model))
}

func (h *Handler) cmdModels(ctx context.Context, sender Sender, chatID int64) {
	if h.models == nil {
		h.reply(ctx, sender, chatID, "Управление моделями недоступно для этого бэкенда 🙈")
		return
	}
	entries, err := h.models.ListModels(ctx)
	if err != nil {
		log.Printf("ListModels failed: %v", err)
		h.reply(ctx, sender, chatID, "Не получилось узнать список моделей 😔 Сервер точно запущен?")
		return
	}
	if len(entries) == 0 {
		h.reply(ctx, sender, chatID, "Модели не установлены 🙈")
		return
	}

	current := h.models.ModelName()
	lines := []string{"Доступные модели:"}
	for _, e := range entries {
		marker := "  "
		if e.Name == current {
			marker = "▸ "
		}
		lines = append(lines, fmt.Sprintf("%s%s (%.1f GB)", marker, e.Name, float64(e.Size)/(1<<30)))
	}
	h.reply(ctx, sender, chatID, strings.Join(lines, "\n"))
}

func (h *Handler) cmdSwitch(ctx context.Context, sender Sender, chatID, userID int64, name string) {
	if h.models == nil {
		h.reply(ctx, sender, chatID, "Управление моделями недоступно для этого бэкенда 🙈")
		return
	}
	if name == "" {
		h.reply(ctx, sender, chatID, "Скажи, на какую модель переключиться: /switch <имя>")
		return
	}
	if err := h.models.SwitchModel(ctx, name); err != nil {
		log.Printf("SwitchModel failed: %v", err)
		h.reply(ctx, sender, chatID, fmt.Sprintf("Не получилось переключиться на %s 😔", name))
		return
	}
	// New model, fresh context
	if err := h.store.Clear(userID); err != nil {
		log.Printf("History clear failed for user %d: %v", userID, err)
	}
	h.reply(ctx, sender, chatID, fmt.Sprintf("Переключилась на %s и очистила историю! О чем поговорим?", name))
}

// imagePromptLimit caps a user-supplied /image description.
const imagePromptLimit = 500

// cmdImage renders a picture from the user's own description, outside
// the roleplay pipeline.
func (h *Handler) cmdImage(ctx context.Context, sender Sender, chatID int64, prompt string) {
	if prompt == "" {
		h.reply(ctx, sender, chatID,
			"Скажи, что нарисовать: /image <описание>\n\nНапример: /image красивый закат над морем")
		return
	}
	if h.images == nil {
		h.reply(ctx, sender, chatID, "Генерация изображений сейчас недоступна 🙈")
		return
	}
	if utf8.RuneCountInString(prompt) > imagePromptLimit {
		h.reply(ctx, sender, chatID,
			fmt.Sprintf("Слишком длинное описание 🙈 Уложись в %d символов!", imagePromptLimit))
		return
	}

	h.reply(ctx, sender, chatID, "🎨 Рисую... Это может занять пару минут!")

	go func() {
		genCtx, cancel := context.WithTimeout(context.Background(), h.imageTimeout)
		defer cancel()

		result, err := h.images.Generate(genCtx, prompt)
		if err != nil {
			log.Printf("Image generation failed for chat %d: %v", chatID, err)
			notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer notifyCancel()
			h.reply(notifyCtx, sender, chatID, "Не получилось нарисовать 😔 Попробуй еще раз?")
			return
		}

		f, err := os.Open(result.Path)
		if err != nil {
			log.Printf("Image open failed: %v", err)
			return
		}
		defer f.Close()

		if _, err := sender.SendPhoto(genCtx, &bot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &models.InputFileUpload{Filename: filepath.Base(result.Path), Data: f},
			Caption: fmt.Sprintf("🎨 Промпт: %s\n⏱️ Время: %.1fс", prompt, result.Elapsed.Seconds()),
		}); err != nil {
			log.Printf("SendPhoto failed for chat %d: %v", chatID, err)
		}
	}()
}

func (h *Handler) cmdMood(ctx context.Context, sender Sender, chatID, userID int64, mood string) {
	st := h.store.Persona(userID)
	if err := st.SetMood(mood); err != nil {
		h.reply(ctx, sender, chatID,
			"Такого настроения у меня не бывает 🙈 Варианты: "+strings.Join(persona.Moods(), ", "))
		return
	}
	if err := h.store.SetPersona(userID, st); err != nil {
		log.Printf("Persona save failed for user %d: %v", userID, err)
	}
	h.reply(ctx, sender, chatID, "Настроение теперь: "+mood+" 😉 Чувствуешь разницу?")
}

func (h *Handler) cmdScene(ctx context.Context, sender Sender, chatID, userID int64, scene string) {
	st := h.store.Persona(userID)
	if err := st.SetScene(scene); err != nil {
		h.reply(ctx, sender, chatID,
			"Не знаю такой сцены 🙈 Варианты: "+strings.Join(persona.Scenes(), ", "))
		return
	}
	if err := h.store.SetPersona(userID, st); err != nil {
		log.Printf("Persona save failed for user %d: %v", userID, err)
	}
	h.reply(ctx, sender, chatID, "Сцена теперь: "+scene+" ✨ Продолжим?")
}
