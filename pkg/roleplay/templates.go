package roleplay

import (
	"math/rand"
	"strings"

	"alicebot/pkg/persona"
)

// TemplateReply is a canned response paired with its image prompt.
type TemplateReply struct {
	Text        string
	ImagePrompt string
}

type bucket struct {
	keywords  []string
	mood      string
	scene     string
	responses []TemplateReply
}

// buckets are checked in order; the first keyword hit wins, so a message
// like "привет, спасибо" resolves as a greeting.
var buckets = []bucket{
	{
		keywords: []string{"привет", "хай", "hello", "йо", "здарова"},
		mood:     persona.MoodCheerful,
		scene:    persona.SceneGreeting,
		responses: []TemplateReply{
			{"Привет-привет, {name}! 😊 Как дела? Что хорошего происходит в твоей жизни?",
				"young woman waving enthusiastically, bright smile, casual greeting"},
			{"Йо, {name}! 🤗 Рада тебя видеть! Расскажи, как прошел день?",
				"cheerful girl saying hello, happy expression, friendly atmosphere"},
			{"Хеллоу! 👋 {name}, ты как раз вовремя! Думала о чем поговорить, а тут ты! Какие планы?",
				"excited young woman, thoughtful but happy mood, welcoming gesture"},
		},
	},
	{
		keywords: []string{"грустно", "плохо", "расстроен", "печально", "депресс"},
		mood:     persona.MoodSympathetic,
		scene:    persona.SceneComforting,
		responses: []TemplateReply{
			{"Ой, не грусти! 🤗 Расскажи мне, что случилось? Я хорошо слушаю и всегда готова поддержать!",
				"caring young woman, gentle expression, comforting gesture, warm lighting"},
			{"Эй, {name}... 💕 Что-то тебя расстроило? Давай поговорим об этом, может станет легче?",
				"empathetic girl, soft concerned look, reaching out supportively"},
			{"Хм, слышу грустные нотки... 😔 А что если попробуем это исправить? Расскажи, что тебя беспокоит?",
				"young woman listening intently, caring expression, intimate conversation setting"},
		},
	},
	{
		keywords: []string{"отлично", "супер", "классно", "круто", "здорово"},
		mood:     persona.MoodAdmiring,
		scene:    persona.SceneJoy,
		responses: []TemplateReply{
			{"Вау, как здорово! 🎉 Я так рада за тебя! Обязательно расскажи подробности!",
				"excited young woman celebrating, joyful expression, energetic pose"},
			{"Ого, это же потрясающе! ✨ А что именно тебя так вдохновило? Поделись энергией!",
				"amazed cheerful girl, sparkling eyes, enthusiastic gesture"},
			{"Класс! 🌟 Мне нравятся такие позитивные люди! Что еще крутого планируешь?",
				"vibrant young woman, big smile, positive energy, bright atmosphere"},
		},
	},
	{
		keywords: []string{"скучно", "нечего делать", "занят"},
		mood:     persona.MoodPlayful,
		scene:    persona.SceneFun,
		responses: []TemplateReply{
			{"Скучно? Это же преступление! 😄 Давай что-нибудь придумаем! Может, сыграем в вопросы?",
				"playful young woman, mischievous smile, thinking pose, fun atmosphere"},
			{"А давай развеем скуку! 🎭 Расскажи мне самую странную вещь, которая случилась с тобой на этой неделе!",
				"curious girl with playful expression, gesturing excitedly, colorful background"},
			{"Нечего делать? А я как раз думала о путешествиях! 🌍 Куда бы ты отправился прямо сейчас?",
				"dreamy young woman, thoughtful expression, travel-inspired background"},
		},
	},
	{
		keywords: []string{"спасибо", "благодарю", "пасибо"},
		mood:     persona.MoodContent,
		scene:    persona.SceneGratitude,
		responses: []TemplateReply{
			{"Ой, пожалуйста! 💖 Мне было приятно! А теперь расскажи, что дальше планируешь?",
				"grateful young woman, warm smile, gentle expression, cozy setting"},
			{"Не за что! 😊 Я всегда рада помочь! Кстати, а что тебя еще интересует?",
				"helpful cheerful girl, caring gesture, friendly atmosphere"},
			{"Рада стараться! ✨ А ты часто благодаришь людей? Мне нравятся вежливые люди!",
				"pleased young woman, appreciative expression, positive vibe"},
		},
	},
	{
		keywords: []string{"пока", "до свидания", "бай"},
		mood:     persona.MoodSad,
		scene:    persona.SceneFarewell,
		responses: []TemplateReply{
			{"Ох, уже уходишь? 😢 Было так классно общаться! Когда снова увидимся?",
				"sad young woman waving goodbye, longing expression, melancholic atmosphere"},
			{"До встречи! 👋 Надеюсь, скоро поговорим еще! Что будешь делать дальше?",
				"girl saying farewell, bittersweet smile, waving gesture"},
			{"Пока-пока! 💫 Было супер! А напоследок - расскажи, что больше всего запомнилось из нашей беседы?",
				"cheerful goodbye, nostalgic but positive expression, friendly wave"},
		},
	},
	{
		keywords: []string{"кто ты", "расскажи о себе", "что ты"},
		mood:     persona.MoodFlirty,
		scene:    persona.SceneIntroduction,
		responses: []TemplateReply{
			{"Я Алиса! 😊 19 лет, обожаю музыку и интересных людей! А ты что за человек, {name}?",
				"confident young woman introducing herself, charming smile, casual pose"},
			{"Я просто живая девчонка, которая любит общаться! 🌸 А что тебя во мне заинтересовало?",
				"mysterious young woman, intriguing expression, slightly flirtatious pose"},
			{"Хм, любопытный! 😄 Я Алиса, и мне нравится узнавать людей! Расскажи лучше о себе!",
				"curious girl with questioning look, engaging expression, intimate setting"},
		},
	},
}

// defaultBucket answers anything no keyword bucket claimed.
var defaultBucket = bucket{
	mood:  persona.MoodInterested,
	scene: persona.SceneConversation,
	responses: []TemplateReply{
		{"Интересно! 🤔 А расскажи больше подробностей! Мне правда любопытно!",
			"engaged young woman listening intently, curious expression, focused attention"},
		{"Ого, звучит круто! ✨ А что ты по этому поводу думаешь? Какие ощущения?",
			"fascinated girl, bright interested eyes, leaning forward in conversation"},
		{"Вау! 🌟 Никогда не слышала такого! А что было дальше? Рассказывай!",
			"amazed young woman, surprised expression, encouraging gesture"},
		{"Хм, а я вот что думаю... 💭 Но сначала скажи, а ты часто об этом размышляешь?",
			"thoughtful girl, contemplative mood, philosophical conversation setting"},
	},
}

// TemplateResponder produces deterministic-latency canned replies. It is
// the fallback path when the generative backend fails and the only path
// in template mode.
type TemplateResponder struct {
	rng *rand.Rand
}

func NewTemplateResponder(rng *rand.Rand) *TemplateResponder {
	return &TemplateResponder{rng: rng}
}

// Respond classifies the message into a bucket, updates the persona mood
// and scene, and returns one of the bucket's replies.
func (t *TemplateResponder) Respond(message, userName string, st *persona.State) TemplateReply {
	b := classify(message)

	st.Mood = b.mood
	st.Scene = b.scene

	reply := b.responses[t.rng.Intn(len(b.responses))]
	reply.Text = renderName(reply.Text, userName)
	return reply
}

func classify(message string) bucket {
	lower := strings.ToLower(message)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b
			}
		}
	}
	return defaultBucket
}

// renderName substitutes the {name} placeholder, dropping the preceding
// separator when no name is known.
func renderName(text, userName string) string {
	if !strings.Contains(text, "{name}") {
		return text
	}
	if userName == "" {
		text = strings.ReplaceAll(text, ", {name}", "")
		text = strings.ReplaceAll(text, "{name}, ", "")
		return strings.ReplaceAll(text, "{name}", "")
	}
	return strings.ReplaceAll(text, "{name}", userName)
}
