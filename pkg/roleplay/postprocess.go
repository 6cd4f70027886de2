package roleplay

import (
	"math/rand"
	"regexp"
	"strings"

	"alicebot/pkg/persona"
)

// directiveRegex matches the embedded image directive anywhere in the
// reply, case-insensitively.
var directiveRegex = regexp.MustCompile(`(?i)\[IMAGE_PROMPT:\s*([^\]]*)\]`)

// hookPhrases mark a reply as conversation-continuing even without a
// question mark.
var hookPhrases = []string{
	"расскажи", "поделись", "что думаешь", "как у тебя", "а ты",
	"давай", "может", "предлагаю", "интересно", "что скажешь",
}

// hookSentences are appended when a reply would otherwise end the
// conversation.
var hookSentences = []string{
	"А что ты об этом думаешь? 🤔",
	"Расскажи подробнее, мне правда интересно! ✨",
	"А у тебя как с этим? 😊",
	"Кстати, а что у тебя нового? 💫",
}

var emojiEmotions = []struct {
	emojis  []string
	emotion string
}{
	{[]string{"😊", "😄", "🎉", "✨", "🤗", "😁", "🌟", "💫"}, "happy"},
	{[]string{"😢", "😔", "💔", "😞", "😭"}, "sad"},
	{[]string{"😮", "😲", "🤯", "😱"}, "surprised"},
	{[]string{"😏", "😘", "💖", "🌸", "😉"}, "flirtatious"},
}

var activityKeywords = []struct {
	keywords []string
	activity string
}{
	{[]string{"давай", "играть", "пойдем"}, "active"},
	{[]string{"думаю", "размышля", "интересно"}, "thoughtful"},
	{[]string{"расскажи", "поделись"}, "engaged"},
}

// sceneSuffixes enrich a synthesized prompt with the current scene.
var sceneSuffixes = map[string]string{
	persona.SceneGreeting:   "greeting gesture",
	persona.SceneComforting: "comforting atmosphere",
	persona.SceneFun:        "playful mood",
	persona.SceneFarewell:   "waving goodbye",
	persona.SceneJoy:        "celebrating mood",
	persona.SceneGratitude:  "warm grateful atmosphere",
	persona.SceneCafe:       "cozy cafe setting",
	persona.ScenePark:       "sunny park background",
	persona.SceneHome:       "cozy home interior",
	persona.SceneOffice:     "modern office environment",
	persona.SceneTravel:     "scenic travel backdrop",
}

// Reply is the post-processed result: display text with the directive
// stripped, plus the image prompt (extracted or synthesized).
type Reply struct {
	Text        string
	ImagePrompt string
}

// PostProcessor cleans raw backend output into the reply contract: no
// directive text visible to the user, a hook at the end, and an image
// prompt always present.
type PostProcessor struct {
	rng *rand.Rand
}

func NewPostProcessor(rng *rand.Rand) *PostProcessor {
	return &PostProcessor{rng: rng}
}

// Process extracts the image directive, enforces the hook invariant and
// synthesizes a prompt when the backend did not supply one.
func (p *PostProcessor) Process(raw string, st persona.State) Reply {
	text, prompt := ExtractDirective(raw)
	if prompt == "" {
		// Synthesize from the backend's own words, before any hook
		// sentence with its emoji gets appended
		prompt = SynthesizeDirective(text, st)
	}
	text = p.EnsureHook(text)
	return Reply{Text: text, ImagePrompt: prompt}
}

// ExtractDirective strips every [IMAGE_PROMPT: ...] block from the text
// and returns the first non-empty prompt found.
func ExtractDirective(raw string) (text, prompt string) {
	for _, match := range directiveRegex.FindAllStringSubmatch(raw, -1) {
		if prompt == "" {
			prompt = strings.TrimSpace(match[1])
		}
	}
	text = directiveRegex.ReplaceAllString(raw, "")
	text = strings.TrimSpace(text)
	return text, prompt
}

// HasHook reports whether the text already invites the user to continue.
func HasHook(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lower := strings.ToLower(text)
	for _, phrase := range hookPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// EnsureHook appends a question when the text has no hook. Empty text
// becomes a hook sentence on its own.
func (p *PostProcessor) EnsureHook(text string) string {
	if text != "" && HasHook(text) {
		return text
	}
	hook := hookSentences[p.rng.Intn(len(hookSentences))]
	if text == "" {
		return hook
	}
	return text + " " + hook
}

// SynthesizeDirective builds an English image prompt from the reply's
// emoji, verbs and the current scene.
func SynthesizeDirective(text string, st persona.State) string {
	emotion := "neutral"
	for _, class := range emojiEmotions {
		found := false
		for _, e := range class.emojis {
			if strings.Contains(text, e) {
				emotion = class.emotion
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	activity := "talking"
	lower := strings.ToLower(text)
	for _, class := range activityKeywords {
		found := false
		for _, kw := range class.keywords {
			if strings.Contains(lower, kw) {
				activity = class.activity
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	prompt := "young woman, " + emotion + " expression, " + activity + " pose"
	if suffix, ok := sceneSuffixes[st.Scene]; ok {
		prompt += ", " + suffix
	}
	return prompt + ", casual clothes, warm lighting, portrait"
}

// Assemble renders the wire format: display text followed by a single
// trailing directive.
func Assemble(text, prompt string) string {
	if prompt == "" {
		return text
	}
	return text + "\n\n[IMAGE_PROMPT: " + prompt + "]"
}
