package roleplay

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"alicebot/pkg/persona"
)

func newTestPostProcessor() *PostProcessor {
	return NewPostProcessor(rand.New(rand.NewSource(1)))
}

func TestExtractDirective(t *testing.T) {
	text, prompt := ExtractDirective("Привет! Как дела?\n[IMAGE_PROMPT: young woman waving]")
	assert.Equal(t, "Привет! Как дела?", text)
	assert.Equal(t, "young woman waving", prompt)
}

func TestExtractDirective_CaseInsensitiveAndInline(t *testing.T) {
	text, prompt := ExtractDirective("До встречи! [image_prompt: girl waving goodbye] Пока!")
	assert.Equal(t, "До встречи!  Пока!", text)
	assert.Equal(t, "girl waving goodbye", prompt)
}

func TestExtractDirective_MultipleKeepsFirst(t *testing.T) {
	raw := "Раз [IMAGE_PROMPT: first prompt] два [IMAGE_PROMPT: second prompt]"
	text, prompt := ExtractDirective(raw)
	assert.Equal(t, "first prompt", prompt)
	assert.NotContains(t, text, "IMAGE_PROMPT")
}

func TestExtractDirective_None(t *testing.T) {
	text, prompt := ExtractDirective("Просто текст без директивы")
	assert.Equal(t, "Просто текст без директивы", text)
	assert.Empty(t, prompt)
}

func TestExtractDirective_EmptyPrompt(t *testing.T) {
	text, prompt := ExtractDirective("Привет? [IMAGE_PROMPT:   ]")
	assert.Equal(t, "Привет?", text)
	assert.Empty(t, prompt)
}

func TestHasHook(t *testing.T) {
	assert.True(t, HasHook("Как дела?"))
	assert.True(t, HasHook("Расскажи мне о себе!"))
	assert.True(t, HasHook("А ты молодец."))
	assert.False(t, HasHook("Все нормально."))
	assert.False(t, HasHook("Хорошо."))
}

func TestEnsureHook_AppendsWhenMissing(t *testing.T) {
	p := newTestPostProcessor()
	out := p.EnsureHook("Все нормально.")
	assert.True(t, strings.HasPrefix(out, "Все нормально. "))
	assert.True(t, HasHook(out))
}

func TestEnsureHook_KeepsExisting(t *testing.T) {
	p := newTestPostProcessor()
	assert.Equal(t, "Как дела?", p.EnsureHook("Как дела?"))
}

func TestEnsureHook_EmptyText(t *testing.T) {
	p := newTestPostProcessor()
	out := p.EnsureHook("")
	assert.NotEmpty(t, out)
	assert.True(t, HasHook(out))
}

func TestSynthesizeDirective_Emotions(t *testing.T) {
	st := persona.NewState()
	cases := []struct {
		text    string
		emotion string
	}{
		{"Как здорово! 🎉", "happy"},
		{"Мне так жаль... 😢", "sad"},
		{"Ого! 😮", "surprised"},
		{"Ну привет 😏", "flirtatious"},
		{"Все нормально.", "neutral"},
	}
	for _, tc := range cases {
		prompt := SynthesizeDirective(tc.text, st)
		assert.Contains(t, prompt, tc.emotion+" expression", "text %q", tc.text)
	}
}

func TestSynthesizeDirective_Activities(t *testing.T) {
	st := persona.NewState()
	assert.Contains(t, SynthesizeDirective("Давай сыграем!", st), "active pose")
	assert.Contains(t, SynthesizeDirective("Я думаю о разном", st), "thoughtful pose")
	assert.Contains(t, SynthesizeDirective("Расскажи мне все", st), "engaged pose")
	assert.Contains(t, SynthesizeDirective("Все нормально.", st), "talking pose")
}

func TestSynthesizeDirective_SceneSuffix(t *testing.T) {
	st := persona.NewState()
	st.Scene = persona.SceneFarewell
	prompt := SynthesizeDirective("Пока.", st)
	assert.Contains(t, prompt, "waving goodbye")
	assert.True(t, strings.HasSuffix(prompt, "casual clothes, warm lighting, portrait"))

	st.Scene = persona.SceneCafe
	assert.Contains(t, SynthesizeDirective("Сидим?", st), "cozy cafe setting")
}

func TestProcess_ScenarioNeutralText(t *testing.T) {
	// "Все нормально." has no hook and no directive: the hook is
	// appended and a neutral prompt synthesized
	p := newTestPostProcessor()
	reply := p.Process("Все нормально.", persona.NewState())

	assert.True(t, strings.HasPrefix(reply.Text, "Все нормально."))
	assert.True(t, HasHook(reply.Text))
	assert.Contains(t, reply.ImagePrompt, "neutral expression")
	assert.Contains(t, reply.ImagePrompt, "talking pose")
}

func TestProcess_AppendedHookDoesNotColorPrompt(t *testing.T) {
	// Every hook sentence carries an emoji; none of them may shift the
	// synthesized emotion away from what the backend actually wrote
	for seed := int64(0); seed < 20; seed++ {
		p := NewPostProcessor(rand.New(rand.NewSource(seed)))
		reply := p.Process("Все нормально.", persona.NewState())
		assert.Contains(t, reply.ImagePrompt, "neutral expression", "seed %d text %q", seed, reply.Text)
	}
}

func TestProcess_ScenarioDirectivePresent(t *testing.T) {
	p := newTestPostProcessor()
	reply := p.Process("Привет! Как дела?\n[IMAGE_PROMPT: young woman waving]", persona.NewState())

	assert.Equal(t, "Привет! Как дела?", reply.Text)
	assert.Equal(t, "young woman waving", reply.ImagePrompt)
}

func TestAssemble(t *testing.T) {
	out := Assemble("Как дела?", "young woman waving")
	assert.Equal(t, "Как дела?\n\n[IMAGE_PROMPT: young woman waving]", out)
	assert.Equal(t, "Как дела?", Assemble("Как дела?", ""))
}

func TestAssemble_RoundTrip(t *testing.T) {
	text, prompt := ExtractDirective(Assemble("Как дела?", "young woman waving"))
	assert.Equal(t, "Как дела?", text)
	assert.Equal(t, "young woman waving", prompt)
}
