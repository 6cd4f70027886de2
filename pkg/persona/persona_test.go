package persona

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForCount(t *testing.T) {
	assert.Equal(t, TierAcquaintances, TierForCount(0))
	assert.Equal(t, TierAcquaintances, TierForCount(5))
	assert.Equal(t, TierBuddies, TierForCount(6))
	assert.Equal(t, TierBuddies, TierForCount(20))
	assert.Equal(t, TierFriends, TierForCount(21))
	assert.Equal(t, TierFriends, TierForCount(50))
	assert.Equal(t, TierCloseFriends, TierForCount(51))
}

func TestUpdateRelationship_NeverDemotes(t *testing.T) {
	st := NewState()
	st.UpdateRelationship(100)
	require.Equal(t, TierCloseFriends, st.Tier)

	// A smaller count (e.g. after history trimming) must not lower the tier
	st.UpdateRelationship(3)
	assert.Equal(t, TierCloseFriends, st.Tier)
}

func TestUpdateRelationship_Monotonic(t *testing.T) {
	st := NewState()
	prev := 0
	for count := 0; count <= 60; count++ {
		st.UpdateRelationship(count)
		rank := map[string]int{
			TierStrangers: 0, TierAcquaintances: 1, TierBuddies: 2,
			TierFriends: 3, TierCloseFriends: 4,
		}[st.Tier]
		assert.GreaterOrEqual(t, rank, prev, "tier dropped at count %d", count)
		prev = rank
	}
}

func TestSetMood(t *testing.T) {
	st := NewState()
	require.NoError(t, st.SetMood(MoodPlayful))
	assert.Equal(t, MoodPlayful, st.Mood)

	err := st.SetMood("angry")
	assert.Error(t, err)
	assert.Equal(t, MoodPlayful, st.Mood, "invalid override must not change state")
}

func TestSetScene(t *testing.T) {
	st := NewState()
	require.NoError(t, st.SetScene(SceneFarewell))
	assert.Equal(t, SceneFarewell, st.Scene)
	assert.Error(t, st.SetScene("battlefield"))
}

func TestSystemPrompt_EmbedsState(t *testing.T) {
	st := State{Mood: MoodSympathetic, Scene: SceneComforting, Tier: TierFriends}
	prompt := SystemPrompt(st, "Иван")

	assert.Contains(t, prompt, Name)
	assert.Contains(t, prompt, "Настроение сейчас: "+MoodSympathetic)
	assert.Contains(t, prompt, "ТЕКУЩАЯ СЦЕНА: "+SceneComforting)
	assert.Contains(t, prompt, "Отношения с собеседником: "+TierFriends)
	assert.Contains(t, prompt, "Имя собеседника: Иван")
	assert.Contains(t, prompt, "[IMAGE_PROMPT:")
}

func TestWelcomeMessage(t *testing.T) {
	msg := WelcomeMessage("Оля")
	assert.Contains(t, msg, "Оля")
	assert.True(t, strings.HasSuffix(msg, "]"), "welcome message ends with an image directive")
	assert.Contains(t, msg, "[IMAGE_PROMPT:")
}

func TestRandomStarter_Deterministic(t *testing.T) {
	a := RandomStarter(rand.New(rand.NewSource(7)))
	b := RandomStarter(rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Text)
	assert.NotEmpty(t, a.ImagePrompt)
	assert.Contains(t, a.Text, "?")
}
