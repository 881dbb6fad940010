package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsilias/ease/pkg/types"
)

func TestCompose(t *testing.T) {
	t.Run("Should carry every exam field and the GDD clause", func(t *testing.T) {
		p := Compose(types.TabExam, Fields{FieldSubject: "Math", FieldTopic: "Algebra", FieldDifficulty: "Easy"})
		for _, want := range []string{"Math", "Algebra", "Easy", GDDClause} {
			assert.Contains(t, p, want)
		}
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		f := Fields{FieldText: "Photosynthesis converts light into chemical energy."}
		assert.Equal(t, Compose(types.TabSimplify, f), Compose(types.TabSimplify, f))
	})

	t.Run("Should put the question before the article", func(t *testing.T) {
		p := Compose(types.TabQA, Fields{FieldQuestion: "Who?", FieldArticle: "Once upon a time"})
		require.Contains(t, p, GDDClause)
		assert.Less(t, strings.Index(p, "USER: Who?"), strings.Index(p, "ARTICLE: Once upon a time"))
	})

	t.Run("Should mention the GDD audience for every generating tab", func(t *testing.T) {
		for _, tab := range types.Tabs() {
			if !tab.NeedsCredential() {
				continue
			}
			assert.Contains(t, Compose(tab, Fields{}), "Global Developmental Delay", tab.String())
		}
	})

	t.Run("Should compose nothing for home", func(t *testing.T) {
		assert.Empty(t, Compose(types.TabHome, Fields{FieldText: "x"}))
	})
}

func TestComposeChat(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleAssistant, Content: types.Greeting},
		{Role: types.RoleUser, Content: "What is 2+2?"},
		{Role: types.RoleAssistant, Content: "It is 4."},
		{Role: types.RoleUser, Content: "And 3+3?"},
	}
	p := ComposeChat(history)

	t.Run("Should start with the system instruction", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(p, "SYSTEM: "))
		assert.Contains(t, p, "Global Developmental Delay")
	})

	t.Run("Should keep turns in chronological order", func(t *testing.T) {
		last := -1
		for _, m := range history {
			i := strings.Index(p, m.Content)
			require.Greater(t, i, last, m.Content)
			last = i
		}
		assert.Contains(t, p, "\nUSER: And 3+3?\nASSISTANT:")
	})
}
