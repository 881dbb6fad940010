// Package prompt builds the instruction text sent to the generation model.
// Composition is pure: the same tab and fields always give the same prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/varsilias/ease/pkg/types"
)

// Field names understood by Compose.
const (
	FieldSubject    = "subject"
	FieldTopic      = "topic"
	FieldDifficulty = "difficulty"
	FieldQuestion   = "question"
	FieldArticle    = "article"
	FieldText       = "text"
)

// Fields are the user inputs for one request. Callers check required fields
// before composing.
type Fields map[string]string

// GDDClause is carried by every prompt.
const GDDClause = "students with Global Developmental Delay (GDD)"

const chatSystem = "Engage in a helpful conversation with the user, considering they have Global Developmental Delay (GDD). Use short sentences and very simple vocabulary."

// Compose returns the prompt for a single-shot tab. The chat tab composes
// from history instead; see ComposeChat.
func Compose(tab types.Tab, f Fields) string {
	switch tab {
	case types.TabAudio:
		return fmt.Sprintf(
			"Write a simple lesson about %s in the subject of %s and ensure that it is written in a simple manner targeted towards %s.",
			f[FieldTopic], f[FieldSubject], GDDClause,
		)
	case types.TabQA:
		return fmt.Sprintf(
			"SYSTEM: Answer the user's question about the following article in simple terms for %s. Use simpler vocabulary.\nUSER: %s\nARTICLE: %s",
			GDDClause, f[FieldQuestion], f[FieldArticle],
		)
	case types.TabExam:
		return fmt.Sprintf(
			"Generate %s level practice exam questions for %s on the topic of %s. "+
				"Ensure the questions are suitable for %s. "+
				"Generate multiple question types and use very simple vocabulary. "+
				"Add the answers at the end and make sure the questions match the %s difficulty.",
			f[FieldDifficulty], f[FieldSubject], f[FieldTopic], GDDClause, f[FieldDifficulty],
		)
	case types.TabSimplify:
		return fmt.Sprintf(
			"Simplify the following text so that it is easy to understand for %s and respond in the language of the input:\n\n%s",
			GDDClause, f[FieldText],
		)
	case types.TabChat:
		return chatSystem
	case types.TabHome:
		return ""
	default:
		panic(fmt.Sprintf("prompt: unhandled tab %v", tab))
	}
}

// ComposeChat serializes the whole conversation, oldest turn first, after
// the system instruction.
func ComposeChat(history []types.Message) string {
	var b strings.Builder
	b.WriteString("SYSTEM: ")
	b.WriteString(chatSystem)
	for _, m := range history {
		b.WriteByte('\n')
		switch m.Role {
		case types.RoleUser:
			b.WriteString("USER: ")
		case types.RoleAssistant:
			b.WriteString("ASSISTANT: ")
		}
		b.WriteString(m.Content)
	}
	b.WriteString("\nASSISTANT:")
	return b.String()
}
