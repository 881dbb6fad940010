package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsilias/ease/internal/failure"
	"github.com/varsilias/ease/internal/models"
	"github.com/varsilias/ease/internal/session"
	"github.com/varsilias/ease/pkg/types"
)

type fakeEngine struct {
	replies []string
	err     error
	prompts []string
	models  []string
}

func (f *fakeEngine) Generate(_ context.Context, cred types.Credential, model, prompt string) (string, time.Duration, error) {
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	if f.err != nil {
		return "", time.Millisecond, f.err
	}
	if len(f.replies) == 0 {
		return "", time.Millisecond, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, time.Millisecond, nil
}

func newController(eng Engine) *Controller {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := models.NewStaticManager([]string{"flash", "pro"})
	return NewController(log, eng, mgr, mgr.Default(), nil)
}

func newSession(withKey bool) *session.Session {
	s := session.NewMemoryStore(0, time.Hour).Open("")
	if withKey {
		s.SetCredential(types.NewCredential("k"))
	}
	return s
}

func TestControllerChat(t *testing.T) {
	t.Run("Should not call the engine without a credential", func(t *testing.T) {
		eng := &fakeEngine{replies: []string{"hi"}}
		sess := newSession(false)
		_, err := newController(eng).Chat(t.Context(), sess, "", "hello")
		require.Error(t, err)
		assert.Equal(t, failure.KindValidation, failure.KindOf(err))
		assert.Empty(t, eng.prompts)
		assert.Len(t, sess.History(), 1)
	})

	t.Run("Should not call the engine for a blank message", func(t *testing.T) {
		eng := &fakeEngine{}
		_, err := newController(eng).Chat(t.Context(), newSession(true), "", "   ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Empty(t, eng.prompts)
	})

	t.Run("Should reject models outside the allow-list", func(t *testing.T) {
		eng := &fakeEngine{}
		_, err := newController(eng).Chat(t.Context(), newSession(true), "gpt-4", "hello")
		assert.ErrorIs(t, err, models.ErrUnknownModel)
		assert.Empty(t, eng.prompts)
	})

	t.Run("Should grow history by one pair per exchange in order", func(t *testing.T) {
		eng := &fakeEngine{replies: []string{"a1", "a2", "a3"}}
		ctrl := newController(eng)
		sess := newSession(true)
		for _, q := range []string{"q1", "q2", "q3"} {
			_, err := ctrl.Chat(t.Context(), sess, "", q)
			require.NoError(t, err)
		}

		h := sess.History()
		require.Len(t, h, 1+2*3)
		want := []string{types.Greeting, "q1", "a1", "q2", "a2", "q3", "a3"}
		for i, m := range h {
			assert.Equal(t, want[i], m.Content)
			if i > 0 {
				assert.False(t, m.Timestamp.Before(h[i-1].Timestamp))
			}
		}
		assert.Equal(t, []string{"flash", "flash", "flash"}, eng.models)
	})

	t.Run("Should send the full history with each prompt", func(t *testing.T) {
		eng := &fakeEngine{replies: []string{"first answer", "second answer"}}
		ctrl := newController(eng)
		sess := newSession(true)
		_, _ = ctrl.Chat(t.Context(), sess, "pro", "first question")
		_, _ = ctrl.Chat(t.Context(), sess, "pro", "second question")
		require.Len(t, eng.prompts, 2)
		assert.Contains(t, eng.prompts[1], "USER: first question\nASSISTANT: first answer\nUSER: second question")
	})

	t.Run("Should leave history untouched when generation fails", func(t *testing.T) {
		eng := &fakeEngine{err: errors.New("quota exceeded")}
		sess := newSession(true)
		_, err := newController(eng).Chat(t.Context(), sess, "", "hello")
		assert.Equal(t, failure.KindGeneration, failure.KindOf(err))
		assert.Contains(t, failure.UserMessage(err), "quota exceeded")
		assert.Len(t, sess.History(), 1)
	})

	t.Run("Should record both turns and flag an empty completion", func(t *testing.T) {
		eng := &fakeEngine{}
		sess := newSession(true)
		reply, err := newController(eng).Chat(t.Context(), sess, "", "hello")
		require.NoError(t, err)
		assert.True(t, reply.Empty)
		h := sess.History()
		require.Len(t, h, 3)
		assert.Equal(t, types.RoleUser, h[1].Role)
		assert.Equal(t, types.RoleAssistant, h[2].Role)
	})
}

func TestEchoEngine(t *testing.T) {
	text, _, err := NewEchoEngine(0).Generate(t.Context(), types.Credential{}, "demo", "SYSTEM: x\nUSER: hi")
	require.NoError(t, err)
	assert.Equal(t, "(demo:demo) you said: hi", text)
}
