// Package tutor implements the single-shot tabs: lesson audio, file Q&A,
// practice exams and text simplification. Each handler gates on its inputs,
// makes at most one generation call and reports failures by kind.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/varsilias/ease/internal/chat"
	"github.com/varsilias/ease/internal/failure"
	"github.com/varsilias/ease/internal/ingest"
	"github.com/varsilias/ease/internal/metrics"
	"github.com/varsilias/ease/internal/prompt"
	"github.com/varsilias/ease/internal/session"
	"github.com/varsilias/ease/pkg/types"
)

var (
	ErrNoCredential = errors.New("api key is required")
	ErrNoFile       = errors.New("an article file is required")
	ErrNoArticle    = errors.New("no text could be extracted from the article")
)

// Synthesizer is the speech adapter.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

type Service struct {
	log      *slog.Logger
	eng      chat.Engine
	tts      Synthesizer
	model    string
	lang     string
	metrics  *metrics.Recorder
	validate *validator.Validate
}

type Options struct {
	Model string
	// Language is the default speech language for lessons.
	Language string
	Metrics  *metrics.Recorder
}

func New(log *slog.Logger, eng chat.Engine, tts Synthesizer, opts Options) *Service {
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &Service{
		log:      log,
		eng:      eng,
		tts:      tts,
		model:    opts.Model,
		lang:     opts.Language,
		metrics:  opts.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Result is a generated text artifact.
type Result struct {
	Tab     types.Tab
	Heading string
	Text    string
	// Empty marks a successful call that produced no text.
	Empty   bool
	Latency time.Duration
}

type LessonRequest struct {
	Subject  string `validate:"required"`
	Topic    string `validate:"required"`
	Language string `validate:"omitempty,len=2,alpha,lowercase"`
}

type LessonResult struct {
	Result
	Audio []byte
}

type QARequest struct {
	Question string `validate:"required"`
	File     ingest.Upload
}

type ExamRequest struct {
	Subject    string           `validate:"required"`
	Topic      string           `validate:"required"`
	Difficulty types.Difficulty `validate:"required,oneof=Easy Medium Hard"`
}

type SimplifyRequest struct {
	Text string `validate:"required"`
}

// Heading is the title rendered above a tab's output.
func Heading(tab types.Tab) string {
	switch tab {
	case types.TabAudio:
		return "Lesson"
	case types.TabQA:
		return "Answer"
	case types.TabExam:
		return "Practice Exam"
	case types.TabSimplify:
		return "Simplified Text"
	case types.TabChat, types.TabHome:
		return ""
	default:
		panic(fmt.Sprintf("tutor: unhandled tab %v", tab))
	}
}

// Lesson writes a lesson and reads it aloud. When synthesis fails the text
// result is still returned alongside the synthesis failure.
func (s *Service) Lesson(ctx context.Context, sess *session.Session, req LessonRequest) (LessonResult, error) {
	req.Subject, req.Topic = strings.TrimSpace(req.Subject), strings.TrimSpace(req.Topic)
	req.Language = strings.TrimSpace(req.Language)
	if err := s.check("lesson", sess, req); err != nil {
		return LessonResult{}, err
	}
	if req.Language == "" {
		req.Language = s.lang
	}

	defer sess.Exclusive()()

	res, err := s.generate(ctx, sess, types.TabAudio, prompt.Fields{
		prompt.FieldSubject: req.Subject,
		prompt.FieldTopic:   req.Topic,
	})
	if err != nil || res.Empty {
		return LessonResult{Result: res}, err
	}

	audio, err := s.tts.Synthesize(ctx, res.Text, req.Language)
	if err != nil {
		s.metrics.ObserveSynthesis(metrics.OutcomeError)
		s.log.Error("speech synthesis", "session", sess.ID, "lang", req.Language, "err", err.Error())
		return LessonResult{Result: res}, failure.Synthesis("lesson", err)
	}
	s.metrics.ObserveSynthesis(metrics.OutcomeOK)
	sess.SetAudio(audio)
	return LessonResult{Result: res, Audio: audio}, nil
}

// Answer extracts the uploaded article and answers a question about it.
func (s *Service) Answer(ctx context.Context, sess *session.Session, req QARequest) (Result, error) {
	req.Question = strings.TrimSpace(req.Question)
	if len(req.File.Data) == 0 {
		return Result{}, failure.Validation("qa", ErrNoFile)
	}
	if !ingest.Allowed(req.File.Name) {
		return Result{}, failure.Validation("qa", ingest.ErrUnsupported)
	}
	if err := s.check("qa", sess, req); err != nil {
		return Result{}, err
	}

	defer sess.Exclusive()()

	article, err := ingest.ExtractText(req.File)
	if err != nil {
		s.log.Warn("article extraction", "session", sess.ID, "file", req.File.Name, "err", err.Error())
		return Result{}, failure.Ingestion("qa", err)
	}
	if strings.TrimSpace(article) == "" {
		return Result{}, failure.Ingestion("qa", ErrNoArticle)
	}
	return s.generate(ctx, sess, types.TabQA, prompt.Fields{
		prompt.FieldQuestion: req.Question,
		prompt.FieldArticle:  article,
	})
}

func (s *Service) Exam(ctx context.Context, sess *session.Session, req ExamRequest) (Result, error) {
	req.Subject, req.Topic = strings.TrimSpace(req.Subject), strings.TrimSpace(req.Topic)
	if err := s.check("exam", sess, req); err != nil {
		return Result{}, err
	}

	defer sess.Exclusive()()

	return s.generate(ctx, sess, types.TabExam, prompt.Fields{
		prompt.FieldSubject:    req.Subject,
		prompt.FieldTopic:      req.Topic,
		prompt.FieldDifficulty: string(req.Difficulty),
	})
}

func (s *Service) Simplify(ctx context.Context, sess *session.Session, req SimplifyRequest) (Result, error) {
	// Whitespace-only text counts as missing; otherwise the layout is kept.
	if strings.TrimSpace(req.Text) == "" {
		req.Text = ""
	}
	if err := s.check("simplify", sess, req); err != nil {
		return Result{}, err
	}

	defer sess.Exclusive()()

	return s.generate(ctx, sess, types.TabSimplify, prompt.Fields{prompt.FieldText: req.Text})
}

// check is the validation gate: required fields and the credential must be
// present before anything leaves the process.
func (s *Service) check(op string, sess *session.Session, req any) error {
	if err := s.validate.Struct(req); err != nil {
		return failure.Validation(op, err)
	}
	if sess.Credential().Empty() {
		return failure.Validation(op, ErrNoCredential)
	}
	return nil
}

func (s *Service) generate(ctx context.Context, sess *session.Session, tab types.Tab, f prompt.Fields) (Result, error) {
	text, latency, err := s.eng.Generate(ctx, sess.Credential(), s.model, prompt.Compose(tab, f))
	if err != nil {
		s.metrics.ObserveGeneration(tab, metrics.OutcomeError, latency)
		s.log.Error("engine call", "tab", tab.Slug(), "session", sess.ID, "err", err.Error())
		return Result{}, failure.Generation(tab.Slug(), err)
	}
	res := Result{Tab: tab, Heading: Heading(tab), Text: text, Latency: latency}
	if strings.TrimSpace(text) == "" {
		res.Empty = true
		s.metrics.ObserveGeneration(tab, metrics.OutcomeEmpty, latency)
	} else {
		s.metrics.ObserveGeneration(tab, metrics.OutcomeOK, latency)
	}
	s.log.Info("generated", "tab", tab.Slug(), "session", sess.ID, "latency_ms", latency.Milliseconds(), "empty", res.Empty)
	return res, nil
}
