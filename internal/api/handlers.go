package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/varsilias/ease/internal/buildinfo"
	"github.com/varsilias/ease/internal/chat"
	"github.com/varsilias/ease/internal/failure"
	"github.com/varsilias/ease/internal/ingest"
	"github.com/varsilias/ease/internal/models"
	"github.com/varsilias/ease/internal/session"
	"github.com/varsilias/ease/internal/speech"
	"github.com/varsilias/ease/internal/tutor"
	"github.com/varsilias/ease/pkg/types"
	"github.com/varsilias/ease/pkg/utils"
)

type Handlers struct {
	log       *slog.Logger
	chat      *chat.Controller
	tutor     *tutor.Service
	models    models.Manager
	maxUpload int64
}

func NewHandlers(log *slog.Logger, chatCtrl *chat.Controller, svc *tutor.Service, manager models.Manager, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handlers{
		log:       log,
		chat:      chatCtrl,
		tutor:     svc,
		models:    manager,
		maxUpload: maxUpload,
	}
}

// Health is a basic liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{
		"status":    true,
		"message":   "ease",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{
		"version":  buildinfo.Version,
		"commit":   buildinfo.Commit,
		"built_at": buildinfo.BuiltAt,
	}

	utils.JSON(w, http.StatusOK, res)
}

// ListModels GET /api/models
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.models.List(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"models":  list,
		"default": h.chat.DefaultModel(),
	})
}

// SetCredential PUT /api/credential { api_key }
func (h *Handlers) SetCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if !decode(w, r, &req) {
		return
	}
	sess := mustSession(r)
	sess.SetCredential(types.NewCredential(strings.TrimSpace(req.APIKey)))
	utils.JSON(w, http.StatusOK, map[string]any{
		"session_id":     sess.ID,
		"has_credential": !sess.Credential().Empty(),
	})
}

// Chat POST /api/chat { model, message }
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model   string `json:"model"`
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	sess := mustSession(r)

	reply, err := h.chat.Chat(r.Context(), sess, req.Model, req.Message)
	if err != nil {
		fail(w, err)
		return
	}

	model := req.Model
	if model == "" {
		model = h.chat.DefaultModel()
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"response":   reply.Message.Content,
		"empty":      reply.Empty,
		"timestamp":  reply.Message.Timestamp.UTC().Format(time.RFC3339),
		"latency_ms": reply.Latency.Milliseconds(),
		"model":      model,
		"session_id": sess.ID,
	})
}

// GetHistory GET /api/history
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	history := sess.History()

	// Shape history for the contract
	out := make([]map[string]string, 0, len(history))
	for _, m := range history {
		out = append(out, map[string]string{"role": string(m.Role), "content": m.Content})
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"title":      sess.Title(),
		"history":    out,
	})
}

// Exam POST /api/exam { subject, topic, difficulty }
func (h *Handlers) Exam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		Topic      string `json:"topic"`
		Difficulty string `json:"difficulty"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.tutor.Exam(r.Context(), mustSession(r), tutor.ExamRequest{
		Subject:    req.Subject,
		Topic:      req.Topic,
		Difficulty: types.Difficulty(req.Difficulty),
	})
	h.result(w, res, err)
}

// Simplify POST /api/simplify { text }
func (h *Handlers) Simplify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.tutor.Simplify(r.Context(), mustSession(r), tutor.SimplifyRequest{Text: req.Text})
	h.result(w, res, err)
}

// Answer POST /api/qa multipart: question, file
func (h *Handlers) Answer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, failure.Validation("qa", ingest.ErrTooLarge))
			return
		}
		utils.Error(w, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}
	req := tutor.QARequest{Question: r.FormValue("question")}
	if file, header, err := r.FormFile("file"); err == nil {
		data, err := ingest.Read(file, h.maxUpload)
		_ = file.Close()
		if err != nil {
			if errors.Is(err, ingest.ErrTooLarge) {
				fail(w, failure.Validation("qa", err))
				return
			}
			utils.Error(w, http.StatusBadRequest, "unreadable upload", nil)
			return
		}
		req.File = ingest.Upload{Name: header.Filename, DeclaredType: header.Header.Get("Content-Type"), Data: data}
	}
	res, err := h.tutor.Answer(r.Context(), mustSession(r), req)
	h.result(w, res, err)
}

// Lesson POST /api/lesson { subject, topic, language }
func (h *Handlers) Lesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject  string `json:"subject"`
		Topic    string `json:"topic"`
		Language string `json:"language"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.tutor.Lesson(r.Context(), mustSession(r), tutor.LessonRequest{
		Subject:  req.Subject,
		Topic:    req.Topic,
		Language: req.Language,
	})
	if err != nil && res.Text == "" {
		fail(w, err)
		return
	}

	body := resultBody(res.Result)
	status := http.StatusOK
	if err != nil {
		// the lesson text survives a synthesis failure
		status = statusFor(err)
		body["error"] = err.Error()
		body["kind"] = failure.KindOf(err).String()
	}
	if len(res.Audio) > 0 {
		body["audio"] = map[string]any{
			"file_name": speech.FileName,
			"mime_type": speech.MIMEType,
			"data":      base64.StdEncoding.EncodeToString(res.Audio),
		}
	}
	utils.JSON(w, status, body)
}

func (h *Handlers) result(w http.ResponseWriter, res tutor.Result, err error) {
	if err != nil {
		fail(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resultBody(res))
}

func resultBody(res tutor.Result) map[string]any {
	return map[string]any{
		"heading":    res.Heading,
		"text":       res.Text,
		"empty":      res.Empty,
		"latency_ms": res.Latency.Milliseconds(),
	}
}

func fail(w http.ResponseWriter, err error) {
	utils.Error(w, statusFor(err), err.Error(), map[string]any{"kind": failure.KindOf(err).String()})
}

func statusFor(err error) int {
	if errors.Is(err, ingest.ErrTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch failure.KindOf(err) {
	case failure.KindValidation:
		return http.StatusBadRequest
	case failure.KindIngestion:
		return http.StatusUnprocessableEntity
	case failure.KindGeneration, failure.KindSynthesis:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(w, http.StatusRequestEntityTooLarge, "request too large", nil)
			return false
		}
		utils.Error(w, http.StatusBadRequest, "invalid json", nil)
		return false
	}
	return true
}

func mustSession(r *http.Request) *session.Session {
	s, ok := session.FromContext(r.Context())
	if !ok {
		panic("api: request without session; mount session middleware")
	}
	return s
}
