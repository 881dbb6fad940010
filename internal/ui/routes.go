package ui

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/varsilias/ease/internal/buildinfo"
	"github.com/varsilias/ease/internal/failure"
	"github.com/varsilias/ease/internal/ingest"
	"github.com/varsilias/ease/internal/session"
	"github.com/varsilias/ease/internal/speech"
	"github.com/varsilias/ease/internal/tutor"
	"github.com/varsilias/ease/pkg/types"
)

const noOutput = "No output generated. Please try again with a different input."

func RegisterRoutes(mux chi.Router, h *UI) {
	mux.Get("/", h.Home)
	mux.Get("/tab/{tab}", h.Tab)
	mux.Post("/ui/credential", h.SetCredential)
	mux.Post("/ui/chat", h.ChatPost)
	mux.Post("/ui/qa", h.QAPost)
	mux.Post("/ui/lesson", h.LessonPost)
	mux.Get("/ui/lesson/"+speech.FileName, h.LessonAudio)
	mux.Post("/ui/exam", h.ExamPost)
	mux.Post("/ui/simplify", h.SimplifyPost)
	mux.Post("/ui/session/new", h.NewSession)
	mux.Get("/ui/version-pill", h.VersionPill)
}

type tabLink struct {
	Slug   string
	Title  string
	Active bool
}

type pageData struct {
	Tab           types.Tab
	Title         string
	Tabs          []tabLink
	HasCredential bool
	SessionTitle  string
	History       []MsgView
	Models        []string
	DefaultModel  string
	Difficulties  []types.Difficulty
	Accept        string
	Version       string
	Commit        string
	BuiltAt       string
}

func (u *UI) Home(w http.ResponseWriter, r *http.Request) {
	u.page(w, r, types.TabHome)
}

// Tab renders one page of the selector: /tab/{chat|qa|audio|exam|simplify}.
func (u *UI) Tab(w http.ResponseWriter, r *http.Request) {
	tab, err := types.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	u.page(w, r, tab)
}

func (u *UI) page(w http.ResponseWriter, r *http.Request, tab types.Tab) {
	sess := mustSession(r)
	data := pageData{
		Tab:           tab,
		Title:         tab.Title(),
		HasCredential: !sess.Credential().Empty(),
		Version:       buildinfo.Version,
		Commit:        buildinfo.Commit,
		BuiltAt:       buildinfo.BuiltAt,
	}
	for _, t := range types.Tabs() {
		data.Tabs = append(data.Tabs, tabLink{Slug: t.Slug(), Title: t.Title(), Active: t == tab})
	}

	var name string
	switch tab {
	case types.TabHome:
		name = "home.html"
	case types.TabChat:
		name = "chat.html"
		for _, m := range sess.History() {
			data.History = append(data.History, MsgView{Role: string(m.Role), HTML: u.mdHTML(m.Content)})
		}
		data.SessionTitle = sess.Title()
		data.Models, _ = u.models.List(r.Context())
		data.DefaultModel = u.chat.DefaultModel()
	case types.TabQA:
		name = "qa.html"
		data.Accept = strings.Join(ingest.Extensions, ",")
	case types.TabAudio:
		name = "audio.html"
	case types.TabExam:
		name = "exam.html"
		data.Difficulties = types.Difficulties()
	case types.TabSimplify:
		name = "simplify.html"
	default:
		panic(fmt.Sprintf("ui: unhandled tab %v", tab))
	}
	u.render(w, name, data, http.StatusOK)
}

// SetCredential stores the API key on the session only.
func (u *UI) SetCredential(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	_ = r.ParseForm()
	sess.SetCredential(types.NewCredential(strings.TrimSpace(r.Form.Get("api_key"))))
	u.log.Info("credential updated", "session", sess.ID, "set", !sess.Credential().Empty())

	back := r.Header.Get("HX-Current-URL")
	if back == "" {
		back = r.Referer()
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if back == "" {
		back = "/"
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// ChatPost returns *two fragments*: user bubble then assistant bubble.
func (u *UI) ChatPost(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	_ = r.ParseForm()
	msg := r.Form.Get("message")

	reply, err := u.chat.Chat(r.Context(), sess, r.Form.Get("model"), msg)
	if err != nil {
		u.render(w, "message.html", MsgView{Role: "assistant", Error: failure.UserMessage(err)}, http.StatusOK)
		return
	}

	user := MsgView{Role: "user", HTML: u.mdHTML(strings.TrimSpace(msg))}
	assistant := MsgView{
		Role:    "assistant",
		HTML:    u.mdHTML(reply.Message.Content),
		Latency: reply.Latency.Milliseconds(),
		At:      reply.Message.Timestamp.Format(time.RFC822),
	}
	if reply.Empty {
		assistant.Notice = noOutput
	}
	var out strings.Builder
	for _, v := range []MsgView{user, assistant} {
		if err := u.tpl.ExecuteTemplate(&out, "message.html", v); err != nil {
			u.errTpl(w, err)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, out.String())
}

func (u *UI) QAPost(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	heading := tutor.Heading(types.TabQA)
	if err := r.ParseMultipartForm(u.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			u.renderResult(w, ResultView{Heading: heading, Error: u.tooLarge()})
			return
		}
		u.renderResult(w, ResultView{Heading: heading, Error: "The upload could not be read."})
		return
	}
	req := tutor.QARequest{Question: r.FormValue("question")}
	if file, header, err := r.FormFile("file"); err == nil {
		data, err := ingest.Read(file, u.maxUpload)
		_ = file.Close()
		switch {
		case errors.Is(err, ingest.ErrTooLarge):
			u.renderResult(w, ResultView{Heading: heading, Error: u.tooLarge()})
			return
		case err != nil:
			u.renderResult(w, ResultView{Heading: heading, Error: "The upload could not be read."})
			return
		}
		req.File = ingest.Upload{Name: header.Filename, DeclaredType: header.Header.Get("Content-Type"), Data: data}
	}

	res, err := u.tutor.Answer(r.Context(), sess, req)
	u.renderResult(w, u.resultView(types.TabQA, res, err))
}

func (u *UI) tooLarge() string {
	return "The file is too large. Uploads are limited to " + byteSize(u.maxUpload) + "."
}

func byteSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func (u *UI) LessonPost(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	_ = r.ParseForm()
	res, err := u.tutor.Lesson(r.Context(), sess, tutor.LessonRequest{
		Subject:  r.Form.Get("subject"),
		Topic:    r.Form.Get("topic"),
		Language: r.Form.Get("language"),
	})
	view := u.resultView(types.TabAudio, res.Result, err)
	if res.Text != "" && !res.Empty {
		view.HTML = u.mdHTML(toMarkdown(res.Text))
	}
	if len(res.Audio) > 0 {
		// cache-busting suffix so the player reloads after a new lesson
		view.AudioURL = fmt.Sprintf("/ui/lesson/%s?v=%d", speech.FileName, time.Now().UnixNano())
		view.Download = "/ui/lesson/" + speech.FileName + "?download=1"
	}
	u.renderResult(w, view)
}

// LessonAudio streams the session's latest lesson audio.
func (u *UI) LessonAudio(w http.ResponseWriter, r *http.Request) {
	audio := mustSession(r).Audio()
	if len(audio) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", speech.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	disposition := "inline"
	if r.URL.Query().Get("download") != "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, speech.FileName))
	_, _ = w.Write(audio)
}

func (u *UI) ExamPost(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	_ = r.ParseForm()
	res, err := u.tutor.Exam(r.Context(), sess, tutor.ExamRequest{
		Subject:    r.Form.Get("subject"),
		Topic:      r.Form.Get("topic"),
		Difficulty: types.Difficulty(r.Form.Get("difficulty")),
	})
	u.renderResult(w, u.resultView(types.TabExam, res, err))
}

func (u *UI) SimplifyPost(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	_ = r.ParseForm()
	res, err := u.tutor.Simplify(r.Context(), sess, tutor.SimplifyRequest{Text: r.Form.Get("text")})
	u.renderResult(w, u.resultView(types.TabSimplify, res, err))
}

// resultView maps an outcome to what the page shows. Failures are inline so
// the session carries on.
func (u *UI) resultView(tab types.Tab, res tutor.Result, err error) ResultView {
	v := ResultView{Heading: tutor.Heading(tab)}
	if err != nil {
		v.Error = failure.UserMessage(err)
	}
	switch {
	case res.Empty:
		v.Notice = noOutput
	case res.Text != "":
		v.HTML = u.mdHTML(res.Text)
	}
	return v
}

func (u *UI) renderResult(w http.ResponseWriter, v ResultView) {
	u.render(w, "result.html", v, http.StatusOK)
}

// NewSession ends the current session and starts a fresh one.
func (u *UI) NewSession(w http.ResponseWriter, r *http.Request) {
	u.sessions.Renew(w, r)
	url := "/tab/chat"

	// If this is an HTMX request, instruct client to redirect
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusNoContent) // 204 + HX-Redirect -> full navigation
		return
	}

	// Fallback for non-HTMX requests
	http.Redirect(w, r, url, http.StatusFound)
}

type versionVM struct {
	Version string
	Commit  string
	BuiltAt string
}

func (u *UI) VersionPill(w http.ResponseWriter, r *http.Request) {
	// Fragment response; avoid caching so rollouts show quickly
	w.Header().Set("Cache-Control", "no-store")

	data := versionVM{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		BuiltAt: buildinfo.BuiltAt,
	}
	u.render(w, "version-pill.html", data, http.StatusOK)
}

func mustSession(r *http.Request) *session.Session {
	s, ok := session.FromContext(r.Context())
	if !ok {
		panic("ui: request without session; mount session middleware")
	}
	return s
}
