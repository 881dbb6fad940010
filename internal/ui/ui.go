package ui

import (
	"bytes"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/varsilias/ease/internal/chat"
	"github.com/varsilias/ease/internal/models"
	"github.com/varsilias/ease/internal/session"
	"github.com/varsilias/ease/internal/tutor"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

type UI struct {
	log       *slog.Logger
	tpl       *template.Template
	chat      *chat.Controller
	tutor     *tutor.Service
	models    models.Manager
	sessions  *session.Manager
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	maxUpload int64
}

type Deps struct {
	Chat      *chat.Controller
	Tutor     *tutor.Service
	Models    models.Manager
	Sessions  *session.Manager
	MaxUpload int64
}

// New parses the page templates and partials from assets.
func New(log *slog.Logger, assets fs.FS, d Deps) (*UI, error) {
	t := template.New("root")
	var err error
	if t, err = t.ParseFS(assets, "templates/*.html"); err != nil {
		return nil, err
	}
	if t, err = t.ParseFS(assets, "templates/partials/*.html"); err != nil {
		return nil, err
	}

	md := goldmark.New(
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle("dracula"),
				highlighting.WithFormatOptions(
					// Use inline styles so we don’t need an external CSS file
					chromahtml.WithLineNumbers(false),
				),
			),
		),
	)

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("code", "pre", "span")
	p.AllowAttrs("style").OnElements("span", "pre") // enable inline styles from highlighter

	if d.MaxUpload <= 0 {
		d.MaxUpload = 10 << 20
	}
	return &UI{
		log:       log,
		tpl:       t,
		chat:      d.Chat,
		tutor:     d.Tutor,
		models:    d.Models,
		sessions:  d.Sessions,
		md:        md,
		policy:    p,
		maxUpload: d.MaxUpload,
	}, nil
}

type MsgView struct {
	Role    string
	HTML    template.HTML
	Latency int64
	At      string
	Notice  string
	Error   string
}

// ResultView is one generated artifact rendered under its heading.
type ResultView struct {
	Heading  string
	HTML     template.HTML
	Notice   string
	Error    string
	AudioURL string
	Download string
}

// toMarkdown normalises bullet glyphs models like to emit and quotes the
// whole block, which is how lessons are presented.
func toMarkdown(text string) string {
	text = strings.ReplaceAll(text, "•", "  *")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

func (u *UI) mdHTML(src string) template.HTML {
	var buf bytes.Buffer
	if err := u.md.Convert([]byte(src), &buf); err != nil {
		u.log.Warn("markdown convert", "err", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(u.policy.SanitizeBytes(buf.Bytes()))
}

func (u *UI) render(w http.ResponseWriter, name string, data any, status int) {
	var buf bytes.Buffer
	if err := u.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		u.errTpl(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (u *UI) errTpl(w http.ResponseWriter, err error) {
	u.log.Error("template execute", "err", err)
	http.Error(w, "template error", http.StatusInternalServerError)
}
