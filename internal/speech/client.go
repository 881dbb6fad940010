// Package speech converts lesson text to MP3 audio using the Google
// Translate text-to-speech endpoint.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://translate.google.com"
	// MaxChunk is the longest text the endpoint accepts per request.
	MaxChunk = 100
	MIMEType = "audio/mp3"
	FileName = "lesson_audio.mp3"
)

var (
	ErrEmptyText    = errors.New("speech: text is empty")
	ErrLanguage     = errors.New("speech: language must be a two-letter code")
	ErrNotAudio     = errors.New("speech: response is not audio")
	ErrEmptyPayload = errors.New("speech: empty audio")
)

type Client struct {
	log      *slog.Logger
	http     *resty.Client
	validate *validator.Validate
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	r := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetRetryCount(0)
	return &Client{log: log, http: r, validate: validator.New()}
}

// Synthesize returns MP3 bytes for text spoken in lang. Long text is sent in
// chunks and the MP3 frames are concatenated in order; the result never
// touches disk.
func (c *Client) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if err := c.validate.Var(lang, "required,len=2,alpha,lowercase"); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrLanguage, lang)
	}

	parts := Chunks(text, MaxChunk)
	var out bytes.Buffer
	for i, p := range parts {
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ie":      "UTF-8",
				"client":  "tw-ob",
				"tl":      lang,
				"q":       p,
				"total":   strconv.Itoa(len(parts)),
				"idx":     strconv.Itoa(i),
				"textlen": strconv.Itoa(utf8.RuneCountInString(p)),
			}).
			Get("/translate_tts")
		if err != nil {
			return nil, fmt.Errorf("speech chunk %d/%d: %w", i+1, len(parts), err)
		}
		if res.IsError() {
			return nil, fmt.Errorf("speech chunk %d/%d: status %d", i+1, len(parts), res.StatusCode())
		}
		if ct := res.Header().Get("Content-Type"); !strings.HasPrefix(ct, "audio/") {
			return nil, fmt.Errorf("%w: %s", ErrNotAudio, ct)
		}
		out.Write(res.Body())
	}
	if out.Len() == 0 {
		return nil, ErrEmptyPayload
	}
	c.log.Debug("speech synthesized", "lang", lang, "chunks", len(parts), "bytes", out.Len())
	return out.Bytes(), nil
}

// Chunks splits text on whitespace into pieces of at most limit runes.
// Words longer than limit are cut.
func Chunks(text string, limit int) []string {
	var (
		out []string
		cur strings.Builder
		n   int
	)
	flush := func() {
		if n > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, w := range strings.Fields(text) {
		wl := utf8.RuneCountInString(w)
		for wl > limit {
			flush()
			r := []rune(w)
			out = append(out, string(r[:limit]))
			w = string(r[limit:])
			wl -= limit
		}
		switch {
		case n == 0:
		case n+1+wl <= limit:
			cur.WriteByte(' ')
			n++
		default:
			flush()
		}
		cur.WriteString(w)
		n += wl
	}
	flush()
	return out
}
