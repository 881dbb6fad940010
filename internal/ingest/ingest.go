// Package ingest turns an uploaded article into plain text.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const MIMEPDF = "application/pdf"

var (
	ErrInvalidUTF8 = errors.New("ingest: file is not valid utf-8 text")
	ErrBadPDF      = errors.New("ingest: unreadable pdf")
	ErrUnsupported = errors.New("ingest: only .txt, .md and .pdf files are accepted")
	ErrTooLarge    = errors.New("ingest: file exceeds the upload limit")
)

// Extensions accepted by the upload form.
var Extensions = []string{".txt", ".md", ".pdf"}

// Upload is a file as received from the browser.
type Upload struct {
	Name         string
	DeclaredType string
	Data         []byte
}

// Read returns the whole upload, or ErrTooLarge when it holds more than
// limit bytes. A file is never cut short.
func Read(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// Allowed reports whether name carries one of the accepted extensions.
func Allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ExtractText returns the article text. PDFs are read page by page and
// joined without a separator; everything else must be valid UTF-8.
func ExtractText(u Upload) (string, error) {
	switch mediaType(u) {
	case MIMEPDF:
		return extractPDF(u.Data)
	default:
		if !utf8.Valid(u.Data) {
			return "", ErrInvalidUTF8
		}
		return string(u.Data), nil
	}
}

// mediaType trusts the declared type and only sniffs when the browser sent
// nothing useful.
func mediaType(u Upload) string {
	declared := strings.ToLower(strings.TrimSpace(u.DeclaredType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if strings.EqualFold(filepath.Ext(u.Name), ".pdf") {
		return MIMEPDF
	}
	if mimetype.Detect(u.Data).Is(MIMEPDF) {
		return MIMEPDF
	}
	return "text/plain"
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrBadPDF, rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPDF, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		// A page without a text layer contributes nothing.
		s, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
