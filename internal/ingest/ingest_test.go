package ingest

import (
	"bytes"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes one page per entry; an empty entry makes a page with no
// text layer.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	f := gofpdf.New("P", "mm", "A4", "")
	f.SetCompression(false)
	f.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		f.AddPage()
		if text != "" {
			f.Text(20, 20, text)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Output(&buf))
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	t.Run("Should return plain text unchanged", func(t *testing.T) {
		got, err := ExtractText(Upload{Name: "a.txt", DeclaredType: "text/plain", Data: []byte("hello")})
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})

	t.Run("Should read markdown as text", func(t *testing.T) {
		got, err := ExtractText(Upload{Name: "notes.md", DeclaredType: "text/markdown", Data: []byte("# Title\n\n• point")})
		require.NoError(t, err)
		assert.Equal(t, "# Title\n\n• point", got)
	})

	t.Run("Should fail invalid utf-8 instead of mangling it", func(t *testing.T) {
		_, err := ExtractText(Upload{Name: "a.txt", DeclaredType: "text/plain", Data: []byte{0x68, 0xff, 0xfe, 0x69}})
		require.ErrorIs(t, err, ErrInvalidUTF8)
	})

	t.Run("Should concatenate pdf pages in order without a separator", func(t *testing.T) {
		data := buildPDF(t, "First", "Second", "Third")
		got, err := ExtractText(Upload{Name: "a.pdf", DeclaredType: MIMEPDF, Data: data})
		require.NoError(t, err)
		assert.Equal(t, "FirstSecondThird", got)
	})

	t.Run("Should let a page without text contribute nothing", func(t *testing.T) {
		data := buildPDF(t, "First", "", "Third")
		got, err := ExtractText(Upload{Name: "a.pdf", DeclaredType: MIMEPDF, Data: data})
		require.NoError(t, err)
		assert.Equal(t, "FirstThird", got)
	})

	t.Run("Should sniff a pdf sent without a declared type", func(t *testing.T) {
		data := buildPDF(t, "Sniffed")
		got, err := ExtractText(Upload{Name: "upload", Data: data})
		require.NoError(t, err)
		assert.Equal(t, "Sniffed", got)
	})

	t.Run("Should fail a corrupt pdf", func(t *testing.T) {
		_, err := ExtractText(Upload{Name: "a.pdf", DeclaredType: MIMEPDF, Data: []byte("%PDF-1.4 garbage")})
		require.ErrorIs(t, err, ErrBadPDF)
	})
}

func TestAllowed(t *testing.T) {
	for name, want := range map[string]bool{
		"story.txt":  true,
		"README.MD":  true,
		"paper.pdf":  true,
		"photo.png":  false,
		"noext":      false,
		"script.exe": false,
	} {
		assert.Equal(t, want, Allowed(name), name)
	}
}

func TestRead(t *testing.T) {
	t.Run("Should return a file at the limit whole", func(t *testing.T) {
		data, err := Read(bytes.NewReader([]byte("0123456789ABCDEF")), 16)
		require.NoError(t, err)
		assert.Equal(t, "0123456789ABCDEF", string(data))
	})

	t.Run("Should reject a file over the limit instead of cutting it", func(t *testing.T) {
		data, err := Read(bytes.NewReader([]byte("0123456789ABCDEF-THE-REST")), 16)
		require.ErrorIs(t, err, ErrTooLarge)
		assert.Nil(t, data)
	})
}
