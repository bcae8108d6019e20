package textextract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) (*bytes.Reader, int64) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return bytes.NewReader(buf.Bytes()), int64(buf.Len())
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract(bytes.NewReader(nil), 0, ".txt")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Extract(bytes.NewReader(nil), 0, "text/plain")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractDOCXSinglePage(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"word/document.xml": `<w:document><w:body><w:p><w:r><w:t>Welcome to</w:t></w:r><w:r><w:t>the programme</w:t></w:r></w:p></w:body></w:document>`,
		"word/styles.xml":   `<w:styles/>`,
	})

	pages, err := Extract(r, size, ".docx")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, 1, pages[0].Number)
	require.Equal(t, "Welcome to the programme", pages[0].Text)
}

func TestExtractDOCXMissingBody(t *testing.T) {
	r, size := buildZip(t, map[string]string{"word/styles.xml": `<w:styles/>`})

	_, err := Extract(r, size, "docx")
	require.Error(t, err)
}

func TestExtractPPTXPagePerSlide(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml":           `<p:sld><a:t>second slide</a:t></p:sld>`,
		"ppt/slides/slide1.xml":           `<p:sld><a:t>first slide</a:t></p:sld>`,
		"ppt/slides/slide10.xml":          `<p:sld><a:t>tenth slide</a:t></p:sld>`,
		"ppt/notesSlides/notesSlide1.xml": `<p:notes><a:t>ignored</a:t></p:notes>`,
	})

	pages, err := Extract(r, size, "pptx")
	require.NoError(t, err)
	require.Len(t, pages, 3)

	// Numeric slide order, not lexical file order.
	require.Equal(t, 1, pages[0].Number)
	require.Equal(t, "first slide", pages[0].Text)
	require.Equal(t, 2, pages[1].Number)
	require.Equal(t, "second slide", pages[1].Text)
	require.Equal(t, 10, pages[2].Number)
	require.Equal(t, "tenth slide", pages[2].Text)
}

func TestExtractMimeTypeAliases(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"word/document.xml": `<w:document><w:t>hello</w:t></w:document>`,
	})

	pages, err := Extract(r, size, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "hello", pages[0].Text)
}

func TestExtractCorruptArchive(t *testing.T) {
	data := []byte("not a zip archive")
	_, err := Extract(bytes.NewReader(data), int64(len(data)), ".pptx")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestStripXMLTags(t *testing.T) {
	require.Equal(t, "a b c", stripXMLTags("<x>a</x><y>b</y>c"))
	require.Equal(t, "", stripXMLTags("<selfclosed/>"))
}
