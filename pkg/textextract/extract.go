package textextract

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned when the file type is outside
// {pdf, docx, pptx}.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Page is the text of one page of a source document. Formats without
// page structure collapse to a single page numbered 1; PPTX treats
// each slide as a page.
type Page struct {
	Number int // 1-based
	Text   string
}

// Extract returns page-structured text for the given file type.
func Extract(data io.ReaderAt, size int64, fileType string) ([]Page, error) {
	switch normalizeType(fileType) {
	case "pdf":
		return extractPDF(data, size)
	case "docx":
		return extractDOCX(data, size)
	case "pptx":
		return extractPPTX(data, size)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
}

func SupportedTypes() []string {
	return []string{".pdf", ".docx", ".pptx"}
}

func normalizeType(fileType string) string {
	t := strings.ToLower(strings.TrimPrefix(fileType, "."))
	switch t {
	case "pdf", "application/pdf":
		return "pdf"
	case "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	case "pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return "pptx"
	}
	return t
}

func extractPDF(data io.ReaderAt, size int64) ([]Page, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var pages []Page
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// extractDOCX pulls the document body out of the OOXML archive. Word
// files carry no page breaks we can rely on, so the whole body is a
// single page.
func extractDOCX(data io.ReaderAt, size int64) ([]Page, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		return []Page{{Number: 1, Text: stripXMLTags(string(content))}}, nil
	}
	return nil, fmt.Errorf("open DOCX: no document body found")
}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX treats each slide as one page, so slide ordinals survive
// into chunk page numbers.
func extractPPTX(data io.ReaderAt, size int64) ([]Page, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PPTX: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range reader.File {
		m := slideNameRe.FindStringSubmatch(path.Clean(f.Name))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var pages []Page
	for _, s := range slides {
		content, err := readZipFile(s.file)
		if err != nil {
			return nil, fmt.Errorf("read slide %d: %w", s.num, err)
		}
		pages = append(pages, Page{Number: s.num, Text: stripXMLTags(string(content))})
	}
	return pages, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}
