package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

type format struct {
	name    string
	extract func(data []byte) (string, error)
}

var (
	pdfFormat   = format{name: "pdf", extract: extractPDF}
	htmlFormat  = format{name: "html", extract: extractHTML}
	plainFormat = format{name: "text", extract: extractPlain}
)

var formats = map[string]format{
	"application/pdf":       pdfFormat,
	"application/x-pdf":     pdfFormat,
	"text/html":             htmlFormat,
	"application/xhtml+xml": htmlFormat,
	"text/plain":            plainFormat,
	"text/markdown":         plainFormat,
	"text/csv":              plainFormat,
}

func formatFor(mediaType string) (format, bool) {
	f, ok := formats[strings.ToLower(mediaType)]
	return f, ok
}

// SupportedMediaTypes lists the media types Extract accepts.
func SupportedMediaTypes() []string {
	types := make([]string, 0, len(formats))
	for mt := range formats {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

func extractPDF(data []byte) (text string, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	html, err := body.Html()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", err
	}

	lines := strings.Split(markdown, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return strings.Join(result, "\n"), nil
}

func extractPlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}
