package study

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// ErrUnsupported is returned when no extractor accepts the input
var ErrUnsupported = errors.New("unsupported document type")

// Extracted is the plain text pulled out of a document
type Extracted struct {
	Title string
	Text  string
}

// Extractor turns raw document bytes into plain text
type Extractor interface {
	// Name is stored as the document's content type (pdf, html, text)
	Name() string

	// CanHandle reports whether the extractor accepts a file name / MIME type pair
	CanHandle(name, contentType string) bool

	Extract(data []byte) (Extracted, error)
}

// Registry selects an extractor by file name and content type
type Registry struct {
	extractors []Extractor
	fallback   Extractor
}

// NewRegistry creates a registry with the built-in extractors
func NewRegistry() *Registry {
	r := &Registry{fallback: TextExtractor{}}
	r.Register(PDFExtractor{})
	r.Register(HTMLExtractor{})
	return r
}

// Register adds an extractor ahead of the fallback
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Find returns the first extractor accepting the input, or the text fallback
func (r *Registry) Find(name, contentType string) Extractor {
	for _, e := range r.extractors {
		if e.CanHandle(name, contentType) {
			return e
		}
	}
	return r.fallback
}

// PDFExtractor reads the text layer of PDF files
type PDFExtractor struct{}

func (PDFExtractor) Name() string { return "pdf" }

func (PDFExtractor) CanHandle(name, contentType string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") || strings.Contains(contentType, "application/pdf")
}

func (PDFExtractor) Extract(data []byte) (Extracted, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extracted{}, fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return Extracted{}, fmt.Errorf("read pdf text: %w", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return Extracted{}, fmt.Errorf("read pdf text: %w", err)
	}

	return Extracted{
		Title: strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()),
		Text:  normalizeText(string(text)),
	}, nil
}

// HTMLExtractor keeps the visible text of a web page
type HTMLExtractor struct{}

func (HTMLExtractor) Name() string { return "html" }

func (HTMLExtractor) CanHandle(name, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm" || strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml")
}

func (HTMLExtractor) Extract(data []byte) (Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Extracted{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, noscript, iframe, nav, header, footer, aside, form").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	var buf strings.Builder
	for _, n := range root.Nodes {
		visibleText(&buf, n)
	}

	return Extracted{Title: title, Text: normalizeText(buf.String())}, nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"br": true, "blockquote": true, "pre": true, "table": true, "ul": true, "ol": true,
}

// visibleText writes text nodes, breaking lines at block elements
func visibleText(buf *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			buf.WriteString(text)
			buf.WriteString(" ")
		}
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		buf.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(buf, c)
	}
	if block {
		buf.WriteString("\n")
	}
}

// TextExtractor accepts anything that is valid UTF-8
type TextExtractor struct{}

func (TextExtractor) Name() string { return "text" }

func (TextExtractor) CanHandle(name, contentType string) bool { return true }

func (TextExtractor) Extract(data []byte) (Extracted, error) {
	if !utf8.Valid(data) {
		return Extracted{}, fmt.Errorf("%w: binary content", ErrUnsupported)
	}

	text := normalizeText(string(data))
	var title string
	if first, _, _ := strings.Cut(text, "\n"); len(first) <= 120 {
		title = strings.TrimSpace(strings.TrimLeft(first, "# "))
	}
	return Extracted{Title: title, Text: text}, nil
}

// normalizeText trims lines, collapses inner whitespace and keeps single blank
// lines between paragraphs
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
