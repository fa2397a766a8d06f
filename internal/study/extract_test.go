package study

import (
	"errors"
	"strings"
	"testing"
)

const episodeHTML = `<!DOCTYPE html>
<html>
<head><title>Death Note Episode 1</title><style>body { color: red; }</style></head>
<body>
  <nav>Home | Episodes</nav>
  <article>
    <h1>Rebirth</h1>
    <p>Light Yagami finds a   notebook.</p>
    <script>track("view")</script>
    <ul><li>Ryuk watches</li><li>Kira appears</li></ul>
  </article>
  <footer>Copyright</footer>
</body>
</html>`

func TestRegistry_Find(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name, contentType, want string
	}{
		{"script.PDF", "", "pdf"},
		{"https://example.com/download", "application/pdf", "pdf"},
		{"notes.html", "", "html"},
		{"https://example.com/ep1", "text/html; charset=utf-8", "html"},
		{"notes.md", "", "text"},
		{"", "", "text"},
	}
	for _, tt := range tests {
		if got := r.Find(tt.name, tt.contentType).Name(); got != tt.want {
			t.Errorf("Find(%q, %q) = %s, want %s", tt.name, tt.contentType, got, tt.want)
		}
	}
}

func TestHTMLExtractor(t *testing.T) {
	got, err := HTMLExtractor{}.Extract([]byte(episodeHTML))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Title != "Death Note Episode 1" {
		t.Errorf("Title = %q", got.Title)
	}

	want := "Rebirth\n\nLight Yagami finds a notebook.\n\nRyuk watches\n\nKira appears"
	if got.Text != want {
		t.Errorf("Text =\n%q\nwant\n%q", got.Text, want)
	}
	for _, hidden := range []string{"track", "color", "Home", "Copyright"} {
		if strings.Contains(got.Text, hidden) {
			t.Errorf("expected %q to be removed", hidden)
		}
	}
}

func TestHTMLExtractor_NoArticleUsesBody(t *testing.T) {
	got, err := HTMLExtractor{}.Extract([]byte(`<html><body><h1>Plan</h1><div>Study hard</div></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Plan" || got.Text != "Plan\n\nStudy hard" {
		t.Errorf("unexpected extraction: %+v", got)
	}
}

func TestTextExtractor(t *testing.T) {
	got, err := TextExtractor{}.Extract([]byte("# Character Notes\r\n\r\n\r\nLight   Yagami\n  L Lawliet  \n"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Character Notes" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Text != "# Character Notes\n\nLight Yagami\nL Lawliet" {
		t.Errorf("Text = %q", got.Text)
	}

	if _, err := (TextExtractor{}).Extract([]byte{0xff, 0xfe, 0x00, 0x81}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for binary input, got %v", err)
	}
}

func TestPDFExtractor_InvalidInput(t *testing.T) {
	if _, err := (PDFExtractor{}).Extract([]byte("definitely not a pdf")); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestNormalizeText(t *testing.T) {
	in := "  one  two \n\n\n\nthree\n   \nfour  "
	if got := normalizeText(in); got != "one two\n\nthree\n\nfour" {
		t.Errorf("normalizeText = %q", got)
	}
}
