package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/animequote/internal/agent"
	"github.com/ppiankov/animequote/internal/model"
)

// execute runs the root command against a fake quote service
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quotes" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `[{"quote":"I'll become the god of this new world","anime":"Death Note","character":"Light Yagami"}]`)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("ANIMEQUOTE_QUOTES_BASE_URL", srv.URL)
	t.Setenv("ANIMEQUOTE_CACHE_ENABLED", "false")
	t.Setenv("ANIMEQUOTE_LLM_PROVIDER", "")
	t.Setenv("ANIMEQUOTE_LOGGING_LEVEL", "error")
	t.Cleanup(func() {
		asJSON = false
		character, anime = "", ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "animequote "+Version+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestVerifyCommand(t *testing.T) {
	out, err := execute(t, "verify", "I'll become the god of this new world", "--character", "Light Yagami")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "✓ Quote verified!") {
		t.Errorf("expected verified summary, got:\n%s", out)
	}
	if !strings.Contains(out, "Light Yagami (Death Note)") {
		t.Errorf("expected match line, got:\n%s", out)
	}
}

func TestVerifyCommand_NothingToVerify(t *testing.T) {
	_, err := execute(t, "verify")
	if err == nil || !strings.Contains(err.Error(), "nothing to verify") {
		t.Fatalf("err = %v, want nothing to verify", err)
	}
}

func TestQuotesCharacterCommand_JSON(t *testing.T) {
	out, err := execute(t, "quotes", "character", "Light", "Yagami", "--json")
	if err != nil {
		t.Fatalf("quotes character: %v", err)
	}

	var records []model.QuoteRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("output is not a JSON record list: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].Character != "Light Yagami" {
		t.Errorf("records = %+v", records)
	}
}

func TestPrintResult(t *testing.T) {
	t.Cleanup(func() { asJSON = false })

	var b bytes.Buffer
	asJSON = false
	if err := printResult(&b, &agent.Result{Text: "hello", Data: []int{1}}); err != nil {
		t.Fatal(err)
	}
	if b.String() != "hello\n" {
		t.Errorf("text output = %q", b.String())
	}

	b.Reset()
	asJSON = true
	if err := printResult(&b, &agent.Result{Text: "only text"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), `"text": "only text"`) {
		t.Errorf("json output = %q", b.String())
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		configured, addr, want string
	}{
		{"https://quotes.example.com", ":8787", "https://quotes.example.com"},
		{"", ":9090", "http://localhost:9090"},
		{"", "0.0.0.0:8787", "http://0.0.0.0:8787"},
	}
	for _, tt := range tests {
		if got := publicURL(tt.configured, tt.addr); got != tt.want {
			t.Errorf("publicURL(%q, %q) = %q, want %q", tt.configured, tt.addr, got, tt.want)
		}
	}
}

func TestIsURL(t *testing.T) {
	if !isURL("https://example.com/a.pdf") || isURL("notes/a.pdf") || isURL("ftp://example.com") {
		t.Error("isURL classification is wrong")
	}
}
