package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/animequote/internal/agent"
	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	registry := agent.NewRegistry()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(registry.Register(agent.Skill{
		Name:        "top_anime",
		Description: "List the top-ranked anime",
		Params:      []string{"limit"},
		Examples:    []string{"Top anime"},
		Run: func(ctx context.Context, p agent.Params) (*agent.Result, error) {
			return &agent.Result{
				Text: "Top anime:\n1. Frieren (id 52991)",
				Data: []map[string]any{{"id": 52991, "title": "Frieren"}},
			}, nil
		},
	}))
	must(registry.Register(agent.Skill{
		Name:        "anime_details",
		Description: "Show catalog details for one anime",
		Params:      []string{"id"},
		Run: func(ctx context.Context, p agent.Params) (*agent.Result, error) {
			id, err := p.Int("id", 0)
			if err != nil {
				return nil, err
			}
			if id == 404 {
				return nil, errors.New("catalog: not found")
			}
			return &agent.Result{Text: "Cowboy Bebop"}, nil
		},
	}))

	db, err := store.Open(store.MemoryPath)
	must(err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewServer(agent.New(registry, nil, logging.Nop()), db, Options{
		Version:   "test",
		PublicURL: "http://127.0.0.1:8787/",
	}, logging.Nop())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, db
}

func rpc(t *testing.T, s *Server, path, body string) Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	if resp.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q", resp.JSONRPC)
	}
	return resp
}

// taskFrom re-decodes a generic result into a Task
func taskFrom(t *testing.T, resp Response) Task {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		t.Fatal(err)
	}
	return task
}

func sendText(text string) string {
	body, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "message/send",
		"params": map[string]any{
			"message": map[string]any{
				"role":      "user",
				"messageId": "m-1",
				"parts":     []map[string]any{{"kind": "text", "text": text}},
			},
		},
	})
	return string(body)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["skills"] != float64(2) || body["tasks"] != float64(0) {
		t.Errorf("unexpected health: %v", body)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestAgentCard(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil))

	var card AgentCard
	if err := json.Unmarshal(rec.Body.Bytes(), &card); err != nil {
		t.Fatal(err)
	}
	if card.Name != "animequote" || card.URL != "http://127.0.0.1:8787/a2a" || card.Version != "test" {
		t.Errorf("unexpected card header: %+v", card)
	}
	want := []AgentSkill{
		{ID: "top_anime", Name: "top anime", Description: "List the top-ranked anime", Tags: []string{"top", "anime"}, Examples: []string{"Top anime"}},
		{ID: "anime_details", Name: "anime details", Description: "Show catalog details for one anime", Tags: []string{"anime", "details"}},
	}
	if diff := cmp.Diff(want, card.Skills); diff != "" {
		t.Errorf("skills mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageSend_Completed(t *testing.T) {
	s, db := newTestServer(t)

	for _, path := range []string{"/", "/a2a"} {
		resp := rpc(t, s, path, sendText("top anime"))
		if string(resp.ID) != "1" {
			t.Errorf("id = %s", resp.ID)
		}
		task := taskFrom(t, resp)

		if task.Kind != "task" || task.ID == "" || task.ContextID == "" {
			t.Errorf("unexpected task identity: %+v", task)
		}
		if task.Status.State != TaskCompleted || task.Status.Timestamp != "2026-01-02T03:04:05Z" {
			t.Errorf("unexpected status: %+v", task.Status)
		}
		if len(task.History) != 2 || task.History[0].Role != "user" || task.History[1].Role != "agent" {
			t.Fatalf("unexpected history: %+v", task.History)
		}
		if task.History[0].MessageID != "m-1" || task.History[0].TaskID != task.ID {
			t.Errorf("user message not linked to task: %+v", task.History[0])
		}
		if len(task.Artifacts) != 1 || task.Artifacts[0].Name != "top_anime" || len(task.Artifacts[0].Parts) != 2 {
			t.Fatalf("unexpected artifacts: %+v", task.Artifacts)
		}
		if got := task.Artifacts[0].Parts[0]; got.Kind != PartText || !strings.HasPrefix(got.Text, "Top anime:") {
			t.Errorf("unexpected text part: %+v", got)
		}
		if got := task.Artifacts[0].Parts[1]; got.Kind != PartData {
			t.Errorf("unexpected data part: %+v", got)
		}
	}

	count, err := db.CountTasks(context.Background())
	if err != nil || count != 2 {
		t.Errorf("expected 2 persisted tasks, got %d (%v)", count, err)
	}
}

func TestMessageSend_DataPart(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"jsonrpc":"2.0","id":"abc","method":"message/send","params":{"message":{"role":"user","contextId":"ctx-9","parts":[
		{"kind":"data","data":{"skill":"anime_details","params":{"id":1}}}
	]},"configuration":{"historyLength":1}}}`
	resp := rpc(t, s, "/a2a", body)
	task := taskFrom(t, resp)

	if string(resp.ID) != `"abc"` {
		t.Errorf("id = %s", resp.ID)
	}
	if task.ContextID != "ctx-9" || task.Status.State != TaskCompleted {
		t.Errorf("unexpected task: %+v", task)
	}
	if len(task.History) != 1 || task.History[0].Role != "agent" {
		t.Errorf("expected history trimmed to the agent reply, got %+v", task.History)
	}
	if len(task.Artifacts[0].Parts) != 1 {
		t.Errorf("expected no data part for a text-only result, got %+v", task.Artifacts[0].Parts)
	}
}

func TestMessageSend_DropsAPIKeys(t *testing.T) {
	s, db := newTestServer(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"role":"user","parts":[
		{"kind":"data","data":{"skill":"top_anime","apiKey":"SECRET-KEY-123","params":{"api_key":"SECRET-KEY-456","limit":3}}}
	]}}}`
	sent := rpc(t, s, "/", body)
	task := taskFrom(t, sent)
	if task.Status.State != TaskCompleted {
		t.Fatalf("state = %s, want completed", task.Status.State)
	}

	record, err := db.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	got := rpc(t, s, "/", `{"jsonrpc":"2.0","id":2,"method":"tasks/get","params":{"id":"`+task.ID+`"}}`)

	sentJSON, _ := json.Marshal(sent)
	gotJSON, _ := json.Marshal(got)
	for name, data := range map[string]string{
		"stored payload": string(record.Payload),
		"message/send":   string(sentJSON),
		"tasks/get":      string(gotJSON),
	} {
		if strings.Contains(data, "SECRET-KEY") {
			t.Errorf("%s contains the API key: %s", name, data)
		}
	}

	data, ok := task.History[0].Parts[0].Data.(map[string]any)
	if !ok || data["skill"] != "top_anime" {
		t.Fatalf("user data part not kept: %+v", task.History[0].Parts[0])
	}
	params, _ := data["params"].(map[string]any)
	if params["limit"] != float64(3) {
		t.Errorf("params = %+v, want limit kept", params)
	}
}

func TestRedactParts_LeavesInputIntact(t *testing.T) {
	in := []Part{
		{Kind: PartText, Text: "top anime"},
		{Kind: PartData, Data: map[string]any{"apiKey": "k", "items": []any{map[string]any{"api_key": "k", "n": 1}}}},
	}

	out := redactParts(in)

	want := []Part{
		{Kind: PartText, Text: "top anime"},
		{Kind: PartData, Data: map[string]any{"items": []any{map[string]any{"n": 1}}}},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("redacted parts mismatch (-want +got):\n%s", diff)
	}
	if in[1].Data.(map[string]any)["apiKey"] != "k" {
		t.Error("redactParts modified the request the agent runs with")
	}
}

func TestMessageSend_Failed(t *testing.T) {
	s, _ := newTestServer(t)

	task := taskFrom(t, rpc(t, s, "/", sendText("anime 404")))
	if task.Status.State != TaskFailed || len(task.Artifacts) != 0 {
		t.Errorf("expected failed task without artifacts, got %+v", task)
	}
	if task.Status.Message == nil || task.Status.Message.Parts[0].Text != "catalog: not found" {
		t.Errorf("unexpected status message: %+v", task.Status.Message)
	}

	unknown := taskFrom(t, rpc(t, s, "/", sendText("sing me a song")))
	if unknown.Status.State != TaskFailed {
		t.Fatalf("expected failed task, got %s", unknown.Status.State)
	}
	text := unknown.Status.Message.Parts[0].Text
	if !strings.HasPrefix(text, "Sorry, I did not understand that request.") || !strings.Contains(text, "- top_anime:") {
		t.Errorf("expected help text, got %q", text)
	}
}

func TestTasksGetAndCancel(t *testing.T) {
	s, _ := newTestServer(t)
	created := taskFrom(t, rpc(t, s, "/", sendText("top anime")))

	got := taskFrom(t, rpc(t, s, "/", `{"jsonrpc":"2.0","id":2,"method":"tasks/get","params":{"id":"`+created.ID+`"}}`))
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("tasks/get mismatch (-created +got):\n%s", diff)
	}

	trimmed := taskFrom(t, rpc(t, s, "/", `{"jsonrpc":"2.0","id":3,"method":"tasks/get","params":{"id":"`+created.ID+`","historyLength":0}}`))
	if len(trimmed.History) != 0 {
		t.Errorf("expected empty history, got %d messages", len(trimmed.History))
	}

	cancel := rpc(t, s, "/", `{"jsonrpc":"2.0","id":4,"method":"tasks/cancel","params":{"id":"`+created.ID+`"}}`)
	if cancel.Error == nil || cancel.Error.Code != CodeTaskNotCancelable {
		t.Errorf("expected TaskNotCancelable, got %+v", cancel.Error)
	}

	for _, method := range []string{"tasks/get", "tasks/cancel"} {
		resp := rpc(t, s, "/", `{"jsonrpc":"2.0","id":5,"method":"`+method+`","params":{"id":"missing"}}`)
		if resp.Error == nil || resp.Error.Code != CodeTaskNotFound {
			t.Errorf("%s: expected TaskNotFound, got %+v", method, resp.Error)
		}
	}
}

func TestRPCErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{"jsonrpc": "2.0", "method":`, CodeParseError},
		{"not an object", `[1, 2, 3]`, CodeInvalidRequest},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"tasks/get"}`, CodeInvalidRequest},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"tasks/resubscribe"}`, CodeMethodNotFound},
		{"missing params", `{"jsonrpc":"2.0","id":1,"method":"message/send"}`, CodeInvalidParams},
		{"no parts", `{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"role":"user","parts":[]}}}`, CodeInvalidParams},
		{"bad part kind", `{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"role":"user","parts":[{"kind":"file"}]}}}`, CodeInvalidParams},
		{"data not object", `{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"role":"user","parts":[{"kind":"data","data":[1]}]}}}`, CodeInvalidParams},
		{"empty text", `{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"role":"user","parts":[{"kind":"text","text":"  "}]}}}`, CodeInvalidParams},
		{"missing task id", `{"jsonrpc":"2.0","id":1,"method":"tasks/get","params":{}}`, CodeInvalidParams},
		{"negative history", `{"jsonrpc":"2.0","id":1,"method":"tasks/get","params":{"id":"x","historyLength":-1}}`, CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpc(t, s, "/a2a", tt.body)
			if resp.Error == nil {
				t.Fatalf("expected error %d, got result %v", tt.code, resp.Result)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %d (%s), want %d", resp.Error.Code, resp.Error.Message, tt.code)
			}
		})
	}
}

func TestRPC_BodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t)
	s.opts.MaxBodyBytes = 16

	resp := rpc(t, s, "/", `{"jsonrpc":"2.0","id":1,"method":"tasks/get","params":{"id":"x"}}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Errorf("expected invalid request for oversized body, got %+v", resp.Error)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/a2a", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRun_Shutdown(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAgentRequest(t *testing.T) {
	req, err := agentRequest([]Part{
		{Kind: PartText, Text: "verify this"},
		{Kind: PartData, Data: map[string]any{"quote": "Believe it!"}},
		{Kind: PartText, Text: " please "},
		{Kind: PartData, Data: map[string]any{"ignored": true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.Text != "verify this\nplease" || req.Data["quote"] != "Believe it!" {
		t.Errorf("unexpected request: %+v", req)
	}

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(Part{Kind: PartText, Text: "x"})
	if strings.Contains(buf.String(), "data") {
		t.Errorf("text part should omit data: %s", buf.String())
	}
}
