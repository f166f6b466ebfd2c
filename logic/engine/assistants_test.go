package engine

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tdr-review/types"

	"github.com/sashabaranov/go-openai"
)

type memFiles map[string][]byte

func (m memFiles) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

// mockAssistantsAPI records the calls made against a fake threads/runs API.
type mockAssistantsAPI struct {
	mu    sync.Mutex
	calls []string
	runs  []map[string]any
	msgs  []map[string]any
	// lastMessage is the decoded body of the last message creation.
	lastMessage map[string]any
	lastRun     map[string]any
}

func (m *mockAssistantsAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.calls = append(m.calls, r.Method+" "+r.URL.Path)

		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token on %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/assistants":
			json.NewEncoder(w).Encode(map[string]any{"id": "asst_new", "object": "assistant"})
		case r.Method == http.MethodPost && r.URL.Path == "/threads":
			json.NewEncoder(w).Encode(map[string]any{"id": "thread_1", "object": "thread"})
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				t.Errorf("file upload should be multipart, got %s", r.Header.Get("Content-Type"))
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "file_1", "object": "file", "purpose": "assistants"})
		case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/messages":
			json.NewDecoder(r.Body).Decode(&m.lastMessage)
			json.NewEncoder(w).Encode(map[string]any{"id": "msg_user", "object": "thread.message", "role": "user"})
		case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/runs":
			json.NewDecoder(r.Body).Decode(&m.lastRun)
			json.NewEncoder(w).Encode(map[string]any{"id": "run_1", "object": "thread.run", "thread_id": "thread_1", "status": "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/threads/thread_1/runs":
			if r.URL.Query().Get("order") != "desc" {
				t.Errorf("runs should be listed newest-first, got order=%q", r.URL.Query().Get("order"))
			}
			json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": m.runs})
		case r.Method == http.MethodGet && r.URL.Path == "/threads/thread_1/messages":
			json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": m.msgs})
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"message":"not found","type":"invalid_request_error"}}`)
		}
	}
}

func newTestAssistants(t *testing.T, api *mockAssistantsAPI, assistantID string) *Assistants {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	a, err := NewAssistants(AssistantsConfig{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		AssistantID: assistantID,
	}, memFiles{"p1/tdr.pdf": []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("NewAssistants: %v", err)
	}
	return a
}

func TestAssistantsRequiresKey(t *testing.T) {
	if _, err := NewAssistants(AssistantsConfig{}, memFiles{}); err == nil {
		t.Error("expected an error without API key")
	}
}

func TestAssistantsSubmitFlow(t *testing.T) {
	api := &mockAssistantsAPI{}
	a := newTestAssistants(t, api, "")
	ctx := context.Background()

	sessionID, err := a.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sessionID != "thread_1" {
		t.Errorf("session id = %q", sessionID)
	}

	jobID, err := a.AttachAndSubmit(ctx, sessionID, types.DocumentRef{Path: "p1/tdr.pdf", Name: "tdr.pdf"}, "analiza", "reglas")
	if err != nil {
		t.Fatalf("AttachAndSubmit: %v", err)
	}
	if jobID != "run_1" {
		t.Errorf("job id = %q", jobID)
	}

	want := []string{
		"POST /threads",
		"POST /assistants",
		"POST /files",
		"POST /threads/thread_1/messages",
		"POST /threads/thread_1/runs",
	}
	if strings.Join(api.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", api.calls, want)
	}

	atts, _ := api.lastMessage["attachments"].([]any)
	if len(atts) != 1 {
		t.Fatalf("expected one attachment, got %v", api.lastMessage["attachments"])
	}
	att := atts[0].(map[string]any)
	if att["file_id"] != "file_1" {
		t.Errorf("attachment file_id = %v", att["file_id"])
	}
	tools := att["tools"].([]any)
	if tools[0].(map[string]any)["type"] != "file_search" {
		t.Errorf("attachment should be declared for file search, got %v", tools)
	}
	if api.lastRun["assistant_id"] != "asst_new" {
		t.Errorf("run assistant_id = %v", api.lastRun["assistant_id"])
	}
	if api.lastRun["additional_instructions"] != "reglas" {
		t.Errorf("rulebook not forwarded: %v", api.lastRun["additional_instructions"])
	}
}

func TestAssistantsReusesConfiguredAssistant(t *testing.T) {
	api := &mockAssistantsAPI{}
	a := newTestAssistants(t, api, "asst_existing")

	if _, err := a.AttachAndSubmit(context.Background(), "thread_1", types.DocumentRef{Path: "p1/tdr.pdf"}, "analiza", ""); err != nil {
		t.Fatalf("AttachAndSubmit: %v", err)
	}
	for _, c := range api.calls {
		if c == "POST /assistants" {
			t.Error("an assistant must not be created when one is configured")
		}
	}
	if api.lastRun["assistant_id"] != "asst_existing" {
		t.Errorf("run assistant_id = %v", api.lastRun["assistant_id"])
	}
}

func TestAssistantsMissingFile(t *testing.T) {
	api := &mockAssistantsAPI{}
	a := newTestAssistants(t, api, "asst_existing")

	if _, err := a.AttachAndSubmit(context.Background(), "thread_1", types.DocumentRef{Path: "nope.pdf"}, "p", ""); err == nil {
		t.Error("expected an error for an unreadable document")
	}
}

func TestAssistantsListJobsMapsStatus(t *testing.T) {
	api := &mockAssistantsAPI{runs: []map[string]any{
		{"id": "run_3", "thread_id": "thread_1", "status": "in_progress", "created_at": 1700000300},
		{"id": "run_2", "thread_id": "thread_1", "status": "completed", "created_at": 1700000200},
		{"id": "run_1", "thread_id": "thread_1", "status": "expired", "created_at": 1700000100},
	}}
	a := newTestAssistants(t, api, "asst_existing")

	jobs, err := a.ListJobs(context.Background(), "thread_1", 20)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	want := []types.JobStatus{types.JobInProgress, types.JobCompleted, types.JobExpired}
	for i, j := range jobs {
		if j.Status != want[i] {
			t.Errorf("jobs[%d].Status = %s, want %s", i, j.Status, want[i])
		}
		if j.SessionID != "thread_1" {
			t.Errorf("jobs[%d].SessionID = %q", i, j.SessionID)
		}
	}
	if jobs[0].CreatedAt.Unix() != 1700000300 {
		t.Errorf("created_at not converted: %v", jobs[0].CreatedAt)
	}
}

func TestAssistantsListMessages(t *testing.T) {
	api := &mockAssistantsAPI{msgs: []map[string]any{
		{
			"id": "msg_2", "role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": map[string]any{"value": `{"entregables":[]}`, "annotations": []any{}}},
				{"type": "image_file", "image_file": map[string]any{"file_id": "file_img"}},
			},
		},
		{
			"id": "msg_1", "role": "user",
			"content": []map[string]any{{"type": "text", "text": map[string]any{"value": "analiza", "annotations": []any{}}}},
		},
	}}
	a := newTestAssistants(t, api, "asst_existing")

	msgs, err := a.ListMessages(context.Background(), "thread_1", 20)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Author != types.AuthorAssistant {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if len(msgs[0].Content) != 2 || msgs[0].Content[0].Text != `{"entregables":[]}` || msgs[0].Content[1].Type != "image_file" {
		t.Errorf("unexpected content segments: %+v", msgs[0].Content)
	}
}

func TestAssistantsRemoteError(t *testing.T) {
	api := &mockAssistantsAPI{}
	a := newTestAssistants(t, api, "asst_existing")

	if _, err := a.ListJobs(context.Background(), "thread_unknown", 20); err == nil {
		t.Error("expected an error for a failing remote call")
	}
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		in   openai.RunStatus
		want types.JobStatus
	}{
		{openai.RunStatusQueued, types.JobSubmitted},
		{openai.RunStatusInProgress, types.JobInProgress},
		{openai.RunStatusRequiresAction, types.JobInProgress},
		{openai.RunStatusCancelling, types.JobInProgress},
		{openai.RunStatusCompleted, types.JobCompleted},
		{openai.RunStatusFailed, types.JobFailed},
		{"incomplete", types.JobFailed},
		{openai.RunStatusCancelled, types.JobCancelled},
		{openai.RunStatusExpired, types.JobExpired},
	}
	for _, tt := range tests {
		if got := runStatus(tt.in); got != tt.want {
			t.Errorf("runStatus(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
