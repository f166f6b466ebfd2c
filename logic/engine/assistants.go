package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"tdr-review/types"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const assistantName = "Analizador de TDR"

type AssistantsConfig struct {
	APIKey  string
	BaseURL string
	// AssistantID reuses an existing assistant; empty creates one on first use.
	AssistantID    string
	AssistantModel string
	// RPS caps outgoing requests per second; <= 0 disables the limit.
	RPS float64
}

// Assistants drives the threads/runs/messages generation of the OpenAI API.
// A session is a thread and a job is a run.
type Assistants struct {
	client  *openai.Client
	files   FileReader
	limiter *rate.Limiter
	model   string

	mu          sync.Mutex
	assistantID string
}

func NewAssistants(cfg AssistantsConfig, files FileReader) (*Assistants, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	model := cfg.AssistantModel
	if model == "" {
		model = openai.GPT4o
	}

	return &Assistants{
		client:      openai.NewClientWithConfig(clientConfig),
		files:       files,
		limiter:     rate.NewLimiter(limit, 1),
		model:       model,
		assistantID: cfg.AssistantID,
	}, nil
}

func (a *Assistants) Model() string {
	return a.model + "-assistants"
}

func (a *Assistants) wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// ensureAssistant returns the configured assistant, creating it once with file search enabled.
func (a *Assistants) ensureAssistant(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.assistantID != "" {
		return a.assistantID, nil
	}
	if err := a.wait(ctx); err != nil {
		return "", err
	}

	name := assistantName
	resp, err := a.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        a.model,
		Name:         &name,
		Instructions: &prompt,
		Tools:        []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}},
	})
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	a.assistantID = resp.ID
	return a.assistantID, nil
}

func (a *Assistants) CreateSession(ctx context.Context) (string, error) {
	if err := a.wait(ctx); err != nil {
		return "", err
	}
	thread, err := a.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (a *Assistants) AttachAndSubmit(ctx context.Context, sessionID string, doc types.DocumentRef, prompt, rulebook string) (string, error) {
	assistantID, err := a.ensureAssistant(ctx, prompt)
	if err != nil {
		return "", err
	}

	data, err := a.files.ReadFile(ctx, doc.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", doc.Path, err)
	}
	name := doc.Name
	if name == "" {
		name = filepath.Base(doc.Path)
	}

	if err := a.wait(ctx); err != nil {
		return "", err
	}
	file, err := a.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	if err := a.wait(ctx); err != nil {
		return "", err
	}
	_, err = a.client.CreateMessage(ctx, sessionID, openai.MessageRequest{
		Role:    types.AuthorUser,
		Content: prompt,
		Attachments: []openai.ThreadAttachment{{
			FileID: file.ID,
			Tools:  []openai.ThreadAttachmentTool{{Type: string(openai.AssistantToolTypeFileSearch)}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	if err := a.wait(ctx); err != nil {
		return "", err
	}
	run, err := a.client.CreateRun(ctx, sessionID, openai.RunRequest{
		AssistantID:            assistantID,
		AdditionalInstructions: rulebook,
	})
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return run.ID, nil
}

func (a *Assistants) ListJobs(ctx context.Context, sessionID string, limit int) ([]types.Job, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	order := "desc"
	resp, err := a.client.ListRuns(ctx, sessionID, openai.Pagination{Limit: &limit, Order: &order})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	jobs := make([]types.Job, 0, len(resp.Runs))
	for _, r := range resp.Runs {
		jobs = append(jobs, types.Job{
			ID:        r.ID,
			SessionID: r.ThreadID,
			Status:    runStatus(r.Status),
			CreatedAt: time.Unix(r.CreatedAt, 0),
		})
	}
	return jobs, nil
}

func (a *Assistants) ListMessages(ctx context.Context, sessionID string, limit int) ([]types.Message, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	order := "desc"
	resp, err := a.client.ListMessage(ctx, sessionID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs := make([]types.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg := types.Message{ID: m.ID, Author: m.Role}
		for _, c := range m.Content {
			seg := types.ContentSegment{Type: c.Type}
			if c.Text != nil {
				seg.Text = c.Text.Value
			}
			msg.Content = append(msg.Content, seg)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// runStatus folds the run lifecycle onto the engine-neutral job states.
func runStatus(s openai.RunStatus) types.JobStatus {
	switch s {
	case openai.RunStatusQueued:
		return types.JobSubmitted
	case openai.RunStatusInProgress, openai.RunStatusRequiresAction, openai.RunStatusCancelling:
		return types.JobInProgress
	case openai.RunStatusCompleted:
		return types.JobCompleted
	case openai.RunStatusFailed, "incomplete":
		return types.JobFailed
	case openai.RunStatusCancelled:
		return types.JobCancelled
	case openai.RunStatusExpired:
		return types.JobExpired
	default:
		return types.JobInProgress
	}
}
