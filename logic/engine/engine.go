package engine

import (
	"context"
	"fmt"

	"tdr-review/logic/chat"
	"tdr-review/types"
	"tdr-review/vars"
)

// Engine is one generation of the remote document-reasoning API. Listings are newest-first.
type Engine interface {
	CreateSession(ctx context.Context) (string, error)
	// AttachAndSubmit declares doc as a searchable resource of the session and starts
	// one analysis job with prompt and the optional rulebook, returning the job id.
	AttachAndSubmit(ctx context.Context, sessionID string, doc types.DocumentRef, prompt, rulebook string) (string, error)
	ListJobs(ctx context.Context, sessionID string, limit int) ([]types.Job, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]types.Message, error)
	// Model names what produced the answers, recorded with each analysis.
	Model() string
}

// FileReader gives the assistants generation the raw bytes to upload.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// TextSource gives the chat generation the plain text of a document.
type TextSource interface {
	ExtractPlainText(ctx context.Context, path string) (string, error)
}

// New builds the generation selected by cfg.EngineAPI.
func New(ctx context.Context, cfg *vars.Config, files FileReader, text TextSource) (Engine, error) {
	switch cfg.EngineAPI {
	case vars.EngineAssistants:
		return NewAssistants(AssistantsConfig{
			APIKey:         cfg.OpenAIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			AssistantID:    cfg.AssistantID,
			AssistantModel: cfg.AssistantModel,
			RPS:            cfg.EngineRPS,
		}, files)
	case vars.EngineChat:
		cm, err := chat.CreateChatModel(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewChat(cm, cfg.ChatModel, text, cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown engine api %q", cfg.EngineAPI)
	}
}
