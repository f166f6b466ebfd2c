package chat

import (
	"context"
	"fmt"

	"tdr-review/vars"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// CreateOpenAIChatModel also serves OpenAI-compatible gateways through baseURL.
func CreateOpenAIChatModel(ctx context.Context, apiKey, baseURL, modelName string) (model.ToolCallingChatModel, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return chatModel, nil
}

// CreateChatModel picks the backend named by cfg.ChatProvider.
func CreateChatModel(ctx context.Context, cfg *vars.Config) (model.ToolCallingChatModel, error) {
	switch cfg.ChatProvider {
	case vars.ProviderOllama:
		return CreateOllamaChatModel(ctx, cfg.OllamaPath, cfg.ChatModel)
	case vars.ProviderOpenAI:
		return CreateOpenAIChatModel(ctx, cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.ChatModel)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.ChatProvider)
	}
}
