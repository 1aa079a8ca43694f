package openaiprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tinyland-inc/parlor/pkg/providers/protocoltypes"
)

type (
	Message       = protocoltypes.Message
	StreamHandler = protocoltypes.StreamHandler
)

type Provider struct {
	client openai.Client
}

func NewProvider(apiKey string) *Provider {
	return NewProviderWithBaseURL(apiKey, "")
}

func NewProviderWithBaseURL(apiKey, apiBase string) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimSpace(apiBase); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &Provider{client: openai.NewClient(opts...)}
}

// Stream runs a streamed chat completion and returns the full text.
func (p *Provider) Stream(
	ctx context.Context,
	messages []Message,
	model string,
	maxTokens int,
	onDelta StreamHandler,
) (string, error) {
	if model == "" {
		model = p.DefaultModel()
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            buildMessages(messages),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("openai streaming call: %w", err)
	}
	return sb.String(), nil
}

func (p *Provider) DefaultModel() string {
	return "gpt-4o-mini"
}

func buildMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
