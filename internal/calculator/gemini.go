package calculator

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

//go:embed calculation_prompt.txt
var calculationSystemPrompt string

// NewGeminiChatModel builds the eino Gemini chat model used by GeminiProvider.
func NewGeminiChatModel(ctx context.Context, cfg model.GeminiConfig) (*gemini.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating calculation model")
		return nil, fmt.Errorf("error creating calculation model: %w", err)
	}
	return cm, nil
}

// GeminiProvider asks a chat model to evaluate the expression. Its reply is
// treated like any other provider reply and re-checked by the calculator.
type GeminiProvider struct {
	chat      einomodel.BaseChatModel
	modelName string
	tmpl      prompt.ChatTemplate
}

func NewGeminiProvider(chat einomodel.BaseChatModel, modelName string) *GeminiProvider {
	return &GeminiProvider{
		chat:      chat,
		modelName: modelName,
		tmpl: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage(strings.TrimSpace(calculationSystemPrompt)),
			schema.UserMessage("{expression}"),
		),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Evaluate(ctx context.Context, expr string) (string, error) {
	promptCtx := einocb.ReuseHandlers(ctx, &einocb.RunInfo{Name: "CalculationPrompt", Type: "Default", Component: components.ComponentOfPrompt})
	msgs, err := p.tmpl.Format(promptCtx, map[string]any{"expression": expr})
	if err != nil {
		return "", errx.Upstream("calculation prompt failed", err)
	}

	modelCtx := einocb.ReuseHandlers(ctx, &einocb.RunInfo{Name: "CalculationModel", Type: "Gemini", Component: components.ComponentOfChatModel})
	out, err := p.chat.Generate(modelCtx, msgs)
	if err != nil {
		return "", errx.Upstream("calculation provider unavailable", err)
	}
	if out == nil {
		return "", errx.Upstream("calculation provider returned no message", nil)
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		inC, outC, totalC := ComputeCost(usage, ResolvePricing(p.modelName))
		logx.Debug().
			Str("model", p.modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Msg("calculation model usage")
	}
	return strings.TrimSpace(out.Content), nil
}
