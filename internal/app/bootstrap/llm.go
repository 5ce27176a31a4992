package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/klinikai/internal/assistant"
	appconfig "github.com/wolfman30/klinikai/internal/config"
	"github.com/wolfman30/klinikai/pkg/logging"
)

// BuildLLMClient wires Gemini as the primary model and Bedrock as the
// fallback. Either one alone is enough; with neither configured the chat
// endpoints cannot work, so an error is returned. The returned close func
// is always non-nil.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (assistant.LLMClient, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var bedrock assistant.LLMClient
	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" {
		if awsCfg == nil {
			logger.Warn("bedrock model configured without AWS config; disabling bedrock", "model", model)
		} else {
			bedrock = assistant.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg), model)
		}
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		if bedrock == nil {
			return nil, noop, fmt.Errorf("bootstrap: no LLM configured (set GOOGLE_GENERATIVE_AI_API_KEY or BEDROCK_MODEL_ID)")
		}
		logger.Info("using bedrock LLM", "model", cfg.BedrockModelID)
		return bedrock, noop, nil
	}

	gemini, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, noop, fmt.Errorf("bootstrap: gemini: %w", err)
	}
	closer := func() { _ = gemini.Close() }

	logger.Info("using gemini LLM",
		"model", cfg.GeminiModelID,
		"bedrock_fallback", bedrock != nil,
	)
	if bedrock == nil {
		return gemini, closer, nil
	}
	return assistant.NewFallbackClient(gemini, bedrock, logger), closer, nil
}
