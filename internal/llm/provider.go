package llm

import (
	"context"
	"fmt"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/ca-srg/nova/internal/types"
)

// NewFromConfig builds the configured provider wrapped with the LLM timeout.
func NewFromConfig(ctx context.Context, cfg *types.Config, logger *log.Logger) (Client, error) {
	switch cfg.LLMProvider {
	case types.ProviderGemini, "":
		gemini, err := NewGeminiClient(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return Guard(types.ProviderGemini, gemini, cfg.LLMTimeout, logger), nil
	case types.ProviderBedrock:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return Guard(types.ProviderBedrock, SharedBedrockClient(awsCfg, cfg.ChatModel), cfg.LLMTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}
