package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	Messages         []bedrockMessage `json:"messages"`
	MaxTokens        int              `json:"max_tokens,omitempty"`
	Temperature      float64          `json:"temperature,omitempty"`
	AnthropicVersion string           `json:"anthropic_version,omitempty"`
	System           string           `json:"system,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// BedrockClient generates text with an Anthropic model on AWS Bedrock.
type BedrockClient struct {
	client  modelInvoker
	modelID string
}

var (
	sharedBedrockMu sync.Mutex
	sharedBedrock   = make(map[string]*BedrockClient)
)

// SharedBedrockClient returns a process-wide client per region and model so
// HTTP connections are pooled.
func SharedBedrockClient(cfg aws.Config, modelID string) *BedrockClient {
	key := fmt.Sprintf("%s|%s", cfg.Region, modelID)

	sharedBedrockMu.Lock()
	defer sharedBedrockMu.Unlock()

	if c, ok := sharedBedrock[key]; ok {
		return c
	}
	c := &BedrockClient{client: bedrockruntime.NewFromConfig(cfg), modelID: modelID}
	sharedBedrock[key] = c
	return c
}

// Generate implements Client.
func (c *BedrockClient) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	request := bedrockRequest{
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
		MaxTokens:        4000,
		Temperature:      0.7,
		AnthropicVersion: "bedrock-2023-05-31",
	}
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke bedrock model: %w", err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(result.Body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return response.Content[0].Text, nil
}
