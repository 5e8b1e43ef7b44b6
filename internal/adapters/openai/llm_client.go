package openai

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/prompt"
	"github.com/mikey/llm-honeypot/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// chatCompleter is the part of the go-openai client used here
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        chatCompleter
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return newOpenAIClient(client, modelName, maxTokens, temperature, topP, maxBodySize, logger, textProcessor)
}

func newOpenAIClient(
	client chatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify asks the model whether text is a scam
func (c *OpenAIClient) Classify(ctx context.Context, text string, history []core.Turn) (*core.ClassificationResult, error) {
	p := prompt.Classification(c.textProcessor.ProcessText(text, c.maxBodySize), history)

	req := c.request(p)
	// classification is a label, not prose; a zero temperature would be
	// dropped from the request by omitempty
	req.Temperature = math.SmallestNonzeroFloat32
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}

	content, id, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := prompt.ParseClassification(content, "openai:"+c.modelName)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("OpenAI classification",
		zap.String("completion_id", id),
		zap.Bool("is_scam", result.IsScam),
		zap.Float64("confidence", result.Confidence),
		zap.String("scam_type", string(result.ScamType)))

	return result, nil
}

// GeneratePersonaResponse asks the model for the victim persona's next reply
func (c *OpenAIClient) GeneratePersonaResponse(ctx context.Context, text string, scamType core.ScamType, history []core.Turn, turnIndex int) (string, error) {
	p := prompt.Persona(c.textProcessor.ProcessText(text, c.maxBodySize), scamType, history, turnIndex)

	content, _, err := c.complete(ctx, c.request(p))
	if err != nil {
		return "", err
	}

	reply := prompt.CleanReply(content)
	if reply == "" {
		return "", errors.New("empty persona response from OpenAI")
	}
	return reply, nil
}

func (c *OpenAIClient) request(p prompt.Prompt) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: p.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: p.User,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", "", errors.New("empty response from OpenAI")
	}

	return resp.Choices[0].Message.Content, resp.ID, nil
}
