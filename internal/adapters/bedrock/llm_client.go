package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/prompt"
	"github.com/mikey/llm-honeypot/internal/utils"
	"go.uber.org/zap"
)

const anthropicVersion = "bedrock-2023-05-31"

// modelInvoker is the part of the bedrockruntime client used here
type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client        modelInvoker
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return newBedrockClient(client, modelID, maxTokens, temperature, topP, maxBodySize, logger, textProcessor)
}

func newBedrockClient(
	client modelInvoker,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify asks the model whether text is a scam
func (c *BedrockClient) Classify(ctx context.Context, text string, history []core.Turn) (*core.ClassificationResult, error) {
	p := prompt.Classification(c.textProcessor.ProcessText(text, c.maxBodySize), history)

	responseText, err := c.invoke(ctx, p, 0)
	if err != nil {
		return nil, err
	}

	result, err := prompt.ParseClassification(responseText, "bedrock:"+c.modelID)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Bedrock classification",
		zap.Bool("is_scam", result.IsScam),
		zap.Float64("confidence", result.Confidence),
		zap.String("scam_type", string(result.ScamType)))

	return result, nil
}

// GeneratePersonaResponse asks the model for the victim persona's next reply
func (c *BedrockClient) GeneratePersonaResponse(ctx context.Context, text string, scamType core.ScamType, history []core.Turn, turnIndex int) (string, error) {
	p := prompt.Persona(c.textProcessor.ProcessText(text, c.maxBodySize), scamType, history, turnIndex)

	responseText, err := c.invoke(ctx, p, c.temperature)
	if err != nil {
		return "", err
	}

	reply := prompt.CleanReply(responseText)
	if reply == "" {
		return "", errors.New("empty persona response from Bedrock")
	}
	return reply, nil
}

func (c *BedrockClient) invoke(ctx context.Context, p prompt.Prompt, temperature float32) (string, error) {
	payload, err := c.payload(p, temperature)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	return c.responseText(resp.Body)
}

// payload builds the request body for the model family
func (c *BedrockClient) payload(p prompt.Prompt, temperature float32) ([]byte, error) {
	switch {
	case c.isClaudeMessagesModel():
		return json.Marshal(map[string]interface{}{
			"anthropic_version": anthropicVersion,
			"system":            p.System,
			"messages": []map[string]string{
				{"role": "user", "content": p.User},
			},
			"max_tokens":  c.maxTokens,
			"temperature": temperature,
			"top_p":       c.topP,
		})
	case c.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"prompt":               "\n\nHuman: " + p.System + "\n\n" + p.User + "\n\nAssistant:",
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          temperature,
			"top_p":                c.topP,
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": p.System + "\n\n" + p.User,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   temperature,
				"topP":          c.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      p.System + "\n\n" + p.User,
			"max_tokens":  c.maxTokens,
			"temperature": temperature,
			"top_p":       c.topP,
		})
	}
}

// responseText pulls the generated text out of a model family's response
func (c *BedrockClient) responseText(body []byte) (string, error) {
	switch {
	case c.isClaudeMessagesModel():
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var b strings.Builder
		for _, block := range claudeResp.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		if b.Len() == 0 {
			return "", errors.New("empty response from Claude model")
		}
		return b.String(), nil

	case c.isAnthropicModel():
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil

	case c.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", errors.New("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil

	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		switch {
		case genericResp.Output != "":
			return genericResp.Output, nil
		case genericResp.Text != "":
			return genericResp.Text, nil
		case genericResp.Response != "":
			return genericResp.Response, nil
		default:
			return string(body), nil
		}
	}
}

// isClaudeMessagesModel reports whether the model only speaks the messages API
func (c *BedrockClient) isClaudeMessagesModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude-3") ||
		strings.HasPrefix(c.modelID, "anthropic.claude-sonnet") ||
		strings.HasPrefix(c.modelID, "anthropic.claude-opus") ||
		strings.HasPrefix(c.modelID, "anthropic.claude-haiku")
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
