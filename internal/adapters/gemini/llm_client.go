package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/prompt"
	"github.com/mikey/llm-honeypot/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// contentGenerator is the part of genai.GenerativeModel used here
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	classifier    contentGenerator
	persona       contentGenerator
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// One model per prompt kind; system instructions live on the model
	classifier := client.GenerativeModel(modelName)
	classifier.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.ClassifierSystemPrompt)}}
	classifier.ResponseMIMEType = "application/json"
	classifier.SetTemperature(0)
	classifier.SetMaxOutputTokens(int32(maxTokens))

	persona := client.GenerativeModel(modelName)
	persona.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.PersonaSystemPrompt)}}
	persona.SetTemperature(temperature)
	persona.SetTopP(topP)
	persona.SetMaxOutputTokens(int32(maxTokens))

	c := newGeminiClient(classifier, persona, modelName, maxBodySize, logger, textProcessor)
	c.client = client
	return c, nil
}

func newGeminiClient(
	classifier, persona contentGenerator,
	modelName string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *GeminiClient {
	return &GeminiClient{
		classifier:    classifier,
		persona:       persona,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify asks the model whether text is a scam
func (c *GeminiClient) Classify(ctx context.Context, text string, history []core.Turn) (*core.ClassificationResult, error) {
	p := prompt.Classification(c.textProcessor.ProcessText(text, c.maxBodySize), history)

	responseText, err := c.generate(ctx, c.classifier, p.User)
	if err != nil {
		return nil, err
	}

	result, err := prompt.ParseClassification(responseText, "gemini:"+c.modelName)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Gemini classification",
		zap.Bool("is_scam", result.IsScam),
		zap.Float64("confidence", result.Confidence),
		zap.String("scam_type", string(result.ScamType)))

	return result, nil
}

// GeneratePersonaResponse asks the model for the victim persona's next reply
func (c *GeminiClient) GeneratePersonaResponse(ctx context.Context, text string, scamType core.ScamType, history []core.Turn, turnIndex int) (string, error) {
	p := prompt.Persona(c.textProcessor.ProcessText(text, c.maxBodySize), scamType, history, turnIndex)

	responseText, err := c.generate(ctx, c.persona, p.User)
	if err != nil {
		return "", err
	}

	reply := prompt.CleanReply(responseText)
	if reply == "" {
		return "", errors.New("empty persona response from Gemini")
	}
	return reply, nil
}

func (c *GeminiClient) generate(ctx context.Context, model contentGenerator, user string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text in Gemini response")
	}
	return b.String(), nil
}
