package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/studyflow/course-processor/config"
	"github.com/studyflow/course-processor/pkg/logger"
)

// GeminiClient wraps the genai SDK for the two calls the pipeline makes:
// structured JSON completions and embedding generation. It is constructed
// once at startup and passed to components explicitly.
type GeminiClient struct {
	client    *genai.Client
	chatModel string
	embModel  string
	dimension int
	timeout   time.Duration
	logger    logger.Logger
}

func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig, log logger.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	log.Info("Gemini client initialized",
		logger.String("chatModel", cfg.ChatModel),
		logger.String("embedModel", cfg.EmbedModel),
		logger.Int("embedDimension", cfg.EmbedDimension),
	)

	return &GeminiClient{
		client:    client,
		chatModel: cfg.ChatModel,
		embModel:  cfg.EmbedModel,
		dimension: cfg.EmbedDimension,
		timeout:   cfg.Timeout,
		logger:    log,
	}, nil
}

// Dimension returns the fixed embedding dimensionality.
func (c *GeminiClient) Dimension() int {
	return c.dimension
}

// GenerateJSON requests a completion constrained to JSON output and returns
// the raw response text. Parsing is the caller's concern; a malformed
// response is decided there.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.2)),
		ResponseMIMEType: "application/json",
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.chatModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", c.chatModel)
	}
	return text, nil
}

// Embed generates a single embedding vector.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates one vector per input text in a single provider call.
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	outputDim := int32(c.dimension)
	result, err := c.client.Models.EmbedContent(ctx, c.embModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) != c.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch at index %d: expected %d", i, c.dimension)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
