// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bobmcallan/regradar/internal/common"
	"github.com/bobmcallan/regradar/internal/interfaces"
	"github.com/bobmcallan/regradar/internal/models"
)

const DefaultModel = "gemini-2.0-flash"

// Client implements the GeminiClient interface
type Client struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GenerateContent generates AI content from a prompt
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", classifyErr(err)
	}

	return extractTextFromResponse(result)
}

// AnalyzeChunk asks the model to classify the impact of one document chunk
// on the target company.
func (c *Client) AnalyzeChunk(ctx context.Context, target models.AnalysisTarget, chunk models.Chunk, totalChunks int) (string, error) {
	prompt := buildChunkPrompt(target, chunk, totalChunks)
	return c.GenerateContent(ctx, prompt)
}

// classifyErr maps provider errors to the run error taxonomy. Client-side
// rejections (bad credentials, malformed request) are non-retryable and
// abort the whole run; everything else is treated as transient.
func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400, 401, 403:
			return fmt.Errorf("gemini rejected request (status %d): %w", apiErr.Code, models.ErrAnalysisFailed)
		}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

// buildChunkPrompt creates the per-chunk impact classification prompt.
// The response contract (SEVERITY line followed by an IMPACT block) is
// parsed by the analysis service.
func buildChunkPrompt(target models.AnalysisTarget, chunk models.Chunk, totalChunks int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are a financial analyst. Segment %d of %d from a regulatory document follows. Assess its impact on %s (%s, listed on %s).

DOCUMENT SEGMENT:
%s

Respond in EXACTLY this format:

SEVERITY: <one of: none, low, medium, high>
IMPACT:
<2-4 sentences on how the provisions in this segment affect %s: obligations, costs, revenue exposure, timelines. Be specific and factual. If the segment is irrelevant to the company, say so and use severity none.>`,
		chunk.Index+1, totalChunks,
		target.Name, target.Ticker, target.Exchange,
		chunk.Text,
		target.Name,
	)

	return sb.String()
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}

// Ensure Client implements GeminiClient
var _ interfaces.GeminiClient = (*Client)(nil)
