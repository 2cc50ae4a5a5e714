package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Gemini 2.5 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

// contentGenerator is the subset of genai.Models used by GeminiAnalyzer.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAnalyzer uses Google's Gemini API to analyze clothing photos.
type GeminiAnalyzer struct {
	models  contentGenerator
	model   string
	prompt  string
	retrier *Retrier
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiAnalyzer(client.Models, model), nil
}

func newGeminiAnalyzer(models contentGenerator, model string) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		models:  models,
		model:   model,
		prompt:  BuildPrompt(nil),
		retrier: NewRetrier(),
	}
}

// WithCategories rebuilds the prompt with the given category names.
func (g *GeminiAnalyzer) WithCategories(categories []string) *GeminiAnalyzer {
	g.prompt = BuildPrompt(categories)
	return g
}

// WithRetrier replaces the retry policy.
func (g *GeminiAnalyzer) WithRetrier(r *Retrier) *GeminiAnalyzer {
	g.retrier = r
	return g
}

// AnalyzeImage implements the Analyzer interface using Gemini. Transient
// service failures are retried with backoff; invalid model output is not.
func (g *GeminiAnalyzer) AnalyzeImage(ctx context.Context, img Image) (*AnalysisResult, error) {
	if len(img.Data) == 0 {
		return nil, ErrNoImage
	}

	parts := []*genai.Part{
		genai.NewPartFromText(g.prompt),
		img.Part(),
	}

	var result *AnalysisResult
	attempts, err := g.retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		log.Debug().Int("attempt", attempt).Int("maxAttempts", g.retrier.MaxAttempts).Msg("clothing analysis attempt")
		res, err := g.executeVisionRequest(ctx, parts)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("clothing analysis attempt failed")
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Attempts = attempts
	log.Info().Int("attempts", attempts).Str("name", result.Item.Name).Msg("clothing analysis succeeded")
	return result, nil
}

// executeVisionRequest executes one Gemini API call and parses the response.
func (g *GeminiAnalyzer) executeVisionRequest(ctx context.Context, parts []*genai.Part) (*AnalysisResult, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	item, err := ParseClothingAnalysis(result.Text())
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens)
	}

	log.Info().
		Str("model", g.model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("vision llm call")

	return &AnalysisResult{Item: item, Usage: usage}, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}
