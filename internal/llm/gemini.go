package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raine/rapidlisting/internal/listing"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// ErrMissingAPIKey is returned when no Gemini API key is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// Gemini pricing (per million tokens)
type modelPrice struct {
	input  float64
	output float64
}

var modelPrices = map[string]modelPrice{
	"gemini-2.5-flash":      {input: 0.30, output: 2.50},
	"gemini-2.5-flash-lite": {input: 0.10, output: 0.40},
	"gemini-2.5-pro":        {input: 1.25, output: 10.00},
}

const extractionPrompt = "Extract all visible text from this image. If it looks like a product label, auto part, or box, specifically identify any Part Numbers, OEM Numbers, UPCs, or Model Names. Format the output as clean text."

const (
	generationTemperature     = 0.8
	generationTopK            = 40
	generationTopP            = 0.95
	generationMaxOutputTokens = 4096
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration

	// BaseURL and HTTPClient override the API endpoint, for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini implements Extractor and Generator with Google's Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini client. The API key must come from
// configuration; an empty key is rejected before any request is made.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: cfg.Timeout}, nil
}

// Model returns the model name used for requests.
func (g *Gemini) Model() string {
	return g.model
}

// ExtractText implements Extractor.
func (g *Gemini) ExtractText(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("no image data provided")
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: imageData, MIMEType: mimeType}},
		genai.NewPartFromText(extractionPrompt),
	}

	result, usage, err := g.generate(ctx, parts, nil)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(result.Text())
	log.Info().
		Str("model", g.model).
		Int("imageBytes", len(imageData)).
		Int("textLength", len(text)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("extraction llm call")

	return text, nil
}

// GenerateListings implements Generator. The response is constrained to a
// JSON object with the six listing fields and then validated strictly.
func (g *Gemini) GenerateListings(ctx context.Context, prompt string) (*listing.Result, error) {
	result, usage, err := g.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)}, generationConfig())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("model", g.model).
		Int("promptLength", len(prompt)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("listing generation llm call")

	listings, err := listing.ParseResult([]byte(result.Text()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing response: %w", err)
	}
	return listings, nil
}

func (g *Gemini) generate(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, Usage, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, Usage{}, fmt.Errorf("no response from Gemini")
	}

	return result, usageOf(g.model, result.UsageMetadata), nil
}

func generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](generationTemperature),
		TopK:             genai.Ptr[float32](generationTopK),
		TopP:             genai.Ptr[float32](generationTopP),
		MaxOutputTokens:  generationMaxOutputTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   listingSchema(),
	}
}

// listingSchema declares the six result fields as required strings, in
// display order.
func listingSchema() *genai.Schema {
	fields := listing.ResultFields()
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(fields)),
	}
	for _, f := range fields {
		key := string(f.Key)
		schema.Properties[key] = &genai.Schema{
			Type:        genai.TypeString,
			Description: f.Platform + " listing " + strings.ToLower(f.Label),
		}
		schema.Required = append(schema.Required, key)
		schema.PropertyOrdering = append(schema.PropertyOrdering, key)
	}
	return schema
}

func usageOf(model string, meta *genai.GenerateContentResponseUsageMetadata) Usage {
	if meta == nil {
		return Usage{}
	}
	usage := Usage{
		InputTokens:  int64(meta.PromptTokenCount),
		OutputTokens: int64(meta.CandidatesTokenCount),
		TotalTokens:  int64(meta.TotalTokenCount),
	}
	price, ok := modelPrices[model]
	if !ok {
		price = modelPrices[DefaultModel]
	}
	usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, price)
	return usage
}

func calculateCost(inputTokens, outputTokens int64, price modelPrice) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * price.input
	outputCost := float64(outputTokens) / 1_000_000 * price.output
	return inputCost + outputCost
}
