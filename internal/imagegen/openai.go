package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"storyboard-backend/internal/infra"
)

// Generator produces PNG image bytes for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Options configures the OpenAI-backed generator.
type Options struct {
	APIKey        string
	BaseURL       string
	PrimaryModel  string
	FallbackModel string
	Logger        *infra.Logger
}

// Client calls the OpenAI Images API, trying the primary model first and a
// cheaper fallback model on any failure. It never substitutes placeholders
// itself; that degrade decision belongs to the orchestrator.
type Client struct {
	api      openai.Client
	primary  string
	fallback string
	logger   *infra.Logger
}

func NewClient(opts Options) *Client {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	c := &Client{
		api:      openai.NewClient(reqOpts...),
		primary:  opts.PrimaryModel,
		fallback: opts.FallbackModel,
		logger:   opts.Logger,
	}
	if c.primary == "" {
		c.primary = string(openai.ImageModelGPTImage1)
	}
	if c.fallback == "" {
		c.fallback = string(openai.ImageModelDallE2)
	}
	return c
}

// Generate returns PNG bytes for the prompt, or an error only when both the
// primary and fallback models fail.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	data, primaryErr := c.generateWith(ctx, c.primary, prompt)
	if primaryErr == nil {
		return data, nil
	}
	if c.logger != nil {
		c.logger.Warn().Err(primaryErr).
			Str("model", c.primary).
			Str("fallback", c.fallback).
			Msg("imagegen: primary model failed, trying fallback")
	}
	data, fallbackErr := c.generateWith(ctx, c.fallback, prompt)
	if fallbackErr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("primary %s: %v; fallback %s: %w", c.primary, primaryErr, c.fallback, fallbackErr)
}

func (c *Client) generateWith(ctx context.Context, model, prompt string) ([]byte, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	}
	// gpt-image models always return base64 and reject the parameter.
	if strings.HasPrefix(model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	res, err := c.api.Images.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 || res.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("model %s returned no image data", model)
	}
	data, err := base64.StdEncoding.DecodeString(res.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}

var _ Generator = (*Client)(nil)
