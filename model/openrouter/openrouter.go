// Package openrouter provides a model.Model backed by the OpenRouter API.
// OpenRouter exposes an OpenAI-compatible Chat Completions endpoint, so the
// adapter reuses the OpenAI implementation pointed at a different base URL.
package openrouter

import (
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rivalscope/rivalscope/model/openai"
)

// BaseURL is the OpenRouter OpenAI-compatible endpoint.
const BaseURL = "https://openrouter.ai/api/v1"

// Options configure the OpenRouter model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	BaseURL             string
}

// NewModel creates a model routed through OpenRouter. Model IDs use the
// provider-prefixed form, e.g. "openai/gpt-4o".
func NewModel(optFns ...func(o *Options)) *openai.Model {
	opts := Options{
		Model:               "openai/gpt-4o",
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		BaseURL:             BaseURL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithBaseURL(opts.BaseURL)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openaisdk.NewClient(clientOpts...)

	return openai.NewModelWithProvider(&client, "openrouter", func(o *openai.Options) {
		o.Model = opts.Model
		o.Temperature = opts.Temperature
		o.MaxCompletionTokens = opts.MaxCompletionTokens
	})
}
