// Package gemini implements llm.Gateway with a direct genai GenerateContent call.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/muhammadolammi/jobrecommender/internal/errs"
	"github.com/muhammadolammi/jobrecommender/internal/llm"
)

const (
	DefaultModel           = "gemini-2.5-flash"
	DefaultTemperature     = 0.5
	DefaultMaxOutputTokens = 1024
)

// Config configures the client. Zero values take the defaults above; a nil
// Temperature means DefaultTemperature, so 0 can be set explicitly.
type Config struct {
	APIKey          string
	Model           string
	Temperature     *float32
	MaxOutputTokens int32
	// BaseURL overrides the API endpoint, for tests and proxies.
	BaseURL string
}

// Client sends each prompt as one GenerateContent request with the prompt's
// system role as system instruction.
type Client struct {
	client *genai.Client
	model  string
	gen    *genai.GenerateContentConfig
}

var _ llm.Gateway = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.Configuration("GOOGLE_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == nil {
		cfg.Temperature = genai.Ptr[float32](DefaultTemperature)
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client: client,
		model:  cfg.Model,
		gen: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(*cfg.Temperature),
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	}, nil
}

func (c *Client) Complete(ctx context.Context, p llm.Prompt, vars map[string]string) (string, error) {
	msg, err := p.Render(vars)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrGateway, err)
	}

	gen := *c.gen
	gen.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(msg), &gen)
	if err != nil {
		return "", fmt.Errorf("%w: gemini %s request: %w", errs.ErrGateway, p.Name, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: gemini %s returned an empty response", errs.ErrGateway, p.Name)
	}
	return text, nil
}
