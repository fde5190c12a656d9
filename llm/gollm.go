package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/teilomillet/gollm"
)

// GollmCompleter implements Completer on top of a gollm.LLM instance.
// The transcript is flattened into a single prompt because the embedded
// command protocol lives in plain text rather than provider tool calls.
type GollmCompleter struct {
	provider string
	model    string
	llm      gollm.LLM
}

// GollmOption configures a GollmCompleter.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the API key. When empty, gollm reads provider environment
// variables.
func WithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) { c.apiKey = key }
}

// WithModel sets the model identifier.
func WithModel(model string) GollmOption {
	return func(c *gollmConfig) { c.model = model }
}

// WithMaxTokens sets the default response budget.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) { c.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) { c.temperature = t }
}

// WithGollmOptions appends raw gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmCompleter creates a completer for the given provider
// ("openai", "anthropic", ...).
func NewGollmCompleter(provider string, opts ...GollmOption) (*GollmCompleter, error) {
	cfg := &gollmConfig{
		maxTokens:   8192,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-5-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries are handled by llm.Retry
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	inner, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{BaseError: BaseError{
			Message: fmt.Sprintf("create %s client", provider),
			Cause:   err,
		}}
	}

	return &GollmCompleter{provider: provider, model: model, llm: inner}, nil
}

// Provider returns the provider identifier.
func (c *GollmCompleter) Provider() string { return c.provider }

// Model returns the model identifier.
func (c *GollmCompleter) Model() string { return c.model }

// Complete flattens the request into a gollm prompt and runs one blocking
// generation. Provider failures are translated into the package taxonomy.
func (c *GollmCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := c.translate(req)

	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, translateError(err, ctx)
	}
	if strings.TrimSpace(text) == "" {
		return nil, &MalformedResponseError{BaseError: BaseError{Message: "provider returned an empty response"}}
	}

	return &Response{
		Text:  text,
		Model: c.model,
		Usage: approximateUsage(req, text),
	}, nil
}

func (c *GollmCompleter) translate(req Request) *gollm.Prompt {
	var parts []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			parts = append(parts, "[Assistant]: "+msg.Content)
		default:
			parts = append(parts, msg.Content)
		}
	}
	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "continue"
	}

	var promptOpts []gollm.PromptOption
	if req.Instructions != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(req.Instructions, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens > 0 {
		promptOpts = append(promptOpts, gollm.WithMaxLength(req.MaxTokens))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

func translateError(err error, ctx context.Context) error {
	if ctx.Err() != nil {
		return &AbortError{BaseError: BaseError{Message: "completion cancelled", Cause: ctx.Err()}}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429"):
		return NewTransportError(msg, 429, err)
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "401"):
		return NewTransportError(msg, 401, err)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return NewTransportError(msg, 408, err)
	default:
		return NewTransportError(msg, 0, err)
	}
}

// approximateUsage estimates token counts from character lengths; gollm's
// Generate does not expose provider usage metadata.
func approximateUsage(req Request, text string) Usage {
	inputChars := len(req.Instructions)
	for _, m := range req.Messages {
		inputChars += len(m.Content)
	}
	u := Usage{
		InputTokens:  inputChars / 4,
		OutputTokens: len(text) / 4,
	}
	u.TotalTokens = u.InputTokens + u.OutputTokens
	return u
}
