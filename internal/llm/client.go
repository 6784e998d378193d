package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"nexo_bot/internal/config"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("llm is not configured")
	ErrTimeout       = errors.New("llm call timed out")
	ErrEmptyResponse = errors.New("llm returned empty response")
)

type ToolCall = openrouter.ToolCall

// ChatModel is a hosted chat-completion endpoint with tool calling.
type ChatModel interface {
	ChatWithMessages(ctx context.Context, messages []openrouter.ChatCompletionMessage, tools []openrouter.Tool) (openrouter.ChatCompletionResponse, error)
}

type Client struct {
	client  *openrouter.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
	enabled bool
}

func NewClient(cfg config.Config, logger *zap.Logger) (*Client, error) {
	logger = logger.Named("llm")
	model := strings.TrimSpace(cfg.LLMModel)
	apiKey := strings.TrimSpace(cfg.LLMAPIKey)
	timeout := TimeoutFor(model, cfg.LLMTimeout, cfg.LLMFastTimeout)

	if model == "" || apiKey == "" {
		logger.Warn("LLM config is incomplete; LLM calls will be disabled",
			zap.Bool("has_model", model != ""),
			zap.Bool("has_api_key", apiKey != ""),
		)
		return &Client{
			model:   model,
			timeout: timeout,
			logger:  logger,
		}, nil
	}

	cfgClient := openrouter.DefaultConfig(apiKey)
	if strings.TrimSpace(cfg.LLMBaseURL) != "" {
		cfgClient.BaseURL = strings.TrimSpace(cfg.LLMBaseURL)
	}
	cfgClient.HTTPClient = &http.Client{Timeout: timeout + 5*time.Second}

	logger.Info("llm client ready", zap.String("model", model), zap.Duration("timeout", timeout))
	return &Client{
		client:  openrouter.NewClientWithConfig(*cfgClient),
		model:   model,
		timeout: timeout,
		logger:  logger,
		enabled: true,
	}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// ChatWithMessages runs one completion bounded by the per-model timeout.
// Hitting the deadline yields ErrTimeout; callers do not retry it.
func (c *Client) ChatWithMessages(ctx context.Context, messages []openrouter.ChatCompletionMessage, tools []openrouter.Tool) (openrouter.ChatCompletionResponse, error) {
	if c == nil || !c.enabled || c.client == nil {
		return openrouter.ChatCompletionResponse{}, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request := openrouter.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		if isTimeout(ctx, err) {
			c.logger.Warn("llm timeout", zap.Duration("after", time.Since(start)), zap.Duration("limit", c.timeout))
			return openrouter.ChatCompletionResponse{}, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return openrouter.ChatCompletionResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	c.logger.Debug("llm call", zap.Int64("ms", time.Since(start).Milliseconds()))
	return resp, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var fastModelMarkers = []string{"fast", "mini", "8b", "flash", "haiku", "small"}

// TimeoutFor picks the shorter budget for small or fast models.
func TimeoutFor(model string, slow, fast time.Duration) time.Duration {
	lower := strings.ToLower(model)
	for _, marker := range fastModelMarkers {
		if strings.Contains(lower, marker) {
			return fast
		}
	}
	return slow
}
