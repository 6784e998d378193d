package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"

	"nexo_bot/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	maxMessageLen  = 4096
)

var (
	ErrMissingToken = errors.New("telegram bot token is required")
	ErrUnauthorized = errors.New("telegram unauthorized")
	ErrRateLimited  = errors.New("telegram rate limited")
)

type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error: %d %s", e.StatusCode, e.Description)
}

// Client is a thin Bot API client. Calls that hit the Telegram flood limit
// are retried once.
type Client struct {
	http   *resty.Client
	token  string
	logger *zap.Logger
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	return newClient(defaultBaseURL, cfg.TelegramBotToken, cfg.Timeout, logger)
}

func newClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/bot"+strings.TrimSpace(token)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		http:   httpClient,
		token:  strings.TrimSpace(token),
		logger: logger.Named("telegram"),
	}
}

type sendMessageRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendMessage sends text to a chat. Texts over the Bot API limit are split
// on line boundaries; the keyboard goes with the last part.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (Message, error) {
	parts := splitMessage(text, maxMessageLen)
	var sent Message
	for i, part := range parts {
		req := sendMessageRequest{ChatID: chatID, Text: part}
		if i == len(parts)-1 {
			req.ReplyMarkup = markup
		}
		var err error
		if sent, err = callAPI[Message](ctx, c, "sendMessage", req); err != nil {
			return Message{}, err
		}
	}
	return sent, nil
}

type editMessageRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	text = splitMessage(text, maxMessageLen)[0]
	_, err := callAPI[Message](ctx, c, "editMessageText", editMessageRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup,
	})
	return err
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string) error {
	_, err := callAPI[bool](ctx, c, "answerCallbackQuery", answerCallbackRequest{CallbackQueryID: id, Text: text})
	return err
}

type chatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := callAPI[bool](ctx, c, "sendChatAction", chatActionRequest{ChatID: chatID, Action: action})
	return err
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// SetWebhook points Telegram at url for message and callback updates.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	_, err := callAPI[bool](ctx, c, "setWebhook", setWebhookRequest{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	return err
}

func callAPI[T any](ctx context.Context, c *Client, method string, body any) (T, error) {
	var zero T
	if c.token == "" {
		return zero, ErrMissingToken
	}
	var out apiResponse[T]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/" + method)
	if err != nil {
		return zero, fmt.Errorf("telegram %s: %w", method, err)
	}
	if resp.IsError() || !out.OK {
		return zero, apiErrorFromResponse(resp, out.Description)
	}
	return out.Result, nil
}

func apiErrorFromResponse(resp *resty.Response, description string) error {
	if description == "" {
		description = strings.TrimSpace(resp.String())
	}
	apiErr := &APIError{StatusCode: resp.StatusCode(), Description: description}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error())
	default:
		return apiErr
	}
}

// splitMessage cuts text into chunks of at most limit UTF-16 code units,
// the unit Telegram measures message length in, preferring newline
// boundaries.
func splitMessage(text string, limit int) []string {
	if utf16Len(text) <= limit {
		return []string{text}
	}
	var parts []string
	runes := []rune(text)
	for len(runes) > 0 {
		cut, units, newline := len(runes), 0, -1
		for i, r := range runes {
			n := utf16.RuneLen(r)
			if n < 0 {
				n = 1
			}
			if units+n > limit {
				cut = i
				if newline >= 0 {
					cut = newline + 1
				}
				break
			}
			units += n
			if r == '\n' && units > limit/2 {
				newline = i
			}
		}
		if cut == 0 {
			cut = 1
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	return parts
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
