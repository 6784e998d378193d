package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"nexo_bot/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("google sheets api error: %s", e.Status)
	}
	return fmt.Sprintf("google sheets api error: %s - %s", e.Status, e.Body)
}

type valueRange struct {
	Range  string  `json:"range,omitempty"`
	Values [][]any `json:"values"`
}

// Client talks to the Sheets v4 values API. Requests are not retried: a call
// either succeeds or the error propagates.
type Client struct {
	http   *resty.Client
	tokens TokenProvider
	logger *zap.Logger
}

func NewClient(cfg config.Config, tokens TokenProvider, logger *zap.Logger) *Client {
	return newClient(defaultBaseURL, cfg.GoogleSheetsID, tokens, cfg, logger)
}

func newClient(baseURL, spreadsheetID string, tokens TokenProvider, cfg config.Config, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/"+strings.TrimSpace(spreadsheetID)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	return &Client{
		http:   httpClient,
		tokens: tokens,
		logger: logger.Named("sheets"),
	}
}

func (c *Client) GetRows(ctx context.Context, sheet string) ([][]string, error) {
	var out valueRange
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetPathParam("range", sheet).
		SetResult(&out).
		Get("/values/{range}")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}

	rows := make([][]string, len(out.Values))
	for i, row := range out.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellString(cell)
		}
	}
	return rows, nil
}

func (c *Client) AppendRow(ctx context.Context, sheet string, values []string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetPathParam("range", sheet).
		SetQueryParams(map[string]string{
			"valueInputOption": "USER_ENTERED",
			"insertDataOption": "INSERT_ROWS",
		}).
		SetBody(valueRange{Values: [][]any{toCells(values)}}).
		Post("/values/{range}:append")
	return c.check(resp, err)
}

func (c *Client) UpdateRow(ctx context.Context, sheet string, rowIndex int, values []string) error {
	if rowIndex < 1 {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, rowIndex)
	}
	rng := fmt.Sprintf("%s!A%d:Z%d", sheet, rowIndex, rowIndex)
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetPathParam("range", rng).
		SetQueryParam("valueInputOption", "USER_ENTERED").
		SetBody(valueRange{Range: rng, Values: [][]any{toCells(values)}}).
		Put("/values/{range}")
	return c.check(resp, err)
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets token: %w", err)
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token), nil
}

func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("sheets request: %w", err)
	}
	if resp.IsError() {
		apiErr := apiErrorFromResponse(resp)
		if errors.Is(apiErr, ErrUnauthorized) {
			// Next call fetches a fresh token.
			c.tokens.Invalidate()
		}
		c.logger.Warn("sheets api error",
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
		)
		return apiErr
	}
	return nil
}

func apiErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       body,
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error())
	default:
		return apiErr
	}
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
