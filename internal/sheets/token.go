package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nexo_bot/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	sheetsScope     = "https://www.googleapis.com/auth/spreadsheets"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// Tokens live for an hour upstream; keep them a little less.
	tokenLifetime = 3500 * time.Second
)

var ErrInvalidPrivateKey = errors.New("invalid service account private key")

type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenSource exchanges a signed service-account assertion for an access token
// and caches it process-wide until shortly before expiry.
type TokenSource struct {
	http       *resty.Client
	tokenURL   string
	email      string
	privateKey string
	now        func() time.Time
	logger     *zap.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenSource(cfg config.Config, logger *zap.Logger) *TokenSource {
	return newTokenSource(defaultTokenURL, cfg.GoogleServiceAccountEmail, cfg.GooglePrivateKey, cfg.Timeout, logger)
}

func newTokenSource(tokenURL, email, privateKey string, timeout time.Duration, logger *zap.Logger) *TokenSource {
	return &TokenSource{
		http:     resty.New().SetTimeout(timeout),
		tokenURL: tokenURL,
		email:    strings.TrimSpace(email),
		// Env files usually carry the PEM with literal \n sequences.
		privateKey: strings.ReplaceAll(privateKey, `\n`, "\n"),
		now:        time.Now,
		logger:     logger.Named("sheets.auth"),
	}
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires) {
		return s.token, nil
	}

	assertion, err := s.signAssertion(now)
	if err != nil {
		return "", err
	}

	var out tokenResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": jwtBearerGrant,
			"assertion":  assertion,
		}).
		SetResult(&out).
		Post(s.tokenURL)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if resp.IsError() {
		return "", apiErrorFromResponse(resp)
	}
	if out.AccessToken == "" {
		return "", errors.New("token response without access_token")
	}

	s.token = out.AccessToken
	s.expires = now.Add(tokenLifetime)
	s.logger.Debug("access token refreshed", zap.Time("expires", s.expires))
	return s.token, nil
}

func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expires = time.Time{}
	s.mu.Unlock()
}

func (s *TokenSource) signAssertion(now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.privateKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	claims := jwt.MapClaims{
		"iss":   s.email,
		"scope": sheetsScope,
		"aud":   defaultTokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}
	return signed, nil
}
