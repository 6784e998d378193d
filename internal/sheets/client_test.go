package sheets

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nexo_bot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTokens struct {
	invalidated atomic.Int32
}

func (s *staticTokens) Token(context.Context) (string, error) { return "tok", nil }
func (s *staticTokens) Invalidate()                           { s.invalidated.Add(1) }

func TestClientGetRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/sheet-1/values/Movimientos Stock", r.URL.Path)
		_, _ = io.WriteString(w, `{"range":"x","values":[["ID","Cantidad"],["M1",5],["M2","-2"]]}`)
	}))
	defer srv.Close()

	c := newClient(srv.URL, "sheet-1", &staticTokens{}, config.Config{Timeout: time.Second}, zap.NewNop())
	rows, err := c.GetRows(context.Background(), SheetMovements)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ID", "Cantidad"}, {"M1", "5"}, {"M2", "-2"}}, rows)
}

func TestClientAppendAndUpdate(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body valueRange
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls = append(calls, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		assert.Equal(t, []any{"P1", "REM-NEG-M"}, body.Values[0])
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := newClient(srv.URL, "s", &staticTokens{}, config.Config{Timeout: time.Second}, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, c.AppendRow(ctx, SheetProducts, []string{"P1", "REM-NEG-M"}))
	require.NoError(t, c.UpdateRow(ctx, SheetProducts, 3, []string{"P1", "REM-NEG-M"}))

	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[0], "POST /s/values/Productos:append?"))
	assert.Contains(t, calls[0], "insertDataOption=INSERT_ROWS")
	assert.True(t, strings.HasPrefix(calls[1], "PUT /s/values/Productos!A3:Z3?"))
	assert.Contains(t, calls[1], "valueInputOption=USER_ENTERED")
}

func TestClientUnauthorizedInvalidatesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"expired"}`)
	}))
	defer srv.Close()

	tokens := &staticTokens{}
	c := newClient(srv.URL, "s", tokens, config.Config{Timeout: time.Second}, zap.NewNop())
	_, err := c.GetRows(context.Background(), SheetClients)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "expired")
	assert.EqualValues(t, 1, tokens.invalidated.Load())
}

func TestClientServerErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "bad range")
	}))
	defer srv.Close()

	c := newClient(srv.URL, "s", &staticTokens{}, config.Config{Timeout: time.Second}, zap.NewNop())
	err := c.AppendRow(context.Background(), SheetClients, []string{"x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad range", apiErr.Body)
}

func TestTokenSourceCachesUntilInvalidated(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrant, r.PostForm.Get("grant_type"))
		assert.NotEmpty(t, r.PostForm.Get("assertion"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"abc","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer srv.Close()

	// The PEM arrives with escaped newlines, as it does from an env file.
	escaped := strings.ReplaceAll(string(pemKey), "\n", `\n`)
	ts := newTokenSource(srv.URL, "bot@example.iam.gserviceaccount.com", escaped, time.Second, zap.NewNop())

	ctx := context.Background()
	for range 3 {
		tok, err := ts.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "abc", tok)
	}
	assert.EqualValues(t, 1, hits.Load())

	ts.Invalidate()
	_, err = ts.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())

	ts.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = ts.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, hits.Load())
}

func TestTokenSourceRejectsBadKey(t *testing.T) {
	ts := newTokenSource("http://127.0.0.1:0", "x", "not a key", time.Second, zap.NewNop())
	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}
