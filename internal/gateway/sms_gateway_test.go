package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewaySend(t *testing.T) {
	var got gatewayRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "secret", "ACME")
	err := g.Send(context.Background(), "+254712345678", "hello")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "+254712345678", got.To)
	assert.Equal(t, "hello", got.Message)
	assert.Equal(t, "ACME", got.SenderID)
}

func TestHTTPGatewayNon2xxIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient balance", http.StatusPaymentRequired)
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "", "")
	err := g.Send(context.Background(), "+254712345678", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestHTTPGatewayRejectsEmptyNumber(t *testing.T) {
	g := NewHTTPGateway("http://unused", "", "")
	err := g.Send(context.Background(), "   ", "hello")
	assert.Error(t, err)
}
