package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoReply struct {
	Scope string `json:"scope"`
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoReply{Scope: body["scope"]})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{Timeout: time.Second}, zap.NewNop())
	defer c.Close()

	var out echoReply
	err := c.PostJSON(context.Background(), srv.URL, map[string]string{"scope": "EOS"}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "EOS", out.Scope)
}

func TestPostJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{Timeout: time.Second}, zap.NewNop())
	defer c.Close()

	var out echoReply
	err := c.PostJSON(context.Background(), srv.URL, map[string]string{}, nil, &out)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
}
