package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
)

func TestNew_Defaults(t *testing.T) {
	p, err := New(tool.SearchConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Perplexity{}, p)
	assert.Equal(t, DefaultPerplexityModel, p.Model())

	p, err = New(tool.SearchConfig{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, p)
	assert.Equal(t, DefaultOpenAIModel, p.Model())

	p, err = New(tool.SearchConfig{Provider: "openai", Model: "gpt-4o-search-preview"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-search-preview", p.Model())

	_, err = New(tool.SearchConfig{Provider: "bing"})
	assert.Error(t, err)
}

func perplexityServer(t *testing.T, status int, body string, check func(map[string]any)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(req)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestPerplexity_Citations(t *testing.T) {
	body := `{"choices":[{"message":{"content":"SOL is up [1].\n\nSources: something"}}],
		"citations":["https://a.example",{"url":"https://b.example"},{"title":"no url"}]}`
	p := NewPerplexity("key", "sonar", true)
	p.SetBaseURL(perplexityServer(t, 200, body, func(req map[string]any) {
		assert.Equal(t, "sonar", req["model"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, promptWithCitations, msgs[0].(map[string]any)["content"])
		assert.Equal(t, "price of SOL", msgs[1].(map[string]any)["content"])
	}))

	out, err := p.Search(context.Background(), "price of SOL")
	require.NoError(t, err)
	assert.Equal(t, "SOL is up [1].\n\n**Sources:**\n[1] https://a.example\n[2] https://b.example", out)
}

func TestPerplexity_NoCitations(t *testing.T) {
	body := `{"choices":[{"message":{"content":"Answer. Sources: kept"}}],"citations":["https://a.example"]}`
	p := NewPerplexity("key", "sonar", false)
	p.SetBaseURL(perplexityServer(t, 200, body, func(req map[string]any) {
		msgs := req["messages"].([]any)
		assert.Equal(t, promptWithoutCitations, msgs[0].(map[string]any)["content"])
	}))

	out, err := p.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Answer. Sources: kept", out)
}

func TestPerplexity_Error(t *testing.T) {
	p := NewPerplexity("key", "sonar", true)
	p.SetBaseURL(perplexityServer(t, 401, `{"error":"bad key"}`, nil))

	_, err := p.Search(context.Background(), "q")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Failed to search: 401", apiErr.Message)
	assert.Equal(t, `{"error":"bad key"}`, apiErr.Details)
}

func TestOpenAI_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOpenAIModel, req["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"BONK is a memecoin."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("key", DefaultOpenAIModel, srv.URL+"/v1")
	out, err := o.Search(context.Background(), "what is BONK")
	require.NoError(t, err)
	assert.Equal(t, "BONK is a memecoin.", out)
}

func TestOpenAI_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI("key", DefaultOpenAIModel, srv.URL+"/v1")
	_, err := o.Search(context.Background(), "q")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "OpenAI API error", apiErr.Message)
	assert.Contains(t, apiErr.Details, "boom")
}
