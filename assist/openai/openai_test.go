package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/viewflow/api"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSuggester(srv *httptest.Server) *Suggester {
	return New(func(o *Options) {
		o.RequestOptions = []option.RequestOption{
			option.WithAPIKey("test"),
			option.WithBaseURL(srv.URL),
			option.WithMaxRetries(0),
		}
	})
}

func TestSuggester_Suggest(t *testing.T) {
	var got map[string]any
	srv := newServer(t, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
		"choices":[{"index":0,"message":{"role":"assistant","content":"Happy to help!"},"finish_reason":"stop"}]}`, &got)

	reply, err := newSuggester(srv).Suggest(context.Background(), api.Thread{
		Messages: []api.Message{{Body: "Can I change my reward?", SenderName: "Bo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Happy to help!", reply)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestSuggester_NoChoices(t *testing.T) {
	srv := newServer(t, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`, nil)

	_, err := newSuggester(srv).Suggest(context.Background(), api.Thread{
		Messages: []api.Message{{Body: "hi"}},
	})
	assert.ErrorContains(t, err, "no choices")
	assert.Equal(t, "openai", newSuggester(srv).Info().Provider)
}
