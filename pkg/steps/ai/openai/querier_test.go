package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/palaver/pkg/chat"
	"github.com/go-go-golems/palaver/pkg/conversation"
	"github.com/go-go-golems/palaver/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettings(baseURL string, stream bool) *settings.Settings {
	s := settings.NewSettingsWithDirs("/cache", "/config")
	s.APIKey = "sk-test"
	s.BaseURL = baseURL
	s.Stream = stream
	return s
}

func newChatServer(t *testing.T, chunks []string, status int) (*httptest.Server, *[]map[string]interface{}) {
	var requests []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		var req map[string]interface{}
		if !assert.NoError(t, json.Unmarshal(body, &req)) {
			return
		}
		requests = append(requests, req)

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}

		if stream, _ := req["stream"].(bool); stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, chunk := range chunks {
				payload, _ := json.Marshal(map[string]interface{}{
					"id":     "chatcmpl-1",
					"object": "chat.completion.chunk",
					"model":  "gpt-3.5-turbo",
					"choices": []map[string]interface{}{
						{"index": 0, "delta": map[string]string{"content": chunk}},
					},
				})
				_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
			}
			_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}

		full := ""
		for _, chunk := range chunks {
			full += chunk
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": full},
					"finish_reason": "stop",
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestMakeCompletionRequest(t *testing.T) {
	s := newTestSettings("", true)
	temp := 0.3
	s.Temperature = &temp
	s.Model = "gpt-4"

	conv := conversation.NewConversation(
		conversation.NewChatMessage(conversation.RoleSystem, "be brief"),
		conversation.NewChatMessage(conversation.RoleUser, "hi"),
	)
	req := MakeCompletionRequest(s, conv)

	assert.Equal(t, "gpt-4", req.Model)
	assert.True(t, req.Stream)
	assert.InDelta(t, 0.3, float64(req.Temperature), 1e-6)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "hi", req.Messages[1].Content)
}

func TestMakeCompletionRequestKeepsZeroTemperature(t *testing.T) {
	s := newTestSettings("", false)
	zero := 0.0
	s.Temperature = &zero

	req := MakeCompletionRequest(s, conversation.InitConversation("hi"))
	assert.Greater(t, req.Temperature, float32(0))

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"temperature":`)

	s.Temperature = nil
	b, err = json.Marshal(MakeCompletionRequest(s, conversation.InitConversation("hi")))
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"temperature":`)
}

func TestMakeClientRequiresKey(t *testing.T) {
	s := newTestSettings("", false)
	s.APIKey = ""
	_, err := MakeClient(s)
	require.Error(t, err)
}

func TestQueryComplete(t *testing.T) {
	srv, requests := newChatServer(t, []string{"Hel", "lo"}, http.StatusOK)
	q, err := NewQuerier(newTestSettings(srv.URL, false))
	require.NoError(t, err)

	reply, err := q.Query(context.Background(), conversation.InitConversation("hi"))
	require.NoError(t, err)
	assert.Equal(t, chat.ReplyComplete, reply.Kind)
	assert.Equal(t, "Hello", reply.Message.Content)
	require.Len(t, *requests, 1)
}

func TestQueryStreamIsCumulative(t *testing.T) {
	srv, _ := newChatServer(t, []string{"H", "e", "llo"}, http.StatusOK)
	q, err := NewQuerier(newTestSettings(srv.URL, true))
	require.NoError(t, err)

	reply, err := q.Query(context.Background(), conversation.InitConversation("hi"))
	require.NoError(t, err)
	require.Equal(t, chat.ReplyPartial, reply.Kind)

	var seen []string
	for r := range reply.Partials {
		require.NoError(t, r.Error())
		seen = append(seen, r.Unwrap())
	}
	assert.Equal(t, []string{"H", "He", "Hello"}, seen)
}

func TestQueryStreamAccumulates(t *testing.T) {
	srv, _ := newChatServer(t, []string{"Hi ", "there"}, http.StatusOK)
	q, err := NewQuerier(newTestSettings(srv.URL, true))
	require.NoError(t, err)

	conv := conversation.InitConversation("hi")
	reply, err := q.Query(context.Background(), conv)
	require.NoError(t, err)

	ret, err := chat.Accumulate(context.Background(), conv, reply, nil)
	require.NoError(t, err)
	require.Len(t, ret, 2)
	assert.Equal(t, "Hi there", ret[1].Content)
}

func TestQueryErrorIsReplyError(t *testing.T) {
	srv, _ := newChatServer(t, nil, http.StatusServiceUnavailable)
	for _, stream := range []bool{false, true} {
		q, err := NewQuerier(newTestSettings(srv.URL, stream))
		require.NoError(t, err)

		_, err = q.Query(context.Background(), conversation.InitConversation("hi"))
		require.Error(t, err)
		assert.True(t, chat.IsReplyError(err), "stream=%v", stream)
	}
}
