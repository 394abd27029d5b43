package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/ai"
)

func TestGenerateText(t *testing.T) {
	env := newTestEnv(t)
	sid := env.createSession(t)

	rec := env.doJSON(t, http.MethodPost, "/generate_text", map[string]string{
		"text":       "hello there",
		"session_id": sid,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stub answer", decodeBody(t, rec)["response"])

	// both sides of the turn are now in the history
	rec = env.doJSON(t, http.MethodPost, "/get_session_messages", map[string]string{"session_id": sid})
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decodeBody(t, rec)["messages"].([]any)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	second := messages[1].(map[string]any)
	assert.Equal(t, "hello there", first["text"])
	assert.Equal(t, "user", first["sender"])
	assert.Equal(t, "stub answer", second["text"])
	assert.Equal(t, "llm", second["sender"])
}

func TestGenerateTextUnknownSessionIs404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(t, http.MethodPost, "/generate_text", map[string]string{
		"text":       "hello",
		"session_id": "missing",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateTextMissingFieldsIs400(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(t, http.MethodPost, "/generate_text", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateTextUpstreamFailureIs502(t *testing.T) {
	env := newTestEnv(t)
	sid := env.createSession(t)
	env.completer.err = &ai.UpstreamStatusError{StatusCode: http.StatusServiceUnavailable, Body: "down"}

	rec := env.doJSON(t, http.MethodPost, "/generate_text", map[string]string{
		"text":       "hello",
		"session_id": sid,
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "503")
}
