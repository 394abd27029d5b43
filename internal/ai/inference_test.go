package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tensorResponse(t *testing.T, w http.ResponseWriter, data string) {
	t.Helper()
	err := json.NewEncoder(w).Encode(map[string]any{
		"outputs": []map[string]any{
			{"data": []string{data}},
		},
	})
	require.NoError(t, err)
}

func TestCompleteWrapsPromptAndStripsDelimiter(t *testing.T) {
	var gotReq inferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		tensorResponse(t, w, gotReq.Inputs[0].Data[0]+"the answer\n")
	}))
	defer srv.Close()

	client := NewInferenceClient(InferenceConfig{Endpoint: srv.URL, Timeout: 5 * time.Second})
	answer, err := client.Complete(context.Background(), "what   is\tthis?")
	require.NoError(t, err)

	assert.Equal(t, "the answer", answer)
	require.Len(t, gotReq.Inputs, 1)
	assert.Equal(t, "question", gotReq.Inputs[0].Name)
	assert.Equal(t, []int{1}, gotReq.Inputs[0].Shape)
	assert.Equal(t, "BYTES", gotReq.Inputs[0].Datatype)
	// whitespace runs collapse before the instruction wrap
	assert.Equal(t, "[INST]\nwhat is this?\n[\\INST]\n", gotReq.Inputs[0].Data[0])
}

func TestCompleteWithoutDelimiterReturnsWholeElement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tensorResponse(t, w, "  bare answer ")
	}))
	defer srv.Close()

	client := NewInferenceClient(InferenceConfig{Endpoint: srv.URL})
	answer, err := client.Complete(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "bare answer", answer)
}

func TestCompleteUpstreamFailureForwardsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewInferenceClient(InferenceConfig{Endpoint: srv.URL, MaxRetries: 0})
	_, err := client.Complete(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	var statusErr *UpstreamStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewInferenceClient(InferenceConfig{Endpoint: srv.URL, MaxRetries: 3})
	_, err := client.Complete(context.Background(), "q")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 1, attempts)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "warming up", http.StatusBadGateway)
			return
		}
		tensorResponse(t, w, "[INST]\nq\n[\\INST]\nrecovered")
	}))
	defer srv.Close()

	client := NewInferenceClient(InferenceConfig{Endpoint: srv.URL, MaxRetries: 3})
	answer, err := client.Complete(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.Equal(t, 3, attempts)
}

func TestCompleteMalformedResponse(t *testing.T) {
	cases := map[string]string{
		"no outputs": `{"outputs":[]}`,
		"empty data": `{"outputs":[{"data":[]}]}`,
		"not json":   `gibberish`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			client := NewInferenceClient(InferenceConfig{Endpoint: srv.URL})
			_, err := client.Complete(context.Background(), "q")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"embedding": []float32{float32(i), 1}}
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": data}))
	}))
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "test-embed"})
	vectors, err := client.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 1}, vectors[0])
	assert.Equal(t, []float32{1, 1}, vectors[1])
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	client := NewEmbeddingClient(EmbeddingConfig{BaseURL: "http://unused", Model: "m"})
	_, err := client.Embed(context.Background(), "   ")
	assert.Error(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"", "  "})
	assert.Error(t, err)
}
