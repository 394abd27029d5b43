package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) doUpload(t *testing.T, sessionID string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if sessionID != "" {
		require.NoError(t, mw.WriteField("session_id", sessionID))
	}
	for name, content := range files {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_file", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadFile(t *testing.T) {
	env := newTestEnv(t)
	sid := env.createSession(t)

	rec := env.doUpload(t, sid, map[string]string{"notes.txt": "some uploaded text"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "1 file(s) uploaded and processed successfully", body["message"])
	results := body["results"].([]any)
	require.Len(t, results, 1)

	assert.True(t, env.vecStore.IndexExists(sid))

	rec = env.doJSON(t, http.MethodGet, "/get_files/"+sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["notes.txt"]`, rec.Body.String())
}

func TestUploadWithoutFilesIs400(t *testing.T) {
	env := newTestEnv(t)
	sid := env.createSession(t)

	rec := env.doUpload(t, sid, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No files or session_id provided", decodeBody(t, rec)["error"])
}

func TestUploadWithoutSessionIDIs400(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doUpload(t, "", map[string]string{"notes.txt": "text"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateTextUsesIndexAfterUpload(t *testing.T) {
	env := newTestEnv(t)
	sid := env.createSession(t)

	rec := env.doUpload(t, sid, map[string]string{"facts.txt": "the capital of France is Paris"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/generate_text", map[string]string{
		"text":       "what is the capital of France?",
		"session_id": sid,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stub answer", decodeBody(t, rec)["response"])
}
