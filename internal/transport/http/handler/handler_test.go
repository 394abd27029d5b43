package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"ragchat/internal/app"
	"ragchat/internal/model"
	sqliteClient "ragchat/internal/platform/sqlite"
	"ragchat/internal/repository"
	"ragchat/internal/vecstore"
)

type testEnv struct {
	router    *gin.Engine
	completer *stubCompleter
	vecStore  *vecstore.Store
}

type stubCompleter struct {
	answer string
	err    error
}

func (s *stubCompleter) Complete(context.Context, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqliteClient.New(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}, &model.Message{}, &model.File{}))

	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	fileRepo := repository.NewFileRepository(db)
	vecStore := vecstore.NewStore(t.TempDir())
	completer := &stubCompleter{answer: "stub answer"}

	sessionService := app.NewSessionService(sessionRepo, messageRepo, fileRepo, vecStore, nil, nil)
	ingestService := app.NewIngestService(fileRepo, vecStore, stubEmbedder{}, app.IngestConfig{ChunkSize: 100, ChunkOverlap: 20}, nil)
	chatService := app.NewChatService(sessionRepo, messageRepo, vecStore, stubEmbedder{}, completer, nil, nil, 1, 4, nil)

	sessionHandler := NewSessionHandler(sessionService)
	chatHandler := NewChatHandler(chatService)
	uploadHandler := NewUploadHandler(ingestService)

	router := gin.New()
	router.POST("/create_session", sessionHandler.CreateSession)
	router.POST("/rename_session", sessionHandler.RenameSession)
	router.GET("/get_sessions", sessionHandler.GetSessions)
	router.POST("/get_session_messages", sessionHandler.GetSessionMessages)
	router.DELETE("/delete_session/:id", sessionHandler.DeleteSession)
	router.POST("/generate_text", chatHandler.GenerateText)
	router.POST("/upload_file", uploadHandler.UploadFile)
	router.GET("/get_files/:id", sessionHandler.GetFiles)

	return &testEnv{router: router, completer: completer, vecStore: vecStore}
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/create_session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.NotEmpty(t, body["session_id"])
	require.NotEmpty(t, body["session_name"])
	return body["session_id"].(string)
}
