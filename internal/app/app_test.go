package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ragchat/internal/model"
	sqliteClient "ragchat/internal/platform/sqlite"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqliteClient.New(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}, &model.Message{}, &model.File{}))
	return db
}

// fakeEmbedder maps text deterministically onto a small vector.
type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vec(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vec(t)
	}
	return out, nil
}

func (f *fakeEmbedder) vec(text string) []float32 {
	if text == "" {
		return []float32{0, 0, 1}
	}
	return []float32{float32(len(text)%7) + 1, float32(text[0] % 5), 1}
}

// fakeCompleter records the last prompt and returns a canned answer.
type fakeCompleter struct {
	prompt string
	calls  int
	answer string
	err    error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
