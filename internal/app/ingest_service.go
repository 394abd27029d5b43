package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"ragchat/internal/ai"
	"ragchat/internal/docload"
	"ragchat/internal/model"
	"ragchat/internal/repository"
	"ragchat/internal/vecstore"
)

const embeddingBatchSize = 10 // embedding APIs commonly cap batch size

type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// IngestService folds uploaded documents into a session's vector index.
type IngestService struct {
	fileRepo *repository.FileRepository
	vecStore *vecstore.Store
	embedder ai.Embedder
	cfg      IngestConfig
	logger   *slog.Logger
}

func NewIngestService(
	fileRepo *repository.FileRepository,
	vecStore *vecstore.Store,
	embedder ai.Embedder,
	cfg IngestConfig,
	logger *slog.Logger,
) *IngestService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 2000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap*2 >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		fileRepo: fileRepo,
		vecStore: vecStore,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

type UploadFile struct {
	Name string
	Data []byte
}

type FileResult struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

type UploadResult struct {
	Results   []FileResult `json:"results"`
	Succeeded int          `json:"succeeded"`
}

// UploadBatch processes every file in the batch; a failure on one file does
// not abort its siblings. Files with empty names are skipped.
func (s *IngestService) UploadBatch(ctx context.Context, sessionID string, files []UploadFile) (*UploadResult, error) {
	if sessionID == "" {
		return nil, ErrNoFiles
	}
	var pending []UploadFile
	for _, f := range files {
		if f.Name == "" {
			continue
		}
		pending = append(pending, f)
	}
	if len(pending) == 0 {
		return nil, ErrNoFiles
	}

	result := &UploadResult{}
	for _, f := range pending {
		chunkCount, err := s.ingestFile(ctx, sessionID, f)
		fr := FileResult{Filename: f.Name, ChunkCount: chunkCount}
		if err != nil {
			s.logger.Error("ingest file failed", "session_id", sessionID, "filename", f.Name, "error", err)
			fr.Error = err.Error()
			fr.ChunkCount = 0
		} else {
			result.Succeeded++
		}
		result.Results = append(result.Results, fr)
	}
	return result, nil
}

// ingestFile saves the raw bytes, chunks and embeds the text, and merges the
// new vectors into the session's persisted index under the session lock.
func (s *IngestService) ingestFile(ctx context.Context, sessionID string, f UploadFile) (int, error) {
	sessionDir := s.vecStore.SessionDir(sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return 0, fmt.Errorf("create session folder failed: %w", err)
	}
	savedName := filepath.Base(f.Name)
	if err := os.WriteFile(filepath.Join(sessionDir, savedName), f.Data, 0o644); err != nil {
		return 0, fmt.Errorf("save uploaded file failed: %w", err)
	}

	text, err := docload.ExtractText(savedName, f.Data)
	if err != nil {
		return 0, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("file %q contains no extractable text", savedName)
	}

	chunks := splitChunks(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	fresh := vecstore.NewIndex()
	for i := range chunks {
		fresh.Add(vecstore.Chunk{Content: chunks[i], Source: savedName, Vector: vectors[i]})
	}

	lock, err := s.vecStore.Lock(sessionID)
	if err != nil {
		return 0, err
	}
	defer func() { _ = lock.Unlock() }()

	existing, err := s.vecStore.Load(sessionID)
	if err != nil && !errors.Is(err, vecstore.ErrIndexNotFound) {
		return 0, err
	}
	if existing != nil {
		fresh.Merge(existing)
	}
	if err := s.vecStore.Save(sessionID, fresh); err != nil {
		return 0, err
	}

	if err := s.fileRepo.Create(&model.File{SessionID: sessionID, Filename: savedName}); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (s *IngestService) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	var vectors [][]float32
	for i := 0; i < len(chunks); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := s.embedder.EmbedBatch(ctx, chunks[i:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	return vectors, nil
}

// splitChunks produces overlapping rune-based chunks, pulling each boundary
// back to the nearest newline or space in the second half of the window so a
// cut rarely lands mid-sentence.
func splitChunks(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}
		cut := end
		for i := end; i > start+size/2; i-- {
			if runes[i-1] == '\n' || unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:cut])))
		start = cut - overlap
		if start < 0 {
			start = 0
		}
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
