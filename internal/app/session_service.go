package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"ragchat/internal/model"
	"ragchat/internal/namegen"
	"ragchat/internal/repository"
	"ragchat/internal/vecstore"
)

// HistoryCache is the session-history cache the services need; implemented by
// internal/cache, nil-able for tests.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

type SessionService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	fileRepo     *repository.FileRepository
	vecStore     *vecstore.Store
	historyCache HistoryCache
	logger       *slog.Logger
}

func NewSessionService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	fileRepo *repository.FileRepository,
	vecStore *vecstore.Store,
	historyCache HistoryCache,
	logger *slog.Logger,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		fileRepo:     fileRepo,
		vecStore:     vecStore,
		historyCache: historyCache,
		logger:       logger,
	}
}

// CreateSession persists an empty session with a fresh id and a generated name.
func (s *SessionService) CreateSession() (*model.Session, error) {
	session := &model.Session{
		ID:   uuid.NewString(),
		Name: namegen.Generate(),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// RenameSession fails with ErrSessionNotFound for unknown ids and never
// creates a session as a side effect.
func (s *SessionService) RenameSession(sessionID, newName string) error {
	newName = strings.TrimSpace(newName)
	if sessionID == "" || newName == "" {
		return ErrInvalidInput
	}
	renamed, err := s.sessionRepo.Rename(sessionID, newName)
	if err != nil {
		return err
	}
	if !renamed {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SessionService) ListSessions() ([]model.Session, error) {
	return s.sessionRepo.List()
}

// GetSessionMessages returns the session's ordered history, consulting the
// cache when it is clean.
func (s *SessionService) GetSessionMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

// DeleteSession removes the DB rows (cascade) and then the filesystem
// namespace. A failed namespace removal is logged and swallowed: an orphaned
// directory must not block deletion of the record.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	if err := s.sessionRepo.DeleteByID(sessionID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}
	if err := s.vecStore.DeleteNamespace(sessionID); err != nil {
		s.logger.Error("delete session namespace failed", "session_id", sessionID, "error", err)
	}
	return nil
}

// ListFiles returns the filenames uploaded to a session, oldest first.
func (s *SessionService) ListFiles(sessionID string) ([]string, error) {
	files, err := s.fileRepo.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	filenames := make([]string, len(files))
	for i, f := range files {
		filenames[i] = f.Filename
	}
	return filenames, nil
}
