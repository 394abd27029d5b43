package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(sessionID string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) List() ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.Order("created_at ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// Rename updates the display name. Returns (false, nil) when the id is unknown
// so the caller can distinguish NotFound without a prior fetch.
func (r *SessionRepository) Rename(sessionID, newName string) (bool, error) {
	result := r.db.Model(&model.Session{}).Where("id = ?", sessionID).Update("name", newName)
	if result.Error != nil {
		return false, fmt.Errorf("rename session failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteByID removes the session row and cascades to its messages and files in
// one transaction. The on-disk namespace is the service layer's problem.
func (r *SessionRepository) DeleteByID(sessionID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.File{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", sessionID).Delete(&model.Session{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
