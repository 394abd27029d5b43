package repository

import (
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(file *model.File) error {
	if err := r.db.Create(file).Error; err != nil {
		return fmt.Errorf("create file record failed: %w", err)
	}
	return nil
}

func (r *FileRepository) ListBySessionID(sessionID string) ([]model.File, error) {
	var files []model.File
	if err := r.db.Where("session_id = ?", sessionID).Order("id ASC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list file records failed: %w", err)
	}
	return files, nil
}
