package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"datacopilot/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(document *model.Document) error {
	if err := r.db.Create(document).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(documentID string) (*model.Document, error) {
	var document model.Document
	if err := r.db.Where("id = ?", documentID).First(&document).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &document, nil
}

func (r *DocumentRepository) UpdateContent(documentID, content string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", documentID).Update("content", content).Error; err != nil {
		return fmt.Errorf("update document failed: %w", err)
	}
	return nil
}
