package repository

import (
	"fmt"

	"gorm.io/gorm"

	"datacopilot/internal/model"
)

type SuggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

func (r *SuggestionRepository) SaveBatch(suggestions []model.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	if err := r.db.Create(&suggestions).Error; err != nil {
		return fmt.Errorf("save suggestions failed: %w", err)
	}
	return nil
}
