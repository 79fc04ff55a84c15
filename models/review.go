package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ProductID    uint       `gorm:"not null;index" json:"product_id"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ReviewerName string     `gorm:"not null" json:"reviewer_name"`
	Rating       int        `gorm:"not null" json:"rating"`
	Comment      string     `gorm:"type:text;not null" json:"comment"`
	IsApproved   bool       `gorm:"not null;index" json:"is_approved"`
	CreatedAt    time.Time  `json:"created_at"`
}
