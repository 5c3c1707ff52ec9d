// Package gorm provides GORM model definitions and repositories
package gorm

import (
	"time"

	"github.com/google/uuid"
)

// ProfileModel represents the GORM model for registered users
type ProfileModel struct {
	ID                  uuid.UUID `gorm:"type:char(36);primaryKey"`
	Username            string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash        string    `gorm:"type:varchar(255);not null"`
	Age                 int       `gorm:"not null"`
	Sex                 string    `gorm:"type:char(1);not null"`
	WeightKg            float64   `gorm:"column:weight_kg;not null"`
	HeightCm            float64   `gorm:"column:height_cm;not null"`
	DietaryRestrictions string    `gorm:"type:text"`
	DietaryGoals        string    `gorm:"type:text"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName returns the table name for ProfileModel
func (ProfileModel) TableName() string {
	return "users"
}

// AllModels lists every model for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{&ProfileModel{}}
}
