package domain

import (
	"gorm.io/gorm" // GORM ORM library
)

// Slugged holds the fields shared by categories and genres
type Slugged struct {
	Name string `gorm:"size:256;not null"`            // Display name
	Slug string `gorm:"size:50;uniqueIndex;not null"` // URL-safe unique key
}

// Base exposes the shared fields to code that handles both kinds
func (s *Slugged) Base() *Slugged { return s }

// Category Model
type Category struct {
	ID uint `gorm:"primaryKey"` // Primary key
	Slugged
}

// BeforeDelete detaches titles so they outlive the category
func (c *Category) BeforeDelete(tx *gorm.DB) error {
	return tx.Model(&Title{}).Where("category_id = ?", c.ID).Update("category_id", nil).Error
}

// Genre Model
type Genre struct {
	ID uint `gorm:"primaryKey"` // Primary key
	Slugged
}

// BeforeDelete drops only the association rows
func (g *Genre) BeforeDelete(tx *gorm.DB) error {
	return tx.Where("genre_id = ?", g.ID).Delete(&GenreTitle{}).Error
}

// GenreTitle is the join row between genres and titles
type GenreTitle struct {
	GenreID uint `gorm:"primaryKey"`
	TitleID uint `gorm:"primaryKey"`
}
