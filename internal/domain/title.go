package domain

import (
	"math" // Rounding for the derived rating

	"gorm.io/gorm" // GORM ORM library
)

// MinTitleYear is the exclusive lower bound for a title's year
const MinTitleYear = 0

// Title Model
type Title struct {
	ID          uint      `gorm:"primaryKey"`                                     // Primary key
	Name        string    `gorm:"size:256;not null;index"`                        // Title name
	Year        int       `gorm:"not null;index"`                                 // Release year
	Description string    `gorm:"type:text"`                                      // Optional description
	CategoryID  *uint     `gorm:"index"`                                          // Nullable category reference
	Category    *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // Category, nulled on delete
	Genres      []Genre   `gorm:"many2many:genre_titles;"`                        // Genres through GenreTitle
	Rating      *float64  `gorm:"->;-:migration"`                                 // Average review score, read only
}

// RatingSelect is the column list that fills Title.Rating on reads
const RatingSelect = "titles.*, (SELECT AVG(reviews.score) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// AfterFind rounds the aggregated rating to one decimal place
func (t *Title) AfterFind(tx *gorm.DB) error {
	if t.Rating != nil {
		r := RoundRating(*t.Rating)
		t.Rating = &r
	}
	return nil
}

// BeforeDelete removes reviews, their comments and the genre links
func (t *Title) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Where("review_id IN (SELECT id FROM reviews WHERE title_id = ?)", t.ID).Delete(&Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("title_id = ?", t.ID).Delete(&Review{}).Error; err != nil {
		return err
	}
	return tx.Where("title_id = ?", t.ID).Delete(&GenreTitle{}).Error
}

// RoundRating rounds an average score to one decimal place
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
