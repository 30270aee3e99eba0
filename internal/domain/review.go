package domain

import (
	"time" // Timestamps

	"gorm.io/gorm" // GORM ORM library
)

// Score bounds for a review
const (
	MinScore = 1
	MaxScore = 10
)

// Review Model
type Review struct {
	ID       uint      `gorm:"primaryKey"`                                                  // Primary key
	Text     string    `gorm:"type:text;not null"`                                          // Review body
	AuthorID uint      `gorm:"not null;uniqueIndex:idx_review_author_title"`                // One review per author and title
	Author   User      `gorm:"constraint:OnDelete:CASCADE;"`                                // Review author
	TitleID  uint      `gorm:"not null;uniqueIndex:idx_review_author_title;index"`          // Reviewed title
	Title    Title     `gorm:"constraint:OnDelete:CASCADE;"`                                // Reviewed title
	Score    int       `gorm:"not null;check:chk_reviews_score,score >= 1 AND score <= 10"` // Score from 1 to 10
	PubDate  time.Time `gorm:"autoCreateTime"`                                              // Publication time
}

// BeforeDelete removes the review's comments
func (r *Review) BeforeDelete(tx *gorm.DB) error {
	return tx.Where("review_id = ?", r.ID).Delete(&Comment{}).Error
}

// Comment Model
type Comment struct {
	ID       uint      `gorm:"primaryKey"`                   // Primary key
	Text     string    `gorm:"type:text;not null"`           // Comment body
	AuthorID uint      `gorm:"not null;index"`               // Comment author
	Author   User      `gorm:"constraint:OnDelete:CASCADE;"` // Comment author
	ReviewID uint      `gorm:"not null;index"`               // Parent review
	Review   Review    `gorm:"constraint:OnDelete:CASCADE;"` // Parent review
	PubDate  time.Time `gorm:"autoCreateTime"`               // Publication time
}
