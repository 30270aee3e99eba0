package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Publication dates

	"yamdb/internal/domain"     // Importing domain models
	"yamdb/internal/metrics"    // Prometheus collectors
	"yamdb/internal/middleware" // Current user lookup
	"yamdb/internal/utils"      // Response cache

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Association clauses
)

// ReviewResponse renders a review with its author's username
type ReviewResponse struct {
	ID      uint      `json:"id"`       // Review ID
	Text    string    `json:"text"`     // Review body
	Author  string    `json:"author"`   // Author username
	Score   int       `json:"score"`    // Score from 1 to 10
	PubDate time.Time `json:"pub_date"` // Publication time
}

// CreateReviewRequest posts a review on a title
type CreateReviewRequest struct {
	Text  string `json:"text" binding:"required"`
	Score *int   `json:"score" binding:"required,min=1,max=10"`
}

// UpdateReviewRequest is a partial update of a review
type UpdateReviewRequest struct {
	Text  *string `json:"text" binding:"omitempty,min=1"`
	Score *int    `json:"score" binding:"omitempty,min=1,max=10"`
}

// errDuplicateReview is the validation message for a second review on the same title
const errDuplicateReview = "You have already reviewed this title."

func newReviewResponse(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		PubDate: r.PubDate,
	}
}

// pathID parses a numeric path parameter; anything else is treated as not found
func pathID(c *gin.Context, param, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		abortError(c, http.StatusNotFound, what+" not found")
		return 0, false
	}
	return uint(id), true
}

// requireTitle resolves :title_id to an existing title id
func requireTitle(c *gin.Context, db *gorm.DB) (uint, bool) {
	id, ok := titleID(c)
	if !ok {
		return 0, false
	}
	var title domain.Title
	if err := db.Select("id").First(&title, id).Error; err != nil {
		abortLookup(c, err, "Title")
		return 0, false
	}
	return id, true
}

// loadReview resolves :review_id under the given title
func loadReview(c *gin.Context, db *gorm.DB, titleID uint) (*domain.Review, bool) {
	id, ok := pathID(c, "review_id", "Review")
	if !ok {
		return nil, false
	}
	var review domain.Review
	if err := db.Preload("Author").Where("id = ? AND title_id = ?", id, titleID).First(&review).Error; err != nil {
		abortLookup(c, err, "Review")
		return nil, false
	}
	return &review, true
}

// ListReviewsHandler lists the reviews of a title
func ListReviewsHandler(db *gorm.DB, pageSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := db.WithContext(c.Request.Context())
		titleID, ok := requireTitle(c, tx)
		if !ok {
			return
		}
		p := parsePagination(c, pageSize)
		var total int64
		if err := tx.Model(&domain.Review{}).Where("title_id = ?", titleID).Count(&total).Error; err != nil {
			abortInternal(c, "Failed to count reviews", err)
			return
		}
		var reviews []domain.Review
		if err := tx.Preload("Author").Where("title_id = ?", titleID).
			Order("id").Offset(p.Offset).Limit(p.Limit).Find(&reviews).Error; err != nil {
			abortInternal(c, "Failed to fetch reviews", err)
			return
		}
		resp := make([]ReviewResponse, len(reviews))
		for i := range reviews {
			resp[i] = newReviewResponse(&reviews[i])
		}
		c.JSON(http.StatusOK, newPage(c, p, total, resp))
	}
}

// GetReviewHandler returns one review of a title
func GetReviewHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := db.WithContext(c.Request.Context())
		titleID, ok := requireTitle(c, tx)
		if !ok {
			return
		}
		review, ok := loadReview(c, tx, titleID)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newReviewResponse(review))
	}
}

// CreateReviewHandler posts the current user's single review of a title
func CreateReviewHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		tx := db.WithContext(c.Request.Context())
		titleID, ok := requireTitle(c, tx)
		if !ok {
			return
		}
		var req CreateReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		// One review per author and title; the unique index settles races
		var count int64
		if err := tx.Model(&domain.Review{}).Where("author_id = ? AND title_id = ?", user.ID, titleID).Count(&count).Error; err != nil {
			abortInternal(c, "Failed to check existing review", err)
			return
		}
		if count > 0 {
			abortValidation(c, FieldErrors{"non_field_errors": errDuplicateReview})
			return
		}
		review := domain.Review{Text: req.Text, Score: *req.Score, AuthorID: user.ID, TitleID: titleID}
		if err := tx.Omit(clause.Associations).Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				abortValidation(c, FieldErrors{"non_field_errors": errDuplicateReview})
				return
			}
			abortInternal(c, "Failed to create review", err)
			return
		}
		review.Author = *user
		metrics.EntityWrites.WithLabelValues("review", "create").Inc()
		logrus.WithFields(logrus.Fields{
			"review_id": review.ID,    // Review ID
			"title_id":  titleID,      // Reviewed title
			"user_id":   user.ID,      // Author
			"score":     review.Score, // Score
		}).Info("Review created")
		invalidateTitles(cache)(c)
		c.JSON(http.StatusCreated, newReviewResponse(&review))
	}
}

// UpdateReviewHandler edits a review; author, moderators and admins only
func UpdateReviewHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		tx := db.WithContext(c.Request.Context())
		titleID, ok := requireTitle(c, tx)
		if !ok {
			return
		}
		review, ok := loadReview(c, tx, titleID)
		if !ok {
			return
		}
		if !canModify(user, review.AuthorID) {
			abortError(c, http.StatusForbidden, "You do not have permission to perform this action")
			return
		}
		var req UpdateReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		updates := map[string]any{}
		if req.Text != nil {
			updates["text"] = *req.Text
			review.Text = *req.Text
		}
		if req.Score != nil {
			updates["score"] = *req.Score
			review.Score = *req.Score
		}
		if len(updates) > 0 {
			if err := tx.Model(&domain.Review{}).Where("id = ?", review.ID).Updates(updates).Error; err != nil {
				abortInternal(c, "Failed to update review", err)
				return
			}
			metrics.EntityWrites.WithLabelValues("review", "update").Inc()
			invalidateTitles(cache)(c)
		}
		c.JSON(http.StatusOK, newReviewResponse(review))
	}
}

// DeleteReviewHandler deletes a review and its comments; author, moderators and admins only
func DeleteReviewHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		tx := db.WithContext(c.Request.Context())
		titleID, ok := requireTitle(c, tx)
		if !ok {
			return
		}
		review, ok := loadReview(c, tx, titleID)
		if !ok {
			return
		}
		if !canModify(user, review.AuthorID) {
			abortError(c, http.StatusForbidden, "You do not have permission to perform this action")
			return
		}
		// BeforeDelete removes the comments in the same transaction
		if err := tx.Delete(review).Error; err != nil {
			abortInternal(c, "Failed to delete review", err)
			return
		}
		metrics.EntityWrites.WithLabelValues("review", "delete").Inc()
		logrus.WithFields(logrus.Fields{
			"review_id": review.ID, // Review ID
			"user_id":   user.ID,   // Acting user
		}).Info("Review deleted")
		invalidateTitles(cache)(c)
		c.Status(http.StatusNoContent)
	}
}
