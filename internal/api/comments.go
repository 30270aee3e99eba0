package api

import (
	"net/http" // HTTP status codes
	"time"     // Publication dates

	"yamdb/internal/domain"     // Importing domain models
	"yamdb/internal/metrics"    // Prometheus collectors
	"yamdb/internal/middleware" // Current user lookup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Association clauses
)

// CommentResponse renders a comment with its author's username
type CommentResponse struct {
	ID      uint      `json:"id"`       // Comment ID
	Text    string    `json:"text"`     // Comment body
	Author  string    `json:"author"`   // Author username
	PubDate time.Time `json:"pub_date"` // Publication time
}

// CommentRequest creates or edits a comment
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

func newCommentResponse(cm *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:      cm.ID,
		Text:    cm.Text,
		Author:  cm.Author.Username,
		PubDate: cm.PubDate,
	}
}

// requireReview resolves :title_id and :review_id; the review must belong to the title
func requireReview(c *gin.Context, db *gorm.DB) (*domain.Review, bool) {
	titleID, ok := requireTitle(c, db)
	if !ok {
		return nil, false
	}
	return loadReview(c, db, titleID)
}

// loadComment resolves :comment_id under the given review
func loadComment(c *gin.Context, db *gorm.DB, reviewID uint) (*domain.Comment, bool) {
	id, ok := pathID(c, "comment_id", "Comment")
	if !ok {
		return nil, false
	}
	var comment domain.Comment
	if err := db.Preload("Author").Where("id = ? AND review_id = ?", id, reviewID).First(&comment).Error; err != nil {
		abortLookup(c, err, "Comment")
		return nil, false
	}
	return &comment, true
}

// ListCommentsHandler lists the comments of a review
func ListCommentsHandler(db *gorm.DB, pageSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := db.WithContext(c.Request.Context())
		review, ok := requireReview(c, tx)
		if !ok {
			return
		}
		p := parsePagination(c, pageSize)
		var total int64
		if err := tx.Model(&domain.Comment{}).Where("review_id = ?", review.ID).Count(&total).Error; err != nil {
			abortInternal(c, "Failed to count comments", err)
			return
		}
		var comments []domain.Comment
		if err := tx.Preload("Author").Where("review_id = ?", review.ID).
			Order("id").Offset(p.Offset).Limit(p.Limit).Find(&comments).Error; err != nil {
			abortInternal(c, "Failed to fetch comments", err)
			return
		}
		resp := make([]CommentResponse, len(comments))
		for i := range comments {
			resp[i] = newCommentResponse(&comments[i])
		}
		c.JSON(http.StatusOK, newPage(c, p, total, resp))
	}
}

// GetCommentHandler returns one comment of a review
func GetCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := db.WithContext(c.Request.Context())
		review, ok := requireReview(c, tx)
		if !ok {
			return
		}
		comment, ok := loadComment(c, tx, review.ID)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newCommentResponse(comment))
	}
}

// CreateCommentHandler posts a comment on a review as the current user
func CreateCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		tx := db.WithContext(c.Request.Context())
		review, ok := requireReview(c, tx)
		if !ok {
			return
		}
		var req CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		comment := domain.Comment{Text: req.Text, AuthorID: user.ID, ReviewID: review.ID}
		if err := tx.Omit(clause.Associations).Create(&comment).Error; err != nil {
			abortInternal(c, "Failed to create comment", err)
			return
		}
		comment.Author = *user
		metrics.EntityWrites.WithLabelValues("comment", "create").Inc()
		logrus.WithFields(logrus.Fields{
			"comment_id": comment.ID, // Comment ID
			"review_id":  review.ID,  // Parent review
			"user_id":    user.ID,    // Author
		}).Info("Comment created")
		c.JSON(http.StatusCreated, newCommentResponse(&comment))
	}
}

// UpdateCommentHandler edits a comment; author, moderators and admins only
func UpdateCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		tx := db.WithContext(c.Request.Context())
		review, ok := requireReview(c, tx)
		if !ok {
			return
		}
		comment, ok := loadComment(c, tx, review.ID)
		if !ok {
			return
		}
		if !canModify(user, comment.AuthorID) {
			abortError(c, http.StatusForbidden, "You do not have permission to perform this action")
			return
		}
		var req CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		if err := tx.Model(&domain.Comment{}).Where("id = ?", comment.ID).Update("text", req.Text).Error; err != nil {
			abortInternal(c, "Failed to update comment", err)
			return
		}
		comment.Text = req.Text
		metrics.EntityWrites.WithLabelValues("comment", "update").Inc()
		c.JSON(http.StatusOK, newCommentResponse(comment))
	}
}

// DeleteCommentHandler deletes a comment; author, moderators and admins only
func DeleteCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		tx := db.WithContext(c.Request.Context())
		review, ok := requireReview(c, tx)
		if !ok {
			return
		}
		comment, ok := loadComment(c, tx, review.ID)
		if !ok {
			return
		}
		if !canModify(user, comment.AuthorID) {
			abortError(c, http.StatusForbidden, "You do not have permission to perform this action")
			return
		}
		if err := tx.Delete(comment).Error; err != nil {
			abortInternal(c, "Failed to delete comment", err)
			return
		}
		metrics.EntityWrites.WithLabelValues("comment", "delete").Inc()
		logrus.WithFields(logrus.Fields{
			"comment_id": comment.ID, // Comment ID
			"user_id":    user.ID,    // Acting user
		}).Info("Comment deleted")
		c.Status(http.StatusNoContent)
	}
}
