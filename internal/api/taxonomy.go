package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"yamdb/internal/domain"  // Importing domain models
	"yamdb/internal/metrics" // Prometheus collectors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// SluggedResponse renders a category or a genre
type SluggedResponse struct {
	Name string `json:"name"` // Display name
	Slug string `json:"slug"` // URL-safe key
}

// SluggedRequest creates a category or a genre
type SluggedRequest struct {
	Name string `json:"name" binding:"required,max=256"`     // Display name
	Slug string `json:"slug" binding:"required,max=50,slug"` // URL-safe key
}

// sluggedModel is satisfied by *domain.Category and *domain.Genre
type sluggedModel[T any] interface {
	*T
	Base() *domain.Slugged
}

func newSluggedResponse(s *domain.Slugged) SluggedResponse {
	return SluggedResponse{Name: s.Name, Slug: s.Slug}
}

// ListSluggedHandler lists categories or genres ordered by name, filtered by ?search=
func ListSluggedHandler[T any, PT sluggedModel[T]](db *gorm.DB, pageSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := parsePagination(c, pageSize)
		query := db.WithContext(c.Request.Context()).Model(new(T))
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			query = whereContains(query, "name", search)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			abortInternal(c, "Failed to count records", err)
			return
		}
		var items []T
		if err := query.Order("name").Order("id").Offset(p.Offset).Limit(p.Limit).Find(&items).Error; err != nil {
			abortInternal(c, "Failed to fetch records", err)
			return
		}
		resp := make([]SluggedResponse, len(items))
		for i := range items {
			resp[i] = newSluggedResponse(PT(&items[i]).Base())
		}
		c.JSON(http.StatusOK, newPage(c, p, total, resp))
	}
}

// CreateSluggedHandler creates a category or a genre with a unique slug
func CreateSluggedHandler[T any, PT sluggedModel[T]](db *gorm.DB, entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SluggedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		tx := db.WithContext(c.Request.Context())
		var count int64
		if err := tx.Model(new(T)).Where("slug = ?", req.Slug).Count(&count).Error; err != nil {
			abortInternal(c, "Failed to check slug", err)
			return
		}
		if count > 0 {
			abortValidation(c, FieldErrors{"slug": "A " + entity + " with slug \"" + req.Slug + "\" already exists."})
			return
		}
		item := new(T)
		base := PT(item).Base()
		base.Name, base.Slug = req.Name, req.Slug
		if err := tx.Create(item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				abortValidation(c, FieldErrors{"slug": "A " + entity + " with slug \"" + req.Slug + "\" already exists."})
				return
			}
			abortInternal(c, "Failed to create "+entity, err)
			return
		}
		metrics.EntityWrites.WithLabelValues(entity, "create").Inc()
		c.JSON(http.StatusCreated, newSluggedResponse(base))
	}
}

// DeleteSluggedHandler deletes a category or a genre by slug; titles survive
func DeleteSluggedHandler[T any, PT sluggedModel[T]](db *gorm.DB, entity string, onDelete func(c *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := db.WithContext(c.Request.Context())
		item := new(T)
		if err := tx.Where("slug = ?", c.Param("slug")).First(item).Error; err != nil {
			abortLookup(c, err, strings.ToUpper(entity[:1])+entity[1:])
			return
		}
		// BeforeDelete detaches the titles inside the same transaction
		if err := tx.Delete(item).Error; err != nil {
			abortInternal(c, "Failed to delete "+entity, err)
			return
		}
		metrics.EntityWrites.WithLabelValues(entity, "delete").Inc()
		logrus.WithFields(logrus.Fields{
			"entity": entity,          // category or genre
			"slug":   c.Param("slug"), // Deleted slug
		}).Info("Taxonomy entry deleted")
		if onDelete != nil {
			onDelete(c)
		}
		c.Status(http.StatusNoContent)
	}
}
