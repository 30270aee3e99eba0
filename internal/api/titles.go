package api

import (
	"context"  // Cache operations
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"slices"   // Slice helpers
	"sort"     // Deterministic genre order
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Current year

	"yamdb/internal/domain"  // Importing domain models
	"yamdb/internal/metrics" // Prometheus collectors
	"yamdb/internal/utils"   // Response cache

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// titlesNamespace groups every cached title response
const titlesNamespace = "titles"

// now is the clock used for year validation
var now = time.Now

// TitleResponse is the rendered title with its derived rating
type TitleResponse struct {
	ID          uint              `json:"id"`          // Title ID
	Name        string            `json:"name"`        // Title name
	Year        int               `json:"year"`        // Release year
	Rating      *float64          `json:"rating"`      // Average score, null without reviews
	Description string            `json:"description"` // Description
	Genre       []SluggedResponse `json:"genre"`       // Genres
	Category    *SluggedResponse  `json:"category"`    // Category, null when unset
}

// CreateTitleRequest creates a title; genre and category are given by slug
type CreateTitleRequest struct {
	Name        string   `json:"name" binding:"required,max=256"`
	Year        *int     `json:"year" binding:"required"`
	Description string   `json:"description"`
	Genre       []string `json:"genre" binding:"omitempty,dive,required"`
	Category    *string  `json:"category"`
}

// UpdateTitleRequest is a partial update; a supplied genre list replaces the set
// and an empty category slug clears the category
type UpdateTitleRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=256"`
	Year        *int     `json:"year"`
	Description *string  `json:"description"`
	Genre       []string `json:"genre" binding:"omitempty,dive,required"`
	Category    *string  `json:"category"`
}

func newTitleResponse(t *domain.Title) TitleResponse {
	resp := TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      t.Rating,
		Description: t.Description,
		Genre:       make([]SluggedResponse, 0, len(t.Genres)),
	}
	for i := range t.Genres {
		resp.Genre = append(resp.Genre, newSluggedResponse(&t.Genres[i].Slugged))
	}
	sort.Slice(resp.Genre, func(i, j int) bool { return resp.Genre[i].Slug < resp.Genre[j].Slug })
	if t.Category != nil {
		cat := newSluggedResponse(&t.Category.Slugged)
		resp.Category = &cat
	}
	return resp
}

// titleQuery selects titles with their rating and relations
func titleQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&domain.Title{}).
		Select(domain.RatingSelect).
		Preload("Category").
		Preload("Genres")
}

// loadTitle fetches one rendered title
func loadTitle(db *gorm.DB, id uint) (*domain.Title, error) {
	var title domain.Title
	if err := titleQuery(db).Where("titles.id = ?", id).Take(&title).Error; err != nil {
		return nil, err
	}
	return &title, nil
}

// titleID parses the :title_id path parameter; non-numeric ids are simply not found
func titleID(c *gin.Context) (uint, bool) {
	return pathID(c, "title_id", "Title")
}

// applyTitleFilters narrows a title query by the supported query parameters
func applyTitleFilters(c *gin.Context, query *gorm.DB) (*gorm.DB, FieldErrors) {
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		query = whereContains(query, "titles.name", name)
	}
	if y := c.Query("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return nil, FieldErrors{"year": "Enter a whole number."}
		}
		query = query.Where("titles.year = ?", year)
	}
	if genre := c.Query("genre"); genre != "" {
		query = query.Where("titles.id IN (SELECT genre_titles.title_id FROM genre_titles "+
			"JOIN genres ON genres.id = genre_titles.genre_id WHERE genres.slug = ?)", genre)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("titles.category_id IN (SELECT categories.id FROM categories WHERE categories.slug = ?)", category)
	}
	return query, nil
}

// resolveCategory maps a slug to a category; an empty slug means none
func resolveCategory(db *gorm.DB, slug string) (*domain.Category, error) {
	if slug == "" {
		return nil, nil
	}
	var category domain.Category
	if err := db.Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// errUnknownGenre is returned when a genre slug does not resolve
type errUnknownGenre struct{ slug string }

func (e errUnknownGenre) Error() string { return "Genre not found: " + e.slug }

// resolveGenres maps slugs to genres, failing on the first unknown slug
func resolveGenres(db *gorm.DB, slugs []string) ([]domain.Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	unique := slices.Compact(slices.Sorted(slices.Values(slugs)))
	var genres []domain.Genre
	if err := db.Where("slug IN ?", unique).Find(&genres).Error; err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(genres))
	for _, g := range genres {
		found[g.Slug] = true
	}
	for _, s := range unique {
		if !found[s] {
			return nil, errUnknownGenre{slug: s}
		}
	}
	return genres, nil
}

// replaceGenres rewrites the GenreTitle rows of a title
func replaceGenres(tx *gorm.DB, titleID uint, genres []domain.Genre) error {
	if err := tx.Where("title_id = ?", titleID).Delete(&domain.GenreTitle{}).Error; err != nil {
		return err
	}
	if len(genres) == 0 {
		return nil
	}
	links := make([]domain.GenreTitle, len(genres))
	for i, g := range genres {
		links[i] = domain.GenreTitle{GenreID: g.ID, TitleID: titleID}
	}
	return tx.Create(&links).Error
}

// invalidateTitles drops cached title responses after anything that changes them
func invalidateTitles(cache *utils.Cache) func(c *gin.Context) {
	return func(c *gin.Context) {
		if err := cache.Invalidate(context.WithoutCancel(c.Request.Context()), titlesNamespace); err != nil {
			logrus.WithError(err).Warn("Failed to invalidate title cache")
		}
	}
}

// ListTitlesHandler lists titles with rating, filtered by name, year, genre and category
func ListTitlesHandler(db *gorm.DB, cache *utils.Cache, pageSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// Links in the envelope are absolute, so scheme and host are part of the key
		cacheKey := "list:" + requestScheme(c.Request) + "://" + c.Request.Host + "?" + c.Request.URL.Query().Encode()
		var cached Page[TitleResponse]
		if found, err := cache.Get(ctx, titlesNamespace, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		} else if err != nil {
			logrus.WithError(err).Warn("Title cache read failed")
		}

		p := parsePagination(c, pageSize)
		countQuery, fields := applyTitleFilters(c, db.WithContext(ctx).Model(&domain.Title{}))
		if fields != nil {
			abortValidation(c, fields)
			return
		}
		var total int64
		if err := countQuery.Count(&total).Error; err != nil {
			abortInternal(c, "Failed to count titles", err)
			return
		}
		listQuery, _ := applyTitleFilters(c, titleQuery(db.WithContext(ctx)))
		var titles []domain.Title
		if err := listQuery.Order("titles.id").Offset(p.Offset).Limit(p.Limit).Find(&titles).Error; err != nil {
			abortInternal(c, "Failed to fetch titles", err)
			return
		}
		resp := make([]TitleResponse, len(titles))
		for i := range titles {
			resp[i] = newTitleResponse(&titles[i])
		}
		page := newPage(c, p, total, resp)
		if err := cache.Set(ctx, titlesNamespace, cacheKey, page); err != nil {
			logrus.WithError(err).Warn("Title cache write failed")
		}
		c.JSON(http.StatusOK, page)
	}
}

// GetTitleHandler returns one title with its rating
func GetTitleHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := titleID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		cacheKey := "id=" + strconv.FormatUint(uint64(id), 10)
		var cached TitleResponse
		if found, err := cache.Get(ctx, titlesNamespace, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		} else if err != nil {
			logrus.WithError(err).WithField("title_id", id).Warn("Title cache read failed")
		}
		title, err := loadTitle(db.WithContext(ctx), id)
		if err != nil {
			abortLookup(c, err, "Title")
			return
		}
		resp := newTitleResponse(title)
		if err := cache.Set(ctx, titlesNamespace, cacheKey, resp); err != nil {
			logrus.WithError(err).WithField("title_id", id).Warn("Title cache write failed")
		}
		c.JSON(http.StatusOK, resp)
	}
}

// abortResolve maps slug resolution failures to 404
func abortResolve(c *gin.Context, err error) {
	var unknown errUnknownGenre
	switch {
	case errors.As(err, &unknown):
		abortError(c, http.StatusNotFound, unknown.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		abortError(c, http.StatusNotFound, "Category not found")
	default:
		abortInternal(c, "Failed to resolve category or genre", err)
	}
}

// CreateTitleHandler creates a title and links its category and genres
func CreateTitleHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTitleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		if msg := validateYear(*req.Year, now()); msg != "" {
			abortValidation(c, FieldErrors{"year": msg})
			return
		}
		tx := db.WithContext(c.Request.Context())
		var categorySlug string
		if req.Category != nil {
			categorySlug = *req.Category
		}
		category, err := resolveCategory(tx, categorySlug)
		if err != nil {
			abortResolve(c, err)
			return
		}
		genres, err := resolveGenres(tx, req.Genre)
		if err != nil {
			abortResolve(c, err)
			return
		}

		title := domain.Title{Name: req.Name, Year: *req.Year, Description: req.Description}
		if category != nil {
			title.CategoryID = &category.ID
		}
		err = tx.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Category", "Genres").Create(&title).Error; err != nil {
				return err
			}
			return replaceGenres(tx, title.ID, genres)
		})
		if err != nil {
			abortInternal(c, "Failed to create title", err)
			return
		}
		created, err := loadTitle(tx, title.ID)
		if err != nil {
			abortInternal(c, "Failed to load title", err)
			return
		}
		metrics.EntityWrites.WithLabelValues("title", "create").Inc()
		invalidateTitles(cache)(c)
		c.JSON(http.StatusCreated, newTitleResponse(created))
	}
}

// UpdateTitleHandler applies a partial update to a title
func UpdateTitleHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := titleID(c)
		if !ok {
			return
		}
		tx := db.WithContext(c.Request.Context())
		var title domain.Title
		if err := tx.First(&title, id).Error; err != nil {
			abortLookup(c, err, "Title")
			return
		}
		var req UpdateTitleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}

		updates := map[string]any{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Year != nil {
			if msg := validateYear(*req.Year, now()); msg != "" {
				abortValidation(c, FieldErrors{"year": msg})
				return
			}
			updates["year"] = *req.Year
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Category != nil {
			category, err := resolveCategory(tx, *req.Category)
			if err != nil {
				abortResolve(c, err)
				return
			}
			if category != nil {
				updates["category_id"] = category.ID
			} else {
				updates["category_id"] = nil
			}
		}
		var genres []domain.Genre
		if req.Genre != nil {
			var err error
			if genres, err = resolveGenres(tx, req.Genre); err != nil {
				abortResolve(c, err)
				return
			}
		}

		err := tx.Transaction(func(tx *gorm.DB) error {
			if len(updates) > 0 {
				if err := tx.Model(&title).Updates(updates).Error; err != nil {
					return err
				}
			}
			if req.Genre != nil {
				return replaceGenres(tx, title.ID, genres)
			}
			return nil
		})
		if err != nil {
			abortInternal(c, "Failed to update title", err)
			return
		}
		updated, err := loadTitle(tx, title.ID)
		if err != nil {
			abortInternal(c, "Failed to load title", err)
			return
		}
		metrics.EntityWrites.WithLabelValues("title", "update").Inc()
		invalidateTitles(cache)(c)
		c.JSON(http.StatusOK, newTitleResponse(updated))
	}
}

// DeleteTitleHandler deletes a title with its reviews and comments
func DeleteTitleHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := titleID(c)
		if !ok {
			return
		}
		tx := db.WithContext(c.Request.Context())
		var title domain.Title
		if err := tx.First(&title, id).Error; err != nil {
			abortLookup(c, err, "Title")
			return
		}
		if err := tx.Delete(&title).Error; err != nil {
			abortInternal(c, "Failed to delete title", err)
			return
		}
		metrics.EntityWrites.WithLabelValues("title", "delete").Inc()
		logrus.WithFields(logrus.Fields{"title_id": title.ID, "name": title.Name}).Info("Title deleted")
		invalidateTitles(cache)(c)
		c.Status(http.StatusNoContent)
	}
}
