package api

import (
	"net/http" // HTTP status codes
	"time"     // Token lifetime

	"yamdb/internal/domain"     // Importing domain models
	"yamdb/internal/mail"       // Confirmation mail
	"yamdb/internal/metrics"    // Prometheus collectors
	"yamdb/internal/middleware" // Custom middleware
	"yamdb/internal/utils"      // Response cache

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Deps carries everything the handlers need
type Deps struct {
	DB        *gorm.DB      // Database handle
	Cache     *utils.Cache  // Optional response cache, nil disables caching
	Mailer    mail.Sender   // Confirmation code delivery
	JWTSecret string        // HMAC secret for access tokens
	JWTTTL    time.Duration // Access token lifetime
	PageSize  int           // Default list page size
}

// NewRouter builds the gin engine with every route of the API
func NewRouter(d Deps) *gin.Engine {
	registerValidators()
	if d.PageSize <= 0 {
		d.PageSize = 10
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(), middleware.Metrics())
	r.NoRoute(func(c *gin.Context) {
		abortError(c, http.StatusNotFound, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		abortError(c, http.StatusMethodNotAllowed, "Method \""+c.Request.Method+"\" not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	onTaxonomyChange := invalidateTitles(d.Cache) // Titles embed categories, genres and ratings

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuthMiddleware(d.JWTSecret, d.DB)) // Optional: anonymous requests pass through

	// Auth routes
	auth := v1.Group("/auth")
	auth.POST("/signup", SignupHandler(d.DB, d.Mailer))              // Request a confirmation code
	auth.POST("/token", TokenHandler(d.DB, d.JWTSecret, d.JWTTTL)) // Exchange the code for a token

	// User routes; /me is self-service, everything else is admin only
	admin := middleware.AdminOnlyMiddleware()
	users := v1.Group("/users")
	users.GET("/me", middleware.RequireAuth(), MeHandler())
	users.PATCH("/me", middleware.RequireAuth(), UpdateMeHandler(d.DB))
	users.GET("", admin, ListUsersHandler(d.DB, d.PageSize))
	users.POST("", admin, CreateUserHandler(d.DB))
	users.GET("/:username", admin, GetUserHandler(d.DB))
	users.PATCH("/:username", admin, UpdateUserHandler(d.DB))
	users.DELETE("/:username", admin, DeleteUserHandler(d.DB, onTaxonomyChange))

	// Category and genre routes
	categories := v1.Group("/categories", middleware.AdminOrReadOnlyMiddleware())
	categories.GET("", ListSluggedHandler[domain.Category](d.DB, d.PageSize))
	categories.POST("", CreateSluggedHandler[domain.Category](d.DB, "category"))
	categories.DELETE("/:slug", DeleteSluggedHandler[domain.Category](d.DB, "category", onTaxonomyChange))

	genres := v1.Group("/genres", middleware.AdminOrReadOnlyMiddleware())
	genres.GET("", ListSluggedHandler[domain.Genre](d.DB, d.PageSize))
	genres.POST("", CreateSluggedHandler[domain.Genre](d.DB, "genre"))
	genres.DELETE("/:slug", DeleteSluggedHandler[domain.Genre](d.DB, "genre", onTaxonomyChange))

	// Title routes
	titles := v1.Group("/titles")
	titles.GET("", ListTitlesHandler(d.DB, d.Cache, d.PageSize))
	titles.POST("", admin, CreateTitleHandler(d.DB, d.Cache))
	titles.GET("/:title_id", GetTitleHandler(d.DB, d.Cache))
	titles.PATCH("/:title_id", admin, UpdateTitleHandler(d.DB, d.Cache))
	titles.DELETE("/:title_id", admin, DeleteTitleHandler(d.DB, d.Cache))

	// Review routes; object-level checks happen in the handlers
	reviews := titles.Group("/:title_id/reviews", middleware.AuthenticatedOrReadOnlyMiddleware())
	reviews.GET("", ListReviewsHandler(d.DB, d.PageSize))
	reviews.POST("", CreateReviewHandler(d.DB, d.Cache))
	reviews.GET("/:review_id", GetReviewHandler(d.DB))
	reviews.PATCH("/:review_id", UpdateReviewHandler(d.DB, d.Cache))
	reviews.DELETE("/:review_id", DeleteReviewHandler(d.DB, d.Cache))

	// Comment routes
	comments := reviews.Group("/:review_id/comments")
	comments.GET("", ListCommentsHandler(d.DB, d.PageSize))
	comments.POST("", CreateCommentHandler(d.DB))
	comments.GET("/:comment_id", GetCommentHandler(d.DB))
	comments.PATCH("/:comment_id", UpdateCommentHandler(d.DB))
	comments.DELETE("/:comment_id", DeleteCommentHandler(d.DB))

	return r
}
