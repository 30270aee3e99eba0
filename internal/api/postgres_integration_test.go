//go:build integration

package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"yamdb/internal/db"
	"yamdb/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// newPostgresEnv runs the router against a throwaway PostgreSQL container
func newPostgresEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("yamdb"),
		postgres.WithUsername("yamdb"),
		postgres.WithPassword("yamdb"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gdb, err := db.Open("postgres", connStr, false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	gin.SetMode(gin.TestMode)
	mailer := &fakeMailer{}
	router := NewRouter(Deps{DB: gdb, Mailer: mailer, JWTSecret: testSecret, JWTTTL: time.Hour, PageSize: 10})
	return &testEnv{t: t, db: gdb, router: router, mailer: mailer}
}

func TestPostgresFullFlow(t *testing.T) {
	env := newPostgresEnv(t)
	_, adminToken := env.createUser("boss", domain.RoleAdmin)

	// Signup and token exchange
	w := env.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"username": "pat", "email": "pat@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "pat", "confirmation_code": env.mailer.lastCode(t)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	patToken := decode[TokenResponse](t, w).Token
	_, quinnToken := env.createUser("quinn", domain.RoleUser)

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/v1/categories", adminToken, SluggedRequest{Name: "Films", Slug: "films"}).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/v1/genres", adminToken, SluggedRequest{Name: "Drama", Slug: "drama"}).Code)
	id := env.createTitle(adminToken, map[string]any{"name": "Heat", "year": 1995, "genre": []string{"drama"}, "category": "films"})

	// Rating from two reviews
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, titlePath(id, "reviews"), patToken, map[string]any{"text": "a", "score": 8}).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, titlePath(id, "reviews"), quinnToken, map[string]any{"text": "b", "score": 10}).Code)
	w = env.do(http.MethodGet, titlePath(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rating := decode[TitleResponse](t, w).Rating
	require.NotNil(t, rating)
	assert.Equal(t, 9.0, *rating)

	// The unique index rejects a second review even past the pre-check
	var pat domain.User
	require.NoError(t, env.db.Where("username = ?", "pat").First(&pat).Error)
	dup := domain.Review{Text: "again", Score: 1, AuthorID: pat.ID, TitleID: id}
	err := env.db.Omit("Author", "Title").Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	w = env.do(http.MethodPost, titlePath(id, "reviews"), patToken, map[string]any{"text": "c", "score": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Category delete keeps the title; genre delete drops the link only
	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/v1/categories/films", adminToken, nil).Code)
	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/v1/genres/drama", adminToken, nil).Code)
	w = env.do(http.MethodGet, titlePath(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	title := decode[TitleResponse](t, w)
	assert.Nil(t, title.Category)
	assert.Empty(t, title.Genre)

	// Title delete cascades
	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, titlePath(id), adminToken, nil).Code)
	var reviews int64
	env.db.Model(&domain.Review{}).Count(&reviews)
	assert.Zero(t, reviews)
}
