package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"yamdb/internal/db"
	"yamdb/internal/domain"
	"yamdb/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// fakeMailer records outgoing mail instead of sending it
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// lastCode returns the confirmation code from the most recent mail
func (f *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")
	lines := strings.Split(f.sent[len(f.sent)-1].Body, "\n")
	return lines[len(lines)-1]
}

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	mailer *fakeMailer
}

// newTestEnv builds the router over a fresh in-memory SQLite database
func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, cache *utils.Cache) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prev := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	t.Cleanup(func() { logrus.SetOutput(prev) })

	gdb, err := db.Open("sqlite", "file::memory:", false)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // One connection keeps a single in-memory database
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	mailer := &fakeMailer{}
	router := NewRouter(Deps{
		DB:        gdb,
		Cache:     cache,
		Mailer:    mailer,
		JWTSecret: testSecret,
		JWTTTL:    time.Hour,
		PageSize:  10,
	})
	return &testEnv{t: t, db: gdb, router: router, mailer: mailer}
}

// do performs a request; token may be empty for anonymous calls
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// createUser inserts a user with the given role and returns it with a valid token
func (e *testEnv) createUser(username, role string) (domain.User, string) {
	e.t.Helper()
	user := domain.User{Username: username, Email: username + "@example.com", Role: role}
	require.NoError(e.t, e.db.Create(&user).Error)
	token, err := utils.GenerateJWT(user.ID, testSecret, time.Hour)
	require.NoError(e.t, err)
	return user, token
}

// createTitle creates a title through the API as admin and returns its id
func (e *testEnv) createTitle(adminToken string, body map[string]any) uint {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/v1/titles", adminToken, body)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[TitleResponse](e.t, w).ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// titlePath builds /api/v1/titles/{id}[/suffix]
func titlePath(id uint, suffix ...string) string {
	p := "/api/v1/titles/" + uitoa(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func uitoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
