package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/table-reservation/config"
	"github.com/yeremiapane/table-reservation/database"
	"github.com/yeremiapane/table-reservation/notify"
	"github.com/yeremiapane/table-reservation/router"
	"github.com/yeremiapane/table-reservation/services"
	"github.com/yeremiapane/table-reservation/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// now for every test; reservations at 19:00 are in the future.
var base = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

const evening = "2030-06-01T19:00:00Z"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger()
	utils.SetJWTSecret("controllers-test-secret")
	os.Exit(m.Run())
}

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	clock  *services.FakeClock
	rec    *notify.Recorder
}

// setupTestApp menyiapkan router lengkap di atas SQLite in-memory.
func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	clock := services.NewFakeClock(base)
	rec := &notify.Recorder{}
	deps := services.NewDeps(db, clock, rec, nil, services.DefaultPolicy())

	r := router.SetupRouter(router.App{
		Registry: services.NewRegistry(deps),
		Booking:  services.NewBookingService(deps),
		Config: config.Config{
			AllowedOrigins: []string{"http://localhost:5500"},
			RateLimit:      config.RateLimitConfig{Enabled: false},
		},
	})
	return &testApp{router: r, db: db, clock: clock, rec: rec}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do mengirim request JSON dan mengembalikan recorder beserta envelope yang sudah di-decode.
func (a *testApp) do(t *testing.T, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type idOnly struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *testApp) createTable(t *testing.T, staffTok, number string, capacity int) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/tables", staffTok, gin.H{
		"table_number": number,
		"capacity":     capacity,
		"book_minutes": 90,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[idOnly](t, env.Data).ID
}

func (a *testApp) createReservation(t *testing.T, tok string, body gin.H) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return a.do(t, http.MethodPost, "/reservations", tok, body)
}
