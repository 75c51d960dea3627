package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("utils-test")

	tok, err := GenerateToken("u1", "customer", time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "customer", claims.Role)

	SetJWTSecret("another-secret")
	_, err = ParseToken(tok)
	assert.Error(t, err, "signature no longer matches")
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	SetJWTSecret("utils-test")
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{UserID: "evil", Role: "admin"})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(tok)
	assert.Error(t, err)
}

func TestGenerateToken_NeedsSecret(t *testing.T) {
	SetJWTSecret("")
	_, err := GenerateToken("u1", "staff", time.Hour)
	assert.Error(t, err)
}

func TestRespondHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { RespondJSON(c, http.StatusCreated, "created", gin.H{"id": "x"}) })
	r.GET("/err", func(c *gin.Context) { RespondErrorData(c, http.StatusConflict, errors.New("taken"), []string{"r1"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	var body JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Status)
	assert.Equal(t, "created", body.Message)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/err", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"status":false,"message":"taken","data":["r1"]}`, w.Body.String())
}
