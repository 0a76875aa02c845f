package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse", DefaultBcryptCost)

	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct-horse", hash)
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short", DefaultBcryptCost)

	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse", 4) // min cost keeps the test fast
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("correct-horse", hash))
	assert.ErrorIs(t, CheckPassword("wrong-horse", hash), ErrInvalidPassword)
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(7, "admin@example.com", true, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret")

	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.AdminID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.True(t, claims.IsSuperadmin)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(7, "admin@example.com", false, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")

	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken(7, "admin@example.com", false, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")

	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := ValidateToken("not-a-token", "secret")

	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func newProtectedRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", Middleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin_id": c.GetUint(ContextKeyAdminID)})
	})
	return router
}

func TestMiddleware_RejectsMissingHeader(t *testing.T) {
	router := newProtectedRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_RejectsBadToken(t *testing.T) {
	router := newProtectedRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_AcceptsValidToken(t *testing.T) {
	router := newProtectedRouter("secret")

	token, err := GenerateToken(7, "admin@example.com", false, "secret", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin_id":7`)
}
