package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(guard gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/x", guard, func(c *gin.Context) {
		role, _ := c.Get(ContextRole)
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c), "role": role})
	})
	return r
}

func token(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := IssueToken(testSecret, models.User{ID: 7, Username: "ana", Role: role}, ttl, time.Now())
	require.NoError(t, err)
	return tok
}

func do(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthGuard(t *testing.T) {
	r := newRouter(StaffAuth(testSecret))

	w := do(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing token")

	w = do(r, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "Bearer "+token(t, models.RoleEmployee, -time.Minute))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "Bearer "+token(t, models.RoleEmployee, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":7,"role":"employee"}`, w.Body.String())
}

func TestAdminAuthRejectsEmployees(t *testing.T) {
	r := newRouter(AdminAuth(testSecret))

	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+token(t, models.RoleEmployee, time.Hour)).Code)
	assert.Equal(t, http.StatusOK, do(r, "bearer "+token(t, models.RoleAdmin, time.Hour)).Code)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{UserID: 1, Role: models.RoleAdmin}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(testSecret, raw)
	assert.Error(t, err)

	_, err = ParseToken("other", token(t, models.RoleAdmin, time.Hour))
	assert.Error(t, err)
}

func TestOptionalAuth(t *testing.T) {
	r := newRouter(OptionalAuth(testSecret))

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":0,"role":null}`, w.Body.String())

	w = do(r, "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":0,"role":null}`, w.Body.String())

	w = do(r, "Bearer "+token(t, models.RoleAdmin, time.Hour))
	assert.JSONEq(t, `{"userId":7,"role":"admin"}`, w.Body.String())
}
