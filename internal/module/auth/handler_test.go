package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(svc *Service) *gin.Engine {
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	r := setupRouter(newTestService(newMemoryUsers()))

	w := postJSON(r, "/api/v1/auth/register", `{"email":"v@example.com","password":"password123","username":"Vee"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)
	assert.Contains(t, w.Body.String(), `"username":"Vee"`)

	w = postJSON(r, "/api/v1/auth/register", `{"email":"v@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/api/v1/auth/login", `{"email":"v@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"expiresAt"`)

	w = postJSON(r, "/api/v1/auth/login", `{"email":"v@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestHandler_RegisterValidation(t *testing.T) {
	r := setupRouter(newTestService(newMemoryUsers()))

	w := postJSON(r, "/api/v1/auth/register", `{"email":"not-an-email","password":"password123"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/api/v1/auth/register", `{"email":"v@example.com","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
