package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftfolio/mailroom/pkg/helpers"
)

func authTestRouter(tokens *helpers.ServiceTokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", ServiceAuth(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": c.GetString("service")})
	})
	return r
}

func TestServiceAuthAcceptsValidToken(t *testing.T) {
	tokens := helpers.NewServiceTokenManager("test-secret", time.Minute)
	r := authTestRouter(tokens)

	token, _, err := tokens.Generate("webapp")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "webapp")
}

func TestServiceAuthRejectsMissingHeader(t *testing.T) {
	tokens := helpers.NewServiceTokenManager("test-secret", time.Minute)
	r := authTestRouter(tokens)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuthRejectsBadToken(t *testing.T) {
	tokens := helpers.NewServiceTokenManager("test-secret", time.Minute)
	r := authTestRouter(tokens)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
