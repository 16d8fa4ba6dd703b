package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"chimeralens/api/internal/models"
)

func performWithStylist(t *testing.T, stylist *models.Stylist, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/guarded",
		func(c *gin.Context) {
			if stylist != nil {
				c.Set(ContextStylist, *stylist)
			}
		},
		handler,
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireRolesAllows(t *testing.T) {
	stylist := &models.Stylist{ID: 1, Role: models.RoleSalon}
	rec := performWithStylist(t, stylist, RequireRoles(models.RoleSalon))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRolesForbids(t *testing.T) {
	stylist := &models.Stylist{ID: 1, Role: models.RoleStylist}
	rec := performWithStylist(t, stylist, RequireRoles(models.RoleSalon))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolesUnauthenticated(t *testing.T) {
	rec := performWithStylist(t, nil, RequireRoles(models.RoleSalon))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
