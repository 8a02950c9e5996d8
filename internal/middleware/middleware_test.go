package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/metrics"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers map[string]*models.User

func (s stubUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := s[email]; ok {
		return u, nil
	}
	return nil, services.ErrUserNotFound
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.ContextKeyRequestID))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(constants.HeaderRequestID))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderRequestID, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderRequestID, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
}

func TestMetrics(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/items/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "204"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "204"))
	assert.Equal(t, before+1, after)
}

func newSessionRouter(users UserResolver, seed map[string]string) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("test-secret-0123456789"))))
	r.GET("/seed", func(c *gin.Context) {
		s := sessions.Default(c)
		for k, v := range seed {
			s.Set(k, v)
		}
		_ = s.Save()
		c.Status(http.StatusOK)
	})
	r.GET("/private", RequireAuth(users), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "email": GetUserEmail(c)})
	})
	r.GET("/otp", RequirePendingOTP(), func(c *gin.Context) {
		c.String(http.StatusOK, GetPendingEmail(c))
	})
	return r
}

func seeded(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/seed", nil))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	users := stubUsers{"a@x.com": {ID: 7, Email: "a@x.com"}}

	t.Run("anonymous", func(t *testing.T) {
		w := seeded(t, newSessionRouter(users, nil), "/private")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("pending only", func(t *testing.T) {
		w := seeded(t, newSessionRouter(users, map[string]string{constants.SessionKeyPendingEmail: "a@x.com"}), "/private")
		assert.Equal(t, http.StatusSeeOther, w.Code)
	})

	t.Run("verified", func(t *testing.T) {
		w := seeded(t, newSessionRouter(users, map[string]string{constants.SessionKeyUserEmail: "a@x.com"}), "/private")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":7,"email":"a@x.com"}`, w.Body.String())
	})

	t.Run("deleted user", func(t *testing.T) {
		w := seeded(t, newSessionRouter(users, map[string]string{constants.SessionKeyUserEmail: "gone@x.com"}), "/private")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestRequirePendingOTP(t *testing.T) {
	w := seeded(t, newSessionRouter(stubUsers{}, nil), "/otp")
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = seeded(t, newSessionRouter(stubUsers{}, map[string]string{constants.SessionKeyPendingEmail: "a@x.com"}), "/otp")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@x.com", w.Body.String())
}
