package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/security"
	"github.com/yukikurage/task-tracker/internal/services"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *captureMailer) SendOTP(_ context.Context, recipient, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes[recipient] = code
	return nil
}

func (m *captureMailer) code(recipient string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[recipient]
}

type testEnv struct {
	db          *gorm.DB
	router      *gin.Engine
	mailer      *captureMailer
	authService *services.AuthService
	taskService *services.TaskService
}

type envOption func(*testEnvConfig)

type testEnvConfig struct {
	policy    string
	extractor services.TaskExtractor
}

func withDueDatePolicy(policy string) envOption {
	return func(c *testEnvConfig) { c.policy = policy }
}

func withExtractor(e services.TaskExtractor) envOption {
	return func(c *testEnvConfig) { c.extractor = e }
}

func setupTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := testEnvConfig{policy: constants.DueDatePolicyFallback}
	for _, opt := range opts {
		opt(&cfg)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(&config.Config{
		DBDriver: "sqlite",
		DBDSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name),
		LogLevel: "info",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		database.Close(db)
	})

	mailer := &captureMailer{codes: map[string]string{}}
	hasher := &security.PasswordHasher{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	otpService := services.NewOTPService(repository.NewOTPRepository(db), mailer, constants.DefaultOTPTTL)
	authService := services.NewAuthService(repository.NewUserRepository(db), otpService, hasher)
	taskService := services.NewTaskService(repository.NewTaskRepository(db), cfg.extractor, cfg.policy)

	router, err := NewRouter(RouterDeps{
		DB:           db,
		AuthService:  authService,
		TaskService:  taskService,
		SessionStore: cookie.NewStore([]byte("test-secret-0123456789")),
	})
	require.NoError(t, err)

	return &testEnv{
		db:          db,
		router:      router,
		mailer:      mailer,
		authService: authService,
		taskService: taskService,
	}
}

// browser keeps the session cookie between requests.
type browser struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func (e *testEnv) newBrowser(t *testing.T) *browser {
	return &browser{t: t, router: e.router, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()

	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func otpForm(code string) url.Values {
	form := url.Values{}
	for i, d := range code {
		form.Set(fmt.Sprintf("otp%d", i), string(d))
	}
	return form
}

// signIn registers email and completes the OTP step.
func (e *testEnv) signIn(t *testing.T, email string) *browser {
	t.Helper()

	b := e.newBrowser(t)
	w := b.post("/register", url.Values{"email": {email}, "password": {"pw"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/otp", w.Header().Get("Location"))

	w = b.post("/verify-otp", otpForm(e.mailer.code(email)))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
	return b
}
