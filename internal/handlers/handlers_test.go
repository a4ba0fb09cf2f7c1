package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/tasktide/internal/auth"
	"github.com/yukikurage/tasktide/internal/database"
	"github.com/yukikurage/tasktide/internal/repository"
	"github.com/yukikurage/tasktide/internal/security"
	"github.com/yukikurage/tasktide/internal/services"
)

type testEnv struct {
	router      *gin.Engine
	authService *services.AuthService
	tasks       repository.TaskRepository
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	taskDB, err := database.Open(":memory:", database.Options{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(taskDB, database.SchemaTasks))

	authDB, err := database.Open(":memory:", database.Options{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(authDB, database.SchemaAuth))

	t.Cleanup(func() {
		database.Close(taskDB)
		database.Close(authDB)
	})

	hasher := auth.NewPasswordHasher("pepper", auth.WithArgon2Params(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32}))
	tokens := auth.NewTokenService([]byte("jwt-secret"), time.Hour)
	authService := services.NewAuthService(repository.NewUserRepository(authDB), hasher, tokens,
		services.WithLoginLimiter(services.NewLoginLimiter(time.Hour, 5)),
	)

	taskRepo := repository.NewTaskRepository(taskDB)
	taskService := services.NewTaskService(taskRepo, repository.NewMilestoneRepository(taskDB), security.NewSanitizer())
	lookupService := services.NewLookupService(repository.NewLookupRepository(taskDB))

	router := NewRouter(Dependencies{
		AuthService:   authService,
		TaskService:   taskService,
		LookupService: lookupService,
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})

	return testEnv{router: router, authService: authService, tasks: taskRepo}
}

// call performs one operation the way the stdio bridge does.
func (env testEnv) call(t *testing.T, method, token string, params any) *httptest.ResponseRecorder {
	t.Helper()

	var body []byte
	switch p := params.(type) {
	case nil:
		body = []byte(`{}`)
	case string:
		body = []byte(p)
	default:
		var err error
		body, err = json.Marshal(p)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/"+method, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// login registers username and returns a fresh session token.
func (env testEnv) login(t *testing.T, username string) string {
	t.Helper()

	_, err := env.authService.Register(username, "correct horse")
	require.NoError(t, err)
	result, err := env.authService.Login(username, "correct horse")
	require.NoError(t, err)
	return result.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

type errorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}
