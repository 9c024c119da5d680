package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/pkg/response"
	"github.com/qs3c/stake_go_server/internal/repository"
	"github.com/qs3c/stake_go_server/internal/service"
	"github.com/qs3c/stake_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAuthHandler(t *testing.T) (*AuthHandler, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	authService := service.NewAuthService(
		db,
		repository.NewUserRepository(db),
		repository.NewBalanceRepository(db),
		repository.NewTeamRepository(db),
		handlerTestConfig(),
	)
	handler := NewAuthHandler(authService)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return handler, cleanup
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// handlerTestConfig 路由层测试共用配置
func handlerTestConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret-key",
			ExpireHours: 24,
		},
		Staking: config.StakingConfig{
			DirectBonusRate: 0.05,
			CooldownDays:    3,
			MaxTeamLevels:   10,
		},
		Packages: []config.StakingPackage{
			{ID: 1, Name: "Starter", Amount: 30, DailyROI: 0.8, Cap: 1.5, Visible: true},
			{ID: 2, Name: "Bronze", Amount: 100, DailyROI: 1.0, Cap: 1.8, Visible: true},
			{ID: 3, Name: "Silver", Amount: 500, DailyROI: 1.2, Cap: 2.0, Visible: true},
		},
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	handler, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/register", handler.Register)

	req := dto.RegisterRequest{
		Email:    "test@example.com",
		Username: "testuser",
		Password: "password123",
	}

	w := performRequest(router, "POST", "/register", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["invite_code"])
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	handler, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/register", handler.Register)

	req := dto.RegisterRequest{
		Email:    "test@example.com",
		Username: "testuser1",
		Password: "password123",
	}

	w := performRequest(router, "POST", "/register", req)
	assert.Equal(t, http.StatusOK, w.Code)

	req.Username = "testuser2"
	w = performRequest(router, "POST", "/register", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAuthHandler_Register_InvalidInviteCode(t *testing.T) {
	handler, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/register", handler.Register)

	req := dto.RegisterRequest{
		Email:      "test@example.com",
		Username:   "testuser",
		Password:   "password123",
		InviteCode: "NOSUCHCODE",
	}

	w := performRequest(router, "POST", "/register", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	handler, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/register", handler.Register)

	req := dto.RegisterRequest{
		Email:    "test@example.com",
		Username: "testuser",
		Password: "short",
	}

	w := performRequest(router, "POST", "/register", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)

	register := dto.RegisterRequest{
		Email:    "login@example.com",
		Username: "loginuser",
		Password: "password123",
	}
	w := performRequest(router, "POST", "/register", register)
	require.Equal(t, http.StatusOK, w.Code)

	login := dto.LoginRequest{
		Email:    "login@example.com",
		Password: "password123",
	}
	w = performRequest(router, "POST", "/login", login)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	handler, cleanup := setupAuthHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)

	register := dto.RegisterRequest{
		Email:    "login@example.com",
		Username: "loginuser",
		Password: "password123",
	}
	w := performRequest(router, "POST", "/register", register)
	require.Equal(t, http.StatusOK, w.Code)

	login := dto.LoginRequest{
		Email:    "login@example.com",
		Password: "wrong-password",
	}
	w = performRequest(router, "POST", "/login", login)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}
