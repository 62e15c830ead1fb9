package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sugarline/sweetshop/internal/hash"
	"github.com/sugarline/sweetshop/internal/models"
	"github.com/sugarline/sweetshop/internal/token"
	"github.com/sugarline/sweetshop/internal/transport"
)

type testEnv struct {
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *token.Service
	A      *AuthHandler
	S      *SweetHandler
}

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Sweet{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newTestEnv(t *testing.T) *testEnv {
	db := InitTestDB(t)
	tokens := &token.Service{Secret: []byte("test-jwt-secret"), TTL: 15 * time.Minute}

	return &testEnv{
		E:      echo.New(),
		DB:     db,
		Tokens: tokens,
		A:      &AuthHandler{DB: db, Tokens: tokens},
		S:      &SweetHandler{DB: db},
	}
}

func (env *testEnv) doJSONRequest(method, target string, payload any) (*httptest.ResponseRecorder, echo.Context) {
	var body *bytes.Reader
	if payload != nil {
		bodyBytes, _ := json.Marshal(payload)
		body = bytes.NewReader(bodyBytes)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) createUser(t *testing.T, username, password string, isAdmin bool) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)

	user := models.User{Username: username, HashedPassword: pwHash, IsAdmin: isAdmin}
	require.NoError(t, env.DB.Create(&user).Error)
	return &user
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{"username": "test_user", "password": "password"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", payload)

	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transport.RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "test_user", resp.Username)
	require.Equal(t, "User registered successfully", resp.Message)

	var stored models.User
	require.NoError(t, env.DB.Where("username = ?", "test_user").First(&stored).Error)
	require.False(t, stored.IsAdmin)
	require.NotEqual(t, "password", stored.HashedPassword)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{"username": "test_user", "password": "password"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", payload)
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, cDup := env.doJSONRequest(http.MethodPost, "/api/auth/register", payload)
	err := env.A.Register(cDup)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{name: "empty username", payload: map[string]string{"username": "", "password": "pw"}},
		{name: "empty password", payload: map[string]string{"username": "user", "password": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", tt.payload)
			err := env.A.Register(c)
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected HTTPError")
			require.Equal(t, http.StatusBadRequest, he.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "test_user", "password", false)

	payload := map[string]string{"username": "test_user", "password": "password"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", payload)

	require.NoError(t, env.A.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transport.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "bearer", resp.TokenType)

	claims, err := env.Tokens.Parse(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "test_user", claims.Subject)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "test_user", "password", false)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{name: "wrong password", payload: map[string]string{"username": "test_user", "password": "wrong"}},
		{name: "unknown username", payload: map[string]string{"username": "nobody", "password": "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", tt.payload)
			err := env.A.Login(c)
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected HTTPError")
			require.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}

func TestRegisterThenLogin(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{"username": "alice", "password": "pw"}
	recReg, cReg := env.doJSONRequest(http.MethodPost, "/api/auth/register", payload)
	require.NoError(t, env.A.Register(cReg))
	require.Equal(t, http.StatusOK, recReg.Code)

	recLogin, cLogin := env.doJSONRequest(http.MethodPost, "/api/auth/login", payload)
	require.NoError(t, env.A.Login(cLogin))
	require.Equal(t, http.StatusOK, recLogin.Code)

	var resp transport.TokenResponse
	require.NoError(t, json.Unmarshal(recLogin.Body.Bytes(), &resp))

	claims, err := env.Tokens.Parse(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
}
