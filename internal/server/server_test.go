package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	apikeydomain "github.com/loopwork/loopwork/internal/apikey/domain"
	"github.com/loopwork/loopwork/internal/apperror"
	authdomain "github.com/loopwork/loopwork/internal/auth/domain"
	"github.com/loopwork/loopwork/internal/auth/session"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/config"
	notifdomain "github.com/loopwork/loopwork/internal/notification/domain"
	notifservice "github.com/loopwork/loopwork/internal/notification/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeAuthService struct {
	authdomain.Service

	sessionUserID snowflake.ID
	user          *authdomain.User
}

func (f *fakeAuthService) Authenticate(_ context.Context, rawToken string) (*authdomain.Session, error) {
	if rawToken != "valid-session" {
		return nil, authdomain.ErrInvalidSession
	}
	return &authdomain.Session{UserID: f.sessionUserID}, nil
}

func (f *fakeAuthService) GetUser(_ context.Context, id snowflake.ID) (*authdomain.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, authdomain.ErrUserNotFound
	}
	return f.user, nil
}

type fakeAPIKeyService struct {
	apikeydomain.Service

	keyUserID snowflake.ID
}

func (f *fakeAPIKeyService) Authenticate(_ context.Context, rawKey string) (*apikeydomain.APIKey, error) {
	if rawKey != "lw_key_valid" {
		return nil, apperror.Unauthenticated()
	}
	return &apikeydomain.APIKey{
		UserID:   f.keyUserID,
		IsActive: true,
		Scopes:   datatypes.NewJSONSlice([]string{apikeydomain.ScopeRead}),
	}, nil
}

func newTestServer(t *testing.T) (*Server, snowflake.ID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&notifdomain.Notification{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	userID := node.Generate()

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine:   engine,
		sessions: session.NewManager(config.Config{}),
		genID:    node,
		authSvc: &fakeAuthService{
			sessionUserID: userID,
			user:          &authdomain.User{ID: userID, Name: "Test"},
		},
		apiKeySvc: &fakeAPIKeyService{keyUserID: userID},
		notificationSvc: notifservice.New(db, zap.NewNop(),
			clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))),
	}
	s.registerAuthRoutes()
	s.registerAPIRoutes()
	return s, userID
}

func TestAuthRequiredRejectsAnonymous(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), string(apperror.CodeUnauthenticated))
}

func TestAuthRequiredAcceptsSessionCookie(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "valid-session"})
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Test")
}

func TestAuthRequiredRejectsBadSession(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "garbage"})
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredAcceptsBearerAPIKey(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer lw_key_valid")
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestReadOnlyAPIKeyCannotWrite(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/read-all", nil)
	req.Header.Set("Authorization", "Bearer lw_key_valid")
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "write scope")
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperror.Unauthenticated(), http.StatusUnauthorized},
		{apperror.Forbidden("admin"), http.StatusForbidden},
		{apperror.NotFound("project", "1"), http.StatusNotFound},
		{apperror.Validation("name", "Name is required"), http.StatusBadRequest},
		{apperror.Conflict("Project key already exists"), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
		{authdomain.ErrSessionExpired, http.StatusUnauthorized},
		{authdomain.ErrEmailTaken, http.StatusConflict},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		require.Equal(t, tc.status, status, "error %v", tc.err)
	}
}

func TestErrorPayloadKeepsStableMessages(t *testing.T) {
	_, payload := mapError(apperror.Conflict("Cannot delete workspace with teams. Please delete or move teams first."))
	require.Equal(t, "Cannot delete workspace with teams. Please delete or move teams first.", payload.Message)

	_, payload = mapError(apperror.Forbidden("admin"))
	require.Equal(t, "admin", payload.RequiredRole)
}
