package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/contacts_api/pkg/notify"
	"github.com/Skotchmaster/contacts_api/pkg/tokens"
	"github.com/Skotchmaster/contacts_api/pkg/validate"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/middleware"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/models"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/repo"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/service"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/transport"
)

type outbox struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (o *outbox) Notify(_ context.Context, n notify.Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, n)
}

func (o *outbox) last(t *testing.T, purpose notify.Purpose) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].Purpose == purpose {
			return o.sent[i].Token
		}
	}
	t.Fatalf("no %s notification sent", purpose)
	return ""
}

type memUploader struct{}

func (memUploader) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	_, err := io.Copy(io.Discard, body)
	return "https://cdn.example.com/" + key, err
}

type testServer struct {
	e   *echo.Echo
	box *outbox
	svc *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.VerificationToken{}))

	r := &repo.GormRepo{DB: db}
	box := &outbox{}
	svc := &service.AuthService{
		Users:    r,
		Tokens:   r,
		Codec:    tokens.NewCodec([]byte("test-jwt-secret"), []byte("test-refresh-secret"), 0, 0),
		Notifier: box,
		Avatars:  memUploader{},
	}

	e := echo.New()
	e.Validator = validate.New()
	Register(e, &Deps{
		AuthHandler:  &AuthHTTP{Svc: svc},
		UsersHandler: &UsersHTTP{Svc: svc},
		Bearer:       middleware.NewBearerAuth(svc),
	})

	return &testServer{e: e, box: box, svc: svc}
}

func (s *testServer) do(t *testing.T, method, target string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (s *testServer) login(t *testing.T, email, password string) transport.TokenResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", echo.Map{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[transport.TokenResponse](t, rec)
}

func (s *testServer) signup(t *testing.T, email, password string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", echo.Map{"email": email, "password": password}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodGet, "/auth/verify_email/"+s.box.last(t, notify.PurposeVerifyEmail), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAuthHTTP_Register(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", echo.Map{"email": "alice@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decode[transport.UserResponse](t, rec)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsVerified)
	assert.NotContains(t, rec.Body.String(), "hashed_password")

	rec = s.do(t, http.MethodPost, "/auth/register", echo.Map{"email": "alice@example.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/register", echo.Map{"email": "not-an-email", "password": "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHTTP_VerifyAndLogin(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", echo.Map{"email": "alice@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", echo.Map{"email": "alice@example.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := s.box.last(t, notify.PurposeVerifyEmail)
	rec = s.do(t, http.MethodGet, "/auth/verify_email/"+token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified successfully", decode[transport.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodGet, "/auth/verify_email/"+token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pair := s.login(t, "alice@example.com", "secret1")
	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	rec = s.do(t, http.MethodPost, "/auth/login", echo.Map{"email": "alice@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	wrong := rec.Body.String()

	rec = s.do(t, http.MethodPost, "/auth/login", echo.Map{"email": "nobody@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, wrong, rec.Body.String())
}

func TestAuthHTTP_PasswordReset(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.signup(t, "alice@example.com", "secret1")

	known := s.do(t, http.MethodPost, "/auth/request_password_reset", echo.Map{"email": "alice@example.com"}, "")
	unknown := s.do(t, http.MethodPost, "/auth/request_password_reset", echo.Map{"email": "nobody@example.com"}, "")
	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())

	token := s.box.last(t, notify.PurposeResetPassword)

	rec := s.do(t, http.MethodPost, "/auth/reset_password", echo.Map{"token": "bogus", "new_password": "secret2"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/reset_password", echo.Map{"token": token, "new_password": "secret2"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/reset_password", echo.Map{"token": token, "new_password": "secret3"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.login(t, "alice@example.com", "secret2")
}

func TestAuthHTTP_Refresh(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.signup(t, "alice@example.com", "secret1")
	pair := s.login(t, "alice@example.com", "secret1")

	rec := s.do(t, http.MethodPost, "/auth/refresh", echo.Map{"refresh_token": pair.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[transport.TokenResponse](t, rec).AccessToken)

	rec = s.do(t, http.MethodPost, "/auth/refresh", echo.Map{"refresh_token": pair.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersHTTP_RequiresBearer(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.signup(t, "alice@example.com", "secret1")
	pair := s.login(t, "alice@example.com", "secret1")

	rec := s.do(t, http.MethodGet, "/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/users/me", nil, pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/users/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[transport.UserResponse](t, rec)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.True(t, me.IsVerified)
}

func TestUsersHTTP_ChangePassword(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.signup(t, "alice@example.com", "secret1")
	pair := s.login(t, "alice@example.com", "secret1")

	rec := s.do(t, http.MethodPost, "/users/me/password", echo.Map{"old_password": "wrong", "new_password": "secret2"}, pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/users/me/password", echo.Map{"old_password": "secret1", "new_password": "x"}, pair.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/users/me/password", echo.Map{"old_password": "secret1", "new_password": "secret2"}, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	s.login(t, "alice@example.com", "secret2")
}

func TestUsersHTTP_UpdateAvatar(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.signup(t, "alice@example.com", "secret1")
	pair := s.login(t, "alice@example.com", "secret1")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="me.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/users/avatar", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[transport.AvatarResponse](t, rec)
	assert.True(t, strings.HasPrefix(got.AvatarURL, "https://cdn.example.com/avatars/"))
	assert.True(t, strings.HasSuffix(got.AvatarURL, ".png"))

	rec = s.do(t, http.MethodGet, "/users/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[transport.UserResponse](t, rec)
	require.NotNil(t, me.Avatar)
	assert.Equal(t, got.AvatarURL, *me.Avatar)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", nil, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", nil, "").Code)
}
