package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/contacthub/contacthub/internal/common"
	"github.com/contacthub/contacthub/internal/logging"
	"github.com/contacthub/contacthub/internal/server/models"
	"github.com/contacthub/contacthub/internal/server/services"
)

// --- fakes ---

type fakeAuthFlow struct {
	registerUser *models.User
	registerErr  error

	confirmErr error
	resendErr  error

	loginPair *services.TokenPair
	loginErr  error

	refreshPair *services.TokenPair
	refreshErr  error

	logoutErr       error
	resetErr        error
	confirmResetErr error

	authUserID string

	getUser *models.User
	getErr  error

	avatarURL string
	avatarErr error

	lastLoginEmail    string
	lastLoginPassword string
	lastConfirmToken  string
}

func (f *fakeAuthFlow) Register(_ context.Context, _, _, _ string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.registerUser, nil
}

func (f *fakeAuthFlow) ConfirmEmail(_ context.Context, token string) error {
	f.lastConfirmToken = token
	return f.confirmErr
}

func (f *fakeAuthFlow) ResendVerification(_ context.Context, _ string) error { return f.resendErr }

func (f *fakeAuthFlow) Login(_ context.Context, email, password string) (*services.TokenPair, error) {
	f.lastLoginEmail, f.lastLoginPassword = email, password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginPair, nil
}

func (f *fakeAuthFlow) Refresh(_ context.Context, _ string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshPair, nil
}

func (f *fakeAuthFlow) Logout(_ context.Context, _ string) error { return f.logoutErr }

func (f *fakeAuthFlow) RequestPasswordReset(_ context.Context, _ string) error { return f.resetErr }

func (f *fakeAuthFlow) ConfirmPasswordReset(_ context.Context, _, _ string) error {
	return f.confirmResetErr
}

func (f *fakeAuthFlow) Authenticate(_ context.Context, token string) (string, error) {
	if token == "valid-access-token" && f.authUserID != "" {
		return f.authUserID, nil
	}
	return "", common.ErrorUnauthorized
}

func (f *fakeAuthFlow) GetUser(_ context.Context, _ string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getUser, nil
}

func (f *fakeAuthFlow) UpdateAvatar(_ context.Context, _, _ string, _ io.Reader) (string, error) {
	if f.avatarErr != nil {
		return "", f.avatarErr
	}
	return f.avatarURL, nil
}

type fakeContactService struct {
	created *models.Contact
	getOut  *models.Contact
	getErr  error
	listOut []*models.Contact
	listErr error
	updErr  error
	delErr  error

	lastUserID string
	lastSearch string
	lastLimit  int
	lastOffset int
}

func (f *fakeContactService) Create(_ context.Context, userID string, c *models.Contact) (*models.Contact, error) {
	f.lastUserID = userID
	cp := *c
	cp.ID = "contact-1"
	cp.UserID = userID
	f.created = &cp
	return &cp, nil
}

func (f *fakeContactService) Get(_ context.Context, userID, _ string) (*models.Contact, error) {
	f.lastUserID = userID
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeContactService) List(_ context.Context, userID, search string, limit, offset int) ([]*models.Contact, error) {
	f.lastUserID, f.lastSearch, f.lastLimit, f.lastOffset = userID, search, limit, offset
	return f.listOut, f.listErr
}

func (f *fakeContactService) Update(_ context.Context, userID string, _ *models.Contact) error {
	f.lastUserID = userID
	return f.updErr
}

func (f *fakeContactService) Delete(_ context.Context, userID, _ string) error {
	f.lastUserID = userID
	return f.delErr
}

func (f *fakeContactService) UpcomingBirthdays(_ context.Context, userID string, limit, offset int) ([]*models.Contact, error) {
	f.lastUserID, f.lastLimit, f.lastOffset = userID, limit, offset
	return f.listOut, f.listErr
}

// --- helpers ---

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestRouter(auth *fakeAuthFlow, contacts *fakeContactService) http.Handler {
	return NewRouter(&RouterDeps{
		Auth:          auth,
		Contacts:      contacts,
		Logger:        testLogger(),
		Metrics:       NewMetrics(),
		LockoutWindow: 15 * time.Minute,
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sampleUser() *models.User {
	return &models.User{
		ID: "user-1", Username: "ada", Email: "ada@example.com",
		Verified: true, Role: models.RoleUser,
	}
}

// --- auth endpoints ---

func TestRouter_Register(t *testing.T) {
	auth := &fakeAuthFlow{registerUser: sampleUser()}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": "ada", "email": "ada@example.com", "password": "s3cret-pass"}, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ada@example.com", resp.Email)
}

func TestRouter_Register_DuplicateEmail(t *testing.T) {
	auth := &fakeAuthFlow{registerErr: common.ErrDuplicateEmail}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": "ada", "email": "ada@example.com", "password": "s3cret-pass"}, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_Register_Validation(t *testing.T) {
	router := newTestRouter(&fakeAuthFlow{}, &fakeContactService{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing username", map[string]string{"email": "a@x.com", "password": "s3cret-pass"}},
		{"bad email", map[string]string{"username": "ada", "email": "nope", "password": "s3cret-pass"}},
		{"short password", map[string]string{"username": "ada", "email": "a@x.com", "password": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRouter_Login(t *testing.T) {
	auth := &fakeAuthFlow{loginPair: &services.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "s3cret-pass"}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "ada@example.com", auth.lastLoginEmail)
}

func TestRouter_Login_InvalidCredentials(t *testing.T) {
	auth := &fakeAuthFlow{loginErr: common.ErrInvalidCredentials}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "nope"}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Login_Throttled(t *testing.T) {
	auth := &fakeAuthFlow{loginErr: common.ErrTooManyAttempts}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "s3cret-pass"}, "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
}

func TestRouter_ConfirmEmail(t *testing.T) {
	auth := &fakeAuthFlow{}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodGet, "/api/auth/confirmed_email/some-token", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "some-token", auth.lastConfirmToken)
}

func TestRouter_ConfirmEmail_UsedLink(t *testing.T) {
	auth := &fakeAuthFlow{confirmErr: common.ErrTokenConsumed}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodGet, "/api/auth/confirmed_email/some-token", nil, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_Refresh_InvalidToken(t *testing.T) {
	auth := &fakeAuthFlow{refreshErr: common.ErrInvalidToken}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodPost, "/api/auth/token/refresh",
		map[string]string{"refresh_token": "stolen"}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ConfirmResetPassword(t *testing.T) {
	auth := &fakeAuthFlow{}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodPost, "/api/auth/confirm_reset_password/reset-token",
		map[string]string{"password": "new-pass"}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- authenticated endpoints ---

func TestRouter_Me_RequiresToken(t *testing.T) {
	router := newTestRouter(&fakeAuthFlow{}, &fakeContactService{})

	rec := doJSON(t, router, http.MethodGet, "/api/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/users/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Me(t *testing.T) {
	auth := &fakeAuthFlow{authUserID: "user-1", getUser: sampleUser()}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodGet, "/api/users/me", nil, "valid-access-token")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.ID)
}

func TestRouter_UpdateAvatar(t *testing.T) {
	user := sampleUser()
	user.AvatarURL = "http://minio:9000/avatars/x"
	auth := &fakeAuthFlow{authUserID: "user-1", getUser: user, avatarURL: user.AvatarURL}
	router := newTestRouter(auth, &fakeContactService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/users/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer valid-access-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, user.AvatarURL, resp.AvatarURL)
}

func TestRouter_CreateContact(t *testing.T) {
	auth := &fakeAuthFlow{authUserID: "user-1"}
	contacts := &fakeContactService{}
	router := newTestRouter(auth, contacts)

	rec := doJSON(t, router, http.MethodPost, "/api/contacts", map[string]string{
		"name": "Grace", "surname": "Hopper", "email": "grace@example.com",
		"phone": "+15550100", "birthday": "1906-12-09",
	}, "valid-access-token")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-1", contacts.lastUserID, "owner comes from the access token")

	var resp contactResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1906-12-09", resp.Birthday)
}

func TestRouter_CreateContact_BadBirthday(t *testing.T) {
	auth := &fakeAuthFlow{authUserID: "user-1"}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodPost, "/api/contacts", map[string]string{
		"name": "Grace", "birthday": "09.12.1906",
	}, "valid-access-token")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_GetContact_NotFound(t *testing.T) {
	auth := &fakeAuthFlow{authUserID: "user-1"}
	contacts := &fakeContactService{getErr: common.ErrorNotFound}
	router := newTestRouter(auth, contacts)

	rec := doJSON(t, router, http.MethodGet, "/api/contacts/missing", nil, "valid-access-token")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ListContacts_PassesQuery(t *testing.T) {
	auth := &fakeAuthFlow{authUserID: "user-1"}
	contacts := &fakeContactService{}
	router := newTestRouter(auth, contacts)

	rec := doJSON(t, router, http.MethodGet,
		"/api/contacts?search=grace&limit=5&offset=10", nil, "valid-access-token")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "grace", contacts.lastSearch)
	assert.Equal(t, 5, contacts.lastLimit)
	assert.Equal(t, 10, contacts.lastOffset)
}

func TestRouter_DeleteContact(t *testing.T) {
	auth := &fakeAuthFlow{authUserID: "user-1"}
	router := newTestRouter(auth, &fakeContactService{})

	rec := doJSON(t, router, http.MethodDelete, "/api/contacts/contact-1", nil, "valid-access-token")

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_UpcomingBirthdays(t *testing.T) {
	auth := &fakeAuthFlow{authUserID: "user-1"}
	contacts := &fakeContactService{listOut: []*models.Contact{
		{ID: "contact-1", Name: "Grace", Birthday: time.Date(1906, 12, 9, 0, 0, 0, 0, time.UTC)},
	}}
	router := newTestRouter(auth, contacts)

	rec := doJSON(t, router, http.MethodGet, "/api/birthdays/nearest", nil, "valid-access-token")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []contactResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Grace", resp[0].Name)
}

// --- middleware ---

func TestRouter_IPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(IPRateLimiterConfig{
		Rate:            rate.Limit(1.0 / 60.0),
		Burst:           2,
		CleanupInterval: time.Minute,
	})
	defer limiter.Stop()

	auth := &fakeAuthFlow{loginErr: common.ErrInvalidCredentials}
	router := NewRouter(&RouterDeps{
		Auth:        auth,
		Contacts:    &fakeContactService{},
		Logger:      testLogger(),
		RateLimiter: limiter,
	})

	body := map[string]string{"email": "ada@example.com", "password": "nope"}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login", body, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	auth := &fakeAuthFlow{}
	router := newTestRouter(auth, &fakeContactService{})

	doJSON(t, router, http.MethodGet, "/healthz", nil, "")

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "contacthub_http_requests_total"))
}
