package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopsence/user-service/internal/api/handler"
	"github.com/shopsence/user-service/internal/api/middleware"
	"github.com/shopsence/user-service/internal/core/domain"
	"github.com/shopsence/user-service/internal/core/service"
)

// memUsers is a map-backed credential store with the same single-document
// semantics as the mongo repository.
type memUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]domain.User{}} }

func (m *memUsers) FindByUsernameOrContact(_ context.Context, c domain.IdentityCandidates) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == c.Username || (c.Email != "" && u.Email == c.Email) || (c.PhoneNo != "" && u.PhoneNo == c.PhoneNo) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	stored := *u
	stored.ID = fmt.Sprintf("user-%d", m.seq)
	m.users[stored.ID] = stored
	return &stored, nil
}

func (m *memUsers) UpdateFields(_ context.Context, id string, p domain.UserPatch) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.About != nil {
		u.About = *p.About
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.AvatarID != nil {
		u.AvatarID = *p.AvatarID
	}
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
	switch {
	case p.ClearRefreshToken:
		u.RefreshToken = ""
	case p.RefreshToken != nil:
		u.RefreshToken = *p.RefreshToken
	}
	m.users[id] = u
	return &u, nil
}

func (m *memUsers) SwapRefreshToken(_ context.Context, id, current, next string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.RefreshToken != current {
		return nil, domain.ErrStaleRefresh
	}
	u.RefreshToken = next
	m.users[id] = u
	return &u, nil
}

func (m *memUsers) Delete(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	delete(m.users, id)
	return &u, nil
}

type memMedia struct {
	mu  sync.Mutex
	seq int
}

func (m *memMedia) Upload(context.Context, *domain.UploadFile) (domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("avatars/%d.png", m.seq)
	return domain.Asset{ID: id, URL: "https://cdn.example.com/" + id}, nil
}

func (m *memMedia) Delete(context.Context, string) error { return nil }

type inbox struct {
	mu   sync.Mutex
	msgs []domain.VerificationEmail
}

func (i *inbox) SendVerificationEmail(_ context.Context, msg domain.VerificationEmail) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs = append(i.msgs, msg)
	return nil
}

func (i *inbox) last(t *testing.T) domain.VerificationEmail {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	require.NotEmpty(t, i.msgs, "no verification email sent")
	return i.msgs[len(i.msgs)-1]
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (r *memRevoker) Revoke(_ context.Context, id string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id] = ttl
	return nil
}

func (r *memRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[id]
	return ok, nil
}

type testApp struct {
	srv   *httptest.Server
	users *memUsers
	inbox *inbox
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:       "access-secret",
		RefreshSecret:      "refresh-secret",
		VerificationSecret: "verification-secret",
	})
	require.NoError(t, err)

	log := zerolog.Nop()
	users := newMemUsers()
	media := &memMedia{}
	mail := &inbox{}
	revoker := &memRevoker{revoked: map[string]time.Duration{}}

	auth := service.NewAuthService(service.AuthDeps{
		Repo:     users,
		Tokens:   tokens,
		Media:    media,
		Sender:   service.NewVerificationService(tokens, mail, "https://accounts.example.com", log),
		Revoker:  revoker,
		HashCost: bcrypt.MinCost,
		Log:      log,
	})

	e := NewRouter(Deps{
		Auth:           auth,
		Accounts:       service.NewAccountService(users, media, log),
		Tokens:         tokens,
		Revoker:        revoker,
		Health:         map[string]handler.Pinger{},
		Registry:       prometheus.NewRegistry(),
		MaxAvatarBytes: 1 << 20,
		Log:            log,
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, users: users, inbox: mail}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, req *http.Request) (*http.Response, apiResponse) {
	t.Helper()
	res, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var body apiResponse
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	}
	return res, body
}

func (a *testApp) post(t *testing.T, path, body string, cookies ...*http.Cookie) (*http.Response, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return a.do(t, req)
}

func (a *testApp) get(t *testing.T, path string, cookies ...*http.Cookie) (*http.Response, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.srv.URL+path, nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return a.do(t, req)
}

func (a *testApp) register(t *testing.T, fields map[string]string) (*http.Response, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/api/v1/users/register", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(t, req)
}

func responseCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRouter_AccountLifecycle(t *testing.T) {
	app := newTestApp(t)

	res, body := app.register(t, map[string]string{
		"username": "Alice",
		"password": "p@ss1234",
		"fullName": "Alice A",
		"email":    "A@x.com",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body.Message)

	var registered struct {
		User         domain.User `json:"user"`
		Verification string      `json:"verification"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &registered))
	assert.Equal(t, "alice", registered.User.Username)
	assert.Equal(t, "sent", registered.Verification)

	// Unverified login is refused and a new link goes out.
	res, body = app.post(t, "/api/v1/users/login", `{"username":"alice","password":"p@ss1234"}`)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.False(t, body.Success)

	link := app.inbox.last(t).Link
	path := strings.TrimPrefix(link, "https://accounts.example.com")
	require.True(t, strings.HasPrefix(path, service.VerifyEmailPath+"/"), link)

	res, _ = app.get(t, path)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, body = app.get(t, path)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "user is already verified", body.Message)

	res, body = app.post(t, "/api/v1/users/login", `{"username":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode, body.Message)

	res, body = app.post(t, "/api/v1/users/login", `{"username":"alice","password":"p@ss1234"}`)
	require.Equal(t, http.StatusOK, res.StatusCode, body.Message)
	access := responseCookie(res, middleware.AccessTokenCookie)
	refresh := responseCookie(res, handler.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)

	res, body = app.get(t, "/api/v1/users/me", access)
	require.Equal(t, http.StatusOK, res.StatusCode, body.Message)
	assert.NotContains(t, string(body.Data), "password")

	// Rotation: the old refresh token is dead once the new pair is issued.
	res, body = app.post(t, "/api/v1/users/refresh-token", "", refresh)
	require.Equal(t, http.StatusOK, res.StatusCode, body.Message)
	rotatedAccess := responseCookie(res, middleware.AccessTokenCookie)
	require.NotNil(t, rotatedAccess)

	res, _ = app.post(t, "/api/v1/users/refresh-token", "", refresh)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, body = app.get(t, "/api/v1/users/logout", rotatedAccess)
	require.Equal(t, http.StatusOK, res.StatusCode, body.Message)

	res, body = app.get(t, "/api/v1/users/me", rotatedAccess)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "access token has been revoked", body.Message)

	stored, err := app.users.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)
}

func TestRouter_RegisterConflict(t *testing.T) {
	app := newTestApp(t)
	fields := map[string]string{"username": "bob", "password": "p", "fullName": "Bob", "phoneNo": "+15550100"}

	res, body := app.register(t, fields)
	require.Equal(t, http.StatusCreated, res.StatusCode, body.Message)
	assert.Equal(t, "Phone number registration successful", body.Message)

	res, body = app.register(t, fields)
	require.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "user with this username, email or phone number already exists", body.Message)
}

func TestRouter_RegisterTrimsContactFields(t *testing.T) {
	app := newTestApp(t)

	res, body := app.register(t, map[string]string{
		"username": "bob",
		"password": "p@ss1234",
		"fullName": "Bob B",
		"email":    " bob@x.com ",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body.Message)

	stored, err := app.users.FindByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", stored.Email)

	// A blank email next to a phone number counts as no email at all.
	res, body = app.register(t, map[string]string{
		"username": "carol",
		"password": "p@ss1234",
		"fullName": "Carol C",
		"email":    "   ",
		"phoneNo":  "+15550101",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body.Message)
	assert.Equal(t, "Phone number registration successful", body.Message)

	stored, err = app.users.FindByUsername(context.Background(), "carol")
	require.NoError(t, err)
	assert.Empty(t, stored.Email)
	assert.False(t, stored.RequiresVerification())
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/v1/users/me", "/api/v1/users/logout", "/api/v1/users/delete-me"} {
		res, body := app.get(t, path)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, path)
		assert.False(t, body.Success, path)
	}
}

func TestRouter_OperationalRoutes(t *testing.T) {
	app := newTestApp(t)

	res, _ := app.get(t, "/health")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = app.get(t, "/health/ready")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = app.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, body := app.get(t, "/api/v1/users/unknown")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.False(t, body.Success)
}
