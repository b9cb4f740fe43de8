package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopsence/user-service/internal/api/middleware"
	"github.com/shopsence/user-service/internal/core/domain"
	"github.com/shopsence/user-service/internal/core/ports"
)

type stubAccountService struct {
	currentFn       func(ctx context.Context, userID string) (*domain.User, error)
	updateDetailsFn func(ctx context.Context, userID string, in ports.UpdateDetailsInput) (*domain.User, error)
	deleteFn        func(ctx context.Context, userID string) error
	updateAvatarFn  func(ctx context.Context, userID string, avatar *domain.UploadFile) (*domain.User, error)
}

func (s *stubAccountService) Current(ctx context.Context, userID string) (*domain.User, error) {
	return s.currentFn(ctx, userID)
}

func (s *stubAccountService) UpdateDetails(ctx context.Context, userID string, in ports.UpdateDetailsInput) (*domain.User, error) {
	return s.updateDetailsFn(ctx, userID, in)
}

func (s *stubAccountService) Delete(ctx context.Context, userID string) error {
	return s.deleteFn(ctx, userID)
}

func (s *stubAccountService) UpdateAvatar(ctx context.Context, userID string, avatar *domain.UploadFile) (*domain.User, error) {
	return s.updateAvatarFn(ctx, userID, avatar)
}

var alice = &domain.User{ID: "u1", Username: "alice", FullName: "Alice A", About: "hi"}

func TestAccountHandler_Me(t *testing.T) {
	e := newEcho()
	h := NewAccountHandler(&stubAccountService{}, NewCookiePolicy(false), 0)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), rec)
	middleware.SetIdentity(c, alice, ports.Session{UserID: "u1"})

	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decode(t, rec)["data"].(map[string]any)
	if data["username"] != "alice" || data["id"] != "u1" {
		t.Fatalf("unexpected user %v", data)
	}
}

func TestAccountHandler_UpdateDetails(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		wantAbout *string
	}{
		{"about omitted", `{"fullName":"Alice B"}`, nil},
		{"about cleared", `{"fullName":"Alice B","about":""}`, new(string)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			stub := &stubAccountService{
				updateDetailsFn: func(_ context.Context, userID string, in ports.UpdateDetailsInput) (*domain.User, error) {
					if userID != "u1" || in.FullName != "Alice B" {
						t.Fatalf("unexpected input %s %+v", userID, in)
					}
					if (in.About == nil) != (tc.wantAbout == nil) {
						t.Fatalf("about presence mismatch: %v", in.About)
					}
					return &domain.User{ID: "u1", FullName: in.FullName}, nil
				},
			}
			h := NewAccountHandler(stub, NewCookiePolicy(false), 0)

			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/users/update-account-details", tc.body), rec)
			middleware.SetIdentity(c, alice, ports.Session{UserID: "u1"})

			if err := h.UpdateDetails(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
		})
	}
}

func TestAccountHandler_UpdateDetails_MissingFullName(t *testing.T) {
	e := newEcho()
	h := NewAccountHandler(&stubAccountService{}, NewCookiePolicy(false), 0)

	c := e.NewContext(jsonRequest(http.MethodPost, "/", `{"about":"x"}`), httptest.NewRecorder())
	middleware.SetIdentity(c, alice, ports.Session{UserID: "u1"})

	if err := h.UpdateDetails(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAccountHandler_Delete(t *testing.T) {
	e := newEcho()
	stub := &stubAccountService{
		deleteFn: func(_ context.Context, userID string) error {
			if userID != "u1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return nil
		},
	}
	h := NewAccountHandler(stub, NewCookiePolicy(false), 0)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/users/delete-me", nil), rec)
	middleware.SetIdentity(c, alice, ports.Session{UserID: "u1"})

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if ck := cookieByName(rec, RefreshTokenCookie); ck == nil || ck.MaxAge >= 0 {
		t.Fatal("refresh cookie should be cleared")
	}
}

func TestAccountHandler_Delete_NotFound(t *testing.T) {
	e := newEcho()
	stub := &stubAccountService{
		deleteFn: func(context.Context, string) error { return domain.ErrUserNotFound },
	}
	h := NewAccountHandler(stub, NewCookiePolicy(false), 0)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	middleware.SetIdentity(c, alice, ports.Session{UserID: "u1"})

	if err := h.Delete(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("cookies must survive a failed delete")
	}
}

func TestAccountHandler_UpdateAvatar(t *testing.T) {
	e := newEcho()
	stub := &stubAccountService{
		updateAvatarFn: func(_ context.Context, userID string, avatar *domain.UploadFile) (*domain.User, error) {
			if avatar == nil || avatar.Name != "me.png" {
				t.Fatalf("avatar not forwarded: %+v", avatar)
			}
			return &domain.User{ID: userID, AvatarURL: "https://cdn.example.com/avatars/1.png"}, nil
		},
	}
	h := NewAccountHandler(stub, NewCookiePolicy(false), 1<<20)

	rec := httptest.NewRecorder()
	c := e.NewContext(multipartRequest(t, "/api/v1/users/update-avatar", nil, pngFile()), rec)
	middleware.SetIdentity(c, alice, ports.Session{UserID: "u1"})

	if err := h.UpdateAvatar(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decode(t, rec)["data"].(map[string]any)
	if data["avatar"] != "https://cdn.example.com/avatars/1.png" {
		t.Fatalf("unexpected avatar %v", data["avatar"])
	}
}

func TestAccountHandler_UpdateAvatar_TypeFromContent(t *testing.T) {
	e := newEcho()
	stub := &stubAccountService{
		updateAvatarFn: func(_ context.Context, userID string, avatar *domain.UploadFile) (*domain.User, error) {
			if avatar.ContentType != "image/png" {
				t.Fatalf("expected sniffed image/png, got %q", avatar.ContentType)
			}
			body, _ := io.ReadAll(avatar.Body)
			if string(body) != pngBody {
				t.Fatalf("avatar body not rewound: %q", body)
			}
			return &domain.User{ID: userID}, nil
		},
	}
	h := NewAccountHandler(stub, NewCookiePolicy(false), 1<<20)

	file := &formFile{name: "me.bin", contentType: "application/octet-stream", body: []byte(pngBody)}
	c := e.NewContext(multipartRequest(t, "/api/v1/users/update-avatar", nil, file), httptest.NewRecorder())
	middleware.SetIdentity(c, alice, ports.Session{UserID: "u1"})

	if err := h.UpdateAvatar(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestAccountHandler_UpdateAvatar_UploadFailure(t *testing.T) {
	e := newEcho()
	stub := &stubAccountService{
		updateAvatarFn: func(context.Context, string, *domain.UploadFile) (*domain.User, error) {
			return nil, domain.ErrMediaUpload
		},
	}
	h := NewAccountHandler(stub, NewCookiePolicy(false), 1<<20)

	c := e.NewContext(multipartRequest(t, "/", nil, pngFile()), httptest.NewRecorder())
	middleware.SetIdentity(c, alice, ports.Session{UserID: "u1"})

	if err := h.UpdateAvatar(c); !errors.Is(err, domain.ErrMediaUpload) {
		t.Fatalf("expected ErrMediaUpload, got %v", err)
	}
}
