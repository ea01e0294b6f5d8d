package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/api/middleware"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

type stubAuthService struct {
	registerFn   func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn      func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	updateFn     func(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error)
	changeFn     func(ctx context.Context, userID, current, next string) error
	deactivateFn func(ctx context.Context, userID, password string) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrInvalidToken
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
	return s.updateFn(ctx, user, in)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return s.changeFn(ctx, userID, current, next)
}

func (s *stubAuthService) Deactivate(ctx context.Context, userID, password string) error {
	return s.deactivateFn(ctx, userID, password)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	out := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Email != "anna@example.com" || in.Role != domain.RoleSeller {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.BusinessInfo == nil || in.BusinessInfo.BusinessName != "Pizza Roma" {
				t.Fatalf("business info not forwarded: %+v", in.BusinessInfo)
			}
			return &ports.AuthResult{Token: "tok", User: &domain.User{ID: "u1", Email: in.Email, Role: in.Role}}, nil
		},
	}
	h := NewAuthHandler(stub)

	body := `{"firstName":"Anna","lastName":"Rossi","email":"anna@example.com","password":"Secret1",
		"role":"seller","businessInfo":{"businessName":"Pizza Roma","businessType":"restaurant"}}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/register", body), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if resp["success"] != true || resp["message"] != "User registered successfully" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	data, _ := resp["data"].(map[string]any)
	if data["token"] != "tok" {
		t.Fatalf("expected token in data, got %+v", data)
	}
	if _, leaked := data["user"].(map[string]any)["PasswordHash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	})

	body := `{"firstName":"A","lastName":"Rossi","email":"not-an-email","password":"weak","role":"admin"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/register", body), httptest.NewRecorder())

	fields := validationFields(t, h.Register(c))
	for _, f := range []string{"firstName", "email", "password", "role"} {
		if _, ok := fields[f]; !ok {
			t.Fatalf("expected a %s error, got %+v", f, fields)
		}
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrUserExists
		},
	})

	body := `{"firstName":"Bob","lastName":"Stone","email":"bob@example.com","password":"Secret1"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/register", body), httptest.NewRecorder())

	if err := h.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{})

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/register", "not-json"), httptest.NewRecorder())

	var he *echo.HTTPError
	if err := h.Register(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "Secret1" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{Token: "token123", User: &domain.User{ID: "u1", Role: domain.RoleBuyer}}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"Secret1"}`), rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decodeEnvelope(t, rec)
	if resp["message"] != "Login successful" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	if resp["data"].(map[string]any)["token"] != "token123" {
		t.Fatalf("expected token, got %+v", resp["data"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	})

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"bad"}`), httptest.NewRecorder())

	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_Deactivated(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.AuthResult, error) {
			return nil, domain.ErrAccountDeactivated
		},
	})

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"Secret1"}`), httptest.NewRecorder())

	var he *echo.HTTPError
	if err := h.Login(c); !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if he.Message != "Account has been deactivated. Please contact support." {
		t.Fatalf("unexpected message: %v", he.Message)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), rec)
	middleware.SetPrincipal(c, &domain.User{ID: "u1", FirstName: "Anna"})

	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	user := decodeEnvelope(t, rec)["data"].(map[string]any)["user"].(map[string]any)
	if user["_id"] != "u1" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthHandler_Me_RequiresPrincipal(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{})
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), httptest.NewRecorder())

	if err := h.Me(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthHandler_UpdateProfile_JSON(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		updateFn: func(_ context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
			if in.FirstName == nil || *in.FirstName != "Annie" {
				t.Fatalf("first name not forwarded: %+v", in)
			}
			if in.LastName != nil {
				t.Fatalf("absent fields must stay nil")
			}
			if in.Address == nil || in.Address.City != "Pune" {
				t.Fatalf("address not forwarded: %+v", in.Address)
			}
			out := *user
			out.FirstName = *in.FirstName
			return &out, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/api/auth/profile", `{"firstName":"Annie","address":{"city":"Pune"}}`), rec)
	middleware.SetPrincipal(c, &domain.User{ID: "u1", FirstName: "Anna"})

	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if msg := decodeEnvelope(t, rec)["message"]; msg != "Profile updated successfully" {
		t.Fatalf("unexpected message: %v", msg)
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		changeFn: func(_ context.Context, userID, current, next string) error {
			if userID != "u1" || current != "Old1pass" || next != "New1pass" {
				t.Fatalf("unexpected args: %s %s %s", userID, current, next)
			}
			return nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/api/auth/change-password", `{"currentPassword":"Old1pass","newPassword":"New1pass"}`), rec)
	middleware.SetPrincipal(c, &domain.User{ID: "u1"})

	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_DeleteAccount_WrongPassword(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		deactivateFn: func(context.Context, string, string) error {
			return domain.ErrIncorrectPassword
		},
	})

	c := e.NewContext(jsonRequest(http.MethodDelete, "/api/auth/account", `{"password":"nope"}`), httptest.NewRecorder())
	middleware.SetPrincipal(c, &domain.User{ID: "u1"})

	var he *echo.HTTPError
	if err := h.DeleteAccount(c); !errors.As(err, &he) || he.Message != "Password is incorrect" {
		t.Fatalf("expected 'Password is incorrect', got %v", err)
	}
}
