package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/supplyhub/marketplace-backend/internal/auth"
	"github.com/supplyhub/marketplace-backend/internal/users"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
)

type stubAuthService struct {
	req  auth.LoginRequest
	resp *auth.LoginResponse
	err  error
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.req = req
	return s.resp, s.err
}

type stubRegisterService struct {
	req  auth.RegisterRequest
	user *users.UserDTO
	err  error
}

func (s *stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.req = req
	return s.user, s.err
}

func TestAuthLoginSuccess(t *testing.T) {
	svc := &stubAuthService{resp: &auth.LoginResponse{AccessToken: "token", TokenType: "Bearer", ExpiresIn: 3600}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"buyer@example.com","password":"secret"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var out auth.LoginResponse
	decodeData(t, resp, &out)
	if out.AccessToken != "token" || svc.req.Email != "buyer@example.com" {
		t.Fatalf("unexpected login %+v %+v", out, svc.req)
	}
	if got := resp.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected token response to be uncacheable, got %q", got)
	}
}

func TestAuthLoginWithoutServiceFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	AuthLogin(nil, testLogger())(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"buyer@example.com","password":"nope"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRegisterCreatesAccount(t *testing.T) {
	svc := &stubRegisterService{user: &users.UserDTO{ID: uuid.New(), Email: "shop@example.com", Type: enums.UserTypeShop}}
	body := `{"first_name":"Sam","last_name":"Supplier","email":"shop@example.com","password":"Secret123!","type":"shop"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthRegister(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.req.Type != enums.UserTypeShop {
		t.Fatalf("expected shop type got %q", svc.req.Type)
	}
}

func TestAuthRegisterValidatesBody(t *testing.T) {
	svc := &stubRegisterService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"not-an-email"}`))
	resp := httptest.NewRecorder()
	AuthRegister(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(string(decodeError(t, resp).Error.Details), "first_name") {
		t.Fatalf("expected field details, got %s", resp.Body.String())
	}
}
