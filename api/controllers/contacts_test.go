package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/supplyhub/marketplace-backend/internal/contacts"
	"github.com/supplyhub/marketplace-backend/internal/users"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
)

type stubContactsService struct {
	userID    uuid.UUID
	contactID int64
	input     contacts.ContactInput
	patch     contacts.ContactPatch
}

func (s *stubContactsService) List(ctx context.Context, userID uuid.UUID) ([]contacts.ContactDTO, error) {
	s.userID = userID
	return []contacts.ContactDTO{{ID: 1, City: "Berlin"}}, nil
}

func (s *stubContactsService) Create(ctx context.Context, userID uuid.UUID, input contacts.ContactInput) (*contacts.ContactDTO, error) {
	s.userID, s.input = userID, input
	return &contacts.ContactDTO{ID: 2, Phone: input.Phone}, nil
}

func (s *stubContactsService) Update(ctx context.Context, userID uuid.UUID, contactID int64, patch contacts.ContactPatch) (*contacts.ContactDTO, error) {
	s.userID, s.contactID, s.patch = userID, contactID, patch
	return &contacts.ContactDTO{ID: contactID}, nil
}

func (s *stubContactsService) Delete(ctx context.Context, userID uuid.UUID, contactID int64) error {
	s.userID, s.contactID = userID, contactID
	if contactID == 404 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	return nil
}

func TestContactCreateValidates(t *testing.T) {
	svc := &stubContactsService{}
	userID := uuid.New()

	body := `{"phone":"+49 30 1234","city":"Berlin","street":"Unter den Linden"}`
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/contacts", strings.NewReader(body)), userID, enums.UserTypeCustomer)
	resp := httptest.NewRecorder()
	ContactCreate(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.userID != userID || svc.input.City != "Berlin" {
		t.Fatalf("unexpected call %+v", svc.input)
	}

	req = withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/contacts", strings.NewReader(`{"phone":"1"}`)), userID, enums.UserTypeCustomer)
	resp = httptest.NewRecorder()
	ContactCreate(svc, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestContactUpdateAndDelete(t *testing.T) {
	svc := &stubContactsService{}
	req := withPrincipal(httptest.NewRequest(http.MethodPatch, "/api/v1/contacts/5", strings.NewReader(`{"city":"Hamburg"}`)), uuid.New(), enums.UserTypeCustomer)
	resp := httptest.NewRecorder()
	ContactUpdate(svc, testLogger())(resp, withURLParam(req, "contactId", "5"))
	if resp.Code != http.StatusOK || svc.contactID != 5 || svc.patch.City == nil || *svc.patch.City != "Hamburg" {
		t.Fatalf("unexpected update %d %+v", resp.Code, svc.patch)
	}

	req = withPrincipal(httptest.NewRequest(http.MethodDelete, "/api/v1/contacts/404", nil), uuid.New(), enums.UserTypeCustomer)
	resp = httptest.NewRecorder()
	ContactDelete(svc, testLogger())(resp, withURLParam(req, "contactId", "404"))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

type stubUsersService struct {
	patch users.ProfilePatch
}

func (s *stubUsersService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

func (s *stubUsersService) UpdateMe(ctx context.Context, userID uuid.UUID, patch users.ProfilePatch) (*users.UserDTO, error) {
	s.patch = patch
	return &users.UserDTO{ID: userID}, nil
}

func TestUserMeEndpoints(t *testing.T) {
	svc := &stubUsersService{}
	userID := uuid.New()

	resp := httptest.NewRecorder()
	UserMe(svc, testLogger())(resp, withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), userID, enums.UserTypeCustomer))
	var me users.UserDTO
	decodeData(t, resp, &me)
	if me.ID != userID {
		t.Fatalf("unexpected user %s", me.ID)
	}

	req := withPrincipal(httptest.NewRequest(http.MethodPatch, "/api/v1/users/me", strings.NewReader(`{"company":"Acme"}`)), userID, enums.UserTypeCustomer)
	resp = httptest.NewRecorder()
	UserUpdateMe(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK || svc.patch.Company == nil || *svc.patch.Company != "Acme" {
		t.Fatalf("unexpected patch %d %+v", resp.Code, svc.patch)
	}
}
