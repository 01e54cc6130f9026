package onboarding

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/receptionly/platform/internal/business"
	"github.com/receptionly/platform/internal/voice"
)

type fakeProvisioner struct {
	userErr   error
	agentErr  error
	phoneErr  error
	attachErr error

	createdUser  *voice.User
	agentParams  voice.CreateAgentParams
	phoneParams  voice.CreatePhoneParams
	attachedTo   string
	attachedWith string
}

func (f *fakeProvisioner) CreateUser(_ context.Context, name, email string) (*voice.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	f.createdUser = &voice.User{ID: "user-1", Name: name, Email: email}
	return f.createdUser, nil
}

func (f *fakeProvisioner) CreateAgent(_ context.Context, p voice.CreateAgentParams) (*voice.Agent, error) {
	if f.agentErr != nil {
		return nil, f.agentErr
	}
	f.agentParams = p
	return &voice.Agent{ID: "agent-1", Name: p.AgentName}, nil
}

func (f *fakeProvisioner) CreatePhoneNumber(_ context.Context, p voice.CreatePhoneParams) (string, error) {
	if f.phoneErr != nil {
		return "", f.phoneErr
	}
	f.phoneParams = p
	return "+15550100", nil
}

func (f *fakeProvisioner) AttachAgentToPhone(_ context.Context, phoneNumber, agentID string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attachedTo = phoneNumber
	f.attachedWith = agentID
	return nil
}

type memoryStore struct {
	created []*business.Business
}

func (m *memoryStore) Create(_ context.Context, b *business.Business) error {
	m.created = append(m.created, b)
	return nil
}

func (m *memoryStore) GetByOwnerEmail(_ context.Context, email string) (*business.Business, error) {
	for _, b := range m.created {
		if b.OwnerEmail == email {
			return b, nil
		}
	}
	return nil, business.ErrNotFound
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }

func validRequest() Request {
	return Request{
		BusinessName:    "ACME Plumbing",
		OwnerName:       "Jordan Q",
		OwnerEmail:      "jordan@acme.test",
		AreaCode:        "555",
		StartingMessage: "Thanks for calling ACME!",
		AgentPrompt:     "Answer for a plumbing company.",
	}
}

func TestOnboardHappyPath(t *testing.T) {
	provider := &fakeProvisioner{}
	store := &memoryStore{}
	invalidator := &countingInvalidator{}
	svc := NewService(provider, store, invalidator, nil)

	biz, err := svc.Onboard(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if biz.AgentID != "agent-1" || biz.PhoneNumber != "+15550100" || biz.AgentUserID != "user-1" {
		t.Fatalf("provisioning ids not recorded: %+v", biz)
	}
	if provider.attachedTo != "+15550100" || provider.attachedWith != "agent-1" {
		t.Fatalf("agent not attached: %+v", provider)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one persisted business, got %d", len(store.created))
	}
	if invalidator.calls != 1 {
		t.Fatalf("directory cache must be invalidated once, got %d", invalidator.calls)
	}

	// The provider email carries a uniqueness suffix; the stored owner
	// email does not.
	if !strings.Contains(provider.createdUser.Email, "+") {
		t.Fatalf("provider email not suffixed: %s", provider.createdUser.Email)
	}
	if biz.OwnerEmail != "jordan@acme.test" {
		t.Fatalf("owner email mutated: %s", biz.OwnerEmail)
	}
}

func TestOnboardAgentConfiguration(t *testing.T) {
	provider := &fakeProvisioner{}
	svc := NewService(provider, &memoryStore{}, nil, nil)

	req := validRequest()
	req.ExtractionFields = []string{"pet_name", "first_name"} // first_name is already standard
	if _, err := svc.Onboard(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(provider.agentParams.Prompt, `"ACME Plumbing"`) {
		t.Fatalf("business name not injected into prompt: %q", provider.agentParams.Prompt)
	}

	fields := provider.agentParams.ExtractionFields
	if fields[0] != "business_name" {
		t.Fatalf("business_name must lead the extraction fields: %v", fields)
	}
	counts := map[string]int{}
	for _, f := range fields {
		counts[f]++
	}
	if counts["first_name"] != 1 {
		t.Fatalf("duplicate extraction field: %v", fields)
	}
	if counts["pet_name"] != 1 {
		t.Fatalf("custom field missing: %v", fields)
	}
}

func TestOnboardProvisioningFailureSkipsPersist(t *testing.T) {
	provider := &fakeProvisioner{phoneErr: fmt.Errorf("no numbers in area code")}
	store := &memoryStore{}
	svc := NewService(provider, store, nil, nil)

	if _, err := svc.Onboard(context.Background(), validRequest()); err == nil {
		t.Fatal("expected error")
	}
	if len(store.created) != 0 {
		t.Fatal("business must not be persisted when provisioning fails")
	}
}

func TestOnboardValidation(t *testing.T) {
	svc := NewService(&fakeProvisioner{}, &memoryStore{}, nil, nil)

	req := validRequest()
	req.BusinessName = ""
	if _, err := svc.Onboard(context.Background(), req); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestHandlerCreateAndGet(t *testing.T) {
	svc := NewService(&fakeProvisioner{}, &memoryStore{}, nil, nil)
	handler := NewHandler(svc, nil)

	body := `{"business_name":"ACME Plumbing","owner_name":"Jordan Q",
		"owner_email":"jordan@acme.test","area_code":"555"}`
	req := httptest.NewRequest(http.MethodPost, "/onboarding/businesses", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateBusiness(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	get := httptest.NewRequest(http.MethodGet, "/onboarding/businesses?email=jordan@acme.test", nil)
	rec = httptest.NewRecorder()
	handler.GetBusiness(rec, get)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	missing := httptest.NewRequest(http.MethodGet, "/onboarding/businesses?email=nobody@acme.test", nil)
	rec = httptest.NewRecorder()
	handler.GetBusiness(rec, missing)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
