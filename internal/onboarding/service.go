// Package onboarding stands up a new business: provision the voice agent
// and phone number at the provider, then persist the business with the
// resulting identifiers. The record is only written after provisioning
// succeeds, so a business never exists half-configured.
package onboarding

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/receptionly/platform/internal/business"
	"github.com/receptionly/platform/internal/customers"
	"github.com/receptionly/platform/internal/voice"
	"github.com/receptionly/platform/pkg/logging"
)

// standardExtractionFields are configured on every agent. business_name is
// injected via the prompt for attribution and never asked aloud.
var standardExtractionFields = []string{
	customers.FieldBusinessName,
	customers.FieldFirstName,
	customers.FieldLastName,
	customers.FieldPhoneNumber,
	customers.FieldAppointmentTime,
	customers.FieldMonth,
	customers.FieldDay,
}

// Provisioner is the provider surface onboarding drives.
type Provisioner interface {
	CreateUser(ctx context.Context, name, email string) (*voice.User, error)
	CreateAgent(ctx context.Context, p voice.CreateAgentParams) (*voice.Agent, error)
	CreatePhoneNumber(ctx context.Context, p voice.CreatePhoneParams) (string, error)
	AttachAgentToPhone(ctx context.Context, phoneNumber, agentID string) error
}

// BusinessStore persists onboarded businesses.
type BusinessStore interface {
	Create(ctx context.Context, b *business.Business) error
	GetByOwnerEmail(ctx context.Context, email string) (*business.Business, error)
}

// DirectoryInvalidator drops the cached agent directory after a new
// assignment.
type DirectoryInvalidator interface {
	Invalidate(ctx context.Context)
}

// Request carries everything needed to onboard one business.
type Request struct {
	BusinessName     string             `json:"business_name"`
	OwnerName        string             `json:"owner_name"`
	OwnerEmail       string             `json:"owner_email"`
	AreaCode         string             `json:"area_code"`
	AgentNickname    string             `json:"agent_nickname"`
	StartingMessage  string             `json:"starting_message"`
	AgentPrompt      string             `json:"agent_prompt"`
	VoiceID          string             `json:"voice_id"`
	Timezone         string             `json:"timezone,omitempty"`
	ExtractionFields []string           `json:"extraction_fields,omitempty"`
	WorkHours        business.WorkHours `json:"work_hours,omitempty"`
	Services         []business.Service `json:"services,omitempty"`
}

// Validate checks the required inputs.
func (r Request) Validate() error {
	switch {
	case r.BusinessName == "":
		return fmt.Errorf("onboarding: business_name is required")
	case r.OwnerEmail == "":
		return fmt.Errorf("onboarding: owner_email is required")
	case r.AreaCode == "":
		return fmt.Errorf("onboarding: area_code is required")
	}
	return nil
}

// Service runs the onboarding flow.
type Service struct {
	provider  Provisioner
	store     BusinessStore
	directory DirectoryInvalidator
	logger    *logging.Logger
}

// NewService creates the onboarding service. directory may be nil when no
// cache is configured.
func NewService(provider Provisioner, store BusinessStore, directory DirectoryInvalidator, logger *logging.Logger) *Service {
	if provider == nil || store == nil {
		panic("onboarding: provider and store are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{provider: provider, store: store, directory: directory, logger: logger}
}

// Onboard provisions the voice stack and persists the business.
// Order matters: user → agent → phone → attach, and the database write
// comes last.
func (s *Service) Onboard(ctx context.Context, req Request) (*business.Business, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenantID := uuid.NewString()

	// Suffix the provider email so re-onboarding the same owner never
	// collides with an earlier provider account.
	providerEmail := strings.Replace(req.OwnerEmail, "@", "+"+tenantID[:8]+"@", 1)
	user, err := s.provider.CreateUser(ctx, req.OwnerName, providerEmail)
	if err != nil {
		return nil, fmt.Errorf("onboarding: create provider user: %w", err)
	}

	nickname := req.AgentNickname
	if nickname == "" {
		nickname = req.BusinessName + " Receptionist"
	}
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = "openai-Nova"
	}
	agent, err := s.provider.CreateAgent(ctx, voice.CreateAgentParams{
		AgentName:        nickname,
		StartingMessage:  req.StartingMessage,
		Prompt:           buildPrompt(req.BusinessName, req.AgentPrompt),
		UserID:           user.ID,
		VoiceID:          voiceID,
		ExtractionFields: buildExtractionFields(req.ExtractionFields),
	})
	if err != nil {
		return nil, fmt.Errorf("onboarding: create agent: %w", err)
	}

	phone, err := s.provider.CreatePhoneNumber(ctx, voice.CreatePhoneParams{
		AreaCode: req.AreaCode,
		UserID:   user.ID,
		TenantID: tenantID,
		Nickname: req.BusinessName,
	})
	if err != nil {
		return nil, fmt.Errorf("onboarding: create phone number: %w", err)
	}

	if err := s.provider.AttachAgentToPhone(ctx, phone, agent.ID); err != nil {
		return nil, fmt.Errorf("onboarding: attach agent: %w", err)
	}

	biz := &business.Business{
		ID:              tenantID,
		Name:            req.BusinessName,
		OwnerName:       req.OwnerName,
		OwnerEmail:      req.OwnerEmail,
		PhoneNumber:     phone,
		AgentID:         agent.ID,
		AgentUserID:     user.ID,
		Timezone:        req.Timezone,
		WorkHours:       req.WorkHours,
		Services:        req.Services,
		StartingMessage: req.StartingMessage,
		AgentPrompt:     req.AgentPrompt,
		VoiceID:         voiceID,
	}
	if err := s.store.Create(ctx, biz); err != nil {
		return nil, fmt.Errorf("onboarding: persist business: %w", err)
	}

	if s.directory != nil {
		s.directory.Invalidate(ctx)
	}

	s.logger.Info("business onboarded",
		"business_id", biz.ID, "name", biz.Name,
		"agent_id", biz.AgentID, "phone", biz.PhoneNumber)
	return biz, nil
}

// GetByOwnerEmail looks up an onboarded business.
func (s *Service) GetByOwnerEmail(ctx context.Context, email string) (*business.Business, error) {
	return s.store.GetByOwnerEmail(ctx, email)
}

func buildPrompt(businessName, customPrompt string) string {
	return fmt.Sprintf("You are an AI voice assistant for %[1]s. The business name is always %[1]q - do not ask for this.\n\n%s",
		businessName, customPrompt)
}

func buildExtractionFields(custom []string) []string {
	fields := make([]string, len(standardExtractionFields), len(standardExtractionFields)+len(custom))
	copy(fields, standardExtractionFields)
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f] = struct{}{}
	}
	for _, f := range custom {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}
	return fields
}
