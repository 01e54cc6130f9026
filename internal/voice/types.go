// Package voice is the client for the hosted AI-receptionist provider:
// the call feed the sync pipeline drains, plus the provisioning endpoints
// onboarding uses to stand up an agent and phone number.
package voice

import "encoding/json"

// Call statuses the feed reports.
const (
	CallStatusEnded   = "ended"
	CallStatusOngoing = "ongoing"
)

// Call is one call record from the provider feed. AgentID and VoiceAgentID
// are the same identifier under two spellings; Agent() picks whichever is
// set.
type Call struct {
	CallID              string            `json:"call_id"`
	VoiceAgentID        string            `json:"voice_agent_id,omitempty"`
	AgentID             string            `json:"agent_id,omitempty"`
	AgentName           string            `json:"agent_name,omitempty"`
	Direction           string            `json:"direction,omitempty"`
	FromNumber          string            `json:"from_number"`
	ToNumber            string            `json:"to_number,omitempty"`
	CallStatus          string            `json:"call_status"`
	StartTimestamp      string            `json:"start_timestamp,omitempty"`
	EndTimestamp        string            `json:"end_timestamp,omitempty"`
	DurationMS          int64             `json:"duration_ms,omitempty"`
	DisconnectionReason string            `json:"disconnection_reason,omitempty"`
	UserSentiment       string            `json:"user_sentiment,omitempty"`
	CallSuccessful      bool              `json:"call_successful,omitempty"`
	InVoicemail         bool              `json:"in_voicemail,omitempty"`
	RecordingURL        string            `json:"recording_url,omitempty"`
	Transcript          string            `json:"transcript,omitempty"`
	ExtractedFields     map[string]string `json:"extracted_fields,omitempty"`
	Metadata            json.RawMessage   `json:"metadata,omitempty"`
}

// Agent returns the agent identifier, preferring the voice_agent_id
// spelling the provider uses on newer records.
func (c Call) Agent() string {
	if c.VoiceAgentID != "" {
		return c.VoiceAgentID
	}
	return c.AgentID
}

// Ended reports whether the call has completed and is safe to sync.
func (c Call) Ended() bool {
	return c.CallStatus == CallStatusEnded
}

// User is a provider account created during onboarding.
type User struct {
	ID         string `json:"unique_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Permission string `json:"permission,omitempty"`
}

// Agent is a provisioned voice agent.
type Agent struct {
	ID              string `json:"voice_agent_id"`
	Name            string `json:"agent_name"`
	StartingMessage string `json:"starting_message,omitempty"`
	VoiceID         string `json:"voice_id,omitempty"`
}

// CreateAgentParams configures a new voice agent.
type CreateAgentParams struct {
	AgentName        string
	StartingMessage  string
	Prompt           string
	UserID           string
	VoiceID          string
	Language         string
	ExtractionFields []string
}

// CreatePhoneParams requests a phone number in an area code, optionally
// pre-attached to an inbound agent.
type CreatePhoneParams struct {
	AreaCode       string
	UserID         string
	TenantID       string
	Nickname       string
	InboundAgentID string
}
