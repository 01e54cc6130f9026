package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/receptionly/platform/pkg/logging"
)

const (
	defaultTimeout = 15 * time.Second
	defaultLimit   = 50
)

// Client wraps the provider's REST API. The organization id scopes every
// call-feed request; the API key authenticates all of them.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	orgID      string
	logger     *logging.Logger
}

// NewClient constructs a provider client.
func NewClient(baseURL, apiKey, orgID string, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		orgID:      orgID,
		logger:     logger,
	}
}

// ListCallsParams filters the call feed. A zero Since means no lower bound.
// Admin widens the feed to every agent in the organization; without it the
// provider returns only the requesting user's calls.
type ListCallsParams struct {
	AgentID string
	Admin   bool
	Since   time.Time
	Limit   int
}

// ListCalls fetches ended calls for the organization, optionally scoped to
// one agent.
func (c *Client) ListCalls(ctx context.Context, p ListCallsParams) ([]Call, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	q := url.Values{}
	q.Set("organization_id", c.orgID)
	q.Set("is_admin", strconv.FormatBool(p.Admin))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("call_status", CallStatusEnded)
	if p.AgentID != "" {
		q.Set("agent_id", p.AgentID)
	}
	if !p.Since.IsZero() {
		q.Set("start_date", p.Since.UTC().Format(time.RFC3339))
	}

	var wrapped struct {
		Success bool   `json:"success"`
		Calls   []Call `json:"calls"`
		Count   int    `json:"count"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/voice/calls?"+q.Encode(), nil, &wrapped); err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	return wrapped.Calls, nil
}

// GetCall fetches one call's full record, including the transcript. The
// backfill job uses this for calls whose feed entry arrived without one.
func (c *Client) GetCall(ctx context.Context, callID string) (*Call, error) {
	var wrapped struct {
		Success bool  `json:"success"`
		Call    *Call `json:"call"`
	}
	path := "/v1/voice/calls/" + url.PathEscape(callID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &wrapped); err != nil {
		return nil, fmt.Errorf("get call %s: %w", callID, err)
	}
	if wrapped.Call == nil {
		return nil, fmt.Errorf("get call %s: empty response", callID)
	}
	return wrapped.Call, nil
}

// CreateUser provisions a provider account for a business owner.
func (c *Client) CreateUser(ctx context.Context, name, email string) (*User, error) {
	body := map[string]string{
		"name":       name,
		"email":      email,
		"permission": "admin",
	}
	var wrapped struct {
		User *User `json:"user"`
	}
	path := "/v1/organizations/" + url.PathEscape(c.orgID) + "/users"
	if err := c.doJSON(ctx, http.MethodPost, path, body, &wrapped); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if wrapped.User == nil {
		return nil, fmt.Errorf("create user: no user in response")
	}
	return wrapped.User, nil
}

// CreateAgent provisions a voice agent with the business's prompt and
// extraction fields.
func (c *Client) CreateAgent(ctx context.Context, p CreateAgentParams) (*Agent, error) {
	language := p.Language
	if language == "" {
		language = "en-US"
	}
	body := map[string]any{
		"agent_type":        "voice",
		"agent_name":        p.AgentName,
		"starting_message":  p.StartingMessage,
		"prompt":            p.Prompt,
		"organization_id":   c.orgID,
		"user_id":           p.UserID,
		"voice_id":          p.VoiceID,
		"language":          language,
		"extraction_fields": p.ExtractionFields,
	}
	var agent Agent
	if err := c.doJSON(ctx, http.MethodPost, "/v1/agents", body, &agent); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	if agent.ID == "" {
		return nil, fmt.Errorf("create agent: no voice_agent_id in response")
	}
	return &agent, nil
}

// CreatePhoneNumber requests a number in the given area code.
func (c *Client) CreatePhoneNumber(ctx context.Context, p CreatePhoneParams) (string, error) {
	body := map[string]string{
		"area_code":       p.AreaCode,
		"user_id":         p.UserID,
		"organization_id": c.orgID,
		"tenant_id":       p.TenantID,
	}
	if p.Nickname != "" {
		body["nickname"] = p.Nickname
	}
	if p.InboundAgentID != "" {
		body["inbound_agent_id"] = p.InboundAgentID
	}
	var wrapped struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/voice/phone-numbers/create", body, &wrapped); err != nil {
		return "", fmt.Errorf("create phone number: %w", err)
	}
	if wrapped.PhoneNumber == "" {
		return "", fmt.Errorf("create phone number: none returned")
	}
	return wrapped.PhoneNumber, nil
}

// AttachAgentToPhone routes a phone number's inbound calls to an agent.
func (c *Client) AttachAgentToPhone(ctx context.Context, phoneNumber, agentID string) error {
	body := map[string]string{"inbound_agent_id": agentID}
	path := "/v1/voice/phone-numbers/" + url.PathEscape(phoneNumber) + "/update-agent"
	if err := c.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("attach agent to phone: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("voice API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return fmt.Errorf("voice API returned %d: %s", resp.StatusCode, msg)
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
