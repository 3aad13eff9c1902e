// Package crm implements the IdentityGateway against the Mindbox CRM
// operation API and its per-project administrative portal.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.mindbox.ru"

const (
	operationFindStaff = "QuickStart.GetStaff"
	operationAuthStaff = "QuickStart.Auth"
	operationRegStaff  = "QuickStart.Reg"
)

// Envelope statuses reported by the CRM. Only StatusSuccess responses carry
// a meaningful processingStatus; anything else is a gateway failure
// regardless of the HTTP transport status.
const (
	StatusSuccess             = "Success"
	StatusValidationError     = "ValidationError"
	StatusProtocolError       = "ProtocolError"
	StatusInternalServerError = "InternalServerError"
)

// Processing statuses carried inside successful envelopes.
const (
	ProcessingFound                   = "Found"
	ProcessingNotFound                = "NotFound"
	ProcessingAuthenticationSucceeded = "AuthenticationSucceeded"
	ProcessingAuthenticationFailed    = "AuthenticationFailed"
)

// Config holds the per-environment CRM credentials. The find operation is
// scoped to its own endpoint/secret pair, separate from auth/register.
type Config struct {
	BaseURL string

	EndpointID string
	SecretKey  string

	SearchEndpointID string
	SearchSecretKey  string

	// PortalBaseURL overrides the admin portal address. A %s verb, when
	// present, receives the project name. Defaults to
	// https://{project}.mindbox.ru.
	PortalBaseURL string

	HTTPClient *http.Client
}

// Client wraps the CRM operation endpoints. It reads its credentials once at
// construction, holds no per-request state, and is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a new CRM client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
	}
}

type customerPayload struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type operationRequest struct {
	Customer customerPayload `json:"customer"`
}

type operationEnvelope struct {
	Status   string `json:"status"`
	Customer struct {
		ProcessingStatus string `json:"processingStatus"`
	} `json:"customer"`
	ErrorMessage string `json:"errorMessage"`
}

// Exists reports whether the CRM already knows the staff member.
func (c *Client) Exists(ctx context.Context, email string) (bool, error) {
	env, err := c.operation(ctx, "sync", operationFindStaff, c.config.SearchEndpointID, c.config.SearchSecretKey, customerPayload{
		Email: email,
	})
	if err != nil {
		return false, err
	}

	return env.Customer.ProcessingStatus == ProcessingFound, nil
}

// VerifyCredentials asks the CRM to authenticate the email/password pair.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (bool, error) {
	env, err := c.operation(ctx, "sync", operationAuthStaff, c.config.EndpointID, c.config.SecretKey, customerPayload{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return false, err
	}

	return env.Customer.ProcessingStatus == ProcessingAuthenticationSucceeded, nil
}

// Register enrolls the staff member through the asynchronous registration
// operation. It succeeds silently; the caller owns the generated password.
func (c *Client) Register(ctx context.Context, email, password string) error {
	_, err := c.operation(ctx, "async", operationRegStaff, c.config.EndpointID, c.config.SecretKey, customerPayload{
		Email:    email,
		Password: password,
	})
	return err
}

func (c *Client) operation(ctx context.Context, mode, operation, endpointID, secretKey string, customer customerPayload) (*operationEnvelope, error) {
	body, err := json.Marshal(operationRequest{Customer: customer})
	if err != nil {
		return nil, &GatewayError{Operation: operation, Err: err}
	}

	endpoint := fmt.Sprintf(
		"%s/v3/operations/%s?endpointId=%s&operation=%s",
		c.config.BaseURL,
		mode,
		url.QueryEscape(endpointID),
		url.QueryEscape(operation),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &GatewayError{Operation: operation, Err: err}
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Mindbox secretKey=%q", secretKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Operation: operation, Status: resp.StatusCode, Err: err}
	}

	var env operationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &GatewayError{Operation: operation, Status: resp.StatusCode, Body: string(raw), Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices || env.Status != StatusSuccess {
		return nil, &GatewayError{
			Operation:    operation,
			Status:       resp.StatusCode,
			Upstream:     env.Status,
			ErrorMessage: env.ErrorMessage,
			Body:         string(raw),
		}
	}

	return &env, nil
}
