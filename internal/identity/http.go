package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimeout = 10 * time.Second

// HTTPClient implements Client against the identity service's JSON API.
type HTTPClient struct {
	endpoint   string
	apiToken   string
	httpClient *http.Client
	log        *logrus.Logger
}

var _ Client = (*HTTPClient)(nil)

// HTTPOption configures HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// NewHTTPClient creates a client for the identity service at endpoint,
// authenticating every request with the given service token.
func NewHTTPClient(endpoint, apiToken string, log *logrus.Logger, opts ...HTTPOption) (*HTTPClient, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("identity: endpoint is required")
	}
	c := &HTTPClient{
		endpoint:   endpoint,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) CreateSimpleCredentials(ctx context.Context, req NewSimpleCredentials) (string, error) {
	c.log.WithField("email", req.Email).Info("creating simple user credentials at identity service")
	var resp struct {
		AccountID string `json:"accountId"`
	}
	payload := map[string]string{
		"email":        req.Email,
		"mobileNumber": req.MobileNumber,
		"password":     req.Password,
	}
	if err := c.do(ctx, http.MethodPost, "/accounts/simple", payload, &resp); err != nil {
		return "", err
	}
	return resp.AccountID, nil
}

func (c *HTTPClient) CreateOrganizationCredentials(ctx context.Context, req NewOrganizationCredentials, role Role) (string, error) {
	c.log.WithFields(logrus.Fields{
		"email": req.Email,
		"org":   req.RegistrationNumber,
		"role":  role,
	}).Info("creating organization credentials at identity service")
	var resp struct {
		AccountID string `json:"accountId"`
	}
	payload := map[string]string{
		"email":                 req.Email,
		"mobileNumber":          req.MobileNumber,
		"password":              req.Password,
		"organizationRegNumber": req.RegistrationNumber,
		"role":                  string(role),
	}
	if err := c.do(ctx, http.MethodPost, "/accounts/organization", payload, &resp); err != nil {
		return "", err
	}
	return resp.AccountID, nil
}

func (c *HTTPClient) ConfirmAccount(ctx context.Context, accountID string) (ConfirmationStatus, error) {
	var resp struct {
		Status ConfirmationStatus `json:"status"`
	}
	path := "/accounts/" + url.PathEscape(accountID) + "/confirm"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return ConfirmationFailed, err
	}
	return resp.Status, nil
}

func (c *HTTPClient) ManageAccount(ctx context.Context, req ManageAccount) (string, error) {
	var resp struct {
		AccountID string `json:"accountId"`
	}
	payload := map[string]string{
		"oldEmail":     req.OldEmail,
		"newEmail":     req.NewEmail,
		"mobileNumber": req.MobileNumber,
		"oldPassword":  req.OldPassword,
		"newPassword":  req.NewPassword,
	}
	if err := c.do(ctx, http.MethodPost, "/accounts/manage", payload, &resp); err != nil {
		return "", err
	}
	return resp.AccountID, nil
}

func (c *HTTPClient) OrgAdminContacts(ctx context.Context, registrationNumber string) ([]AdminContact, error) {
	var resp struct {
		Admins []AdminContact `json:"admins"`
	}
	path := "/organizations/" + url.PathEscape(registrationNumber) + "/admins"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Admins, nil
}

func (c *HTTPClient) ConfirmOrgAdminAccount(ctx context.Context, accountID, oldPassword, newPassword string) (ConfirmationStatus, error) {
	var resp struct {
		Status ConfirmationStatus `json:"status"`
	}
	payload := map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}
	path := "/accounts/" + url.PathEscape(accountID) + "/confirm-admin"
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return ConfirmationFailed, err
	}
	return resp.Status, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
