package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/middleware"
)

var _ middleware.SessionValidator = (*HTTPAuthClient)(nil)

// HTTPAuthClient resolves bearer tokens to tenants through the auth service.
type HTTPAuthClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.LoggerV2
}

// NewHTTPAuthClient creates a new HTTP-based auth client.
func NewHTTPAuthClient(cfg config.ServiceConfig, logger *logging.LoggerV2) *HTTPAuthClient {
	return &HTTPAuthClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

type sessionResponse struct {
	Valid    bool   `json:"valid"`
	TenantID string `json:"tenant_id"`
}

// ValidateSession returns the tenant owning token. Unknown or expired
// sessions return "" with a nil error.
func (c *HTTPAuthClient) ValidateSession(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/v2/sessions/validate", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	setHeaders(ctx, req, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to validate session", logging.Fields{
			"error": err.Error(),
		})
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return "", nil
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", err
	}

	if !session.Valid {
		return "", nil
	}

	c.logger.Debug("Session validated", logging.Fields{"tenant_id": session.TenantID})
	return session.TenantID, nil
}

func setHeaders(ctx context.Context, req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}
}

// MockAuthClient maps tokens to tenants for tests.
type MockAuthClient struct {
	sessions map[string]string
}

// NewMockAuthClient creates a mock auth client.
func NewMockAuthClient() *MockAuthClient {
	return &MockAuthClient{sessions: make(map[string]string)}
}

func (m *MockAuthClient) ValidateSession(ctx context.Context, token string) (string, error) {
	return m.sessions[token], nil
}

func (m *MockAuthClient) AddSession(token, tenantID string) {
	m.sessions[token] = tenantID
}
