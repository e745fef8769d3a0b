package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

// HTTPNotificationClient hands prepared emails to the notification service.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.LoggerV2
}

// NewHTTPNotificationClient creates a new HTTP-based notification client.
func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logging.LoggerV2) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// SendEmail sends an email notification.
func (c *HTTPNotificationClient) SendEmail(ctx context.Context, msg *models.EmailMessage) error {
	c.logger.Debug("Sending email", logging.Fields{
		"to":       msg.To,
		"template": msg.Template,
	})

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v2/notifications/email", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	setHeaders(ctx, req, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to send email", logging.Fields{
			"to":    msg.To,
			"error": err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	c.logger.Info("Email sent", logging.Fields{"to": msg.To, "template": msg.Template})
	return nil
}

// MockNotificationClient records emails for tests.
type MockNotificationClient struct {
	mu     sync.Mutex
	Emails []*models.EmailMessage
	Err    error
}

// NewMockNotificationClient creates a mock notification client.
func NewMockNotificationClient() *MockNotificationClient {
	return &MockNotificationClient{Emails: make([]*models.EmailMessage, 0)}
}

func (m *MockNotificationClient) SendEmail(ctx context.Context, msg *models.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Emails = append(m.Emails, msg)
	return nil
}
