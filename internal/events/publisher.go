package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

// EventType represents the type of document event.
type EventType string

const (
	EventTypeDocumentCreated EventType = "document.created"
	EventTypeDocumentUpdated EventType = "document.updated"
	EventTypeDocumentSent    EventType = "document.sent"
)

// DocumentEvent is the envelope written to the documents topic.
type DocumentEvent struct {
	ID            string              `json:"id"`
	Type          EventType           `json:"type"`
	DocumentID    string              `json:"document_id"`
	TenantID      string              `json:"tenant_id"`
	Kind          models.DocumentKind `json:"kind"`
	Number        string              `json:"number"`
	Data          json.RawMessage     `json:"data"`
	Metadata      map[string]string   `json:"metadata"`
	Timestamp     time.Time           `json:"timestamp"`
	CorrelationID string              `json:"correlation_id,omitempty"`
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes document events to Kafka.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logging.LoggerV2
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.LoggerV2) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.DocumentsTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  cfg.DocumentsTopic,
		logger: logger,
	}
}

// PublishDocumentCreated publishes a document created event.
func (p *KafkaPublisher) PublishDocumentCreated(ctx context.Context, doc *models.Document) error {
	p.logger.Debug("Publishing document created event", logging.Fields{
		"document_id": doc.ID,
		"number":      doc.Number,
	})

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return p.publish(ctx, p.createEvent(ctx, EventTypeDocumentCreated, doc, data))
}

// PublishDocumentUpdated publishes a document updated event.
func (p *KafkaPublisher) PublishDocumentUpdated(ctx context.Context, doc *models.Document) error {
	p.logger.Debug("Publishing document updated event", logging.Fields{
		"document_id": doc.ID,
	})

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return p.publish(ctx, p.createEvent(ctx, EventTypeDocumentUpdated, doc, data))
}

// PublishDocumentSent publishes an event after an invoice email was handed
// to the notification service.
func (p *KafkaPublisher) PublishDocumentSent(ctx context.Context, doc *models.Document, recipient string) error {
	p.logger.Debug("Publishing document sent event", logging.Fields{
		"document_id": doc.ID,
	})

	payload := struct {
		Document  *models.Document `json:"document"`
		Recipient string           `json:"recipient"`
	}{
		Document:  doc,
		Recipient: recipient,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.publish(ctx, p.createEvent(ctx, EventTypeDocumentSent, doc, data))
}

func (p *KafkaPublisher) createEvent(ctx context.Context, eventType EventType, doc *models.Document, data []byte) *DocumentEvent {
	metadata := make(map[string]string)
	if tenantID := middleware.TenantIDFromContext(ctx); tenantID != "" {
		metadata["auth_tenant_id"] = tenantID
	}

	return &DocumentEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		DocumentID:    doc.ID,
		TenantID:      doc.TenantID,
		Kind:          doc.Kind,
		Number:        doc.Number,
		Data:          data,
		Metadata:      metadata,
		Timestamp:     time.Now().UTC(),
		CorrelationID: middleware.RequestIDFromContext(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *DocumentEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Keyed by tenant so one tenant's events stay ordered on a partition.
	msg := kafka.Message{
		Key:   []byte(event.TenantID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":    event.ID,
			"event_type":  event.Type,
			"document_id": event.DocumentID,
			"error":       err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":    event.ID,
		"event_type":  event.Type,
		"document_id": event.DocumentID,
		"topic":       p.topic,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// MockEventPublisher records events in memory for tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []*DocumentEvent
	Err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]*DocumentEvent, 0),
	}
}

func (m *MockEventPublisher) record(eventType EventType, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, &DocumentEvent{
		Type:       eventType,
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Kind:       doc.Kind,
		Number:     doc.Number,
	})
	return nil
}

func (m *MockEventPublisher) PublishDocumentCreated(ctx context.Context, doc *models.Document) error {
	return m.record(EventTypeDocumentCreated, doc)
}

func (m *MockEventPublisher) PublishDocumentUpdated(ctx context.Context, doc *models.Document) error {
	return m.record(EventTypeDocumentUpdated, doc)
}

func (m *MockEventPublisher) PublishDocumentSent(ctx context.Context, doc *models.Document, recipient string) error {
	return m.record(EventTypeDocumentSent, doc)
}

// Types returns the recorded event types in publish order.
func (m *MockEventPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]EventType, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}
