package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

// ValidationClient provides a client interface for the design review service
type ValidationClient interface {
	// Design validation
	Validate(ctx context.Context, principal string, structured map[string]interface{}, freeText string) (*ValidationResponse, error)

	// Health and discovery
	CheckHealth(ctx context.Context, service string) (*HealthStatus, error)

	// Lifecycle
	Close() error
}

// NATSValidationClient implements ValidationClient over NATS
type NATSValidationClient struct {
	conn     *nats.Conn
	subject  string
	clientID string
	timeout  time.Duration
}

// NewNATSClient creates a new NATS-based validation client
func NewNATSClient(natsURL, subject, clientID string) (ValidationClient, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if subject == "" {
		subject = "review.request.default"
	}
	if clientID == "" {
		clientID = "review-client"
	}

	return &NATSValidationClient{
		conn:     conn,
		subject:  subject,
		clientID: clientID,
		timeout:  90 * time.Second,
	}, nil
}

// Validate submits a design for review and waits for the verdict.
func (c *NATSValidationClient) Validate(ctx context.Context, principal string, structured map[string]interface{}, freeText string) (*ValidationResponse, error) {
	reqID := ulid.Make().String()
	replySubject := fmt.Sprintf("review.reply.%s.%s", c.clientID, reqID)

	request := ValidationRequest{
		ReqID:          reqID,
		Principal:      principal,
		StructuredData: structured,
		FreeText:       freeText,
		ReplyTo:        replySubject,
	}

	return c.sendRequest(ctx, replySubject, request)
}

func (c *NATSValidationClient) sendRequest(ctx context.Context, replySubject string, request ValidationRequest) (*ValidationResponse, error) {
	slog.Debug("Sending validation request",
		"subject", c.subject,
		"req_id", request.ReqID,
		"reply_subject", replySubject)

	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Subscribe to the reply subject before publishing so the response
	// cannot race past us.
	replyChan := make(chan *nats.Msg, 1)
	sub, err := c.conn.Subscribe(replySubject, func(msg *nats.Msg) {
		replyChan <- msg
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reply: %w", err)
	}
	defer sub.Unsubscribe()

	if err := c.conn.Publish(c.subject, requestBytes); err != nil {
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}

	slog.Debug("Published request, waiting for reply", "reply_subject", replySubject)

	select {
	case msg := <-replyChan:
		slog.Debug("Received response",
			"req_id", request.ReqID,
			"response_size", len(msg.Data))

		var response ValidationResponse
		if err := json.Unmarshal(msg.Data, &response); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		return &response, nil

	case <-time.After(c.timeout):
		return nil, fmt.Errorf("request timeout after %v", c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CheckHealth queries a review service instance for its health status
func (c *NATSValidationClient) CheckHealth(ctx context.Context, service string) (*HealthStatus, error) {
	healthTopic := fmt.Sprintf("services.%s.health", service)

	reqID := ulid.Make().String()
	replySubject := fmt.Sprintf("health.response.%s.%s", c.clientID, reqID)

	healthReq := map[string]interface{}{
		"req_id":   reqID,
		"reply_to": replySubject,
	}

	requestBytes, err := json.Marshal(healthReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal health request: %w", err)
	}

	replyChan := make(chan *nats.Msg, 1)
	sub, err := c.conn.Subscribe(replySubject, func(msg *nats.Msg) {
		replyChan <- msg
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to health reply: %w", err)
	}
	defer sub.Unsubscribe()

	if err := c.conn.Publish(healthTopic, requestBytes); err != nil {
		return nil, fmt.Errorf("failed to publish health request: %w", err)
	}

	select {
	case msg := <-replyChan:
		var health HealthStatus
		if err := json.Unmarshal(msg.Data, &health); err != nil {
			return nil, fmt.Errorf("failed to parse health response: %w", err)
		}
		return &health, nil

	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("health check timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the NATS connection
func (c *NATSValidationClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// SetTimeout configures request timeout
func (c *NATSValidationClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}
