package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gridline/design-review-service/internal/config"
)

type HealthService struct {
	nats       *nats.Conn
	config     *config.Config
	validation *ValidationService
}

type HealthStatus struct {
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"` // online, offline, busy
	LastActivity time.Time `json:"last_activity"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Version      string    `json:"version"`
	CacheEntries int       `json:"cache_entries"`
	CacheHits    int64     `json:"cache_hits"`
	CacheMisses  int64     `json:"cache_misses"`
}

func NewHealthService(natsConn *nats.Conn, cfg *config.Config, validation *ValidationService) *HealthService {
	return &HealthService{
		nats:       natsConn,
		config:     cfg,
		validation: validation,
	}
}

func (h *HealthService) Start(ctx context.Context) error {
	// Subscribe to health check requests for this service
	healthTopic := fmt.Sprintf("services.%s.health", h.config.ServiceName)

	_, err := h.nats.Subscribe(healthTopic, func(msg *nats.Msg) {
		status := h.getHealthStatus()

		statusData, err := json.Marshal(status)
		if err != nil {
			slog.Error("Failed to marshal health status", "error", err)
			return
		}

		// Clients either use request/reply or carry a reply_to subject
		// in the payload.
		if msg.Reply != "" {
			if err := msg.Respond(statusData); err != nil {
				slog.Error("Failed to respond to health check", "error", err)
			}
			return
		}

		var probe struct {
			ReplyTo string `json:"reply_to"`
		}
		if err := json.Unmarshal(msg.Data, &probe); err == nil && probe.ReplyTo != "" {
			if err := h.nats.Publish(probe.ReplyTo, statusData); err != nil {
				slog.Error("Failed to respond to health check", "error", err)
			}
		}
	})

	if err != nil {
		return fmt.Errorf("failed to subscribe to health topic: %w", err)
	}

	slog.Info("Health service started", "topic", healthTopic)

	go h.publishHeartbeats(ctx)

	return nil
}

func (h *HealthService) publishHeartbeats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	heartbeatTopic := fmt.Sprintf("services.%s.heartbeat", h.config.ServiceName)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := h.getHealthStatus()
			statusData, err := json.Marshal(status)
			if err != nil {
				continue
			}

			if err := h.nats.Publish(heartbeatTopic, statusData); err != nil {
				slog.Warn("Failed to publish heartbeat", "error", err)
			}
		}
	}
}

func (h *HealthService) getHealthStatus() HealthStatus {
	stats := h.validation.CacheStats()
	return HealthStatus{
		ServiceName:  h.config.ServiceName,
		Status:       "online",
		LastActivity: time.Now(),
		Capabilities: []string{"design-validation", "history-audit"},
		Endpoint:     fmt.Sprintf("http://localhost%s", h.config.HTTPAddr),
		NATSTopic:    h.config.Subject,
		Version:      "1.0.0",
		CacheEntries: stats.Entries,
		CacheHits:    stats.Hits,
		CacheMisses:  stats.Misses,
	}
}
