package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
)

// ServiceStatus represents the health status of a design review service
type ServiceStatus struct {
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Version      string    `json:"version"`
	CacheEntries int       `json:"cache_entries"`
	CacheHits    int64     `json:"cache_hits"`
	CacheMisses  int64     `json:"cache_misses"`

	LastSeen     time.Time          `json:"last_seen"`
	RTT          time.Duration      `json:"rtt,omitempty"`
	FirstSeen    time.Time          `json:"first_seen"`
	Uptime       time.Duration      `json:"uptime"`
	Backpressure BackpressureStatus `json:"backpressure_status"`
}

// BackpressureStatus mirrors the reports published on the monitoring topic
type BackpressureStatus struct {
	Level            string    `json:"level"` // healthy, warning, critical
	PendingMessages  int64     `json:"pending_messages"`
	ActiveProcessing int64     `json:"active_processing"`
	WorkerCount      int       `json:"worker_count"`
	ReportedAt       time.Time `json:"reported_at"`
}

// MonitorService tracks design review service instances
type MonitorService struct {
	nats      *nats.Conn
	services  map[string]*ServiceStatus
	mu        sync.RWMutex
	listeners []chan []ServiceStatus
}

func NewMonitorService(natsURL string) (*MonitorService, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &MonitorService{
		nats:     nc,
		services: make(map[string]*ServiceStatus),
	}, nil
}

func (m *MonitorService) Start(ctx context.Context) error {
	// Heartbeats published by every review service instance
	_, err := m.nats.Subscribe("services.*.heartbeat", func(msg *nats.Msg) {
		var status ServiceStatus
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			log.Printf("Failed to parse heartbeat from %s: %v", msg.Subject, err)
			return
		}

		now := time.Now()
		status.LastSeen = now

		m.mu.Lock()
		if existing, exists := m.services[status.ServiceName]; exists {
			status.FirstSeen = existing.FirstSeen // Preserve original first seen time
			status.Backpressure = existing.Backpressure
		} else {
			status.FirstSeen = now
		}
		status.Uptime = now.Sub(status.FirstSeen)
		m.services[status.ServiceName] = &status
		m.mu.Unlock()

		m.notifyListeners()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to heartbeats: %w", err)
	}

	// Backpressure reports, keyed by service name in the last token
	_, err = m.nats.Subscribe("monitoring.review.backpressure.*", func(msg *nats.Msg) {
		var report struct {
			ServiceName      string    `json:"service_name"`
			PendingMessages  int64     `json:"pending_messages"`
			ActiveProcessing int64     `json:"active_processing"`
			WorkerCount      int       `json:"worker_count"`
			Status           string    `json:"status"`
			Timestamp        time.Time `json:"timestamp"`
		}
		if err := json.Unmarshal(msg.Data, &report); err != nil {
			return
		}

		m.mu.Lock()
		if service, exists := m.services[report.ServiceName]; exists {
			service.Backpressure = BackpressureStatus{
				Level:            report.Status,
				PendingMessages:  report.PendingMessages,
				ActiveProcessing: report.ActiveProcessing,
				WorkerCount:      report.WorkerCount,
				ReportedAt:       report.Timestamp,
			}
		}
		m.mu.Unlock()

		m.notifyListeners()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to backpressure reports: %w", err)
	}

	log.Println("Monitor service started, listening for heartbeats...")

	go m.cleanupStaleServices(ctx)

	return nil
}

func (m *MonitorService) cleanupStaleServices(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for name, service := range m.services {
				if now.Sub(service.LastSeen) > 2*time.Minute {
					// Mark as offline instead of deleting
					if service.Status != "offline" {
						service.Status = "offline"
						log.Printf("Marked service as offline: %s", name)
					}
				}
			}
			m.mu.Unlock()
			m.notifyListeners()
		}
	}
}

func (m *MonitorService) GetServices() []ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var services []ServiceStatus
	for _, service := range m.services {
		services = append(services, *service)
	}

	sort.Slice(services, func(i, j int) bool {
		return services[i].ServiceName < services[j].ServiceName
	})

	return services
}

func (m *MonitorService) QueryHealth(serviceName string) (*ServiceStatus, error) {
	healthTopic := fmt.Sprintf("services.%s.health", serviceName)

	start := time.Now()
	resp, err := m.nats.Request(healthTopic, []byte("{}"), 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	rtt := time.Since(start)

	var status ServiceStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}

	status.RTT = rtt
	status.LastSeen = time.Now()

	return &status, nil
}

func (m *MonitorService) AddListener() chan []ServiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan []ServiceStatus, 10)
	m.listeners = append(m.listeners, ch)
	return ch
}

func (m *MonitorService) notifyListeners() {
	services := m.GetServices()

	m.mu.RLock()
	for _, ch := range m.listeners {
		select {
		case ch <- services:
		default:
			// Channel full, skip
		}
	}
	m.mu.RUnlock()
}

func (m *MonitorService) Close() {
	if m.nats != nil {
		m.nats.Close()
	}
}

func main() {
	var (
		natsURL  = flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
		httpAddr = flag.String("http", ":8090", "HTTP server address")
		cliMode  = flag.Bool("cli", false, "Run in CLI dashboard mode")
		onceMode = flag.Bool("once", false, "Query once and exit")
	)
	flag.Parse()

	monitor, err := NewMonitorService(*natsURL)
	if err != nil {
		log.Fatalf("Failed to create monitor service: %v", err)
	}
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := monitor.Start(ctx); err != nil {
		log.Fatalf("Failed to start monitor service: %v", err)
	}

	if *onceMode {
		time.Sleep(2 * time.Second) // Wait for initial heartbeats
		printServices(monitor.GetServices())
		return
	}

	if *cliMode {
		runCLIDashboard(ctx, monitor)
	} else {
		runHTTPServer(ctx, monitor, *httpAddr)
	}
}

func printServices(services []ServiceStatus) {
	if len(services) == 0 {
		fmt.Println("No review services found")
		return
	}

	fmt.Printf("Found %d review services:\n\n", len(services))

	for _, service := range services {
		fmt.Printf("%s\n", service.ServiceName)
		fmt.Printf("   Status: %s\n", service.Status)
		fmt.Printf("   Capabilities: %s\n", strings.Join(service.Capabilities, ", "))
		fmt.Printf("   Endpoint: %s\n", service.Endpoint)
		fmt.Printf("   NATS Topic: %s\n", service.NATSTopic)
		fmt.Printf("   Cache: %d entries, %d hits, %d misses\n",
			service.CacheEntries, service.CacheHits, service.CacheMisses)
		if service.RTT > 0 {
			fmt.Printf("   Response Time: %v\n", service.RTT)
		}
		fmt.Printf("   Last Seen: %v ago\n", time.Since(service.LastSeen).Truncate(time.Second))
		fmt.Println()
	}
}

func runCLIDashboard(ctx context.Context, monitor *MonitorService) {
	// Clear screen and hide cursor
	fmt.Print("\033[2J\033[H\033[?25l")
	defer fmt.Print("\033[?25h") // Show cursor on exit

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	updates := monitor.AddListener()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			return
		case <-ticker.C:
			renderDashboard(monitor.GetServices())
		case <-updates:
			renderDashboard(monitor.GetServices())
		}
	}
}

func renderDashboard(services []ServiceStatus) {
	fmt.Print("\033[2J\033[H")

	now := time.Now()
	fmt.Printf("Design Review Service Monitor - %s\n", now.Format("15:04:05"))
	fmt.Println(strings.Repeat("=", 96))
	fmt.Println()

	if len(services) == 0 {
		fmt.Println("No review services detected")
		fmt.Println("\nWaiting for heartbeats on services.*.heartbeat...")
		return
	}

	fmt.Printf("Active Services: %d\n\n", len(services))

	fmt.Printf("%-20s %-8s %-10s %-18s %-12s %-10s\n",
		"SERVICE", "STATUS", "PRESSURE", "CACHE(HIT/MISS)", "PENDING", "LAST_SEEN")
	fmt.Printf("%-20s %-8s %-10s %-18s %-12s %-10s\n",
		strings.Repeat("-", 20), strings.Repeat("-", 8), strings.Repeat("-", 10),
		strings.Repeat("-", 18), strings.Repeat("-", 12), strings.Repeat("-", 10))

	for _, service := range services {
		status := service.Status
		if time.Since(service.LastSeen) > time.Minute {
			status = "stale"
		}

		pressure := service.Backpressure.Level
		if pressure == "" {
			pressure = "-"
		}
		cacheStats := fmt.Sprintf("%d (%d/%d)", service.CacheEntries, service.CacheHits, service.CacheMisses)
		pending := fmt.Sprintf("%d/%d", service.Backpressure.PendingMessages, service.Backpressure.ActiveProcessing)
		lastSeen := formatDuration(time.Since(service.LastSeen))

		fmt.Printf("%-20s %-8s %-10s %-18s %-12s %-10s\n",
			service.ServiceName, status, pressure, cacheStats, pending, lastSeen)
	}

	fmt.Printf("\nPress Ctrl+C to exit\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func runHTTPServer(ctx context.Context, monitor *MonitorService, addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/services", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(monitor.GetServices())
	})

	mux.HandleFunc("/api/services/", func(w http.ResponseWriter, r *http.Request) {
		serviceName := strings.TrimPrefix(r.URL.Path, "/api/services/")
		if serviceName == "" {
			http.Error(w, "Service name required", http.StatusBadRequest)
			return
		}

		status, err := monitor.QueryHealth(serviceName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(status)
	})

	// Server-Sent Events for real-time updates
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		services := monitor.GetServices()
		data, _ := json.Marshal(services)
		fmt.Fprintf(w, "data: %s\n\n", data)
		w.(http.Flusher).Flush()

		updates := monitor.AddListener()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.Context().Done():
				return
			case services := <-updates:
				data, _ := json.Marshal(services)
				fmt.Fprintf(w, "data: %s\n\n", data)
				w.(http.Flusher).Flush()
			}
		}
	})

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Printf("Starting HTTP monitor server on %s", addr)
	log.Printf("API: http://localhost%s/api/services", addr)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-sigCh:
	}

	log.Println("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server.Shutdown(shutdownCtx)
}
