// Package mdns advertises the ReadingNook server on the local network so
// browsers and companion apps can find it without configuration.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the mDNS service type for ReadingNook servers.
	ServiceType = "_readingnook._tcp"

	// APIVersion is the API version advertised in TXT records.
	APIVersion = "v1"

	defaultInstanceName = "readingnook-server"
)

// Advertisement describes what the server announces.
type Advertisement struct {
	Name    string // Human-readable server name
	Version string // Server build version
	Port    int    // HTTP port
	Public  bool   // Whether visitors can browse without signing in
}

// Service manages the mDNS responder.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// Start begins advertising. Calling it again replaces the running
// advertisement. Errors are usually non-fatal (e.g. no multicast in Docker).
func (s *Service) Start(ad Advertisement) error {
	if ad.Port <= 0 || ad.Port > 65535 {
		return fmt.Errorf("invalid port %d", ad.Port)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = defaultInstanceName
	}

	service, err := mdns.NewMDNSService(
		host,        // Instance name
		ServiceType, // Service type
		"",          // Domain (empty = .local)
		"",          // Host (empty = system hostname)
		ad.Port,
		nil, // IPs (nil = all interfaces)
		TXTRecords(ad),
	)
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}
	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", ad.Port,
		"name", ad.Name,
	)
	return nil
}

// Running reports whether an advertisement is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Stop stops advertising. Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}

// TXTRecords builds the TXT record set for an advertisement.
func TXTRecords(ad Advertisement) []string {
	name := ad.Name
	if name == "" {
		name = defaultInstanceName
	}
	records := []string{
		"name=" + name,
		"api=" + APIVersion,
	}
	if ad.Version != "" {
		records = append(records, "version="+ad.Version)
	}
	if ad.Public {
		records = append(records, "public=1")
	}
	return records
}
