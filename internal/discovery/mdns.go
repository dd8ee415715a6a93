package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/hassio-snapshots/internal/logging"
)

const (
	// ServiceType is the mDNS service type Home Assistant advertises
	ServiceType = "_home-assistant._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is Home Assistant's default HTTP port
	DefaultPort = 8123
)

// Scanner handles mDNS discovery of Home Assistant instances
type Scanner struct {
	// Timeout is the maximum time to wait for responses
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all Home Assistant instances on the local network
func (s *Scanner) Scan(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu        sync.Mutex
		instances []*Instance
		seen      = map[string]bool{}
		done      = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			inst := parseServiceEntry(entry)
			if inst == nil {
				continue
			}
			key := inst.UUID
			if key == "" {
				key = inst.BaseURL()
			}
			mu.Lock()
			if !seen[key] {
				seen[key] = true
				instances = append(instances, inst)
				logging.Debug("Discovered Home Assistant", zap.String("url", inst.BaseURL()))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	mu.Lock()
	defer mu.Unlock()
	return instances, nil
}

// ScanForInstances is a convenience function to scan with a custom timeout
func ScanForInstances(timeout time.Duration) ([]*Instance, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan(context.Background())
}

// parseServiceEntry converts a zeroconf entry to an Instance.
// Returns nil when the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	// An advertised URL is enough even without an address record
	if ip == "" && metadata["internal_url"] == "" && metadata["base_url"] == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	name := metadata["location_name"]
	if name == "" {
		name = entry.Instance
	}

	return &Instance{
		Name:         name,
		UUID:         metadata["uuid"],
		Version:      metadata["version"],
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
