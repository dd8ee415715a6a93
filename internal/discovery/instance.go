package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Instance is a Home Assistant installation found on the network
type Instance struct {
	// Name is the location name the instance advertises (e.g., "Home")
	Name string

	// UUID uniquely identifies the installation
	UUID string

	// Version is the Home Assistant core version
	Version string

	// Hostname is the mDNS hostname (e.g., "homeassistant.local.")
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the HTTP port (typically 8123)
	Port int

	// Metadata contains every TXT record key/value
	Metadata map[string]string

	// DiscoveredAt is when the instance was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("Home Assistant %s (%s) at %s", i.Name, i.Version, i.BaseURL())
}

// BaseURL returns the URL the instance advertises, falling back to its
// address and port.
func (i *Instance) BaseURL() string {
	for _, key := range []string{"internal_url", "base_url"} {
		if v := strings.TrimSpace(i.Metadata[key]); v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	return "http://" + net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// APIURL returns the Home Assistant REST API base, ending in "/"
func (i *Instance) APIURL() string {
	return i.BaseURL() + "/api/"
}
