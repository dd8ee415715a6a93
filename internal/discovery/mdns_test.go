package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name        string
		entry       *zeroconf.ServiceEntry
		wantNil     bool
		wantIP      string
		wantPort    int
		wantBaseURL string
	}{
		{
			name: "IPv4 with advertised internal_url",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Home"},
				HostName:      "homeassistant.local.",
				Port:          8123,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.10")},
				Text:          []string{"location_name=Home", "uuid=abc", "version=2021.1.0", "internal_url=http://192.168.1.10:8123/"},
			},
			wantIP:      "192.168.1.10",
			wantPort:    8123,
			wantBaseURL: "http://192.168.1.10:8123",
		},
		{
			name: "falls back to address and port",
			entry: &zeroconf.ServiceEntry{
				HostName: "ha.local.",
				Port:     8124,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantIP:      "10.0.0.5",
			wantPort:    8124,
			wantBaseURL: "http://10.0.0.5:8124",
		},
		{
			name: "port defaults to 8123",
			entry: &zeroconf.ServiceEntry{
				HostName: "ha.local.",
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.6")},
			},
			wantIP:      "10.0.0.6",
			wantPort:    8123,
			wantBaseURL: "http://10.0.0.6:8123",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "ha.local.",
				Port:     8123,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:      "fe80::1",
			wantPort:    8123,
			wantBaseURL: "http://[fe80::1]:8123",
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "ha.local.",
				Port:     8123,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:      "192.168.1.50",
			wantPort:    8123,
			wantBaseURL: "http://192.168.1.50:8123",
		},
		{
			name: "base_url without address",
			entry: &zeroconf.ServiceEntry{
				HostName: "ha.local.",
				Port:     8123,
				Text:     []string{"base_url=https://ha.example.com"},
			},
			wantIP:      "",
			wantPort:    8123,
			wantBaseURL: "https://ha.example.com",
		},
		{
			name: "no address at all",
			entry: &zeroconf.ServiceEntry{
				HostName: "ha.local.",
				Port:     8123,
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if inst != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", inst)
				}
				return
			}
			if inst == nil {
				t.Fatal("parseServiceEntry() = nil, want instance")
			}

			if inst.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", inst.IP, tt.wantIP)
			}
			if inst.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", inst.Port, tt.wantPort)
			}
			if inst.BaseURL() != tt.wantBaseURL {
				t.Errorf("BaseURL() = %v, want %v", inst.BaseURL(), tt.wantBaseURL)
			}
			if inst.APIURL() != tt.wantBaseURL+"/api/" {
				t.Errorf("APIURL() = %v", inst.APIURL())
			}
			if time.Since(inst.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt is not recent: %v", inst.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "fallback"},
		HostName:      "homeassistant.local.",
		Port:          8123,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.1.10")},
		Text:          []string{"location_name=Cabin", "uuid=u-1", "version=2021.2.3", "requires_api_password", "base_url=http://x=y"},
	}

	inst := parseServiceEntry(entry)
	if inst == nil {
		t.Fatal("parseServiceEntry() = nil")
	}

	if inst.Name != "Cabin" || inst.UUID != "u-1" || inst.Version != "2021.2.3" {
		t.Errorf("unexpected identity fields: %+v", inst)
	}
	if v, ok := inst.Metadata["requires_api_password"]; !ok || v != "" {
		t.Errorf("key without value should map to empty string, got %q, %v", v, ok)
	}
	if inst.Metadata["base_url"] != "http://x=y" {
		t.Errorf("value containing '=' was split: %q", inst.Metadata["base_url"])
	}
}

func TestParseServiceEntry_NameFallsBackToInstance(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "Living Room"},
		AddrIPv4:      []net.IP{net.ParseIP("10.1.1.1")},
	}
	if inst := parseServiceEntry(entry); inst == nil || inst.Name != "Living Room" {
		t.Errorf("Name = %v, want Living Room", inst)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}
