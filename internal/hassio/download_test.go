package hassio

import (
	"net/http"
	"testing"
)

func TestDownloadRequest_PrepareCopiesHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(SupervisorKeyHeader, "tok")
	d := &DownloadRequest{URL: "http://hassio/snapshots/abc/download", Header: h}

	req, err := d.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if req.Method != http.MethodGet {
		t.Errorf("Method = %s, want GET", req.Method)
	}
	if req.Header.Get(SupervisorKeyHeader) != "tok" {
		t.Error("Prepare() dropped the supervisor key")
	}

	req.Header.Set("Range", "bytes=0-1")
	if d.Header.Get("Range") != "" {
		t.Error("Prepare() should not share the header map")
	}
}

func TestDownloadRequest_PrepareRange(t *testing.T) {
	d := &DownloadRequest{URL: "http://hassio/x", Header: http.Header{}}

	tests := []struct {
		offset, length int64
		want           string
	}{
		{0, 100, "bytes=0-99"},
		{100, 1, "bytes=100-100"},
		{512, 0, "bytes=512-"},
		{512, -1, "bytes=512-"},
	}
	for _, tt := range tests {
		req, err := d.PrepareRange(tt.offset, tt.length)
		if err != nil {
			t.Fatalf("PrepareRange() error = %v", err)
		}
		if got := req.Header.Get("Range"); got != tt.want {
			t.Errorf("PrepareRange(%d, %d) Range = %q, want %q", tt.offset, tt.length, got, tt.want)
		}
	}
}

func TestDownloadRequest_BadURL(t *testing.T) {
	d := &DownloadRequest{URL: "://bad", Header: http.Header{}}
	if _, err := d.Prepare(); !IsTransportError(err) {
		t.Errorf("Prepare() error = %v, want transport error", err)
	}
}
