package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/hassio-snapshots/internal/config"
	"github.com/muurk/hassio-snapshots/internal/hassio"
	"github.com/muurk/hassio-snapshots/internal/supervisortest"
)

func newTestSetup(t *testing.T) (*supervisortest.Server, *hassio.Gateway) {
	t.Helper()
	fake := supervisortest.New()
	fake.Token = "secret"
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	reg := config.NewRegistry()
	reg.SupervisorBaseURL = srv.URL
	reg.HomeAssistantBaseURL = srv.URL + supervisortest.HomeAssistantPrefix
	reg.ConfiguredToken = "secret"
	return fake, hassio.NewGateway(reg, srv.Client())
}

func TestDownloadSnapshot(t *testing.T) {
	fake, gw := newTestSetup(t)
	slug := fake.AddSnapshot(map[string]any{"slug": "abcd1234"})
	path := filepath.Join(t.TempDir(), "out.tar")

	n, err := downloadSnapshot(http.DefaultClient, gw.Download(slug), path, false)
	require.NoError(t, err)
	assert.EqualValues(t, len("tar:abcd1234"), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tar:abcd1234", string(data))
}

func TestDownloadSnapshot_Resume(t *testing.T) {
	fake, gw := newTestSetup(t)
	slug := fake.AddSnapshot(map[string]any{"slug": "abcd1234"})
	path := filepath.Join(t.TempDir(), "out.tar")
	require.NoError(t, os.WriteFile(path, []byte("tar:"), 0o600))

	n, err := downloadSnapshot(http.DefaultClient, gw.Download(slug), path, true)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)

	req, ok := fake.LastRequest(http.MethodGet, "/snapshots/abcd1234/download")
	require.True(t, ok)
	assert.Equal(t, "bytes=4-", req.Header.Get("Range"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tar:abcd1234", string(data))
}

func TestDownloadSnapshot_ResumeComplete(t *testing.T) {
	fake, gw := newTestSetup(t)
	slug := fake.AddSnapshot(map[string]any{"slug": "abcd1234"})
	path := filepath.Join(t.TempDir(), "out.tar")
	require.NoError(t, os.WriteFile(path, []byte("tar:abcd1234"), 0o600))

	n, err := downloadSnapshot(http.DefaultClient, gw.Download(slug), path, true)
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tar:abcd1234", string(data))
}

func TestDownloadSnapshot_Missing(t *testing.T) {
	_, gw := newTestSetup(t)
	path := filepath.Join(t.TempDir(), "out.tar")

	_, err := downloadSnapshot(http.DefaultClient, gw.Download("nope"), path, false)
	require.Error(t, err)
	assert.True(t, hassio.IsTransportError(err))
	assert.Equal(t, http.StatusBadRequest, hassio.StatusCode(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be created for a failed download")
}

func TestOverrides(t *testing.T) {
	reg := config.NewRegistry()
	reg.ConfiguredToken = "saved"
	o := overrides{Registry: reg}

	t.Cleanup(func() { supervisorURLFlag, haURLFlag, tokenFlag = "", "", "" })

	assert.Equal(t, config.DefaultSupervisorURL, o.SupervisorURL())
	assert.Equal(t, "saved", o.Token())

	supervisorURLFlag = "http://localhost:8080"
	haURLFlag = "http://localhost:8123/api"
	tokenFlag = "flag"
	assert.Equal(t, "http://localhost:8080/", o.SupervisorURL())
	assert.Equal(t, "http://localhost:8123/api/", o.HomeAssistantURL())
	assert.Equal(t, "flag", o.Token())
	assert.Equal(t, "saved", reg.ConfiguredToken, "flags must not change the registry")
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "****"},
		{"abcdefgh", "****efgh"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.in); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTroubleshooting(t *testing.T) {
	assert.NotEmpty(t, troubleshooting(hassio.NewHTTPError("http://hassio/snapshots", http.StatusUnauthorized)))
	assert.NotEmpty(t, troubleshooting(hassio.NewTransportError("http://hassio/snapshots", errors.New("dial tcp: refused"))))
	assert.NotEmpty(t, troubleshooting(hassio.NewMalformedResponseError("http://hassio/snapshots", []byte("<html>"), nil)))
	assert.Empty(t, troubleshooting(errors.New("plain")))
}
